package container

import "fmt"

// Report summarises the validation of one decoded container.
type Report struct {
	CipherSize       int
	PayloadSize      int
	PadLen           uint8
	StoredChecksum   uint32
	ComputedChecksum uint32
	StoredMagic      uint32
	ExpectedMagic    uint32
}

// ChecksumOK reports whether the stored checksum matches the payload.
func (r *Report) ChecksumOK() bool {
	return r.StoredChecksum == r.ComputedChecksum
}

// MagicOK reports whether the stored magic is the expected one. A wrong
// magic value almost always means the file was encrypted with another key.
func (r *Report) MagicOK() bool {
	return r.StoredMagic == r.ExpectedMagic
}

// Genuine reports whether both the checksum and the magic value are valid.
func (r *Report) Genuine() bool {
	return r.ChecksumOK() && r.MagicOK()
}

func (r *Report) String() string {
	return fmt.Sprintf("size=%d payload=%d padlen=%d checksum=0x%08x/0x%08x magic=0x%08x/0x%08x",
		r.CipherSize, r.PayloadSize, r.PadLen,
		r.StoredChecksum, r.ComputedChecksum,
		r.StoredMagic, r.ExpectedMagic)
}

// Verify decodes cipher and reports whether it is genuine. Only structural
// decode failures are returned as errors.
func (c *Codec) Verify(cipher []byte) (*Report, *Unpacked, error) {
	u, err := c.Decode(cipher)
	if err != nil {
		return nil, nil, err
	}
	return &Report{
		CipherSize:       len(cipher),
		PayloadSize:      len(u.Payload),
		PadLen:           u.PadLen,
		StoredChecksum:   u.Checksum,
		ComputedChecksum: u.ComputedChecksum(),
		StoredMagic:      u.Magic,
		ExpectedMagic:    c.magic,
	}, u, nil
}

// Verify checks cipher with the default codec.
func Verify(cipher []byte) (*Report, *Unpacked, error) {
	return defaultCodec.Verify(cipher)
}
