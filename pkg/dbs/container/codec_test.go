package container

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/btea"
	dbserrors "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/errors"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// TestEncodeKnownAnswer pins the exact container bytes for small payloads
func TestEncodeKnownAnswer(t *testing.T) {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "codec_test",
		Level: hclog.Trace,
	})

	testCases := []struct {
		name     string
		payload  []byte
		checksum uint32
		padLen   uint8
		cipher   string
	}{
		{
			name:     "empty",
			payload:  []byte{},
			checksum: 0x06583463,
			padLen:   0,
			cipher:   "3decee04a4a8224400",
		},
		{
			name:     "AB",
			payload:  []byte("AB"),
			checksum: 0x065834E6,
			padLen:   6,
			cipher:   "52d9976cfa7a6bd4c831ff0fe6c84e4406",
		},
		{
			name:     "hello world",
			payload:  []byte("Hello, World!"),
			checksum: Checksum([]byte("Hello, World!")),
			padLen:   3,
			cipher:   "f0f0bca5a11dfb0c8f5c9f25555cca26ad270678fd81c7fd03",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.payload)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			logger.Debug("📦 Encoded payload", "payload", tc.payload, "cipher", hex.EncodeToString(got))

			want := mustHex(t, tc.cipher)
			if !bytes.Equal(got, want) {
				t.Fatalf("Encode = %x, want %x", got, want)
			}
			if len(got) != EncodedSize(len(tc.payload)) {
				t.Errorf("len = %d, EncodedSize = %d", len(got), EncodedSize(len(tc.payload)))
			}

			u, err := Decode(got)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(u.Payload, tc.payload) {
				t.Errorf("payload = %q, want %q", u.Payload, tc.payload)
			}
			if u.Checksum != tc.checksum {
				t.Errorf("checksum = 0x%08x, want 0x%08x", u.Checksum, tc.checksum)
			}
			if u.Magic != Magic {
				t.Errorf("magic = 0x%08x, want 0x%08x", u.Magic, Magic)
			}
			if u.PadLen != tc.padLen {
				t.Errorf("padLen = %d, want %d", u.PadLen, tc.padLen)
			}
		})
	}
}

func TestEmptyPayloadLayout(t *testing.T) {
	got, err := Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	// 8 encrypted bytes (checksum + magic, no padding) and the marker byte
	if len(got) != 9 {
		t.Fatalf("len = %d, want 9", len(got))
	}
	if got[8] != 0 {
		t.Errorf("marker = %d, want 0", got[8])
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sizes := make([]int, 0, 300)
	for n := 0; n <= 256; n++ {
		sizes = append(sizes, n)
	}
	sizes = append(sizes, 1000, 1023, 4095, 4096, 8191, 8192, 8193)

	for _, n := range sizes {
		payload := make([]byte, n)
		rng.Read(payload)

		cipher, err := Encode(payload)
		if err != nil {
			t.Fatalf("n=%d: Encode: %v", n, err)
		}
		if (len(cipher)-MarkerSize)%BlockAlignment != 0 {
			t.Fatalf("n=%d: encrypted region of %d bytes is not aligned", n, len(cipher)-MarkerSize)
		}

		u, err := Decode(cipher)
		if err != nil {
			t.Fatalf("n=%d: Decode: %v", n, err)
		}
		if !bytes.Equal(u.Payload, payload) {
			t.Fatalf("n=%d: payload mismatch", n)
		}
		if u.Checksum != Checksum(payload) || !u.ChecksumValid() {
			t.Fatalf("n=%d: checksum = 0x%08x, want 0x%08x", n, u.Checksum, Checksum(payload))
		}
		if !u.MagicValid(Magic) {
			t.Fatalf("n=%d: magic = 0x%08x", n, u.Magic)
		}
		if want := uint8((8 - (n+8)%8) % 8); u.PadLen != want {
			t.Fatalf("n=%d: padLen = %d, want %d", n, u.PadLen, want)
		}
	}
}

func TestCodecDoesNotMutateInput(t *testing.T) {
	payload := []byte("do not touch")
	orig := bytes.Clone(payload)
	cipher, err := Encode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, orig) {
		t.Fatal("Encode modified its input")
	}

	snapshot := bytes.Clone(cipher)
	if _, err := Decode(cipher); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cipher, snapshot) {
		t.Fatal("Decode modified its input")
	}
}

func TestDecodeInvalidLength(t *testing.T) {
	for _, n := range []int{0, 1, 8, 10, 16, 24} {
		_, err := Decode(make([]byte, n))
		if !errors.Is(err, dbserrors.ErrInvalidLength) {
			t.Errorf("len %d: error = %v, want ErrInvalidLength", n, err)
		}
	}
}

func TestDecodeInvalidPadding(t *testing.T) {
	for _, marker := range []byte{8, 9, 128, 255} {
		buf := make([]byte, 9)
		buf[8] = marker
		_, err := Decode(buf)
		if !errors.Is(err, dbserrors.ErrInvalidPadding) {
			t.Errorf("marker %d: error = %v, want ErrInvalidPadding", marker, err)
		}
	}
}

func TestDecodePaddingEatsTrailer(t *testing.T) {
	// a single block leaves fewer than 8 trailer bytes once padding is removed
	for marker := byte(1); marker <= MaxPadLen; marker++ {
		buf := make([]byte, 9)
		buf[8] = marker
		_, err := Decode(buf)
		if !errors.Is(err, dbserrors.ErrInvalidLength) {
			t.Errorf("marker %d: error = %v, want ErrInvalidLength", marker, err)
		}
	}
}

func TestTamperedByteIsDetected(t *testing.T) {
	cipher, err := Encode([]byte("gems = 42\nlevel = 7\n"))
	if err != nil {
		t.Fatal(err)
	}
	cipher[3] ^= 0x01

	u, err := Decode(cipher)
	if err != nil {
		t.Fatalf("tampered container must still decode: %v", err)
	}
	if u.ChecksumValid() {
		t.Errorf("tampering not detected: stored 0x%08x computed 0x%08x", u.Checksum, u.ComputedChecksum())
	}
}

func TestWrongKeySurfacesAsData(t *testing.T) {
	cipher, err := Encode([]byte("wrong key"))
	if err != nil {
		t.Fatal(err)
	}

	other := DefaultKey
	other[0] ^= 0x80000000
	report, _, err := New(other, Magic).Verify(cipher)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.MagicOK() || report.Genuine() {
		t.Errorf("wrong key reported as genuine: %s", report)
	}
}

func TestVerifyReport(t *testing.T) {
	cipher, err := Encode([]byte("AB"))
	if err != nil {
		t.Fatal(err)
	}
	report, u, err := Verify(cipher)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Genuine() {
		t.Fatalf("report not genuine: %s", report)
	}
	if report.CipherSize != 17 || report.PayloadSize != 2 || report.PadLen != 6 {
		t.Errorf("unexpected report: %s", report)
	}
	if string(u.Payload) != "AB" {
		t.Errorf("payload = %q", u.Payload)
	}
}

func TestCustomMagic(t *testing.T) {
	codec := New(btea.Key{1, 2, 3, 4}, 0xA5A5A5A5)
	cipher, err := codec.Encode([]byte("custom"))
	if err != nil {
		t.Fatal(err)
	}
	u, err := codec.Decode(cipher)
	if err != nil {
		t.Fatal(err)
	}
	if !u.MagicValid(codec.Magic()) || u.MagicValid(Magic) {
		t.Errorf("magic = 0x%08x", u.Magic)
	}
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := bytes.Repeat([]byte{byte(i)}, i*37)
			cipher, err := Encode(payload)
			if err != nil {
				errs <- err
				return
			}
			u, err := Decode(cipher)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(u.Payload, payload) {
				errs <- errors.New("payload mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
