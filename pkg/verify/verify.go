// Package verify checks many save files at once.
package verify

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/container"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/logging"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/fingerprint"
)

// Result is the outcome for one file. Err is set when the file could not be
// read or is structurally invalid; Report is set otherwise.
type Result struct {
	Path        string
	Report      *container.Report
	Fingerprint string
	Err         error
}

// OK reports whether the file decoded with a valid checksum and magic.
func (r Result) OK() bool {
	return r.Err == nil && r.Report != nil && r.Report.Genuine()
}

// Verifier holds the codec and fingerprint settings.
type Verifier struct {
	Codec       *container.Codec
	Fingerprint fingerprint.Algorithm
	Logger      hclog.Logger
}

// Files verifies paths with at most workers concurrent reads and returns one
// Result per path in input order. The error is non-nil only when ctx is
// cancelled before every file was verified; unverified paths then carry
// ctx.Err() in their Result.
func (v *Verifier) Files(ctx context.Context, paths []string, workers int) ([]Result, error) {
	logger := logging.OrNull(v.Logger)
	codec := v.Codec
	if codec == nil {
		codec = container.Default()
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(paths))
	done := make([]bool, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = v.file(codec, path)
			done[i] = true
			if r := results[i]; r.OK() {
				logger.Info("✓ Save valid", "path", path)
			} else if r.Err != nil {
				logger.Error("✗ Save unreadable", "path", path, "error", r.Err)
			} else {
				logger.Error("✗ Save failed validation", "path", path,
					"checksum_ok", r.Report.ChecksumOK(), "magic_ok", r.Report.MagicOK())
			}
			return nil
		})
	}

	// gctx is always cancelled once Wait returns; only ctx decides.
	err := g.Wait()
	missing := false
	for _, ok := range done {
		if !ok {
			missing = true
			break
		}
	}
	if !missing {
		return results, nil
	}
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = context.Canceled
	}
	for i := range results {
		if !done[i] {
			results[i] = Result{Path: paths[i], Err: err}
		}
	}
	return results, err
}

func (v *Verifier) file(codec *container.Codec, path string) Result {
	result := Result{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		result.Err = err
		return result
	}
	if result.Fingerprint, err = fingerprint.Calculate(data, v.Fingerprint); err != nil {
		result.Err = err
		return result
	}
	report, _, err := codec.Verify(data)
	if err != nil {
		result.Err = fmt.Errorf("decoding: %w", err)
		return result
	}
	result.Report = report
	return result
}

// Failed counts the results that are not OK.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}
