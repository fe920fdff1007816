package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/provide-io/dbs-save/go/dbssave/internal/config"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/savefile"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/fingerprint"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/verify"
)

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(path)
}

func newDecryptCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "decrypt <cipher> [out]",
		Short: "Decrypt a save file to its plaintext payload",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			loaded, err := a.saves.Decode(args[0], cipher)
			if err != nil {
				return err
			}
			if !loaded.Genuine() {
				warnColor.Fprintf(a.stderr, "warning: %s failed validation (%s)\n", args[0], loaded.Report)
			}

			out := "-"
			if len(args) == 2 {
				out = args[1]
			}
			if out == "-" {
				if a.stdoutIsTerminal() && !force {
					return fmt.Errorf("refusing to write the payload to a terminal; give an output file or --force")
				}
				_, err := a.stdout.Write(loaded.Payload())
				return err
			}
			if err := savefile.WriteFileAtomic(out, loaded.Payload(), a.cfg.FilePerms, a.logger); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Decrypted %s -> %s (%d bytes)\n", args[0], out, len(loaded.Payload()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Write to stdout even when it is a terminal")
	return cmd
}

func newEncryptCmd(a *app) *cobra.Command {
	var withBackup bool
	cmd := &cobra.Command{
		Use:   "encrypt <plain> <out>",
		Short: "Encrypt a plaintext payload into a save file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			out := args[1]
			if withBackup {
				if _, err := os.Stat(out); err == nil {
					info, err := a.backups(out).Create(out)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "Backed up %s -> %s\n", out, info.Path)
				}
			}
			if err := a.saves.Save(out, payload); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Encrypted %s -> %s (%d bytes)\n", args[0], out, len(payload))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&withBackup, "backup", "b", false, "Back up an existing output file first")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show the container fields of a save file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.savePathOr(args)
			if err != nil {
				return err
			}
			loaded, err := a.saves.Load(path)
			if err != nil {
				return err
			}
			sum, err := fingerprint.File(path, a.cfg.Fingerprint)
			if err != nil {
				return err
			}
			r := loaded.Report
			w := a.stdout
			fmt.Fprintf(w, "File:         %s\n", path)
			fmt.Fprintf(w, "Size:         %d bytes\n", r.CipherSize)
			fmt.Fprintf(w, "Payload:      %d bytes\n", r.PayloadSize)
			fmt.Fprintf(w, "Padding:      %d\n", r.PadLen)
			fmt.Fprintf(w, "Checksum:     0x%08x stored, 0x%08x computed %s\n", r.StoredChecksum, r.ComputedChecksum, status(r.ChecksumOK()))
			fmt.Fprintf(w, "Magic:        0x%08x stored, 0x%08x expected %s\n", r.StoredMagic, r.ExpectedMagic, status(r.MagicOK()))
			fmt.Fprintf(w, "Fingerprint:  %s\n", sum)
			return nil
		},
	}
}

func status(ok bool) string {
	if ok {
		return okColor.Sprint("OK")
	}
	return badColor.Sprint("MISMATCH")
}

func newVerifyCmd(a *app) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "verify [file...]",
		Short: "Verify one or more save files",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				path, err := a.savePathOr(nil)
				if err != nil {
					return err
				}
				paths = []string{path}
			}

			v := &verify.Verifier{
				Codec:       a.saves.Codec(),
				Fingerprint: a.cfg.Fingerprint,
				Logger:      a.logger,
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			results, err := v.Files(ctx, paths, workers)
			if err != nil {
				return err
			}
			for _, r := range results {
				switch {
				case r.Err != nil:
					fmt.Fprintf(a.stdout, "%s  %s: %v\n", badColor.Sprint("ERROR   "), r.Path, r.Err)
				case r.OK():
					fmt.Fprintf(a.stdout, "%s  %s\n", okColor.Sprint("OK      "), r.Path)
				default:
					fmt.Fprintf(a.stdout, "%s  %s (%s)\n", badColor.Sprint("MISMATCH"), r.Path, r.Report)
				}
			}
			if n := verify.Failed(results); n > 0 {
				fmt.Fprintf(a.stderr, "%d of %d files failed\n", n, len(results))
				return errVerifyFailed
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", config.DefaultWorkers, "Number of files verified in parallel")
	return cmd
}
