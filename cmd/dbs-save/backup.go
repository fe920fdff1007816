package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/provide-io/dbs-save/go/dbssave/internal/config"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/backup"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/operations"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/savefile"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage save backups",
	}
	cmd.AddCommand(
		newBackupCreateCmd(a),
		newBackupListCmd(a),
		newBackupRestoreCmd(a),
		newBackupPruneCmd(a),
		newBackupExportCmd(a),
		newBackupImportCmd(a),
	)
	return cmd
}

// manager returns the backup manager for the located save.
func (a *app) manager() (*backup.Manager, error) {
	if a.cfg.BackupDir == "" {
		if _, err := a.requireSaveDir(); err != nil {
			return nil, err
		}
	}
	return a.backups(a.cfg.SavePath()), nil
}

func newBackupCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create [file]",
		Short: "Back up the save (or the given file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.savePathOr(args)
			if err != nil {
				return err
			}
			mgr := a.backups(path)
			info, err := mgr.Create(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s\n", info.Path)
			removed, err := mgr.Prune(a.cfg.KeepBackups)
			if err != nil {
				return err
			}
			for _, name := range removed {
				fmt.Fprintf(a.stdout, "pruned %s\n", name)
			}
			return nil
		},
	}
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			infos, err := mgr.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintf(a.stdout, "No backups in %s\n", mgr.Dir())
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTIME\tSIZE\tVALID\tFINGERPRINT")
			for _, info := range infos {
				valid := okColor.Sprint("yes")
				if !info.Valid {
					valid = badColor.Sprint("no")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					info.Name, info.Time.Format("2006-01-02 15:04:05"), info.Size, valid, info.Fingerprint)
			}
			return tw.Flush()
		},
	}
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Restore a backup over save.bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSaveDir(); err != nil {
				return err
			}
			mgr := a.backups(a.cfg.SavePath())

			lock, err := savefile.AcquireLock(cmd.Context(), a.cfg.SavePath(), a.cfg.LockTimeout, a.logger)
			if err != nil {
				return err
			}
			defer lock.Release()

			emergency, err := mgr.Restore(args[0])
			if err != nil {
				return err
			}
			if emergency != nil {
				fmt.Fprintf(a.stdout, "Previous save kept as %s\n", emergency.Path)
			}
			fmt.Fprintf(a.stdout, "Restored %s\n", args[0])
			return nil
		},
	}
}

func newBackupPruneCmd(a *app) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.KeepBackups
			}
			if keep <= 0 {
				return fmt.Errorf("--keep must be positive (or set %s)", config.EnvKeepBackups)
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			removed, err := mgr.Prune(keep)
			if err != nil {
				return err
			}
			for _, name := range removed {
				fmt.Fprintf(a.stdout, "pruned %s\n", name)
			}
			fmt.Fprintf(a.stdout, "%d backups removed\n", len(removed))
			return nil
		},
	}
	cmd.Flags().IntVarP(&keep, "keep", "k", 0, "Number of backups to keep")
	return cmd
}

// archiveChain resolves --format, then the file name, then the default.
func archiveChain(format, name string) ([]uint8, error) {
	if format != "" {
		return operations.ParseChain(format)
	}
	if name != "" && name != "-" {
		if chain, err := operations.ChainForFilename(name); err == nil {
			return chain, nil
		}
	}
	return operations.ParseChain(config.DefaultArchive)
}

func newBackupExportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <archive>",
		Short: "Write all backups into a tar archive (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := archiveChain(format, args[0])
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}

			var w io.Writer = a.stdout
			var f *os.File
			if args[0] != "-" {
				if f, err = os.OpenFile(args[0], os.O_CREATE|os.O_TRUNC|os.O_WRONLY, a.cfg.FilePerms); err != nil {
					return err
				}
				w = f
			}
			count, err := mgr.Export(w, chain)
			if f != nil {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}
			if err != nil {
				return err
			}
			if f != nil {
				fmt.Fprintf(a.stdout, "Exported %d backups to %s (%s)\n", count, args[0], operations.ChainString(chain))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Archive format: tar, tar.gz, tar.bz2, tar.lz4")
	return cmd
}

func newBackupImportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <archive>",
		Short: "Import backups from an archive (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := archiveChain(format, args[0])
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}

			r := a.stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			written, err := mgr.Import(r, chain)
			if err != nil {
				return err
			}
			for _, name := range written {
				fmt.Fprintf(a.stdout, "imported %s\n", name)
			}
			fmt.Fprintf(a.stdout, "%d backups imported into %s\n", len(written), mgr.Dir())
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Archive format: tar, tar.gz, tar.bz2, tar.lz4")
	return cmd
}
