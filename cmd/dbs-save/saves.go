package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provide-io/dbs-save/go/dbssave/internal/savedir"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/editor"
)

func newEditCmd(a *app) *cobra.Command {
	var (
		force     bool
		noBackup  bool
		editorCmd string
	)
	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a save's payload in an external editor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.savePathOr(args)
			if err != nil {
				return err
			}
			session := &editor.Session{
				Saves:       a.saves,
				Editor:      a.cfg.Editor,
				Force:       force,
				LockTimeout: a.cfg.LockTimeout,
				Stdin:       a.stdin,
				Stdout:      a.stdout,
				Stderr:      a.stderr,
				Logger:      a.logger,
			}
			if editorCmd != "" {
				session.Editor = editorCmd
			}
			mgr := a.backups(path)
			if !noBackup {
				session.Backups = mgr
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			outcome, err := session.Run(ctx, path)
			if err != nil {
				return err
			}
			if !outcome.Changed {
				fmt.Fprintln(a.stdout, "No changes.")
				return nil
			}
			if outcome.Backup != nil {
				fmt.Fprintf(a.stdout, "Backed up to %s\n", outcome.Backup.Path)
				if _, err := mgr.Prune(a.cfg.KeepBackups); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.stdout, "Saved %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Edit even if the save fails validation")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not back up the save before writing")
	cmd.Flags().StringVarP(&editorCmd, "editor", "e", "", "Editor command (overrides DBS_EDITOR, VISUAL and EDITOR)")
	return cmd
}

func newLocateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Print the save directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.requireSaveDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Save directory: %s\n", dir)
			if savedir.Exists(dir) {
				fmt.Fprintf(a.stdout, "save.bin:       %s\n", okColor.Sprint("found"))
			} else {
				fmt.Fprintf(a.stdout, "save.bin:       %s\n", warnColor.Sprint("missing"))
			}
			fmt.Fprintf(a.stdout, "Backups:        %s\n", a.cfg.BackupDir)
			return nil
		},
	}
}
