package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/provide-io/dbs-save/go/dbssave/internal/config"
	"github.com/provide-io/dbs-save/go/dbssave/internal/savedir"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/backup"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/container"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/logging"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/savefile"
)

// errVerifyFailed makes the process exit 1 without printing anything more.
var errVerifyFailed = errors.New("verification failed")

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	badColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
)

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logLevel    string
	saveDir     string
	backupDir   string
	envFile     string
	versionFlag bool

	cfg    *config.Config
	logger hclog.Logger
	saves  *savefile.Service
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

// setup runs before every subcommand.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFile(a.envFile, nil); err != nil {
		return err
	}
	a.logger = logging.NewLogger("dbs-save", logging.ResolveLevel(a.logLevel), a.stderr)

	cfg, err := config.Load(a.logger)
	if err != nil {
		return err
	}
	if a.saveDir != "" {
		cfg.SaveDir = a.saveDir
	}
	if a.backupDir != "" {
		cfg.BackupDir = a.backupDir
	}
	cfg.Finalize()
	a.cfg = cfg

	a.saves = savefile.NewService(container.Default(), cfg.FilePerms, a.logger)
	return nil
}

func (a *app) requireSaveDir() (string, error) {
	if a.cfg.SaveDir == "" {
		return "", fmt.Errorf("%w; use --save-dir or %s", savedir.ErrUnsupportedPlatform, savedir.EnvSaveDir)
	}
	return a.cfg.SaveDir, nil
}

// savePathOr returns args[0] or the located save.bin.
func (a *app) savePathOr(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if _, err := a.requireSaveDir(); err != nil {
		return "", err
	}
	return a.cfg.SavePath(), nil
}

// backups builds a manager for the configured backup directory. Without a
// save directory the backups live next to target.
func (a *app) backups(target string) *backup.Manager {
	dir := a.cfg.BackupDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(target), config.BackupDirName)
	}
	savePath := ""
	if a.cfg.SaveDir != "" {
		savePath = a.cfg.SavePath()
	}
	return backup.NewManager(backup.Options{
		Dir:         dir,
		SavePath:    savePath,
		Perms:       a.cfg.FilePerms,
		Fingerprint: a.cfg.Fingerprint,
		Codec:       a.saves.Codec(),
	}, a.logger)
}

// stdoutIsTerminal reports whether stdout is an interactive terminal.
func (a *app) stdoutIsTerminal() bool {
	f, ok := a.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dbs-save",
		Short:         "Decrypt, edit and back up Death by Scrolling saves",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.versionFlag {
				printVersion(a.stdout)
				return nil
			}
			return cmd.Help()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.saveDir, "save-dir", "", "Save directory (defaults to the platform location or "+savedir.EnvSaveDir+")")
	flags.StringVar(&a.backupDir, "backup-dir", "", "Backup directory (defaults to <save-dir>/"+config.BackupDirName+")")
	flags.StringVar(&a.envFile, "env-file", "", "Load settings from this .env file")
	root.Flags().BoolVarP(&a.versionFlag, "version", "V", false, "Show version information")

	root.PersistentPreRunE = a.setup

	root.AddCommand(
		newDecryptCmd(a),
		newEncryptCmd(a),
		newInspectCmd(a),
		newVerifyCmd(a),
		newEditCmd(a),
		newLocateCmd(a),
		newBackupCmd(a),
	)
	return root
}
