package cmd

import (
	"fmt"

	"github.com/ledgersh/ledgersh/core"
	"github.com/ledgersh/ledgersh/core/purge"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var snapshotPath string

// exitStatus is returned by a command that already reported its own
// diagnostics and only needs the process to exit with the status.
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

// purgeCmd is the isolated child spawned by rmexcept.
var purgeCmd = &cobra.Command{
	Use:    purge.ChildCommand + " [KEEP...]",
	Short:  "Delete regular files in the working directory except KEEP.",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		if status := purge.Main(afero.NewOsFs(), ".", args, cmd.ErrOrStderr()); status != 0 {
			cmd.SilenceErrors = true
			return exitStatus(status)
		}
		return nil
	},
}

// execCmd is the supervised child spawned by exectl for builtins.
var execCmd = &cobra.Command{
	Use:    core.ExecChildCommand + " --ledger FILE -- LINE",
	Short:  "Run one line against a ledger snapshot.",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log, closeLog, err := openLog(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		snap, err := core.ReadSnapshot(afero.NewOsFs(), snapshotPath)
		if err != nil {
			return err
		}

		sh, err := newShell(cfg, nil, log)
		if err != nil {
			return err
		}
		sh.Context = cmd.Context()
		sh.Stdout = cmd.OutOrStdout()
		sh.Stderr = cmd.ErrOrStderr()
		sh.Launcher.Stdout = sh.Stdout
		sh.Launcher.Stderr = sh.Stderr
		sh.Restore(snap)

		log.Debug().Str("line", args[0]).Msg("supervised builtin")
		sh.Dispatch(args[0])
		return nil
	},
}

func init() {
	execCmd.Flags().StringVar(&snapshotPath, "ledger", "", "ledger snapshot written by the parent")
	_ = execCmd.MarkFlagRequired("ledger")

	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(execCmd)
}
