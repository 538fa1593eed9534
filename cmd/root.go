package cmd

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/ledgersh/ledgersh/core"
	"github.com/ledgersh/ledgersh/core/config"
	"github.com/ledgersh/ledgersh/core/logger"
	"github.com/ledgersh/ledgersh/core/proc"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	return config.LoadOrDefault(afero.NewOsFs(), cfgPath)
}

func openLog(cfg *config.Configuration) (zerolog.Logger, func(), error) {
	log, closer, err := logger.Open(logger.Options{
		Path:       cfg.LogPath(),
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return log, func() {}, err
	}
	return log, func() { _ = closer.Close() }, nil
}

func useColor(mode string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return !color.NoColor && isatty.IsTerminal(os.Stderr.Fd())
	}
}

// newShell builds a shell whose exectl children load the same configuration.
func newShell(cfg *config.Configuration, rl core.LineReader, log zerolog.Logger) (*core.Shell, error) {
	sh, err := core.NewShell(cfg, rl, log)
	if err != nil {
		return nil, err
	}
	sh.Color = useColor(cfg.Color)
	sh.ExecCommand = func(snapshotPath, line string) (*exec.Cmd, error) {
		return proc.SelfCommand(core.ExecChildCommand, "--config", cfgPath, "--ledger", snapshotPath, "--", line)
	}
	return sh, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ledgersh",
	Short: "Interactive shell with a numbered command ledger",
	Long: `An interactive shell that records every line in a numbered ledger.

Lines are replayed with "issue N", run under a deadline with
"exectl CMD... SECONDS" and the working directory is purged with
"rmexcept KEEP...". Anything the shell doesn't know is handed to
/bin/sh -c.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.EnsureDir(); err != nil {
			cmd.PrintErrf("couldn't create %s: %v\n", cfg.Dir(), err)
		}

		log, closeLog, err := openLog(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		rl, err := readline.NewEx(&readline.Config{
			Prompt:      cfg.Prompt,
			HistoryFile: cfg.HistoryPath(),
		})
		if err != nil {
			return err
		}
		defer rl.Close()

		sh, err := newShell(cfg, rl, log)
		if err != nil {
			return err
		}
		sh.Context = cmd.Context()

		// Unblock the prompt so the loop sees end of input.
		stopClose := context.AfterFunc(cmd.Context(), func() {
			_ = rl.Close()
		})
		defer stopClose()

		// Keep the shell alive on ^C while a child runs in the foreground.
		// Children still get the default disposition.
		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, os.Interrupt)
		defer signal.Stop(interrupts)
		go func() {
			for range interrupts {
				log.Debug().Msg("interrupt")
			}
		}()

		log.Info().Str("config", cfg.Dir()).Msg("session started")
		defer func() {
			log.Info().Int("entries", sh.Ledger.Len()).Msg("session ended")
		}()

		return sh.Run()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Hanging up or terminating the shell kills supervised children.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	var status exitStatus
	if errors.As(err, &status) {
		os.Exit(int(status))
	}
	cobra.CheckErr(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultDir(), "config path")
}
