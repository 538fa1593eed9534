package cmd

import (
	"fmt"
	"io"

	"github.com/ledgersh/ledgersh/core/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log"},
	Short:   "Explore the application log.",
}

var reportCommand = &cobra.Command{
	Use:   "report [FILE]",
	Short: "Summarize the application log.",
	Long: `Summarize the JSON lines application log.

Without FILE the log named in the configuration is read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		var fd io.ReadCloser
		if len(args) == 1 {
			f, err := afero.NewOsFs().Open(args[0])
			if err != nil {
				return err
			}
			fd = f
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f, err := cfg.ReadAppLog()
			if err != nil {
				return err
			}
			fd = f
		}
		defer fd.Close()

		report := logger.NewReport()
		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), string(out))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(reportCommand)
}
