// Package cli implements the dataprep command line tool: the same ingest,
// clean and convert pipeline as the web UI, run over local files.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataprep/internal/logging"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var level, format string

	root := &cobra.Command{
		Use:           "dataprep",
		Short:         "Clean and convert CSV and Excel files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, format))
		},
	}
	root.PersistentFlags().StringVar(&level, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&format, "log-format", "text", "log format: text or json")

	root.AddCommand(newConvertCommand(), newInspectCommand())
	return root
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}
