package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crs4/tdm/internal/config"
)

// app carries what every subcommand shares.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand constructs the root tdm command. Subcommands log through
// logger; errors are returned, not printed.
func NewRootCommand(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	a := &app{cfg: cfg, logger: logger}
	cmd := &cobra.Command{
		Use:           "tdm",
		Short:         "tdm prepares WRF run configurations and fetches GFS input data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newWRFConfigCommand(a))
	cmd.AddCommand(newGFSFetchCommand(a))

	return cmd
}
