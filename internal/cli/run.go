package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/multiverse-display/billboard/internal/config"
	"github.com/multiverse-display/billboard/internal/daemon"
	"github.com/multiverse-display/billboard/internal/display"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags]",
		Short: "Run the billboard display daemon",
		Long: `Run loads the configuration (with its optional remote override) and
loops over the image sources, streaming panel strips to the configured
controllers until interrupted. Outside the active window the panels are
blanked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cfg.ApplyRemote(ctx, nil, slog.Default())

			d, err := daemon.New(
				cfg,
				&display.HTTPLoader{},
				&display.TCPSender{Port: cfg.Port},
				nil,
				slog.Default(),
			)
			if err != nil {
				return err
			}

			if err := d.Run(ctx); err != nil {
				return fmt.Errorf("display loop: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "config.yaml", "Path to the daemon config file")

	return cmd
}
