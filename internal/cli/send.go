package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/multiverse-display/billboard/internal/config"
	"github.com/multiverse-display/billboard/internal/daemon"
	"github.com/multiverse-display/billboard/internal/display"
)

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "send [flags] SOURCE",
		Short:   "Send a single image to the panels and exit",
		Example: "  billboard send poster.png\n  billboard send https://example.com/frame.png",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			cfgPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

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

			ctx := cmd.Context()
			if err := d.ShowOnce(ctx, source); err != nil {
				return fmt.Errorf("send: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %d target(s)\n", source, len(cfg.Targets))
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "config.yaml", "Path to the daemon config file")

	return cmd
}
