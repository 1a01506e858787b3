package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/multiverse-display/billboard/internal/installer"
	"github.com/multiverse-display/billboard/internal/runner"
	"github.com/multiverse-display/billboard/internal/systemd"
)

func uninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall [flags]",
		Short: "Stop and remove the billboard service",
		Long: `Uninstall stops and disables the service, removes its unit file, and
reloads systemd. The application directory is left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := installer.Options{}
			opts.ServiceName, _ = cmd.Flags().GetString("service")
			opts.UnitDir, _ = cmd.Flags().GetString("unit-dir")

			ctx := cmd.Context()
			manager, err := systemd.ConnectSystem(ctx)
			if err != nil {
				return err
			}
			defer manager.Close()

			inst := installer.New(opts, runner.Default(), manager, nil)
			if err := inst.Uninstall(ctx); err != nil {
				return fmt.Errorf("uninstall: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s stopped and removed\n", inst.UnitName())
			return nil
		},
	}

	addServiceFlags(cmd.Flags())

	return cmd
}
