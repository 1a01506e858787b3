package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/multiverse-display/billboard/internal/installer"
	"github.com/multiverse-display/billboard/internal/runner"
	"github.com/multiverse-display/billboard/internal/systemd"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [flags]",
		Short: "Show the billboard service state",
		Args:  cobra.NoArgs,
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
			status, err := inst.Status(ctx)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s (%s)\n", status.Name, status.ActiveState, status.UnitFileState)
			if status.MainPID != 0 {
				fmt.Fprintf(out, "main pid: %d\n", status.MainPID)
			}
			return nil
		},
	}

	addServiceFlags(cmd.Flags())

	return cmd
}
