// Package cli wires the billboard subcommands.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/multiverse-display/billboard/internal/logging"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "billboard",
		Short:        "Multiverse LED billboard daemon and installer",
		Long:         "billboard drives a stack of Multiverse LED panels from image sources and can install itself (or the legacy Python daemon) as a systemd service.",
		Version:      "1.0.0",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			logging.Setup(debug)
		},
	}

	cmd.AddCommand(
		installCmd(),
		uninstallCmd(),
		statusCmd(),
		runCmd(),
		sendCmd(),
	)

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	cmd.CompletionOptions.HiddenDefaultCmd = true

	return cmd
}

// addServiceFlags registers the flags shared by the service lifecycle
// commands (install, uninstall, status).
func addServiceFlags(fs *pflag.FlagSet) {
	fs.StringP("service", "s", "billboard", "Service name (without .service suffix)")
	fs.StringP("unit-dir", "", "/etc/systemd/system", "Directory for the systemd unit file")
}
