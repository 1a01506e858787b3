package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/multiverse-display/billboard/internal/installer"
	"github.com/multiverse-display/billboard/internal/runner"
	"github.com/multiverse-display/billboard/internal/systemd"
)

func installCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [flags]",
		Short: "Install billboard as a systemd service",
		Long: `Install provisions the billboard daemon as a systemd service:
application directory, isolated runtime, unit file, then daemon-reload,
enable, and start. By default it installs the legacy Python daemon into
a virtualenv; with --binary it installs this executable instead.`,
		Example: `  billboard install --script billboard.py --requirements requirements.txt
  billboard install --binary --config config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := installer.Options{}
			opts.ServiceName, _ = cmd.Flags().GetString("service")
			opts.Dir, _ = cmd.Flags().GetString("dir")
			opts.ScriptPath, _ = cmd.Flags().GetString("script")
			opts.RequirementsPath, _ = cmd.Flags().GetString("requirements")
			opts.Python, _ = cmd.Flags().GetString("python")
			opts.BinaryMode, _ = cmd.Flags().GetBool("binary")
			opts.ConfigPath, _ = cmd.Flags().GetString("config")
			opts.User, _ = cmd.Flags().GetString("user")
			opts.Group, _ = cmd.Flags().GetString("group")
			opts.UnitDir, _ = cmd.Flags().GetString("unit-dir")
			opts.LogPath, _ = cmd.Flags().GetString("log-path")

			ctx := cmd.Context()
			manager, err := systemd.ConnectSystem(ctx)
			if err != nil {
				return err
			}
			defer manager.Close()

			inst := installer.New(opts, runner.Default(), manager, nil)
			if err := inst.Install(ctx); err != nil {
				return fmt.Errorf("install: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s installed, enabled, and started\n", inst.UnitName())
			return nil
		},
	}

	addServiceFlags(cmd.Flags())
	cmd.Flags().StringP("dir", "", "/opt/billboard", "Application directory")
	cmd.Flags().StringP("script", "", "billboard.py", "Daemon script to install (python mode)")
	cmd.Flags().StringP("requirements", "r", "requirements.txt", "Dependency manifest (python mode)")
	cmd.Flags().StringP("python", "", "python3", "Interpreter used to create the virtualenv")
	cmd.Flags().BoolP("binary", "b", false, "Install this executable instead of the Python daemon")
	cmd.Flags().StringP("config", "c", "config.yaml", "Daemon config installed alongside the binary (binary mode)")
	cmd.Flags().StringP("user", "u", "pi", "Run-as user")
	cmd.Flags().StringP("group", "g", "", "Run-as group (defaults to the user)")
	cmd.Flags().StringP("log-path", "", "", "File receiving the daemon's stdout/stderr")

	return cmd
}
