package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/catbuf/pkg/config"
)

const serviceName = "catbuf.service"

var defaultUnitPath = "/etc/systemd/system/" + serviceName

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage catbuf as a systemd service",
	Long: `Manage the catbuf server as a systemd service. The unit runs "catbuf up"
against a fixed configuration file and restarts on failure.`,
}

// unitCmd represents the service unit command
var unitCmd = &cobra.Command{
	Use:   "unit",
	Short: "Print the systemd unit file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := unitOptionsFrom(cmd)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), systemdUnit(configFrom(cmd), opts))
		return err
	},
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install catbuf as a systemd service",
	Long: `Install catbuf as a systemd service. This will:
- create the configuration file if it is missing
- write the systemd unit file
- enable and optionally start the service

Examples:
  sudo catbuf service install
  sudo catbuf service install --data-dir /var/lib/catbuf --user catbuf`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service install requires root privileges, run with: sudo catbuf service install")
		}
		startNow, _ := cmd.Flags().GetBool("start")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		opts, err := unitOptionsFrom(cmd)
		if err != nil {
			return err
		}

		cfg, path, created, err := ensureConfig(opts.ConfigPath, dataDir)
		if err != nil {
			return err
		}
		if created {
			cmd.Printf("Created configuration at %s\n", path)
		}
		opts.ConfigPath = path

		if err := writeUnit(opts.UnitPath, systemdUnit(cfg, opts)); err != nil {
			return err
		}
		if err := systemctl(cmd, "daemon-reload"); err != nil {
			return err
		}
		if err := systemctl(cmd, "enable", serviceName); err != nil {
			return err
		}
		if startNow {
			if err := systemctl(cmd, "start", serviceName); err != nil {
				return err
			}
		}

		cmd.Printf("Service: %s\n", serviceName)
		cmd.Printf("Config: %s\n", path)
		cmd.Printf("Data: %s\n", cfg.DataDir)
		cmd.Printf("Listening on: %s\n", cfg.Addr())
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// uninstallCmd represents the service uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the catbuf service",
	Long: `Stop and disable the service and remove its unit file. Configuration and
stored records are left in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall requires root privileges, run with: sudo catbuf service uninstall")
		}
		unitPath, _ := cmd.Flags().GetString("unit-path")

		// already stopped is fine
		_ = systemctl(cmd, "stop", serviceName)
		if err := systemctl(cmd, "disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		return systemctl(cmd, "daemon-reload")
	},
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show catbuf service logs",
	Long: `Show catbuf service logs using journalctl.

Examples:
  catbuf service logs
  catbuf service logs -f`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")
		return runCommand(cmd, "journalctl", journalArgs(follow, lines)...)
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(unitCmd)
	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(uninstallCmd)
	serviceCmd.AddCommand(logsCmd)
	for _, action := range []string{"start", "stop", "restart", "status"} {
		serviceCmd.AddCommand(systemctlCmd(action))
	}

	for _, c := range []*cobra.Command{unitCmd, installServiceCmd} {
		c.Flags().String("user", "catbuf", "User to run the service as")
		c.Flags().String("binary", "", "Path of the catbuf binary (default: this executable)")
		c.Flags().String("unit-path", defaultUnitPath, "Where the unit file is written")
	}
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")
	uninstallCmd.Flags().String("unit-path", defaultUnitPath, "Unit file to remove")

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

func systemctlCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("Run systemctl %s on the catbuf service", action),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return systemctl(cmd, action, serviceName)
		},
	}
}

type unitOptions struct {
	User       string
	Binary     string
	ConfigPath string
	UnitPath   string
}

func unitOptionsFrom(cmd *cobra.Command) (unitOptions, error) {
	var opts unitOptions
	opts.User, _ = cmd.Flags().GetString("user")
	opts.Binary, _ = cmd.Flags().GetString("binary")
	opts.UnitPath, _ = cmd.Flags().GetString("unit-path")
	opts.ConfigPath, _ = cmd.Flags().GetString("config")
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.GetDefaultConfigPath()
	}
	// systemd does not run the unit from the caller's working directory
	abs, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		return opts, fmt.Errorf("invalid config path: %w", err)
	}
	opts.ConfigPath = abs
	if opts.Binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return opts, fmt.Errorf("failed to locate catbuf binary: %w", err)
		}
		opts.Binary = exe
	}
	return opts, nil
}

// systemdUnit renders the unit file for cfg
func systemdUnit(cfg *config.Config, opts unitOptions) string {
	return fmt.Sprintf(`[Unit]
Description=catbuf record codec server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s up --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, opts.User, opts.User, opts.Binary, opts.ConfigPath, cfg.DataDir, filepath.Dir(opts.ConfigPath))
}

func writeUnit(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	return nil
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

func systemctl(cmd *cobra.Command, args ...string) error {
	return runCommand(cmd, "systemctl", args...)
}

func runCommand(cmd *cobra.Command, name string, args ...string) error {
	c := exec.CommandContext(cmd.Context(), name, args...)
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}
