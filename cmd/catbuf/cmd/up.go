package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/catbuf/pkg/config"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap and start the catbuf server",
	Long: `Create a configuration file with a generated API key if none exists yet,
then start the REST API server. This is the quickest way to get catbuf
running.

Examples:
  catbuf up
  catbuf up --data-dir ./mydata --port 9000
  catbuf up --config ./catbuf.toml --print-key`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		printKey, _ := cmd.Flags().GetBool("print-key")

		cfg, path, created, err := ensureConfig(configPath, dataDir)
		if err != nil {
			return err
		}
		if created {
			cmd.Printf("Configuration created at %s\n", path)
			if printKey {
				cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			}
		}
		if configPath == "" {
			if err := cmd.Flags().Set("config", path); err != nil {
				return err
			}
		}
		return setup(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		if err := applyServeFlags(cmd, cfg); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
	addServeFlags(upCmd)
	upCmd.Flags().Bool("print-key", false, "Print the generated API key on first run")
}

// ensureConfig bootstraps a configuration at configPath unless one is
// already there. created reports whether a new file was written.
func ensureConfig(configPath, dataDir string) (cfg *config.Config, path string, created bool, err error) {
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if config.ConfigExists(configPath) {
		cfg, err = config.LoadConfig(configPath)
		return cfg, configPath, false, err
	}
	cfg, err = config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return nil, configPath, false, err
	}
	return cfg, configPath, true, nil
}
