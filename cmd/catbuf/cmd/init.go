package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/catbuf/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a catbuf configuration file",
	Long: `Create a configuration file with a generated API key. The file is written
with 0600 permissions since it holds the key. Use a .toml path for TOML.

Examples:
  catbuf init
  catbuf init --config ./catbuf.toml --data-dir ./data --print-key`,
	Args: cobra.NoArgs,
	// the config being created need not exist yet
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		cfg, path, err := initConfig(configPath, dataDir, force)
		if err != nil {
			return err
		}

		cmd.Printf("Configuration created at %s\n", path)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		if printKey {
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		}
		cmd.Printf("\nStart the server with:\n  catbuf serve --config %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

func initConfig(configPath, dataDir string, force bool) (*config.Config, string, error) {
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if config.ConfigExists(configPath) && !force {
		return nil, configPath, fmt.Errorf("configuration already exists at %s, use --force to replace it", configPath)
	}
	cfg, err := config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return nil, configPath, err
	}
	return cfg, configPath, nil
}
