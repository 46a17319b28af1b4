package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/catbuf/pkg/config"
	"github.com/ssargent/catbuf/pkg/di"
	"github.com/ssargent/catbuf/pkg/logging"
)

var container *di.Container

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

func getContainer() *di.Container {
	if container == nil {
		container = di.NewContainer()
	}
	return container
}

type configKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catbuf",
	Short: "catbuf - catbuffer record codec",
	Long: `catbuf encodes and decodes catbuffer records: byte-packed, little-endian
binary layouts described by schemas such as TransferTransaction or
MosaicProperty. It can also keep serialized records in a local store and
serve the codec over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// setup resolves the configuration, installs the logger and stores the
// config on the command context for the subcommand to pick up
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	logging.Set(logger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ~/.config/catbuf/config.yaml)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the record store")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console, json)")
}

// resolveConfig loads the config file when there is one and applies flag
// overrides on top of it
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if explicit {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if v, _ := flags.GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	return cfg, nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cmd.Context() != nil {
		if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
			return cfg
		}
	}
	return config.DefaultConfig()
}
