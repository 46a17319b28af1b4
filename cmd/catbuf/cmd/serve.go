package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/catbuf/pkg/api"
	"github.com/ssargent/catbuf/pkg/config"
	"github.com/ssargent/catbuf/pkg/logging"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the catbuf REST API server. It exposes the schema catalog, encode and
decode endpoints and the record store under /api/v1, and Prometheus metrics
at /metrics. Requests must carry X-API-Key when security.api_key is set.

Examples:
  catbuf serve
  catbuf serve --port 9000 --bind 0.0.0.0 --api-key mysecretkey`,
	Args: cobra.NoArgs,
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
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	cmd.Flags().String("api-key", "", "API key for client authentication")
}

// applyServeFlags overrides cfg with the listener flags that were set
// explicitly, then validates the result
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if v, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
		cfg.Port = v
	}
	if v, _ := cmd.Flags().GetString("bind"); cmd.Flags().Changed("bind") {
		cfg.Bind = v
	}
	if v, _ := cmd.Flags().GetString("api-key"); cmd.Flags().Changed("api-key") {
		cfg.Security.APIKey = v
	}
	return cfg.Validate()
}

func runServer(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Security.APIKey == "" {
		logging.L().Warn("serving without authentication; set security.api_key or --api-key")
	}
	logging.L().Info("starting server", zap.String("addr", cfg.Addr()), zap.String("data_dir", cfg.DataDir))

	c := getContainer()
	return c.GetServerFactory().CreateServerStarter().StartServer(ctx, store, c.GetRegistry(), api.ServerConfig{
		Addr:          cfg.Addr(),
		APIKey:        cfg.Security.APIKey,
		MaxRecordSize: cfg.Codec.MaxRecordSize,
	})
}
