/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/api"
	"github.com/ssargent/recfile/pkg/config"
	"github.com/ssargent/recfile/pkg/logging"
	"github.com/ssargent/recfile/pkg/metrics"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Serve the configured data file over HTTP. Requests under /api/v1 require
the X-API-Key header when an API key is configured; Prometheus metrics are
exposed at /metrics.

Examples:
  recfile serve
  recfile serve --port 9090 --bind 0.0.0.0
  recfile serve --api-key mysecretkey`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}

		serverCfg := s.config.Server
		if cmd.Flags().Changed("port") {
			serverCfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			serverCfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			serverCfg.APIKey, _ = cmd.Flags().GetString("api-key")
		}

		if container == nil {
			return errors.New("dependency container not initialized")
		}

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		sc := storeConfig(s)
		sc.Observer = m
		rs, err := container.GetStoreFactory().OpenStore(sc, s.columns)
		if err != nil {
			return err
		}
		defer rs.Close()

		logger := logging.WithComponent("serve")
		if serverCfg.APIKey == "" {
			logger.Warn("API key is empty, authentication disabled")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, rs, s, serverCfg, m, reg)
	},
}

func serve(ctx context.Context, rs api.IRecordStore, s *settings, serverCfg config.Server, m *metrics.Metrics, reg *prometheus.Registry) error {
	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, rs, s.columns, api.ServerConfig{
		Port:       serverCfg.Port,
		Bind:       serverCfg.Bind,
		APIKey:     serverCfg.APIKey,
		RequestIDs: serverCfg.RequestIDs,
		Logger:     logging.WithComponent("api"),
	}, m, reg)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on, overriding the config")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind, overriding the config")
	serveCmd.Flags().String("api-key", "", "API key for authentication, overriding the config")
}
