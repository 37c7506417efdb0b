package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"semanticportal/internal/api"
	"semanticportal/internal/logger"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API exposing ingestion, search and autocomplete:

  POST /ingest           multipart field "file"
  GET  /search?q=...     up to 10 ranked chunks
  GET  /autocomplete?q=  up to 5 fuzzy previews
  GET  /healthz

Examples:
  portal serve
  portal serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	a, err := newApp(cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(api.Options{
		Addr:            cfg.Addr(),
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.ingest, a.search, a.suggest)

	logger.Info("portal starting",
		"addr", cfg.Addr(),
		"embedding", cfg.Embedding.Provider,
		"model", a.embedder.ModelName(),
		"vector_store", cfg.VectorStore.Backend,
		"collection", cfg.VectorStore.Collection,
	)

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
