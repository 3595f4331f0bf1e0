package predicato

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/predicato/pkg/alert"
	"github.com/soundprediction/predicato/pkg/catalog"
	"github.com/soundprediction/predicato/pkg/chatstore"
	"github.com/soundprediction/predicato/pkg/checkpoint"
	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/indexer"
	"github.com/soundprediction/predicato/pkg/rag"
	"github.com/soundprediction/predicato/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Predicato RAG HTTP server",
	Long: `Start the Predicato HTTP server to provide REST API access to document
ingestion, retrieval-augmented query, and chat.

The server provides endpoints for:
- Uploading and processing documents
- Querying and chatting against the index
- Inspecting the knowledge graph built from the index
- Health and readiness checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost       string
	serverPort       int
	serverConfigPath string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "", "Server host (overrides config)")
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Server port (overrides config)")
	serverCmd.Flags().StringVar(&serverConfigPath, "config-file", "", "Path to a YAML config file")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serverConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.WorkingDir, filepath.Dir(cfg.Storage.CatalogPath), filepath.Dir(cfg.Storage.ChatDBPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fmt.Println("Initializing Predicato...")

	cat, err := catalog.New(cfg.Storage.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	cache, err := checkpoint.Open(filepath.Join(filepath.Dir(cfg.Storage.ChatDBPath), "checkpoint"))
	if err != nil {
		return fmt.Errorf("failed to open checkpoint cache: %w", err)
	}
	defer cache.Close()

	chatStore, err := chatstore.New(cfg.Storage.ChatDBPath, cache)
	if err != nil {
		return fmt.Errorf("failed to open chat store: %w", err)
	}

	var alerter alert.Alerter
	if cfg.Alert.Enabled {
		alerter = alert.NewEmailAlerter(cfg.Alert)
	}
	ragService := rag.NewService(*cfg, alerter)

	var idx *indexer.Indexer
	if cfg.Indexing.AutoIndexingEnabled {
		idx = indexer.New(
			cfg.Storage.UploadDir,
			cat,
			ragService,
			time.Duration(cfg.Indexing.ScanIntervalSeconds)*time.Second,
			cfg.Indexing.MaxFilesPerBatch,
		)
	}

	srv := server.New(cfg, ragService, cat, chatStore, idx)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)

		graceSec := cfg.Server.ShutdownGraceSec
		if graceSec <= 0 {
			graceSec = 15
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(graceSec)*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		fmt.Println("Server stopped gracefully")
		return nil
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}
	if cfg.Storage.WorkingDir == "" {
		return fmt.Errorf("storage.working_dir is required")
	}
	return nil
}
