package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"taxsun/internal/api"
	"taxsun/internal/storage"
	"taxsun/internal/taxdb"
	"taxsun/internal/taxonomy"
)

var (
	servePort int
	serveHost string
)

// cachePurgeInterval is how often expired cached results are deleted.
const cachePurgeInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the taxsun HTTP API that backs the sunburst front end.

The taxonomy directory is prepared in the background at startup; /ready
reports 503 until it can serve lookups.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: server.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.loggers.ServerLogger()
	a.logger = logger

	host, port := a.cfg.Server.Host, a.cfg.Server.Port
	if serveHost != "" {
		host = serveHost
	}
	if servePort != 0 {
		port = servePort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	prov, err := a.provider()
	if err != nil {
		return err
	}

	var cache *storage.ResultCache
	if a.cfg.Cache.Enabled {
		cache, err = storage.NewResultCache(a.db)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	server := api.NewServer(api.Options{
		Addr:           addr,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		ReadTimeout:    time.Duration(a.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(a.cfg.Server.WriteTimeoutSeconds) * time.Second,
		Ranks:          taxonomy.RankPattern(a.cfg.Engine.Ranks),
		CacheTTL:       cacheTTL(a),
	}, api.Deps{
		Directory: prov,
		Ready: func(ctx context.Context) error {
			_, err := prov.Directory(ctx)
			return err
		},
		Cache: cache,
	}, logger)

	ctx, stop := signalContext()
	defer stop()

	go warmDirectory(ctx, prov, logger)
	if cache != nil {
		go purgeLoop(ctx, cache, logger)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "taxsun HTTP API server listening on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(ln)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
		}
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}

func cacheTTL(a *app) time.Duration {
	if !a.cfg.Cache.Enabled {
		return 0
	}
	return time.Duration(a.cfg.Cache.TTLSeconds) * time.Second
}

// warmDirectory initializes the taxonomy directory so the first upload does
// not pay for the download and import.
func warmDirectory(ctx context.Context, prov *taxdb.Provider, logger *slog.Logger) {
	start := time.Now()
	if _, err := prov.Directory(ctx); err != nil {
		logger.Warn("Taxonomy directory not ready", "error", err)
		return
	}
	logger.Info("Taxonomy directory ready", "duration", time.Since(start).Round(time.Millisecond))
}

func purgeLoop(ctx context.Context, cache *storage.ResultCache, logger *slog.Logger) {
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.Purge(ctx)
			if err != nil {
				logger.Warn("Result cache purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("Purged expired results", "count", n)
			}
		}
	}
}
