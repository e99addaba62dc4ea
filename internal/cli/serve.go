package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonavox/callaudit/internal/analyzer"
	"github.com/sonavox/callaudit/internal/blob"
	"github.com/sonavox/callaudit/internal/observe"
	"github.com/sonavox/callaudit/internal/server"
	"github.com/sonavox/callaudit/internal/store/postgres"
)

// shutdownTimeout bounds the drain of in-flight requests on exit. Background
// comparisons are not waited on; their progress is already persisted.
const shutdownTimeout = 15 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the callaudit HTTP API",
		Long: `Serve starts the HTTP API for submitting comparisons, polling their
progress, and fetching stored call analyses. Prometheus metrics are exposed
on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Server.LogLevel)
			ctx := cmd.Context()

			shutdownObs, err := observe.InitProvider(ctx, observe.ProviderConfig{})
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdownObs(context.Background()); err != nil {
					log.Error("observability shutdown failed", "error", err)
				}
			}()

			store, err := newStore(ctx, cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			orch, err := buildOrchestrator(cfg, store, log)
			if err != nil {
				return err
			}

			opts := []server.Option{server.WithLogger(log)}
			if s3 := cfg.Storage.S3; s3 != nil {
				blobs, err := blob.NewS3Store(ctx, s3.Bucket, blob.S3Options{
					Region:       s3.Region,
					Endpoint:     s3.Endpoint,
					UsePathStyle: s3.UsePathStyle,
				})
				if err != nil {
					return err
				}
				opts = append(opts, server.WithAnalysis(
					analyzer.New(analyzerConfig(cfg), analyzer.WithLogger(log)),
					blobs,
				))
			}
			if store != nil {
				opts = append(opts, server.WithCheckers(server.Checker{
					Name:  "postgres",
					Check: store.Ping,
				}))
			}
			srv := server.New(orch, serverStoreOrNil(store), opts...)

			addr := cfg.Server.ListenAddr
			if listenAddr != "" {
				addr = listenAddr
			}
			if addr == "" {
				addr = ":8080"
			}

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("http server listening", "addr", addr, "tls", cfg.Server.TLS != nil)
				if tls := cfg.Server.TLS; tls != nil {
					errCh <- httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
				} else {
					errCh <- httpSrv.ListenAndServe()
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("cli: http server: %w", err)
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("cli: shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "override server.listen_addr")
	return cmd
}

// serverStoreOrNil converts a possibly-nil *postgres.Store into a
// server.Store without producing a non-nil interface around a nil pointer.
func serverStoreOrNil(store *postgres.Store) server.Store {
	if store == nil {
		return nil
	}
	return store
}
