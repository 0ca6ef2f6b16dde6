package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ondiskwal/wal"
)

// newServeCmd opens the WAL once and keeps it open for the life of the
// process, exposing /metrics and /healthz. This is the only network
// surface in the repository; the core wal package has none.
func newServeCmd(openWAL openFunc, logger *zap.Logger) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Prometheus metrics and a health check for a WAL directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			metrics := wal.NewMetrics("walctl")
			metrics.MustRegister(reg)

			w, err := openWAL(wal.WithLogger(logger), wal.WithMetrics(metrics))
			if err != nil {
				return err
			}
			defer w.Close()

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
				rw.WriteHeader(http.StatusOK)
				fmt.Fprintln(rw, "ok")
			})

			srv := &http.Server{Addr: addr, Handler: mux}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("serving", zap.String("addr", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "address to serve /metrics and /healthz on")
	return cmd
}
