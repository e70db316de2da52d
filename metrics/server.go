// server.go implements the HTTP server exposing the metrics.

package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaionaro-go/avscene/logger"
	"github.com/xaionaro-go/observability"
)

// StartServer serves "/metrics" and "/healthz" on addr until ctx is done.
func StartServer(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	observability.Go(ctx, func(ctx context.Context) {
		logger.Infof(ctx, "metrics server is listening at %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "metrics server error: %v", err)
		}
	})
	observability.Go(ctx, func(ctx context.Context) {
		<-ctx.Done()
		srv.Close()
	})

	return srv
}
