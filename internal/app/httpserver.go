package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/metrics"
)

// OpsServer exposes liveness and Prometheus metrics. It carries no
// business endpoints.
type OpsServer struct {
	srv *http.Server
}

func NewOpsHandler(database *sql.DB) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := database.PingContext(ctx); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// StartOps serves until ctx is cancelled.
func StartOps(ctx context.Context, addr string, database *sql.DB, log *zap.Logger) *OpsServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewOpsHandler(database),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	log.Info("ops server listening", zap.String("addr", addr))
	return &OpsServer{srv: srv}
}

func (s *OpsServer) Addr() string { return s.srv.Addr }
