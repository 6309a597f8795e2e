package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WagersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wagerbook_wagers_placed_total",
		Help: "Wagers successfully placed.",
	})

	WagersSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagerbook_wagers_settled_total",
		Help: "Wagers settled, by terminal state.",
	}, []string{"state"})

	SettlementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wagerbook_settlement_failures_total",
		Help: "Per-wager settlement attempts that failed and were skipped.",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagerbook_notifications_total",
		Help: "Settlement notifications, by delivery status.",
	}, []string{"status"})
)

// HealthFunc reports dependency health for /healthz.
type HealthFunc func(ctx context.Context) error

// StartServer runs a small HTTP server serving /metrics and /healthz on its
// own goroutine. Each service binary mounts one next to its public port.
func StartServer(addr string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if healthFn != nil {
			if err := healthFn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = fmt.Fprintf(w, "unhealthy: %v", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		_ = server.ListenAndServe()
	}()
	return server
}
