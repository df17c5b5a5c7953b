// Package metrics exports bot counters in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/logobot/core/logger"
)

// BotMetrics records access decisions, outbound notifications and handled updates.
// A nil *BotMetrics, or one built without a registerer, drops every observation.
type BotMetrics struct {
	decisions     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	handled       *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewBotMetrics registers the bot metrics on reg.
func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	if reg == nil {
		return &BotMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logobot_access_decisions_total",
		Help: "Access gate decisions by resulting status.",
	}, []string{"status"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logobot_notifications_total",
		Help: "Outbound notifications by kind and result.",
	}, []string{"kind", "result"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logobot_updates_handled_total",
		Help: "Handled updates by handler and outcome.",
	}, []string{"handler", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "logobot_handler_duration_seconds",
		Help:    "Handler latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler"})
	reg.MustRegister(decisions, notifications, handled, duration)
	return &BotMetrics{
		decisions:     decisions,
		notifications: notifications,
		handled:       handled,
		duration:      duration,
	}
}

// Decision counts one gate decision.
func (m *BotMetrics) Decision(status string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(status)).Inc()
}

// Notification counts one notification attempt.
func (m *BotMetrics) Notification(kind string, err error) {
	if m == nil || m.notifications == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "fail"
	}
	m.notifications.WithLabelValues(normalizeLabel(kind), result).Inc()
}

// Handled counts one routed update and records its latency.
func (m *BotMetrics) Handled(handler, outcome string, took time.Duration) {
	if m == nil || m.handled == nil {
		return
	}
	handler = normalizeLabel(handler)
	m.handled.WithLabelValues(handler, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(handler).Observe(took.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Serve exposes g on addr under /metrics until ctx is done. An empty addr disables the listener.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "metrics", "listen", slog.String("listen", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
