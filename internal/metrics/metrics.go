// Package metrics exposes planner activity as Prometheus counters.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planbot"

// Metrics holds the planner collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	messagesReceived  prometheus.Counter
	messagesDropped   prometheus.Counter
	notifications     *prometheus.CounterVec
	digestsSent       prometheus.Counter
	storeWriteFailure *prometheus.CounterVec
}

// New registers the planner collectors with reg. A nil reg means the default registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "messages_received_total",
			Help:      "Inbound messages accepted for dispatch.",
		}),
		messagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages dropped by the per-user rate limiter.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "notifications_total",
			Help:      "Plan reminders by delivery outcome.",
		}, []string{"outcome"}),
		digestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "digests_sent_total",
			Help:      "Daily digests delivered.",
		}),
		storeWriteFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "write_failures_total",
			Help:      "Snapshot writes that failed, by collection.",
		}, []string{"collection"}),
	}

	collectors := []prometheus.Collector{
		m.messagesReceived, m.messagesDropped, m.notifications, m.digestsSent, m.storeWriteFailure,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}
	m.messagesReceived.Inc()
}

func (m *Metrics) MessageDropped() {
	if m == nil {
		return
	}
	m.messagesDropped.Inc()
}

// NotificationSent counts a delivered reminder.
func (m *Metrics) NotificationSent() {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues("sent").Inc()
}

// NotificationFailed counts a reminder that could not be delivered.
// unreachable separates blocked recipients from transient failures.
func (m *Metrics) NotificationFailed(unreachable bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if unreachable {
		outcome = "unreachable"
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DigestSent() {
	if m == nil {
		return
	}
	m.digestsSent.Inc()
}

// StoreWriteFailed counts a failed snapshot write for collection ("plans", "timezones").
func (m *Metrics) StoreWriteFailed(collection string) {
	if m == nil {
		return
	}
	m.storeWriteFailure.WithLabelValues(collection).Inc()
}

// Serve exposes gatherer on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics server listening", "component", "metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
