// Package metrics exposes Prometheus counters for NickServ activity.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dalnet/nickguard/internal/nickserv"
)

// Collector counts emitted nickserv signals
type Collector struct {
	registry *prometheus.Registry

	IdentifySent prometheus.Counter
	Identified   prometheus.Counter
	GhostSent    prometheus.Counter
	Reclaimed    prometheus.Counter
}

// New registers the counters on a private registry
func New() *Collector {
	c := &Collector{
		registry:     prometheus.NewRegistry(),
		IdentifySent: prometheus.NewCounter(prometheus.CounterOpts{Name: "nickguard_nickserv_identify_sent_total", Help: "IDENTIFY commands sent to the agent"}),
		Identified:   prometheus.NewCounter(prometheus.CounterOpts{Name: "nickguard_nickserv_identified_total", Help: "Identity confirmations received from the agent"}),
		GhostSent:    prometheus.NewCounter(prometheus.CounterOpts{Name: "nickguard_nickserv_ghost_sent_total", Help: "GHOST commands sent to the agent"}),
		Reclaimed:    prometheus.NewCounter(prometheus.CounterOpts{Name: "nickguard_nickserv_reclaimed_total", Help: "Nickname reclaims issued"}),
	}
	c.registry.MustRegister(c.IdentifySent, c.Identified, c.GhostSent, c.Reclaimed)
	return c
}

// Emit implements nickserv.Sink
func (c *Collector) Emit(sig nickserv.Signal, conn nickserv.Connection) {
	switch sig {
	case nickserv.SignalIdentifySent:
		c.IdentifySent.Inc()
	case nickserv.SignalIdentified:
		c.Identified.Inc()
	case nickserv.SignalGhostSent:
		c.GhostSent.Inc()
	case nickserv.SignalReclaimed:
		c.Reclaimed.Inc()
	}
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (c *Collector) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
