package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	spawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ospawn",
			Subsystem: "engine",
			Name:      "spawns_total",
			Help:      "Number of successful spawns.",
		}, []string{"job"},
	)
	spawnErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ospawn",
			Subsystem: "engine",
			Name:      "spawn_errors_total",
			Help:      "Number of failed spawns by error kind.",
		}, []string{"job", "kind"},
	)
	exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ospawn",
			Subsystem: "engine",
			Name:      "exits_total",
			Help:      "Number of reaped children by outcome (exited/signaled).",
		}, []string{"job", "outcome"},
	)
	running = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ospawn",
			Subsystem: "engine",
			Name:      "running_children",
			Help:      "Currently running children per job.",
		}, []string{"job"},
	)
	spawnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ospawn",
			Subsystem: "engine",
			Name:      "spawn_duration_seconds",
			Help:      "Wall time from spawn call to exec handoff.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"},
	)
)

// Register registers all metrics with the provided registerer. Safe to
// call multiple times; calls after the first success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{spawns, spawnErrors, exits, running, spawnDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves Prometheus metrics for the DefaultGatherer. The caller
// wires the route.
func Handler() http.Handler { return promhttp.Handler() }

func IncSpawn(job string) { spawns.WithLabelValues(job).Inc() }
func IncRunning(job string) { running.WithLabelValues(job).Inc() }
func DecRunning(job string) { running.WithLabelValues(job).Dec() }

func IncSpawnError(job, kind string) { spawnErrors.WithLabelValues(job, kind).Inc() }

func IncExit(job, outcome string) { exits.WithLabelValues(job, outcome).Inc() }

func ObserveSpawnDuration(job string, d time.Duration) {
	spawnDuration.WithLabelValues(job).Observe(d.Seconds())
}
