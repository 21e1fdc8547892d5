package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveTrains  *prometheus.GaugeVec // agency label
	RunningTrains *prometheus.GaugeVec
	StoppedTrains *prometheus.GaugeVec

	Updates    *prometheus.CounterVec // agency label
	Collisions *prometheus.CounterVec

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	UpdateDuration  prometheus.Histogram
	PublishDuration prometheus.Histogram

	ClockSpeed   prometheus.Gauge
	ClockPlaying prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveTrains: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transitsim_active_trains",
			Help: "Trains in the last computed snapshot.",
		}, []string{"agency"}),
		RunningTrains: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transitsim_running_trains",
			Help: "Trains between stations in the last snapshot.",
		}, []string{"agency"}),
		StoppedTrains: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transitsim_stopped_trains",
			Help: "Trains dwelling at a station in the last snapshot.",
		}, []string{"agency"}),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitsim_updates_total",
			Help: "Total engine update calls.",
		}, []string{"agency"}),
		Collisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitsim_collisions_total",
			Help: "Total trains flagged by the separation pass.",
		}, []string{"agency"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitsim_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitsim_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitsim_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transitsim_update_duration_seconds",
			Help:    "Duration of engine update computations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transitsim_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		ClockSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitsim_clock_speed",
			Help: "Current simulation speed multiplier.",
		}),
		ClockPlaying: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitsim_clock_playing",
			Help: "1 if the simulation clock is advancing, 0 if paused.",
		}),
	}

	reg.MustRegister(
		c.ActiveTrains, c.RunningTrains, c.StoppedTrains,
		c.Updates, c.Collisions,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.UpdateDuration, c.PublishDuration,
		c.ClockSpeed, c.ClockPlaying,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// ObserveSnapshot records per-agency gauges after an engine update.
func (c *Collector) ObserveSnapshot(agency string, total, running, stopped, collided int, took time.Duration) {
	c.ActiveTrains.WithLabelValues(agency).Set(float64(total))
	c.RunningTrains.WithLabelValues(agency).Set(float64(running))
	c.StoppedTrains.WithLabelValues(agency).Set(float64(stopped))
	c.Updates.WithLabelValues(agency).Inc()
	if collided > 0 {
		c.Collisions.WithLabelValues(agency).Add(float64(collided))
	}
	c.UpdateDuration.Observe(took.Seconds())
}
