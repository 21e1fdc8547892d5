package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"transitsim/internal/api"
	"transitsim/internal/clock"
	"transitsim/internal/config"
	"transitsim/internal/engine"
	"transitsim/internal/metrics"
	"transitsim/internal/publisher"
	"transitsim/internal/store"
	"transitsim/internal/timetable"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	topo, err := config.LoadTopology(cfg.TopologyPath)
	if err != nil {
		log.Fatalf("topology error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sqlDB, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer sqlDB.Close()

	// Build one engine per network from the loaded timetables.
	engines := make(map[string]*engine.Engine, len(topo.Networks))
	for _, net := range topo.Networks {
		tracks, err := store.LoadTracks(ctx, sqlDB, net.Name)
		if err != nil {
			log.Fatalf("load tracks for %s: %v", net.Name, err)
		}
		schedules, err := store.LoadSchedules(ctx, sqlDB, net.Name)
		if err != nil {
			log.Fatalf("load schedules for %s: %v", net.Name, err)
		}
		progress, err := store.LoadProgressTable(ctx, sqlDB, net.Name)
		if err != nil {
			log.Fatalf("load progress table for %s: %v", net.Name, err)
		}
		engines[net.Name] = engine.New(net.Options(), schedules, tracks, progress)
		log.Printf("engine %s: %d tracks, %d schedules", net.Name, len(tracks), len(schedules))
	}

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector()
		metricsSrv = mcol.Serve(cfg.MetricsAddr)
	}

	// NATS snapshot publishing is optional.
	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
	}

	// Virtual clock: start at the configured time-of-day, or at the wall
	// clock when none is set.
	startSec := secondsOfDayNow()
	if cfg.StartTime != "" {
		startSec = timetable.ParseDaySeconds(cfg.StartTime)
	}
	clk := clock.New(startSec, cfg.TickInterval)
	clk.SetSpeed(cfg.SpeedMultiplier)
	defer clk.Destroy()

	unsubscribe := clk.OnTick(func(sec int) {
		runUpdates(engines, sec, clk, pub, mcol)
	})
	defer unsubscribe()

	// Compute the first snapshot before serving so the API never returns
	// an empty set on a populated timetable.
	runUpdates(engines, clk.TimeOfDaySeconds(), clk, pub, mcol)
	clk.Play()
	log.Printf("simulation started at %s (speed x%.1f)", clk.FormattedTime(), clk.Speed())

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(engines, clk).Router(cfg.AllowedOrigins),
	}
	go func() {
		log.Printf("api listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()

	clk.Destroy()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	log.Println("shutdown complete")
}

// openDatabase connects to the schedule database, resolving the newest
// curated import for the configured city when CITY is set.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	finalDSN := cfg.DatabaseURL
	if cfg.City != "" {
		rootDSN, err := store.WithDBName(cfg.DatabaseURL, "postgres")
		if err != nil {
			return nil, err
		}
		metaDB, err := store.Open(rootDSN)
		if err != nil {
			return nil, err
		}
		defer metaDB.Close()
		if err := store.Ping(ctx, metaDB); err != nil {
			return nil, err
		}
		name, err := store.ResolveLatestImportDBName(ctx, metaDB, cfg.City)
		if err != nil {
			return nil, err
		}
		finalDSN, err = store.WithDBName(cfg.DatabaseURL, name)
		if err != nil {
			return nil, err
		}
		log.Printf("using database %q for city %q", name, cfg.City)
	}
	db, err := store.Open(finalDSN)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// runUpdates advances every engine to the given simulated second and fans
// the snapshots out to metrics and NATS. Agencies are independent; failures
// in one never block the others.
func runUpdates(engines map[string]*engine.Engine, sec int, clk *clock.Clock, pub *publisher.NATSPublisher, mcol *metrics.Collector) {
	for name, eng := range engines {
		start := time.Now()
		trains := eng.Update(sec)
		if mcol != nil {
			stats := eng.Stats()
			collided := 0
			for _, t := range trains {
				if t.Collided {
					collided++
				}
			}
			mcol.ObserveSnapshot(name, stats.Total, stats.Running, stats.Stopped, collided, time.Since(start))
			mcol.ClockSpeed.Set(clk.Speed())
			if clk.Playing() {
				mcol.ClockPlaying.Set(1)
			} else {
				mcol.ClockPlaying.Set(0)
			}
		}
		if pub != nil {
			msg := publisher.SnapshotMessage{
				Agency:      name,
				ClockSec:    sec,
				ClockTime:   timetable.FormatDaySeconds(sec),
				Trains:      trains,
				PublishedAt: time.Now().UTC(),
			}
			if err := pub.PublishSnapshot(msg); err != nil {
				log.Printf("publish error for %s: %v", name, err)
			}
		}
	}
}

func secondsOfDayNow() int {
	now := time.Now()
	return now.Hour()*3600 + now.Minute()*60 + now.Second()
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
