// Package main is the entry point for the configship server.
//
// The bootstrap sequence is:
//  1. Load and validate configuration from environment variables.
//  2. Initialize logging, tracing and metrics.
//  3. Open the store, running migrations on postgres.
//  4. Restore the served snapshot from the store, or seed it from a
//     template file.
//  5. Start the audit recorder, the webhook dispatcher, the template
//     file watcher, and the API and metrics servers.
//  6. Wait for SIGINT/SIGTERM, then gracefully shut everything down.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/goconfigship/internal/api"
	"github.com/TimurManjosov/goconfigship/internal/audit"
	"github.com/TimurManjosov/goconfigship/internal/auth"
	"github.com/TimurManjosov/goconfigship/internal/config"
	"github.com/TimurManjosov/goconfigship/internal/db"
	"github.com/TimurManjosov/goconfigship/internal/logging"
	"github.com/TimurManjosov/goconfigship/internal/snapshot"
	"github.com/TimurManjosov/goconfigship/internal/store"
	"github.com/TimurManjosov/goconfigship/internal/telemetry"
	"github.com/TimurManjosov/goconfigship/internal/template"
	"github.com/TimurManjosov/goconfigship/internal/tracing"
	"github.com/TimurManjosov/goconfigship/internal/version"
	"github.com/TimurManjosov/goconfigship/internal/webhook"
)

const (
	shutdownTimeout       = 10 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
	httpReadTimeout       = 30 * time.Second
	httpIdleTimeout       = 2 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)
	log.Info().
		Str("version", version.Version).
		Str("env", cfg.AppEnv).
		Str("store", cfg.StoreType).
		Msg("configship starting")

	shutdownTracer, err := tracing.Init(context.Background())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			log.Error().Err(err).Msg("tracer shutdown error")
		}
	}()

	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is wired by hand because the pool is shared with the
	// migrator and the audit sink; everything else goes through the
	// factory.
	var (
		st   store.Store
		pool *pgxpool.Pool
	)
	if cfg.StoreType == "postgres" {
		pool, err = db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := db.Migrate(pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		st = store.NewPostgresStore(pool)
	} else {
		st, err = store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
	}
	defer st.Close()

	holder := snapshot.NewHolder()

	// Restore the served template across restarts.
	seeded := false
	active, err := st.GetActiveTemplate(ctx)
	switch {
	case err == nil:
		snap, err := holder.Update(active)
		if err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		telemetry.ActiveVersion.Set(float64(active.Version.VersionNumber))
		telemetry.TemplateParameters.Set(float64(len(active.Parameters)))
		log.Info().
			Int64("template_version", active.Version.VersionNumber).
			Str("etag", snap.ETag).
			Msg("template restored from store")
		seeded = true
	case errors.Is(err, store.ErrNoTemplate):
		log.Info().Msg("no template published yet")
	default:
		return fmt.Errorf("load active template: %w", err)
	}

	sinks := []audit.Sink{audit.NewZerologSink(log)}
	if pool != nil {
		sinks = append(sinks, audit.NewPostgresSink(pool))
	}
	rec := audit.NewRecorder(audit.NewMultiSink(sinks...), log, nil, nil, nil, 0)
	defer rec.Close()

	var hooks *webhook.Dispatcher
	if cfg.WebhooksFile != "" {
		endpoints, err := webhook.LoadEndpoints(cfg.WebhooksFile)
		if err != nil {
			return fmt.Errorf("load webhook endpoints: %w", err)
		}
		hooks = webhook.NewDispatcher(endpoints, log)
		hooks.Start()
		defer hooks.Close()
		log.Info().Int("endpoints", len(endpoints)).Msg("webhook dispatcher started")
	}

	// A template file seeds an empty store and keeps feeding edits in as
	// seed versions while the server runs.
	var fileSource *snapshot.FileSource
	if cfg.TemplateFile != "" {
		applyTemplate := func(tpl *template.Template) error {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			published, err := st.PublishTemplate(pubCtx, store.PublishParams{
				Template:    tpl,
				Description: "loaded from " + cfg.TemplateFile,
				UpdateUser:  "file",
				UpdateType:  template.UpdateSeed,
			})
			if err != nil {
				return fmt.Errorf("publish template from file: %w", err)
			}
			if _, err := holder.Update(published); err != nil {
				return err
			}
			telemetry.ActiveVersion.Set(float64(published.Version.VersionNumber))
			telemetry.TemplateParameters.Set(float64(len(published.Parameters)))
			log.Info().
				Int64("template_version", published.Version.VersionNumber).
				Msg("template loaded from file")
			return nil
		}
		fileSource = snapshot.NewFileSource(cfg.TemplateFile, applyTemplate, log)
		if !seeded {
			if err := fileSource.Load(); err != nil {
				return fmt.Errorf("seed template: %w", err)
			}
		}
	}

	keychain := auth.NewKeychain(cfg.AdminAPIKey, cfg.ClientAPIKey)
	srv := api.NewServer(cfg, st, holder, keychain, rec, hooks, log)

	apiServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       httpReadTimeout,
		WriteTimeout:      0, // the SSE stream writes indefinitely
		IdleTimeout:       httpIdleTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/debug/pprof/", pprof.Index)
	metricsMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	metricsMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	metricsMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	metricsMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("api server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if fileSource != nil {
		g.Go(func() error {
			if err := fileSource.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("template file watcher: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
