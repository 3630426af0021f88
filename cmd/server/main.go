package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	jwttoken "aip/internal/jwt_token"
	"aip/internal/platform/config"
	"aip/internal/platform/httpserver"
	"aip/internal/platform/logger"
	"aip/internal/platform/metrics"
	httptransport "aip/internal/transport/http"
	"aip/internal/verification/handler"
)

// main wires dependencies, serves HTTP and runs the background workers until
// SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set, using the development key")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDeps(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer deps.close(log)

	router := httptransport.NewRouter(httptransport.Deps{
		Verifications: handler.New(deps.workflow, deps.anchorReader(), log),
		Validator:     jwttoken.NewValidatorAdapter(jwttoken.NewValidator(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)),
		Metrics:       metrics.New(reg),
		Health:        deps.health,
		Logger:        log,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting aip verification service", "addr", cfg.Server.Addr, "storage", deps.storage)
		if err := httpserver.Serve(srv); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if deps.anchor != nil {
		g.Go(func() error {
			log.Info("anchor reconciliation started", "interval", cfg.Reconcile.Interval, "chain", cfg.Chain.ChainName)
			return deps.anchor.Run(gctx)
		})
	}
	// The event worker outlives gctx so handlers still finishing during
	// srv.Shutdown can publish.
	eventsCtx, stopEvents := context.WithCancel(context.WithoutCancel(ctx))
	defer stopEvents()
	if deps.events != nil {
		g.Go(func() error {
			if err := deps.events.Run(eventsCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down")
		shutdown(shutdownCtx, log, srv, deps.workflow, stopEvents)
		return nil
	})
	return g.Wait()
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown stops intake first, then waits for notarizations, and only then
// lets the event worker drain.
func shutdown(ctx context.Context, log *slog.Logger, srv, workflow shutdowner, stopEvents context.CancelFunc) {
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful HTTP shutdown failed", "error", err)
	}
	if err := workflow.Shutdown(ctx); err != nil {
		log.Error("in-flight notarizations did not finish", "error", err)
	}
	stopEvents()
}
