package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/safego"
)

const readinessProbeKey = "storefront_access:readiness_probe"

// Run starts the application, listens for HTTP requests, and handles graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	appCfg := a.configProvider.Get()
	a.logger.Info(ctx, "Starting application", "service_name", appCfg.App.ServiceName, "version", appCfg.App.Version)

	healthHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"OK"}`)
	})
	a.httpServeMux.Handle("GET /health", middleware.RequestIDMiddleware(healthHandler))
	a.httpServeMux.Handle("GET /ready", middleware.RequestIDMiddleware(http.HandlerFunc(a.readyHandler)))

	a.httpServeMux.Handle("GET /metrics", middleware.RequestIDMiddleware(promhttp.Handler()))
	a.logger.Info(ctx, "Prometheus metrics endpoint registered at /metrics")

	apiMux := http.NewServeMux()
	a.handlers.Register(apiMux)
	apiHandler := middleware.RequestIDMiddleware(
		middleware.APIKeyAuthMiddleware(a.configProvider, a.logger)(
			middleware.IdentityContextMiddleware(a.identities)(apiMux)))
	a.httpServeMux.Handle("/v1/", apiHandler)
	a.wsRouter.RegisterRoutes(ctx, a.httpServeMux)

	// Pick up favorites of an identity restored from storage.
	a.favorites.Load(ctx)

	if err := a.relayService.Start(ctx); err != nil {
		a.logger.Error(ctx, "Failed to start favorites relay, cross-process sync disabled", "error", err.Error())
	}

	if err := a.grpcServer.Start(); err != nil {
		a.logger.Warn(ctx, "gRPC health server not started", "error", err.Error())
	}
	a.grpcServer.SetServing(true)

	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second
		if secs := a.configProvider.Get().App.ShutdownTimeoutSeconds; secs > 0 {
			shutdownTimeout = time.Duration(secs) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.grpcServer.SetServing(false)
		a.grpcServer.GracefulStop()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
	})

	a.logger.Info(ctx, "HTTP server listening", "address", a.httpServer.Addr)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}

// readyHandler probes storage and, when configured, Redis.
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ready := true
	dependenciesStatus := make(map[string]string)

	if _, err := a.store.GetItem(r.Context(), readinessProbeKey); err == nil || errors.Is(err, domain.ErrKeyNotFound) {
		dependenciesStatus["storage"] = "ok"
	} else {
		dependenciesStatus["storage"] = "unavailable"
		ready = false
		a.logger.Warn(r.Context(), "Readiness check failed: storage read failed", "error", err.Error())
	}

	if a.redisClient != nil {
		if err := a.redisClient.Ping(r.Context()).Err(); err == nil {
			dependenciesStatus["redis"] = "connected"
		} else {
			dependenciesStatus["redis"] = "disconnected"
			ready = false
			a.logger.Warn(r.Context(), "Readiness check failed: Redis ping failed", "error", err.Error())
		}
	} else {
		dependenciesStatus["redis"] = "not_configured"
	}

	response := struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}{
		Dependencies: dependenciesStatus,
	}

	if ready {
		response.Status = "READY"
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = "NOT_READY"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err)
	}
}
