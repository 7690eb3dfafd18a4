package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stopsearch-bknd/internal/config"
	"stopsearch-bknd/internal/logger"
	"stopsearch-bknd/internal/policeapi"
	"stopsearch-bknd/internal/routes"
	"stopsearch-bknd/internal/services"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	client := policeapi.NewClient(cfg.PoliceAPIBaseURL, cfg.RequestTimeout, logr.Logger)
	discovery := services.NewDateDiscoveryService(client, cfg.AvailabilityCategory, logr.Logger)
	collector := services.NewCollectorService(client, cfg.Force, cfg.FetchDelay, logr.Logger)
	dashboard := services.NewDashboard(discovery, collector, cfg.Force, cfg.MonthWindow, cfg.ItemsPerPage, logr.Logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.RefreshOnStart {
		if err := dashboard.StartRefresh(ctx); err != nil {
			logr.Warn("initial refresh not started", zap.Error(err))
		}
	}

	r := routes.NewRouter(cfg, logr, client, discovery, dashboard)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous refresh walks a full month window
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server started", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Fatal("server forced to shutdown", zap.Error(err))
	}

	logr.Info("server exited gracefully")
}
