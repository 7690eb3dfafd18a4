package routes

import (
	"net/http"

	"stopsearch-bknd/internal/config"
	"stopsearch-bknd/internal/handlers"
	"stopsearch-bknd/internal/logger"
	mdlwr "stopsearch-bknd/internal/middleware"
	"stopsearch-bknd/internal/policeapi"
	"stopsearch-bknd/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	cfg *config.Config,
	logr *logger.Logger,
	client *policeapi.Client,
	discovery *services.DateDiscoveryService,
	dashboard *services.Dashboard,
) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mdlwr.NewRequestLogger(logr.Logger).Handler)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Cache-Control"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	dashboardHandler := handlers.NewDashboardHandler(dashboard, discovery, cfg.Force, cfg.ItemsPerPage, logr.Logger)
	proxyHandler := handlers.NewProxyHandler(client, discovery, cfg.Force, cfg.CacheMaxAge, cfg.CacheStale, logr.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			return
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	// thin proxies to the police API
	r.Route("/api", func(r chi.Router) {
		r.Get("/stops-force", proxyHandler.StopsForce)
		r.Get("/available-dates", proxyHandler.AvailableDates)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/available-dates", dashboardHandler.GetAvailableDates)
			r.Get("/stop-searches", dashboardHandler.QueryStopSearches)

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", dashboardHandler.GetDashboard)
				r.Put("/filters", dashboardHandler.UpdateFilters)
				r.Put("/pagination", dashboardHandler.UpdatePagination)
				r.Post("/refresh", dashboardHandler.Refresh)
			})
		})
	})

	return r
}
