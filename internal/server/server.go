package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-system/internal/logging"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewRouter(handler *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/parking", func(r chi.Router) {
		r.Post("/incoming", handler.IncomingVehicle)
		r.Post("/exiting", handler.ExitingVehicle)
		r.Get("/returning/{registration}", handler.ReturningUser)
		r.Get("/spots", handler.ListSpots)
		r.Get("/tickets/{registration}", handler.GetTicket)
	})

	return r
}

func NewServer(port string, service SessionService) *Server {
	handler := NewHandler(service)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

func (s *Server) Start() error {
	logging.Logger().Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Logger().Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
