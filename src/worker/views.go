package worker

import (
	"net/http"
	"time"

	handlers "cryptofolio/src/worker/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router  *chi.Mux
	Handler *handlers.Handler
}

func NewServer(handler *handlers.Handler) *Server {
	server := &Server{
		Router:  chi.NewRouter(),
		Handler: handler,
	}
	server.InitRoutes()
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.Recoverer)

	s.Router.Get("/alive", s.Handler.Healthcheck)
	s.Router.Get("/ws", s.Handler.ServeWebsocket)

	s.Router.Route("/api/realtime", func(r chi.Router) {
		r.Post("/start", s.Handler.StartRealtimeUpdates)
		r.Post("/stop", s.Handler.StopRealtimeUpdates)
		r.Post("/cycle", s.Handler.RunCycle)
		r.Get("/status", s.Handler.GetStatus)
	})
	s.Router.Route("/api/jobs", func(r chi.Router) {
		r.Post("/revaluation/run", s.Handler.RevalueAll)
		r.Post("/revaluation", s.Handler.ScheduleRevaluation)
		r.Delete("/{name}", s.Handler.CancelJob)
	})
}

func NewHTTPServer(server *Server, port string) *http.Server {
	if port == "" {
		port = "8000"
	}
	httpServer := &http.Server{
		Addr:              ":" + port,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		Handler:           server,
	}
	return httpServer
}
