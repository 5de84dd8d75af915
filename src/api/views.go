package api

import (
	"net/http"
	"time"

	handlers "cryptofolio/src/api/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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
	s.Router.Use(middleware.RealIP)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.Router.Get("/alive", s.Handler.Healthcheck)
	s.Router.Get("/ws", s.Handler.ServeWebsocket)

	s.Router.Route("/api/cryptos", func(r chi.Router) {
		r.Get("/", s.Handler.GetAllCryptos)
		r.Post("/", s.Handler.CreateCrypto)
		r.Get("/price-range", s.Handler.GetCryptosInPriceRange)
		r.Get("/change-range", s.Handler.GetCryptosInChangeRange)
		r.Get("/symbol/{symbol}", s.Handler.GetCryptoBySymbol)
		r.Route("/market", func(r chi.Router) {
			r.Get("/top", s.Handler.GetTopByMarketCap)
			r.Get("/simple-price", s.Handler.GetSimplePrices)
			r.Get("/search", s.Handler.SearchMarket)
			r.Get("/snapshot/{coinId}", s.Handler.GetLiveSnapshot)
		})
		r.Get("/{id}", s.Handler.GetCryptoByID)
		r.Put("/{id}", s.Handler.UpdateCrypto)
		r.Delete("/{id}", s.Handler.DeleteCrypto)
		r.Get("/{id}/stats", s.Handler.GetCryptoStats)
	})

	s.Router.Route("/api/portfolios", func(r chi.Router) {
		r.Get("/", s.Handler.GetAllPortfolios)
		r.Post("/", s.Handler.CreatePortfolio)
		r.Get("/name/{name}", s.Handler.GetPortfolioByName)
		r.Get("/{id}", s.Handler.GetPortfolioByID)
		r.Put("/{id}", s.Handler.UpdatePortfolio)
		r.Delete("/{id}", s.Handler.DeletePortfolio)
		r.Get("/{id}/transactions", s.Handler.GetPortfolioTransactions)
		r.Get("/{id}/valuation", s.Handler.GetPortfolioValuation)
		r.Post("/{id}/revalue", s.Handler.RevaluePortfolio)
	})

	s.Router.Route("/api/transactions", func(r chi.Router) {
		r.Get("/", s.Handler.GetAllTransactions)
		r.Post("/", s.Handler.CreateTransaction)
		r.Get("/{id}", s.Handler.GetTransactionByID)
		r.Put("/{id}", s.Handler.UpdateTransaction)
		r.Delete("/{id}", s.Handler.DeleteTransaction)
	})

	s.Router.Route("/api/realtime", func(r chi.Router) {
		r.Post("/start", s.Handler.StartRealtimeUpdates)
		r.Post("/stop", s.Handler.StopRealtimeUpdates)
		r.Post("/sync", s.Handler.SyncNow)
		r.Post("/cycle", s.Handler.RunCycle)
		r.Post("/clear-cache", s.Handler.ClearCache)
		r.Post("/send-test-data", s.Handler.SendStoredData)
		r.Post("/test-websocket", s.Handler.SendTestData)
		r.Get("/status", s.Handler.GetRealtimeStatus)
		r.Get("/api-health", s.Handler.GetAPIHealth)
		r.Get("/test-api", s.Handler.TestAPI)
		r.Get("/simple-price", s.Handler.GetSimplePrices)
		r.Get("/search", s.Handler.SearchMarket)
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
		// WebSocket writes are bounded per message by the hub, not here.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		Handler:      server,
	}
	return httpServer
}
