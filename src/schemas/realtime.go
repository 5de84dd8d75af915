package schemas

import (
	"time"

	"cryptofolio/src/clients/coingecko"
	"cryptofolio/src/models"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ControlResponse is returned by every /api/realtime control operation.
type ControlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type RealtimeStatusResponse struct {
	RealTimeUpdates   bool        `json:"realTimeUpdates"`
	APIHealthy        bool        `json:"apiHealthy"`
	Interval          string      `json:"interval"`
	WebsocketEndpoint string      `json:"websocketEndpoint"`
	Subscribers       int         `json:"subscribers"`
	CachedSnapshots   int         `json:"cachedSnapshots"`
	CyclesRun         int64       `json:"cyclesRun"`
	LastCycle         *CycleStats `json:"lastCycle,omitempty"`
}

// CycleStats summarizes one sync pass.
type CycleStats struct {
	StartedAt          time.Time `json:"startedAt"`
	Duration           string    `json:"duration"`
	Skipped            bool      `json:"skipped"`
	Reason             string    `json:"reason,omitempty"`
	Received           int       `json:"received"`
	Updated            int       `json:"updated"`
	NotFound           int       `json:"notFound"`
	Failed             int       `json:"failed"`
	Notified           int       `json:"notified"`
	PortfoliosRevalued int       `json:"portfoliosRevalued"`
}

type APIHealthResponse struct {
	Healthy bool   `json:"healthy"`
	APIURL  string `json:"apiUrl"`
	Message string `json:"message"`
}

type TestAPIResponse struct {
	APIHealthy     bool           `json:"apiHealthy"`
	Success        bool           `json:"success"`
	Mode           string         `json:"mode,omitempty"`
	Count          int            `json:"count"`
	Data           []models.Asset `json:"data"`
	Message        string         `json:"message"`
	Suggestion     string         `json:"suggestion,omitempty"`
	RequestedLimit *int           `json:"requestedLimit,omitempty"`
}

type SimplePriceResponse struct {
	Success    bool                             `json:"success"`
	Count      int                              `json:"count"`
	VsCurrency string                           `json:"vsCurrency"`
	Data       map[string]coingecko.SimplePrice `json:"data"`
}

type SearchResponse struct {
	Success bool                    `json:"success"`
	Query   string                  `json:"query"`
	Data    *coingecko.SearchResult `json:"data"`
	Counts  map[string]int          `json:"counts"`
}

type BroadcastResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Sent    int    `json:"sent"`
	Message string `json:"message"`
}

type MarketListResponse struct {
	Count int            `json:"count"`
	Data  []models.Asset `json:"data"`
}

type WorkerStatusResponse struct {
	Realtime RealtimeStatusResponse `json:"realtime"`
	Jobs     []string               `json:"jobs"`
}

type RevaluationResponse struct {
	Portfolios int `json:"portfolios"`
	Revalued   int `json:"revalued"`
	Failed     int `json:"failed"`
}
