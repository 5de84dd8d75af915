package controllers

import (
	"context"
	"fmt"

	"cryptofolio/src/schemas"
	"cryptofolio/src/services"
)

type RealtimeControllerI interface {
	StartUpdates(ctx context.Context) (*schemas.ControlResponse, error)
	StopUpdates(ctx context.Context) *schemas.ControlResponse
	GetStatus(ctx context.Context) schemas.RealtimeStatusResponse
	SyncNow(ctx context.Context) *schemas.ControlResponse
	RunCycle(ctx context.Context) *schemas.ControlResponse
	ClearCache(ctx context.Context) *schemas.ControlResponse
	GetAPIHealth(ctx context.Context) schemas.APIHealthResponse
	TestAPI(ctx context.Context, limit int, topOnly bool) schemas.TestAPIResponse
	SendStoredData(ctx context.Context) (*schemas.BroadcastResponse, error)
	SendTestData(ctx context.Context) *schemas.ControlResponse
}

type RealtimeController struct {
	Sync services.SyncServiceI
}

func NewRealtimeController(sync services.SyncServiceI) *RealtimeController {
	return &RealtimeController{Sync: sync}
}

func (c *RealtimeController) StartUpdates(ctx context.Context) (*schemas.ControlResponse, error) {
	stats, started, err := c.Sync.Start(ctx)
	if err != nil {
		return nil, err
	}
	if !started {
		return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Real-time updates already running"}, nil
	}
	return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Real-time updates started", Data: stats}, nil
}

func (c *RealtimeController) StopUpdates(ctx context.Context) *schemas.ControlResponse {
	if !c.Sync.Stop(ctx) {
		return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Real-time updates already stopped"}
	}
	return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Real-time updates stopped"}
}

func (c *RealtimeController) GetStatus(ctx context.Context) schemas.RealtimeStatusResponse {
	return c.Sync.Status(ctx)
}

// cycleResponse turns a skipped or fruitless pass into an error result.
func cycleResponse(stats schemas.CycleStats, okMessage string) *schemas.ControlResponse {
	switch {
	case stats.Skipped:
		return &schemas.ControlResponse{Status: schemas.StatusError, Message: "Sync skipped: " + stats.Reason, Data: stats}
	case stats.Updated == 0:
		return &schemas.ControlResponse{Status: schemas.StatusError, Message: "No stored crypto matched the market data", Data: stats}
	default:
		return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: fmt.Sprintf("%s, %d cryptos updated", okMessage, stats.Updated), Data: stats}
	}
}

func (c *RealtimeController) SyncNow(ctx context.Context) *schemas.ControlResponse {
	return cycleResponse(c.Sync.SyncInitialData(ctx), "Manual sync completed")
}

func (c *RealtimeController) RunCycle(ctx context.Context) *schemas.ControlResponse {
	return cycleResponse(c.Sync.RunCycle(ctx), "Update cycle completed")
}

func (c *RealtimeController) ClearCache(ctx context.Context) *schemas.ControlResponse {
	c.Sync.ClearCache(ctx)
	return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Cache cleared"}
}

func (c *RealtimeController) GetAPIHealth(ctx context.Context) schemas.APIHealthResponse {
	return c.Sync.APIHealth(ctx)
}

func (c *RealtimeController) TestAPI(ctx context.Context, limit int, topOnly bool) schemas.TestAPIResponse {
	return c.Sync.TestConnectivity(ctx, limit, topOnly)
}

func (c *RealtimeController) SendStoredData(ctx context.Context) (*schemas.BroadcastResponse, error) {
	return c.Sync.BroadcastStored(ctx)
}

func (c *RealtimeController) SendTestData(context.Context) *schemas.ControlResponse {
	asset := c.Sync.BroadcastTest()
	return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Test message sent", Data: asset}
}
