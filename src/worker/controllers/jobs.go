package controllers

import (
	"context"
	"fmt"
	"time"

	"cryptofolio/src/scheduler"
	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"
)

const (
	RevaluationJob = "portfolio-revaluation"

	revaluationTimeout = 2 * time.Minute
)

func (c *Controller) StartUpdates(ctx context.Context) (*schemas.ControlResponse, error) {
	stats, started, err := c.Sync.Start(ctx)
	if err != nil {
		return nil, err
	}
	if !started {
		return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Real-time updates already running"}, nil
	}
	return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Real-time updates started", Data: stats}, nil
}

func (c *Controller) StopUpdates(ctx context.Context) *schemas.ControlResponse {
	if !c.Sync.Stop(ctx) {
		return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Real-time updates already stopped"}
	}
	return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Real-time updates stopped"}
}

func (c *Controller) GetStatus(ctx context.Context) schemas.WorkerStatusResponse {
	return schemas.WorkerStatusResponse{Realtime: c.Sync.Status(ctx), Jobs: c.GetSchedulers()}
}

func (c *Controller) RunCycle(ctx context.Context) *schemas.ControlResponse {
	stats := c.Sync.RunCycle(ctx)
	if stats.Skipped {
		return &schemas.ControlResponse{Status: schemas.StatusError, Message: "Cycle skipped: " + stats.Reason, Data: stats}
	}
	return &schemas.ControlResponse{Status: schemas.StatusSuccess, Message: fmt.Sprintf("Cycle completed, %d cryptos updated", stats.Updated), Data: stats}
}

// RevalueAll recomputes the value of every portfolio. Failures are logged and
// counted without stopping the pass.
func (c *Controller) RevalueAll(ctx context.Context) (*schemas.RevaluationResponse, error) {
	portfolios, err := c.Portfolios.List(ctx, schemas.PortfolioFilter{})
	if err != nil {
		return nil, err
	}
	resp := &schemas.RevaluationResponse{Portfolios: len(portfolios)}
	for _, p := range portfolios {
		if _, err := c.Portfolios.Revalue(ctx, p.ID); err != nil {
			resp.Failed++
			utils.LoggerFromContext(ctx, c.Logger).WithError(err).WithField("portfolio", p.ID).Error("Scheduled revaluation failed")
			continue
		}
		resp.Revalued++
	}
	utils.LoggerFromContext(ctx, c.Logger).WithField("revalued", resp.Revalued).WithField("failed", resp.Failed).Info("Portfolio revaluation finished")
	return resp, nil
}

// ScheduleRevaluation (re)schedules the periodic revaluation of every portfolio.
func (c *Controller) ScheduleRevaluation(ctx context.Context, every time.Duration) error {
	if every < time.Second {
		return fmt.Errorf("revaluation interval must be at least one second: %w", utils.ErrInvalidArgument)
	}
	return c.schedule(ctx, RevaluationJob, scheduler.EverySpec(every), func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), revaluationTimeout)
		defer cancel()
		if _, err := c.RevalueAll(jobCtx); err != nil {
			c.Logger.WithError(err).Error("Scheduled revaluation aborted")
		}
	})
}

// schedule replaces any job registered under name.
func (c *Controller) schedule(ctx context.Context, name, spec string, taskFunc func()) error {
	c.CancelJob(ctx, name)

	task, err := scheduler.NewScheduledTask(spec, c.Logger, taskFunc)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, utils.ErrInvalidArgument)
	}

	c.SchedulerMutex.Lock()
	c.Schedulers[name] = task
	c.SchedulerMutex.Unlock()
	utils.LoggerFromContext(ctx, c.Logger).WithField("job", name).WithField("spec", spec).Info("Job scheduled")
	return nil
}

// CancelJob stops the named job and reports whether it existed.
func (c *Controller) CancelJob(ctx context.Context, name string) bool {
	c.SchedulerMutex.Lock()
	task, exists := c.Schedulers[name]
	delete(c.Schedulers, name)
	c.SchedulerMutex.Unlock()

	if !exists {
		return false
	}
	task.Cancel(ctx)
	utils.LoggerFromContext(ctx, c.Logger).WithField("job", name).Info("Job cancelled")
	return true
}

// Shutdown cancels every job and stops the market sync.
func (c *Controller) Shutdown(ctx context.Context) {
	for _, name := range c.GetSchedulers() {
		c.CancelJob(ctx, name)
	}
	c.Sync.Stop(ctx)
}
