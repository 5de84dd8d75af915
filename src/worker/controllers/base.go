package controllers

import (
	"sync"

	"cryptofolio/src/scheduler"
	"cryptofolio/src/services"

	"github.com/sirupsen/logrus"
)

// Controller drives the background jobs of a WORKER instance: the market
// sync loop and named cron jobs such as the periodic portfolio revaluation.
type Controller struct {
	Sync           services.SyncServiceI
	Portfolios     services.PortfolioServiceI
	Logger         *logrus.Logger
	SchedulerMutex sync.Mutex
	Schedulers     map[string]*scheduler.ScheduledTask
}

func NewController(sync services.SyncServiceI, portfolios services.PortfolioServiceI, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{
		Sync:       sync,
		Portfolios: portfolios,
		Logger:     logger,
		Schedulers: map[string]*scheduler.ScheduledTask{},
	}
}

// GetSchedulers returns the names of the scheduled jobs.
func (c *Controller) GetSchedulers() []string {
	c.SchedulerMutex.Lock()
	defer c.SchedulerMutex.Unlock()
	names := make([]string, 0, len(c.Schedulers))
	for name := range c.Schedulers {
		names = append(names, name)
	}
	return names
}
