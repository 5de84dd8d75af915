package controllers

import (
	"context"

	"cryptofolio/src/models"
	"cryptofolio/src/schemas"
	"cryptofolio/src/services"
)

type PortfoliosControllerI interface {
	GetAllPortfolios(ctx context.Context, filter schemas.PortfolioFilter) ([]models.Portfolio, error)
	GetPortfolioByID(ctx context.Context, id int64) (*models.Portfolio, error)
	GetPortfolioByName(ctx context.Context, name string) (*models.Portfolio, error)
	CreatePortfolio(ctx context.Context, req schemas.PortfolioRequest) (*models.Portfolio, error)
	UpdatePortfolio(ctx context.Context, id int64, req schemas.PortfolioRequest) (*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, id int64) error
	GetPortfolioTransactions(ctx context.Context, id int64) ([]models.Transaction, error)
	GetPortfolioValuation(ctx context.Context, id int64) (*schemas.PortfolioValuation, error)
	RevaluePortfolio(ctx context.Context, id int64) (*schemas.PortfolioValuation, error)
}

type PortfoliosController struct {
	Portfolios services.PortfolioServiceI
}

func NewPortfoliosController(portfolios services.PortfolioServiceI) *PortfoliosController {
	return &PortfoliosController{Portfolios: portfolios}
}

func (c *PortfoliosController) GetAllPortfolios(ctx context.Context, filter schemas.PortfolioFilter) ([]models.Portfolio, error) {
	return c.Portfolios.List(ctx, filter)
}

func (c *PortfoliosController) GetPortfolioByID(ctx context.Context, id int64) (*models.Portfolio, error) {
	return c.Portfolios.Get(ctx, id)
}

func (c *PortfoliosController) GetPortfolioByName(ctx context.Context, name string) (*models.Portfolio, error) {
	return c.Portfolios.GetByName(ctx, name)
}

func (c *PortfoliosController) CreatePortfolio(ctx context.Context, req schemas.PortfolioRequest) (*models.Portfolio, error) {
	return c.Portfolios.Create(ctx, req)
}

func (c *PortfoliosController) UpdatePortfolio(ctx context.Context, id int64, req schemas.PortfolioRequest) (*models.Portfolio, error) {
	return c.Portfolios.Update(ctx, id, req)
}

func (c *PortfoliosController) DeletePortfolio(ctx context.Context, id int64) error {
	return c.Portfolios.Delete(ctx, id)
}

func (c *PortfoliosController) GetPortfolioTransactions(ctx context.Context, id int64) ([]models.Transaction, error) {
	return c.Portfolios.Transactions(ctx, id)
}

func (c *PortfoliosController) GetPortfolioValuation(ctx context.Context, id int64) (*schemas.PortfolioValuation, error) {
	return c.Portfolios.Valuation(ctx, id)
}

func (c *PortfoliosController) RevaluePortfolio(ctx context.Context, id int64) (*schemas.PortfolioValuation, error) {
	return c.Portfolios.Revalue(ctx, id)
}
