package controllers

import (
	"cryptofolio/src/clients/coingecko"
	"cryptofolio/src/services"
)

// Controller bundles the per-resource controllers served by the API.
type Controller struct {
	Cryptos      CryptosControllerI
	Portfolios   PortfoliosControllerI
	Transactions TransactionsControllerI
	Realtime     RealtimeControllerI
}

type Dependencies struct {
	Assets       services.AssetServiceI
	Portfolios   services.PortfolioServiceI
	Transactions services.TransactionServiceI
	Sync         services.SyncServiceI
	Market       coingecko.MarketDataClientI
	VsCurrency   string
}

func NewController(deps Dependencies) *Controller {
	return &Controller{
		Cryptos:      NewCryptosController(deps.Assets, deps.Market, deps.VsCurrency),
		Portfolios:   NewPortfoliosController(deps.Portfolios),
		Transactions: NewTransactionsController(deps.Transactions),
		Realtime:     NewRealtimeController(deps.Sync),
	}
}
