package controllers

import (
	"context"

	"cryptofolio/src/models"
	"cryptofolio/src/schemas"
	"cryptofolio/src/services"
)

type TransactionsControllerI interface {
	GetAllTransactions(ctx context.Context, filter schemas.TransactionFilter) ([]models.Transaction, error)
	GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, req schemas.TransactionRequest) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, req schemas.TransactionRequest) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

type TransactionsController struct {
	Transactions services.TransactionServiceI
}

func NewTransactionsController(transactions services.TransactionServiceI) *TransactionsController {
	return &TransactionsController{Transactions: transactions}
}

func (c *TransactionsController) GetAllTransactions(ctx context.Context, filter schemas.TransactionFilter) ([]models.Transaction, error) {
	return c.Transactions.List(ctx, filter)
}

func (c *TransactionsController) GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return c.Transactions.Get(ctx, id)
}

func (c *TransactionsController) CreateTransaction(ctx context.Context, req schemas.TransactionRequest) (*models.Transaction, error) {
	return c.Transactions.Create(ctx, req)
}

func (c *TransactionsController) UpdateTransaction(ctx context.Context, id int64, req schemas.TransactionRequest) (*models.Transaction, error) {
	return c.Transactions.Update(ctx, id, req)
}

func (c *TransactionsController) DeleteTransaction(ctx context.Context, id int64) error {
	return c.Transactions.Delete(ctx, id)
}
