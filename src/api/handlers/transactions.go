package handlers

import (
	"net/http"
	"strings"

	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"
)

func transactionFilter(r *http.Request) (schemas.TransactionFilter, error) {
	q := r.URL.Query()
	filter := schemas.TransactionFilter{Type: strings.ToUpper(strings.TrimSpace(q.Get("type")))}

	var err error
	if filter.PortfolioID, err = queryInt64(r, "portfolioId"); err != nil {
		return filter, err
	}
	if filter.CryptoID, err = queryInt64(r, "cryptoId"); err != nil {
		return filter, err
	}
	if raw := q.Get("start"); raw != "" {
		start, err := utils.ParseDateParam(raw, false)
		if err != nil {
			return filter, err
		}
		filter.Start = &start
	}
	if raw := q.Get("end"); raw != "" {
		end, err := utils.ParseDateParam(raw, true)
		if err != nil {
			return filter, err
		}
		filter.End = &end
	}
	return filter, nil
}

func (h *Handler) GetAllTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	filter, err := transactionFilter(r)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	transactions, err := h.TransactionsController.GetAllTransactions(ctx, filter)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, transactions, http.StatusOK)
}

func (h *Handler) GetTransactionByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	transaction, err := h.TransactionsController.GetTransactionByID(ctx, id)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, transaction, http.StatusOK)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req schemas.TransactionRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.HandleErrors(w, err)
		return
	}
	transaction, err := h.TransactionsController.CreateTransaction(ctx, req)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, transaction, http.StatusCreated)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	var req schemas.TransactionRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.HandleErrors(w, err)
		return
	}
	transaction, err := h.TransactionsController.UpdateTransaction(ctx, id, req)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, transaction, http.StatusOK)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	if err := h.TransactionsController.DeleteTransaction(ctx, id); err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, nil, http.StatusNoContent)
}
