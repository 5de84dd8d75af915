package handlers

import (
	"net/http"
	"strings"

	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetAllPortfolios(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	q := r.URL.Query()
	filter := schemas.PortfolioFilter{Search: strings.TrimSpace(q.Get("search")), Order: q.Get("order")}
	switch filter.Order {
	case "", "value", "created":
	default:
		h.HandleErrors(w, utils.BadRequest("order must be one of value, created"))
		return
	}
	var err error
	if filter.MinValue, err = queryDecimal(r, "minValue"); err != nil {
		h.HandleErrors(w, err)
		return
	}
	if filter.MaxValue, err = queryDecimal(r, "maxValue"); err != nil {
		h.HandleErrors(w, err)
		return
	}

	portfolios, err := h.PortfoliosController.GetAllPortfolios(ctx, filter)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, portfolios, http.StatusOK)
}

func (h *Handler) GetPortfolioByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	portfolio, err := h.PortfoliosController.GetPortfolioByID(ctx, id)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, portfolio, http.StatusOK)
}

func (h *Handler) GetPortfolioByName(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	portfolio, err := h.PortfoliosController.GetPortfolioByName(ctx, chi.URLParam(r, "name"))
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, portfolio, http.StatusOK)
}

func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req schemas.PortfolioRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.HandleErrors(w, err)
		return
	}
	portfolio, err := h.PortfoliosController.CreatePortfolio(ctx, req)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, portfolio, http.StatusCreated)
}

func (h *Handler) UpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	var req schemas.PortfolioRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.HandleErrors(w, err)
		return
	}
	portfolio, err := h.PortfoliosController.UpdatePortfolio(ctx, id, req)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, portfolio, http.StatusOK)
}

func (h *Handler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	if err := h.PortfoliosController.DeletePortfolio(ctx, id); err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, nil, http.StatusNoContent)
}

func (h *Handler) GetPortfolioTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	transactions, err := h.PortfoliosController.GetPortfolioTransactions(ctx, id)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, transactions, http.StatusOK)
}

func (h *Handler) GetPortfolioValuation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	valuation, err := h.PortfoliosController.GetPortfolioValuation(ctx, id)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, valuation, http.StatusOK)
}

func (h *Handler) RevaluePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	valuation, err := h.PortfoliosController.RevaluePortfolio(ctx, id)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, valuation, http.StatusOK)
}
