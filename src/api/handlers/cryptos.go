package handlers

import (
	"net/http"
	"strings"

	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func cryptoFilter(r *http.Request) (schemas.CryptoFilter, error) {
	q := r.URL.Query()
	filter := schemas.CryptoFilter{Search: strings.TrimSpace(q.Get("search")), Order: q.Get("order")}
	var err error
	if filter.MinPrice, err = queryDecimal(r, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(r, "maxPrice"); err != nil {
		return filter, err
	}
	if filter.MinChange, err = queryDecimal(r, "minChange"); err != nil {
		return filter, err
	}
	if filter.MaxChange, err = queryDecimal(r, "maxChange"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *Handler) GetAllCryptos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	filter, err := cryptoFilter(r)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	switch filter.Order {
	case "", "market_cap", "volume", "change":
	default:
		h.HandleErrors(w, utils.BadRequest("order must be one of market_cap, volume, change"))
		return
	}

	assets, err := h.CryptosController.GetAllCryptos(ctx, filter)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, assets, http.StatusOK)
}

// GetCryptosInPriceRange serves /price-range?min=&max=, both bounds required.
func (h *Handler) GetCryptosInPriceRange(w http.ResponseWriter, r *http.Request) {
	h.getCryptosInRange(w, r, func(f *schemas.CryptoFilter, lo, hi decimal.NullDecimal) {
		f.MinPrice, f.MaxPrice = lo, hi
	})
}

// GetCryptosInChangeRange serves /change-range?min=&max=, both bounds required.
func (h *Handler) GetCryptosInChangeRange(w http.ResponseWriter, r *http.Request) {
	h.getCryptosInRange(w, r, func(f *schemas.CryptoFilter, lo, hi decimal.NullDecimal) {
		f.MinChange, f.MaxChange = lo, hi
	})
}

func (h *Handler) getCryptosInRange(w http.ResponseWriter, r *http.Request, apply func(*schemas.CryptoFilter, decimal.NullDecimal, decimal.NullDecimal)) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	lo, err := queryDecimal(r, "min")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	hi, err := queryDecimal(r, "max")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	if !lo.Valid || !hi.Valid {
		h.HandleErrors(w, utils.BadRequest("min and max are required"))
		return
	}

	var filter schemas.CryptoFilter
	apply(&filter, lo, hi)
	assets, err := h.CryptosController.GetAllCryptos(ctx, filter)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, assets, http.StatusOK)
}

func (h *Handler) GetCryptoByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	asset, err := h.CryptosController.GetCryptoByID(ctx, id)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, asset, http.StatusOK)
}

func (h *Handler) GetCryptoBySymbol(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	asset, err := h.CryptosController.GetCryptoBySymbol(ctx, chi.URLParam(r, "symbol"))
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, asset, http.StatusOK)
}

func (h *Handler) CreateCrypto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req schemas.CryptoRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.HandleErrors(w, err)
		return
	}
	asset, err := h.CryptosController.CreateCrypto(ctx, req)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, asset, http.StatusCreated)
}

func (h *Handler) UpdateCrypto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	var req schemas.CryptoRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.HandleErrors(w, err)
		return
	}
	asset, err := h.CryptosController.UpdateCrypto(ctx, id, req)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, asset, http.StatusOK)
}

func (h *Handler) DeleteCrypto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	if err := h.CryptosController.DeleteCrypto(ctx, id); err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, nil, http.StatusNoContent)
}

func (h *Handler) GetCryptoStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	id, err := pathID(r, "id")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	stats, err := h.CryptosController.GetCryptoStats(ctx, id)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, stats, http.StatusOK)
}

func (h *Handler) GetLiveSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	asset, err := h.CryptosController.GetLiveSnapshot(ctx, chi.URLParam(r, "coinId"))
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, asset, http.StatusOK)
}

func (h *Handler) GetTopByMarketCap(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	limit, err := queryLimit(r)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	top, err := h.CryptosController.GetTopByMarketCap(ctx, limit)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, top, http.StatusOK)
}

func (h *Handler) GetSimplePrices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	q := r.URL.Query()
	var ids []string
	if raw := q.Get("ids"); raw != "" {
		ids = strings.Split(raw, ",")
	}
	prices, err := h.CryptosController.GetSimplePrices(ctx, ids, q.Get("vs"))
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, prices, http.StatusOK)
}

func (h *Handler) SearchMarket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.CryptosController.SearchMarket(ctx, r.URL.Query().Get("query"))
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, result, http.StatusOK)
}
