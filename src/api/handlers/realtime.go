package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cryptofolio/src/schemas"
)

const syncRequestTimeout = 30 * time.Second

// controlStatus maps a control result onto its HTTP status.
func controlStatus(resp *schemas.ControlResponse) int {
	if resp.Status == schemas.StatusError {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func (h *Handler) StartRealtimeUpdates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncRequestTimeout)
	defer cancel()

	resp, err := h.RealtimeController.StartUpdates(ctx)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, resp, controlStatus(resp))
}

func (h *Handler) StopRealtimeUpdates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncRequestTimeout)
	defer cancel()

	resp := h.RealtimeController.StopUpdates(ctx)
	h.respond(w, r, resp, controlStatus(resp))
}

func (h *Handler) GetRealtimeStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	h.respond(w, r, h.RealtimeController.GetStatus(ctx), http.StatusOK)
}

func (h *Handler) SyncNow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncRequestTimeout)
	defer cancel()

	resp := h.RealtimeController.SyncNow(ctx)
	h.respond(w, r, resp, controlStatus(resp))
}

func (h *Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncRequestTimeout)
	defer cancel()

	resp := h.RealtimeController.RunCycle(ctx)
	h.respond(w, r, resp, controlStatus(resp))
}

func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	resp := h.RealtimeController.ClearCache(ctx)
	h.respond(w, r, resp, controlStatus(resp))
}

func (h *Handler) GetAPIHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	health := h.RealtimeController.GetAPIHealth(ctx)
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	h.respond(w, r, health, status)
}

func (h *Handler) TestAPI(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	limit, err := queryLimit(r)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	topOnly, _ := strconv.ParseBool(r.URL.Query().Get("top"))

	h.respond(w, r, h.RealtimeController.TestAPI(ctx, limit, topOnly), http.StatusOK)
}

func (h *Handler) SendStoredData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	resp, err := h.RealtimeController.SendStoredData(ctx)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, resp, http.StatusOK)
}

func (h *Handler) SendTestData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	h.respond(w, r, h.RealtimeController.SendTestData(ctx), http.StatusOK)
}
