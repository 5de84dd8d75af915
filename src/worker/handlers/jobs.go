package handlers

import (
	"net/http"
	"time"

	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"
	"cryptofolio/src/worker/controllers"

	"github.com/go-chi/chi/v5"
)

const jobRequestTimeout = 30 * time.Second

func controlStatus(resp *schemas.ControlResponse) int {
	if resp.Status == schemas.StatusError {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func (h *Handler) StartRealtimeUpdates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r, jobRequestTimeout)
	defer cancel()

	resp, err := h.Controller.StartUpdates(ctx)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, resp, controlStatus(resp))
}

func (h *Handler) StopRealtimeUpdates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r, jobRequestTimeout)
	defer cancel()

	resp := h.Controller.StopUpdates(ctx)
	h.respond(w, r, resp, controlStatus(resp))
}

func (h *Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r, jobRequestTimeout)
	defer cancel()

	resp := h.Controller.RunCycle(ctx)
	h.respond(w, r, resp, controlStatus(resp))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r, 10*time.Second)
	defer cancel()

	h.respond(w, r, h.Controller.GetStatus(ctx), http.StatusOK)
}

func (h *Handler) RevalueAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r, jobRequestTimeout)
	defer cancel()

	resp, err := h.Controller.RevalueAll(ctx)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, resp, http.StatusOK)
}

// ScheduleRevaluation serves POST /api/jobs/revaluation?every=5m.
func (h *Handler) ScheduleRevaluation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r, jobRequestTimeout)
	defer cancel()

	every, err := time.ParseDuration(r.URL.Query().Get("every"))
	if err != nil {
		h.HandleErrors(w, utils.BadRequest("every must be a duration such as 5m"))
		return
	}
	if err := h.Controller.ScheduleRevaluation(ctx, every); err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Revaluation scheduled every " + every.String()}, http.StatusOK)
}

func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r, jobRequestTimeout)
	defer cancel()

	name := chi.URLParam(r, "name")
	if name == "revaluation" {
		name = controllers.RevaluationJob
	}
	if !h.Controller.CancelJob(ctx, name) {
		h.HandleErrors(w, utils.NotFound("no job named "+name))
		return
	}
	h.respond(w, r, schemas.ControlResponse{Status: schemas.StatusSuccess, Message: "Job " + name + " cancelled"}, http.StatusOK)
}
