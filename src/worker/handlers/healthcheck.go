package handlers

import (
	"net/http"
	"time"
)

func (h *Handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, map[string]interface{}{
		"status": "alive",
		"jobs":   h.Controller.GetSchedulers(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

func (h *Handler) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	h.Websocket.ServeWS(w, r)
}
