package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cryptofolio/src/utils"
	"cryptofolio/src/worker/controllers"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// WebsocketServer upgrades subscription requests, satisfied by broadcast.Hub.
type WebsocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	Controller *controllers.Controller
	Websocket  WebsocketServer
	Logger     *logrus.Logger
}

func NewHandler(controller *controllers.Controller, ws WebsocketServer, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{Controller: controller, Websocket: ws, Logger: logger}
}

// requestContext bounds the request and carries a logger tagged with its id.
func (h *Handler) requestContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := utils.WithLogger(r.Context(), h.Logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
	}))
	return context.WithTimeout(ctx, timeout)
}

func (h *Handler) respond(w http.ResponseWriter, _ *http.Request, data interface{}, status int) {
	res, err := json.Marshal(data)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(res)
}

func (h *Handler) HandleErrors(w http.ResponseWriter, err error) {
	httpErr := utils.ToHTTPError(err)
	if httpErr.Code >= http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("status", httpErr.Code).Error("Request failed")
	}
	utils.WriteError(w, httpErr)
}
