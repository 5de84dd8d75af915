package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cryptofolio/src/api/controllers"
	"cryptofolio/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	maxBodyBytes          = 1 << 20
)

// WebsocketServer upgrades subscription requests, satisfied by broadcast.Hub.
type WebsocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	CryptosController      controllers.CryptosControllerI
	PortfoliosController   controllers.PortfoliosControllerI
	TransactionsController controllers.TransactionsControllerI
	RealtimeController     controllers.RealtimeControllerI
	Websocket              WebsocketServer
	Logger                 *logrus.Logger
	RequestTimeout         time.Duration
}

func NewHandler(controller *controllers.Controller, ws WebsocketServer, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		CryptosController:      controller.Cryptos,
		PortfoliosController:   controller.Portfolios,
		TransactionsController: controller.Transactions,
		RealtimeController:     controller.Realtime,
		Websocket:              ws,
		Logger:                 logger,
		RequestTimeout:         DefaultRequestTimeout,
	}
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := h.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx := utils.WithLogger(r.Context(), h.Logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	}))
	return context.WithTimeout(ctx, timeout)
}

func (h *Handler) respond(w http.ResponseWriter, _ *http.Request, data interface{}, status int) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
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

func (h *Handler) decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return utils.BadRequest("request body is required")
		}
		return utils.BadRequest("malformed request body: " + err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.BadRequest("invalid " + name + ": " + raw)
	}
	return id, nil
}

func queryDecimal(r *http.Request, name string) (decimal.NullDecimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, utils.BadRequest("invalid " + name + ": " + raw)
	}
	return decimal.NewNullDecimal(d), nil
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, utils.BadRequest("invalid " + name + ": " + raw)
	}
	return &v, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, utils.BadRequest("invalid limit: " + raw)
	}
	return limit, nil
}
