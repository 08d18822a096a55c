package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/dkotenko/paycore/internal/domain"
	"github.com/dkotenko/paycore/internal/service"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paycore_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	payments *service.Payments
}

func NewHandler(p *service.Payments) *Handler {
	return &Handler{payments: p}
}

// Register mounts the payment routes on the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/payments/card-to-card/{user_id}", h.CreateTransaction).Methods("POST")
	r.HandleFunc("/payments/deposit/{user_id}", h.Deposit).Methods("POST")
	r.HandleFunc("/payments/confirm", h.Confirm).Methods("POST")
	r.HandleFunc("/payments/{id}/cancel", h.Cancel).Methods("POST")
	r.HandleFunc("/payments/transactions/{user_id}", h.GetTransactions).Methods("GET")
	r.HandleFunc("/payments/balance/{user_id}", h.GetBalance).Methods("GET")
	r.HandleFunc("/payments/stats/{user_id}", h.GetStats).Methods("GET")
}

type cardToCardRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	FromCardID string          `json:"from_card_id"`
	ToCardID   string          `json:"to_card_id"`
}

type depositRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	SuccessURL string          `json:"success_url,omitempty"`
	CancelURL  string          `json:"cancel_url,omitempty"`
}

type confirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/payments/card-to-card"))
	defer timer.ObserveDuration()

	userID := mux.Vars(r)["user_id"]

	var req cardToCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", "/payments/card-to-card")
		return
	}

	result, err := h.payments.CreateTransaction(r.Context(), req.FromCardID, req.ToCardID, req.Amount, userID)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payments/card-to-card")
		return
	}
	h.respondJSON(w, http.StatusCreated, result, "POST", "/payments/card-to-card")
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/payments/deposit"))
	defer timer.ObserveDuration()

	userID := mux.Vars(r)["user_id"]

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", "/payments/deposit")
		return
	}

	result, err := h.payments.DepositViaStripe(r.Context(), userID, req.Amount, req.SuccessURL, req.CancelURL)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payments/deposit")
		return
	}
	h.respondJSON(w, http.StatusCreated, result, "POST", "/payments/deposit")
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentIntentID == "" {
		h.respondError(w, http.StatusBadRequest, "payment_intent_id is required", "POST", "/payments/confirm")
		return
	}

	result, err := h.payments.ConfirmStripePayment(r.Context(), req.PaymentIntentID)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payments/confirm")
		return
	}
	h.respondJSON(w, http.StatusOK, result, "POST", "/payments/confirm")
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction id", "POST", "/payments/{id}/cancel")
		return
	}

	result, err := h.payments.CancelTransaction(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payments/{id}/cancel")
		return
	}
	h.respondJSON(w, http.StatusOK, result, "POST", "/payments/{id}/cancel")
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	records, err := h.payments.GetUserTransactions(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payments/transactions")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"user_id":      userID,
		"transactions": records,
		"total_count":  len(records),
	}, "GET", "/payments/transactions")
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	balance, err := h.payments.GetUserBalance(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payments/balance")
		return
	}
	h.respondJSON(w, http.StatusOK, balance, "GET", "/payments/balance")
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	stats, err := h.payments.GetUserStats(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payments/stats")
		return
	}
	h.respondJSON(w, http.StatusOK, stats, "GET", "/payments/stats")
}

// respondServiceError maps invariant violations to HTTP statuses. Business
// failures never arrive here; they come back as structured results.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidCards), errors.Is(err, domain.ErrUnknownKind):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrDuplicateTransaction), errors.Is(err, domain.ErrInvalidTransition):
		h.respondError(w, http.StatusConflict, err.Error(), method, endpoint)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

// Helpers
func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
