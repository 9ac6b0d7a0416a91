package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/transport"
	"github.com/go-chi/chi"
)

type Handler struct {
	transport.BaseHandler
	Service *Service
	Logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Service:     service,
		Logger:      logger,
	}
}

// StartSecurePayment handles POST /api/v1/payment/3d/init
func (h *Handler) StartSecurePayment(w http.ResponseWriter, r *http.Request) {
	var req StartPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("StartSecurePayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.StartSecurePayment(r.Context(), req.UserID, req.PlanID, req.Card())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

// CompleteSecurePayment handles POST /api/v1/payment/3d/complete
func (h *Handler) CompleteSecurePayment(w http.ResponseWriter, r *http.Request) {
	var req CompletePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CompleteSecurePayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	outcome, err := h.Service.CompleteSecurePayment(r.Context(), req.OrderID, req.SessionToken)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, outcome)
}

// GetPayment handles GET /api/v1/payment/{orderID}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		h.HandleError(w, errors.NewValidationError("order id is required", errors.ErrCodeInvalidOrderID))
		return
	}

	attempt, err := h.Service.GetPayment(orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PaymentStatusResponse{
		OrderID:     attempt.OrderID,
		PlanID:      attempt.PlanID,
		Status:      attempt.Status,
		AmountMinor: attempt.AmountMinor,
		Currency:    attempt.Currency,
	})
}

// HandleReturn handles GET /api/v1/payment/return/{outcome}. The gateway
// redirects the user here after the challenge; this is bookkeeping only
// and never grants the subscription.
func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	outcome := chi.URLParam(r, "outcome")
	orderID := r.URL.Query().Get("order_id")
	userID := r.URL.Query().Get("user_id")

	if orderID == "" || userID == "" {
		h.HandleError(w, errors.NewValidationError("order_id and user_id are required", errors.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.RecordReturn(r.Context(), orderID, outcome == "success"); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{
		"order_id": orderID,
		"outcome":  outcome,
	})
}

// SaveCard handles POST /api/v1/cards
func (h *Handler) SaveCard(w http.ResponseWriter, r *http.Request) {
	var req SaveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	token, err := h.Service.SaveCard(r.Context(), req.Card())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]string{"card_token": token})
}

// ListCards handles GET /api/v1/cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Service.ListCards(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

// DeleteCard handles DELETE /api/v1/cards/{token}
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		h.HandleError(w, errors.NewValidationError("card token is required", errors.ErrCodeInvalidCard))
		return
	}

	if err := h.Service.DeleteCard(r.Context(), token); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ChargeStoredCard handles POST /api/v1/cards/charge
func (h *Handler) ChargeStoredCard(w http.ResponseWriter, r *http.Request) {
	var req ChargeStoredCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.ChargeStoredCard(r.Context(), req.UserID, req.PlanID, req.CardToken, req.CVV, req.Tier)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}
