package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	internal "github.com/frahmantamala/subscription-billing/internal"
	paymentmodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	"github.com/frahmantamala/subscription-billing/internal/subscription"
	"github.com/shopspring/decimal"
)

// AckBody is the literal acknowledgement the provider requires; anything
// else makes it redeliver.
const AckBody = "OK"

const sourcePlatform = "paygate"

type ReconcilerAPI interface {
	Reconcile(ctx context.Context, event subscription.VerifiedEvent) (bool, error)
}

type Handler struct {
	verifier   *Verifier
	reconciler ReconcilerAPI
	logger     *slog.Logger
}

func NewHandler(verifier *Verifier, reconciler ReconcilerAPI, logger *slog.Logger) *Handler {
	return &Handler{
		verifier:   verifier,
		reconciler: reconciler,
		logger:     logger,
	}
}

// HandleNotification handles POST /api/v1/webhook/paygate. The provider
// sends a form-encoded body; verification gates every store write.
func (h *Handler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("webhook body not form-decodable", "error", err)
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	notification := Notification{
		OrderID:     r.PostFormValue("order_id"),
		Status:      r.PostFormValue("status"),
		TotalAmount: r.PostFormValue("total_amount"),
		Hash:        r.PostFormValue("hash"),
	}

	if err := h.verifier.Verify(notification); err != nil {
		h.logger.Warn("webhook verification failed",
			"order_id", notification.OrderID,
			"error", err)
		http.Error(w, "verification failed", http.StatusBadRequest)
		return
	}

	event := subscription.VerifiedEvent{
		OrderID:        notification.OrderID,
		Status:         mapProviderStatus(notification.Status),
		RawStatus:      notification.Status,
		AmountMinor:    amountMinor(notification.TotalAmount),
		SourcePlatform: sourcePlatform,
	}

	applied, err := h.reconciler.Reconcile(r.Context(), event)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeNotFound {
			h.logger.Warn("webhook for unknown order", "order_id", notification.OrderID)
			http.Error(w, "unknown order", http.StatusNotFound)
			return
		}
		h.logger.Error("webhook reconciliation failed",
			"order_id", notification.OrderID,
			"error", err)
		// 5xx so the provider redelivers; reconciliation is idempotent.
		http.Error(w, "reconciliation failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("webhook processed",
		"order_id", notification.OrderID,
		"status", notification.Status,
		"applied", applied)

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(AckBody))
}

// mapProviderStatus folds the provider's status vocabulary into the
// attempt status set.
func mapProviderStatus(status string) string {
	switch strings.ToLower(status) {
	case "1", "success", "completed", "paid":
		return paymentmodel.StatusSuccess
	case "cancel", "cancelled", "canceled", "refund":
		return paymentmodel.StatusCancelled
	default:
		return paymentmodel.StatusFailed
	}
}

func amountMinor(total string) int64 {
	d, err := decimal.NewFromString(strings.ReplaceAll(total, ",", "."))
	if err != nil {
		return 0
	}
	return d.Mul(decimal.NewFromInt(100)).IntPart()
}
