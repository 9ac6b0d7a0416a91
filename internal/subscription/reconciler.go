package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	internal "github.com/frahmantamala/subscription-billing/internal"
	paymentmodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	submodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/subscription"
	"github.com/frahmantamala/subscription-billing/internal/core/events"
	"github.com/frahmantamala/subscription-billing/internal/plan"
	"gorm.io/gorm"
)

// VerifiedEvent is a webhook notification that has already passed hash
// verification. The reconciler trusts it and nothing else does.
type VerifiedEvent struct {
	OrderID        string
	Status         string
	RawStatus      string
	AmountMinor    int64
	SourcePlatform string
}

type PaymentStore interface {
	GetByOrderID(orderID string) (*paymentmodel.PaymentAttempt, error)
	UpdateStatus(orderID, status string, gatewayResponse json.RawMessage, failureReason *string) error
	// MarkSuccessOnce transitions the attempt to success only if it is not
	// already there; reports whether this call won the transition.
	MarkSuccessOnce(orderID string, gatewayResponse json.RawMessage) (bool, error)
}

type SubscriptionStore interface {
	UpsertMerge(sub *submodel.Subscription) error
	UpdateStatusByOrderID(orderID, status string) error
}

// Reconciler applies verified gateway events to payment attempts and
// subscription records. Webhook delivery is at-least-once, so every path
// through Reconcile must be safe to repeat.
type Reconciler struct {
	payments PaymentStore
	subs     SubscriptionStore
	bus      *events.EventBus
	logger   *slog.Logger
}

func NewReconciler(payments PaymentStore, subs SubscriptionStore, bus *events.EventBus, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		payments: payments,
		subs:     subs,
		bus:      bus,
		logger:   logger,
	}
}

// Reconcile applies one verified event. applied=false means the event was
// a duplicate of an already-applied success and changed nothing.
func (r *Reconciler) Reconcile(ctx context.Context, event VerifiedEvent) (applied bool, err error) {
	attempt, err := r.payments.GetByOrderID(event.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// An event must never create a subscription out of thin air.
			return false, internal.ErrOrderNotFound
		}
		return false, internal.NewPersistenceError("failed to load payment attempt", err)
	}

	if event.Status != paymentmodel.StatusSuccess {
		return r.applyNonSuccess(ctx, attempt, event)
	}

	if attempt.Status == paymentmodel.StatusSuccess {
		r.logger.Info("duplicate success event ignored", "order_id", event.OrderID)
		return false, nil
	}

	p, err := plan.Lookup(attempt.PlanID)
	if err != nil {
		return false, err
	}

	// Purchase date derives from the attempt, not the delivery time, so a
	// redelivered or retried event converges on the same expiry.
	purchase := attempt.CreatedAt.UTC()
	sub := &submodel.Subscription{
		UserID:         attempt.UserID,
		PlanID:         attempt.PlanID,
		PurchaseDate:   purchase,
		ExpiryDate:     p.ExpiryFrom(purchase),
		SourcePlatform: event.SourcePlatform,
		SourceOrderID:  event.OrderID,
		Status:         submodel.StatusActive,
	}

	if err := r.subs.UpsertMerge(sub); err != nil {
		return false, internal.NewPersistenceError("failed to upsert subscription", err)
	}

	response, _ := json.Marshal(map[string]interface{}{
		"source":       event.SourcePlatform,
		"raw_status":   event.RawStatus,
		"amount_minor": event.AmountMinor,
		"received_at":  time.Now().UTC(),
	})

	// The conditional transition is the serialization point: of two
	// concurrent duplicate deliveries, exactly one observes applied=true.
	won, err := r.payments.MarkSuccessOnce(event.OrderID, response)
	if err != nil {
		return false, internal.NewPersistenceError("failed to mark payment attempt success", err)
	}
	if !won {
		r.logger.Info("lost success transition race to concurrent delivery", "order_id", event.OrderID)
		return false, nil
	}

	r.logger.Info("subscription activated",
		"order_id", event.OrderID,
		"user_id", attempt.UserID,
		"plan_id", attempt.PlanID,
		"expiry", sub.ExpiryDate)

	r.bus.Publish(ctx, events.NewSubscriptionActivatedEvent(
		attempt.UserID, attempt.PlanID, event.OrderID, sub.ExpiryDate))

	return true, nil
}

// applyNonSuccess updates status bookkeeping only. Expiry is never
// touched by anything except a first success.
func (r *Reconciler) applyNonSuccess(ctx context.Context, attempt *paymentmodel.PaymentAttempt, event VerifiedEvent) (bool, error) {
	if attempt.Status == paymentmodel.StatusSuccess {
		// A late failure event for an already-successful order is stale.
		r.logger.Warn("ignoring non-success event for successful attempt",
			"order_id", event.OrderID,
			"event_status", event.Status)
		return false, nil
	}

	reason := event.RawStatus
	if err := r.payments.UpdateStatus(event.OrderID, event.Status, nil, &reason); err != nil {
		return false, internal.NewPersistenceError("failed to update payment attempt status", err)
	}

	if event.Status == paymentmodel.StatusCancelled {
		if err := r.subs.UpdateStatusByOrderID(event.OrderID, submodel.StatusCancelled); err != nil {
			return false, internal.NewPersistenceError("failed to update subscription status", err)
		}
	}

	r.bus.Publish(ctx, events.NewPaymentFailedEvent(
		attempt.UserID, attempt.PlanID, event.OrderID, event.RawStatus))

	r.logger.Info("payment attempt status updated from webhook",
		"order_id", event.OrderID,
		"status", event.Status)

	return true, nil
}
