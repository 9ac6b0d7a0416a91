package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSubscriptionActivated = "subscription.activated"
	EventTypePaymentFailed         = "payment.failed"
)

type SubscriptionActivatedEvent struct {
	BaseEvent
	UserID     string    `json:"user_id"`
	PlanID     string    `json:"plan_id"`
	OrderID    string    `json:"order_id"`
	ExpiryDate time.Time `json:"expiry_date"`
}

func NewSubscriptionActivatedEvent(userID, planID, orderID string, expiryDate time.Time) *SubscriptionActivatedEvent {
	return &SubscriptionActivatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSubscriptionActivated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":     userID,
				"plan_id":     planID,
				"order_id":    orderID,
				"expiry_date": expiryDate,
			},
		},
		UserID:     userID,
		PlanID:     planID,
		OrderID:    orderID,
		ExpiryDate: expiryDate,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	PlanID    string `json:"plan_id"`
	OrderID   string `json:"order_id"`
	RawStatus string `json:"raw_status"`
}

func NewPaymentFailedEvent(userID, planID, orderID, rawStatus string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"plan_id":    planID,
				"order_id":   orderID,
				"raw_status": rawStatus,
			},
		},
		UserID:    userID,
		PlanID:    planID,
		OrderID:   orderID,
		RawStatus: rawStatus,
	}
}
