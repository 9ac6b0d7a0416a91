package payment

import (
	"encoding/json"
	"time"
)

const (
	StatusPending         = "pending"
	StatusChallengeIssued = "challenge_issued"
	StatusSuccess         = "success"
	StatusFailed          = "failed"
	StatusCancelled       = "cancelled"
)

// PaymentAttempt is the audit record for one payment initiation. Rows are
// never deleted; status is the only field that transitions after insert.
type PaymentAttempt struct {
	ID              int64           `gorm:"primaryKey"`
	OrderID         string          `gorm:"column:order_id;not null;uniqueIndex"`
	UserID          string          `gorm:"column:user_id;not null;index"`
	PlanID          string          `gorm:"column:plan_id;not null"`
	AmountMinor     int64           `gorm:"column:amount_minor;not null"`
	Currency        string          `gorm:"column:currency;not null;default:TRY"`
	Status          string          `gorm:"column:status;default:pending"`
	GatewayResponse json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	FailureReason   *string         `gorm:"column:failure_reason"`
	CreatedAt       time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;default:now()"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}

func (p *PaymentAttempt) IsTerminal() bool {
	return p.Status == StatusSuccess || p.Status == StatusFailed || p.Status == StatusCancelled
}
