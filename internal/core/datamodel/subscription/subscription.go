package subscription

import "time"

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Subscription is the authoritative per-user subscription record. It is
// only written by the reconciler, with merge semantics keyed on user_id:
// fields absent from an incoming event keep their stored values.
type Subscription struct {
	ID             int64     `gorm:"primaryKey"`
	UserID         string    `gorm:"column:user_id;not null;uniqueIndex"`
	PlanID         string    `gorm:"column:plan_id;not null"`
	PurchaseDate   time.Time `gorm:"column:purchase_date"`
	ExpiryDate     time.Time `gorm:"column:expiry_date"`
	SourcePlatform string    `gorm:"column:source_platform"`
	SourceOrderID  string    `gorm:"column:source_order_id;index"`
	Status         string    `gorm:"column:status;default:active"`
	CreatedAt      time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;default:now()"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s.Status == StatusActive && s.ExpiryDate.After(t)
}
