package postgres

import (
	"time"

	submodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/subscription"
	subpkg "github.com/frahmantamala/subscription-billing/internal/subscription"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) subpkg.SubscriptionStore {
	return &SubscriptionRepository{
		db: db,
	}
}

// UpsertMerge writes the subscription keyed on user_id with merge
// semantics: only the columns carried by the event are assigned, so
// fields absent from it keep their stored values.
func (r *SubscriptionRepository) UpsertMerge(sub *submodel.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id",
			"purchase_date",
			"expiry_date",
			"source_platform",
			"source_order_id",
			"status",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *SubscriptionRepository) GetByUserID(userID string) (*submodel.Subscription, error) {
	var sub submodel.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) UpdateStatusByOrderID(orderID, status string) error {
	return r.db.Model(&submodel.Subscription{}).
		Where("source_order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}
