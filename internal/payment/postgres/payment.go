package postgres

import (
	"encoding/json"
	"time"

	paymentmodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/subscription-billing/internal/payment"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *paymentmodel.PaymentAttempt) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByOrderID(orderID string) (*paymentmodel.PaymentAttempt, error) {
	var p paymentmodel.PaymentAttempt
	err := r.db.Where("order_id = ?", orderID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByUserID(userID string) ([]*paymentmodel.PaymentAttempt, error) {
	var attempts []*paymentmodel.PaymentAttempt
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&attempts).Error
	return attempts, err
}

func (r *PaymentRepository) UpdateStatus(orderID, status string, gatewayResponse json.RawMessage, failureReason *string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}

	if gatewayResponse != nil {
		updates["gateway_response"] = gatewayResponse
	}

	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}

	return r.db.Model(&paymentmodel.PaymentAttempt{}).Where("order_id = ?", orderID).Updates(updates).Error
}

// MarkSuccessOnce is a conditional write: the WHERE clause excludes rows
// already in success, so of any number of concurrent callers exactly one
// sees an affected row.
func (r *PaymentRepository) MarkSuccessOnce(orderID string, gatewayResponse json.RawMessage) (bool, error) {
	updates := map[string]interface{}{
		"status":     paymentmodel.StatusSuccess,
		"updated_at": time.Now().UTC(),
	}
	if gatewayResponse != nil {
		updates["gateway_response"] = gatewayResponse
	}

	result := r.db.Model(&paymentmodel.PaymentAttempt{}).
		Where("order_id = ? AND status <> ?", orderID, paymentmodel.StatusSuccess).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
