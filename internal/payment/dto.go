package payment

import (
	errors "github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/core/common/validation"
	"github.com/frahmantamala/subscription-billing/internal/gateway"
)

type StartPaymentRequest struct {
	UserID      string `json:"user_id"`
	PlanID      string `json:"plan_id"`
	HolderName  string `json:"holder_name"`
	CardNumber  string `json:"card_number"`
	ExpireMonth string `json:"expire_month"`
	ExpireYear  string `json:"expire_year"`
	CVV         string `json:"cvv"`
}

func (r *StartPaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("user_id", r.UserID).Required()
	validator.Field("plan_id", r.PlanID).Required()
	validator.Field("holder_name", r.HolderName).Required().MaxLength(100, errors.ErrCodeInvalidCard)
	validator.Field("card_number", r.CardNumber).Required().MaxLength(19, errors.ErrCodeInvalidCard)
	validator.Field("expire_month", r.ExpireMonth).Required()
	validator.Field("expire_year", r.ExpireYear).Required()
	validator.Field("cvv", r.CVV).Required().MaxLength(4, errors.ErrCodeInvalidCard)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (r *StartPaymentRequest) Card() gateway.CardDetails {
	return gateway.CardDetails{
		HolderName:  r.HolderName,
		Number:      r.CardNumber,
		ExpireMonth: r.ExpireMonth,
		ExpireYear:  r.ExpireYear,
		CVV:         r.CVV,
	}
}

type CompletePaymentRequest struct {
	OrderID      string `json:"order_id"`
	SessionToken string `json:"session_token"`
}

func (r *CompletePaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("order_id", r.OrderID).Required()
	validator.Field("session_token", r.SessionToken).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type SaveCardRequest struct {
	HolderName  string `json:"holder_name"`
	CardNumber  string `json:"card_number"`
	ExpireMonth string `json:"expire_month"`
	ExpireYear  string `json:"expire_year"`
}

func (r *SaveCardRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("holder_name", r.HolderName).Required().MaxLength(100, errors.ErrCodeInvalidCard)
	validator.Field("card_number", r.CardNumber).Required().MaxLength(19, errors.ErrCodeInvalidCard)
	validator.Field("expire_month", r.ExpireMonth).Required()
	validator.Field("expire_year", r.ExpireYear).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (r *SaveCardRequest) Card() gateway.CardDetails {
	return gateway.CardDetails{
		HolderName:  r.HolderName,
		Number:      r.CardNumber,
		ExpireMonth: r.ExpireMonth,
		ExpireYear:  r.ExpireYear,
	}
}

type ChargeStoredCardRequest struct {
	UserID    string `json:"user_id"`
	PlanID    string `json:"plan_id"`
	CardToken string `json:"card_token"`
	CVV       string `json:"cvv"`
	Tier      string `json:"tier"`
}

func (r *ChargeStoredCardRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("user_id", r.UserID).Required()
	validator.Field("plan_id", r.PlanID).Required()
	validator.Field("card_token", r.CardToken).Required()
	validator.Field("tier", r.Tier).Required().OneOf([]string{gateway.TierSecure, gateway.TierDirect}, errors.ErrCodeValidationFailed)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type PaymentStatusResponse struct {
	OrderID     string `json:"order_id"`
	PlanID      string `json:"plan_id"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}
