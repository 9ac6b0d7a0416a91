package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	internal "github.com/frahmantamala/subscription-billing/internal"
	paymentmodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	"github.com/frahmantamala/subscription-billing/internal/gateway"
	"github.com/frahmantamala/subscription-billing/internal/plan"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RepositoryAPI interface {
	Create(p *paymentmodel.PaymentAttempt) error
	GetByOrderID(orderID string) (*paymentmodel.PaymentAttempt, error)
	UpdateStatus(orderID, status string, gatewayResponse json.RawMessage, failureReason *string) error
	MarkSuccessOnce(orderID string, gatewayResponse json.RawMessage) (bool, error)
}

// SecureFlowAPI is the slice of the 3D-Secure flow the service needs;
// tests substitute a stub.
type SecureFlowAPI interface {
	Start(ctx context.Context, card gateway.CardDetails, order gateway.OrderDetails) (*gateway.ChallengeStart, error)
	Complete(ctx context.Context, order gateway.OrderDetails, sessionToken string) (*gateway.FinalOutcome, error)
}

type CardManagerAPI interface {
	SaveCard(ctx context.Context, card gateway.CardDetails) (string, error)
	ListCards(ctx context.Context) ([]gateway.StoredCard, error)
	DeleteCard(ctx context.Context, token string) error
	ChargeCard(ctx context.Context, token, cvv string, order gateway.OrderDetails, tier string) (*gateway.ChargeResult, error)
}

// Service owns the PaymentAttempt lifecycle on the initiation side. The
// success transition itself belongs to the reconciler; this service never
// marks an attempt successful.
type Service struct {
	repo   RepositoryAPI
	flow   SecureFlowAPI
	cards  CardManagerAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, flow SecureFlowAPI, cards CardManagerAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		flow:   flow,
		cards:  cards,
		logger: logger,
	}
}

type StartResult struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

// StartSecurePayment creates the attempt record and runs the first
// 3D-Secure step. The caller redirects the user to the returned URL.
func (s *Service) StartSecurePayment(ctx context.Context, userID string, planID string, card gateway.CardDetails) (*StartResult, error) {
	p, err := plan.Lookup(planID)
	if err != nil {
		return nil, err
	}

	orderID := uuid.NewString()
	attempt := &paymentmodel.PaymentAttempt{
		OrderID:     orderID,
		UserID:      userID,
		PlanID:      planID,
		AmountMinor: p.PriceMinorUnits,
		Currency:    p.Currency,
		Status:      paymentmodel.StatusPending,
	}

	if err := s.repo.Create(attempt); err != nil {
		s.logger.Error("failed to create payment attempt", "error", err, "user_id", userID)
		return nil, internal.NewPersistenceError("failed to create payment attempt", err)
	}

	order := gateway.OrderDetails{
		OrderID:      orderID,
		AmountMinor:  p.PriceMinorUnits,
		Installments: 1,
	}

	challenge, err := s.flow.Start(ctx, card, order)
	if err != nil {
		reason := err.Error()
		if updateErr := s.repo.UpdateStatus(orderID, paymentmodel.StatusFailed, nil, &reason); updateErr != nil {
			s.logger.Error("failed to record attempt failure", "error", updateErr, "order_id", orderID)
		}
		return nil, err
	}

	response, _ := json.Marshal(map[string]string{
		"redirect_url":  challenge.RedirectURL,
		"session_token": challenge.SessionToken,
	})
	if err := s.repo.UpdateStatus(orderID, paymentmodel.StatusChallengeIssued, response, nil); err != nil {
		s.logger.Error("failed to record challenge state", "error", err, "order_id", orderID)
		return nil, internal.NewPersistenceError("failed to record challenge state", err)
	}

	s.logger.Info("secure payment started",
		"order_id", orderID,
		"user_id", userID,
		"plan_id", planID,
		"amount_minor", p.PriceMinorUnits)

	return &StartResult{OrderID: orderID, RedirectURL: challenge.RedirectURL}, nil
}

// CompleteSecurePayment exchanges the challenge session token for the
// final gateway outcome. Only attempts sitting in challenge_issued may be
// completed; anything else is a caller sequencing error, not a gateway
// problem. Entitlement is still granted only by the verified webhook.
func (s *Service) CompleteSecurePayment(ctx context.Context, orderID, sessionToken string) (*gateway.FinalOutcome, error) {
	attempt, err := s.getAttempt(orderID)
	if err != nil {
		return nil, err
	}

	if attempt.Status != paymentmodel.StatusChallengeIssued {
		return nil, internal.NewAppStateError(
			"payment attempt is not awaiting challenge completion")
	}

	order := gateway.OrderDetails{
		OrderID:      orderID,
		AmountMinor:  attempt.AmountMinor,
		Installments: 1,
	}

	outcome, err := s.flow.Complete(ctx, order, sessionToken)
	if err != nil {
		reason := err.Error()
		if updateErr := s.repo.UpdateStatus(orderID, paymentmodel.StatusFailed, nil, &reason); updateErr != nil {
			s.logger.Error("failed to record completion failure", "error", updateErr, "order_id", orderID)
		}
		return nil, err
	}

	if !outcome.Succeeded {
		reason := outcome.Message
		if err := s.repo.UpdateStatus(orderID, paymentmodel.StatusFailed, nil, &reason); err != nil {
			s.logger.Error("failed to record declined completion", "error", err, "order_id", orderID)
		}
		return outcome, nil
	}

	// Leave the attempt in challenge_issued: the success transition is the
	// reconciler's, triggered by the verified webhook, so the entitlement
	// cannot be granted off an unverified redirect.
	response, _ := json.Marshal(map[string]string{
		"result_code":    outcome.ResultCode,
		"transaction_id": outcome.TransactionID,
	})
	if err := s.repo.UpdateStatus(orderID, paymentmodel.StatusChallengeIssued, response, nil); err != nil {
		s.logger.Error("failed to record completion response", "error", err, "order_id", orderID)
	}

	return outcome, nil
}

// RecordReturn books the user's redirect back from the challenge page.
// This never triggers reconciliation; the webhook is the only trusted
// signal.
func (s *Service) RecordReturn(ctx context.Context, orderID string, succeeded bool) error {
	attempt, err := s.getAttempt(orderID)
	if err != nil {
		return err
	}

	s.logger.Info("payment return callback",
		"order_id", orderID,
		"user_id", attempt.UserID,
		"succeeded", succeeded,
		"current_status", attempt.Status)

	if !succeeded && attempt.Status == paymentmodel.StatusChallengeIssued {
		reason := "user returned from challenge with failure"
		if err := s.repo.UpdateStatus(orderID, paymentmodel.StatusFailed, nil, &reason); err != nil {
			return internal.NewPersistenceError("failed to record return", err)
		}
	}

	return nil
}

func (s *Service) GetPayment(orderID string) (*paymentmodel.PaymentAttempt, error) {
	return s.getAttempt(orderID)
}

// ChargeStoredCard charges a card-on-file for a plan. A direct-tier charge
// resolves immediately; a secure-tier charge issues a challenge like the
// full 3D flow.
func (s *Service) ChargeStoredCard(ctx context.Context, userID, planID, cardToken, cvv, tier string) (*StoredChargeResult, error) {
	p, err := plan.Lookup(planID)
	if err != nil {
		return nil, err
	}

	orderID := uuid.NewString()
	attempt := &paymentmodel.PaymentAttempt{
		OrderID:     orderID,
		UserID:      userID,
		PlanID:      planID,
		AmountMinor: p.PriceMinorUnits,
		Currency:    p.Currency,
		Status:      paymentmodel.StatusPending,
	}
	if err := s.repo.Create(attempt); err != nil {
		return nil, internal.NewPersistenceError("failed to create payment attempt", err)
	}

	order := gateway.OrderDetails{OrderID: orderID, AmountMinor: p.PriceMinorUnits, Installments: 1}

	charge, err := s.cards.ChargeCard(ctx, cardToken, cvv, order, tier)
	if err != nil {
		reason := err.Error()
		if updateErr := s.repo.UpdateStatus(orderID, paymentmodel.StatusFailed, nil, &reason); updateErr != nil {
			s.logger.Error("failed to record charge failure", "error", updateErr, "order_id", orderID)
		}
		return nil, err
	}

	result := &StoredChargeResult{
		OrderID:     orderID,
		Accepted:    charge.Succeeded,
		Message:     charge.Message,
		RedirectURL: charge.RedirectURL,
	}

	switch {
	case charge.RedirectURL != "":
		response, _ := json.Marshal(map[string]string{"redirect_url": charge.RedirectURL})
		if err := s.repo.UpdateStatus(orderID, paymentmodel.StatusChallengeIssued, response, nil); err != nil {
			return nil, internal.NewPersistenceError("failed to record challenge state", err)
		}
	case !charge.Succeeded:
		reason := charge.Message
		if err := s.repo.UpdateStatus(orderID, paymentmodel.StatusFailed, nil, &reason); err != nil {
			return nil, internal.NewPersistenceError("failed to record charge decline", err)
		}
	}
	// An accepted direct charge stays pending until the webhook confirms.

	return result, nil
}

func (s *Service) SaveCard(ctx context.Context, card gateway.CardDetails) (string, error) {
	return s.cards.SaveCard(ctx, card)
}

func (s *Service) ListCards(ctx context.Context) ([]gateway.StoredCard, error) {
	return s.cards.ListCards(ctx)
}

func (s *Service) DeleteCard(ctx context.Context, token string) error {
	return s.cards.DeleteCard(ctx, token)
}

func (s *Service) getAttempt(orderID string) (*paymentmodel.PaymentAttempt, error) {
	attempt, err := s.repo.GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrOrderNotFound
		}
		return nil, internal.NewPersistenceError("failed to load payment attempt", err)
	}
	return attempt, nil
}

type StoredChargeResult struct {
	OrderID     string `json:"order_id"`
	Accepted    bool   `json:"accepted"`
	Message     string `json:"message,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}
