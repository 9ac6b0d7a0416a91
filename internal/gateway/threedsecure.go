package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	internal "github.com/frahmantamala/subscription-billing/internal"
)

const (
	ActionStartSecureSale    = "StartSecureSale"
	ActionCompleteSecureSale = "CompleteSecureSale"
)

type CardDetails struct {
	HolderName  string
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVV         string
}

type OrderDetails struct {
	OrderID      string
	AmountMinor  int64
	Installments int
}

// ChallengeStart is the outcome of the first 3D-Secure step: the user must
// be redirected to the issuer's challenge page, and the session token must
// be echoed back on completion.
type ChallengeStart struct {
	RedirectURL  string
	SessionToken string
}

type FinalOutcome struct {
	Succeeded     bool
	ResultCode    string
	Message       string
	TransactionID string
}

// ThreeDSFlow drives the two-step challenge/complete sale protocol.
// Attempt state transitions live in the payment service; this type only
// performs the signed gateway calls.
type ThreeDSFlow struct {
	creds     Credentials
	transport Caller
	returns   internal.ReturnURLConfig
	logger    *slog.Logger
}

func NewThreeDSFlow(creds Credentials, transport Caller, returns internal.ReturnURLConfig, logger *slog.Logger) *ThreeDSFlow {
	return &ThreeDSFlow{
		creds:     creds,
		transport: transport,
		returns:   returns,
		logger:    logger,
	}
}

// signSale computes the operation hash over the provider's exact field
// order. Amounts are already normalized to a `.` separator; a locale comma
// here would produce a hash the provider rejects.
func (f *ThreeDSFlow) signSale(order OrderDetails) string {
	itemAmount := NormalizeAmount(order.AmountMinor)
	totalAmount := NormalizeAmount(order.AmountMinor)

	return HashSHA256([]Field{
		F("ClientCode", f.creds.ClientCode),
		F("Guid", f.creds.SecretGUID),
		F("Installments", strconv.Itoa(order.Installments)),
		F("ItemAmount", NormalizeAmountString(itemAmount)),
		F("TotalAmount", NormalizeAmountString(totalAmount)),
		F("OrderID", order.OrderID),
		F("FailureURL", f.returns.FailureURL),
		F("SuccessURL", f.returns.SuccessURL),
	})
}

func (f *ThreeDSFlow) authFields() Field {
	return Field{Name: "Auth", Children: []Field{
		F("ClientCode", f.creds.ClientCode),
		F("Username", f.creds.ClientUsername),
		F("Password", f.creds.ClientPassword),
	}}
}

// Start submits card and order data and returns the challenge redirect.
func (f *ThreeDSFlow) Start(ctx context.Context, card CardDetails, order OrderDetails) (*ChallengeStart, error) {
	hash := f.signSale(order)

	fields := []Field{
		f.authFields(),
		F("Guid", f.creds.SecretGUID),
		F("TerminalID", f.creds.TerminalID),
		F("CardHolderName", card.HolderName),
		F("CardNumber", card.Number),
		F("ExpireMonth", card.ExpireMonth),
		F("ExpireYear", card.ExpireYear),
		F("CVV", card.CVV),
		F("Installments", strconv.Itoa(order.Installments)),
		F("ItemAmount", NormalizeAmount(order.AmountMinor)),
		F("TotalAmount", NormalizeAmount(order.AmountMinor)),
		F("OrderID", order.OrderID),
		F("FailureURL", f.returns.FailureURL),
		F("SuccessURL", f.returns.SuccessURL),
		F("RequestHash", hash),
	}

	raw, err := f.transport.Call(ctx, ActionStartSecureSale, fields)
	if err != nil {
		return nil, err
	}

	result := Parse(raw, ActionStartSecureSale)
	switch result.Outcome {
	case OutcomeFault:
		f.logger.Error("secure sale init faulted", "order_id", order.OrderID, "fault", result.FaultMessage)
		return nil, internal.NewProtocolFaultError(result.FaultMessage)
	case OutcomeUnparsed:
		f.logger.Error("secure sale init response not parseable", "order_id", order.OrderID)
		appErr := internal.NewProtocolFaultError("gateway response could not be parsed")
		appErr.Code = internal.ErrCodeUnparsedResponse
		return nil, appErr
	}

	if code := result.Get("ResultCode"); code != "" && code != "1" {
		return nil, internal.NewProtocolFaultError(
			fmt.Sprintf("secure sale init rejected: %s", resultMessage(result)))
	}

	redirect := result.Get("RedirectURL")
	token := result.Get("SessionToken")
	if redirect == "" || token == "" {
		// Permissive parse, strict consumption: the fields we act on must
		// be present even when extraction succeeded.
		return nil, internal.NewProtocolFaultError("secure sale init response missing RedirectURL or SessionToken")
	}

	f.logger.Info("secure sale challenge issued", "order_id", order.OrderID)
	return &ChallengeStart{RedirectURL: redirect, SessionToken: token}, nil
}

// Complete exchanges the challenge session token for the final outcome.
// The hash derivation intentionally matches Start: the provider does not
// document whether the session token should be mixed into the completion
// hash, and the sandbox accepts the Start derivation.
func (f *ThreeDSFlow) Complete(ctx context.Context, order OrderDetails, sessionToken string) (*FinalOutcome, error) {
	hash := f.signSale(order)

	fields := []Field{
		f.authFields(),
		F("Guid", f.creds.SecretGUID),
		F("TerminalID", f.creds.TerminalID),
		F("SessionToken", sessionToken),
		F("OrderID", order.OrderID),
		F("TotalAmount", NormalizeAmount(order.AmountMinor)),
		F("RequestHash", hash),
	}

	raw, err := f.transport.Call(ctx, ActionCompleteSecureSale, fields)
	if err != nil {
		return nil, err
	}

	result := Parse(raw, ActionCompleteSecureSale)
	switch result.Outcome {
	case OutcomeFault:
		f.logger.Error("secure sale completion faulted", "order_id", order.OrderID, "fault", result.FaultMessage)
		return nil, internal.NewProtocolFaultError(result.FaultMessage)
	case OutcomeUnparsed:
		appErr := internal.NewProtocolFaultError("gateway response could not be parsed")
		appErr.Code = internal.ErrCodeUnparsedResponse
		return nil, appErr
	}

	outcome := &FinalOutcome{
		ResultCode:    result.Get("ResultCode"),
		Message:       resultMessage(result),
		TransactionID: result.Get("TransactionID"),
	}
	outcome.Succeeded = outcome.ResultCode == "1"

	f.logger.Info("secure sale completed",
		"order_id", order.OrderID,
		"result_code", outcome.ResultCode,
		"succeeded", outcome.Succeeded)

	return outcome, nil
}

func resultMessage(result ParsedResult) string {
	if msg := result.Get("ResultMessage"); msg != "" {
		return msg
	}
	return result.Get("Message")
}
