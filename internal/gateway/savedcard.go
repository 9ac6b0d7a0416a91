package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	internal "github.com/frahmantamala/subscription-billing/internal"
)

const (
	ActionStoreCard       = "StoreCard"
	ActionListStoredCards = "ListStoredCards"
	ActionDeleteCard      = "DeleteStoredCard"
	ActionChargeCard      = "ChargeStoredCard"
)

// Security tier for charging a stored card. The caller decides whether the
// charge goes through the 3D challenge or straight through.
const (
	TierSecure = "3D"
	TierDirect = "NS"
)

type StoredCard struct {
	Token        string `json:"token"`
	HolderName   string `json:"holder_name"`
	MaskedNumber string `json:"masked_number"`
	Brand        string `json:"brand"`
	ExpireMonth  string `json:"expire_month"`
	ExpireYear   string `json:"expire_year"`
}

// ChargeResult covers both tiers: a direct charge fills the final fields,
// a secure charge fills RedirectURL and the final outcome arrives through
// the webhook.
type ChargeResult struct {
	Succeeded     bool
	ResultCode    string
	Message       string
	TransactionID string
	RedirectURL   string
}

// SavedCardManager performs the card-on-file operations. Each operation is
// a single signed round trip; the provider discriminates success by a
// result code equal to "1".
type SavedCardManager struct {
	creds     Credentials
	transport Caller
	logger    *slog.Logger
}

func NewSavedCardManager(creds Credentials, transport Caller, logger *slog.Logger) *SavedCardManager {
	return &SavedCardManager{creds: creds, transport: transport, logger: logger}
}

func (m *SavedCardManager) authFields() Field {
	return Field{Name: "Auth", Children: []Field{
		F("ClientCode", m.creds.ClientCode),
		F("Username", m.creds.ClientUsername),
		F("Password", m.creds.ClientPassword),
	}}
}

// Card operations are authenticated with the HMAC scheme keyed by the
// merchant secret, unlike the sale operations which use the plain digest.
func (m *SavedCardManager) sign(fields []Field) string {
	return HashHMACSHA256(fields, m.creds.SecretGUID)
}

func (m *SavedCardManager) SaveCard(ctx context.Context, card CardDetails) (string, error) {
	hash := m.sign([]Field{
		F("ClientCode", m.creds.ClientCode),
		F("TerminalID", m.creds.TerminalID),
		F("CardNumber", card.Number),
	})

	fields := []Field{
		m.authFields(),
		F("TerminalID", m.creds.TerminalID),
		F("CardHolderName", card.HolderName),
		F("CardNumber", card.Number),
		F("ExpireMonth", card.ExpireMonth),
		F("ExpireYear", card.ExpireYear),
		F("RequestHash", hash),
	}

	result, err := m.roundTrip(ctx, ActionStoreCard, fields)
	if err != nil {
		return "", err
	}

	token := result.Get("CardToken")
	if token == "" {
		return "", internal.NewProtocolFaultError("store card response missing CardToken")
	}

	m.logger.Info("card stored", "token_suffix", tail(token, 6))
	return token, nil
}

var storedCardBlock = regexp.MustCompile(`(?s)<StoredCard>(.*?)</StoredCard>`)

func (m *SavedCardManager) ListCards(ctx context.Context) ([]StoredCard, error) {
	hash := m.sign([]Field{
		F("ClientCode", m.creds.ClientCode),
		F("TerminalID", m.creds.TerminalID),
	})

	fields := []Field{
		m.authFields(),
		F("TerminalID", m.creds.TerminalID),
		F("RequestHash", hash),
	}

	raw, err := m.transport.Call(ctx, ActionListStoredCards, fields)
	if err != nil {
		return nil, err
	}

	result := Parse(raw, ActionListStoredCards)
	switch result.Outcome {
	case OutcomeFault:
		return nil, internal.NewProtocolFaultError(result.FaultMessage)
	case OutcomeUnparsed:
		appErr := internal.NewProtocolFaultError("gateway response could not be parsed")
		appErr.Code = internal.ErrCodeUnparsedResponse
		return nil, appErr
	}

	if code := result.Get("ResultCode"); code != "" && code != "1" {
		return nil, internal.NewProtocolFaultError(
			fmt.Sprintf("list stored cards rejected: %s", resultMessage(result)))
	}

	// The flat field map collapses repeated elements, so the card blocks
	// are cut from the raw body instead.
	var cards []StoredCard
	for _, match := range storedCardBlock.FindAllStringSubmatch(result.Raw, -1) {
		entry := scanSimpleTags(match[1])
		if entry == nil {
			continue
		}
		cards = append(cards, StoredCard{
			Token:        entry["CardToken"],
			HolderName:   entry["CardHolderName"],
			MaskedNumber: entry["MaskedNumber"],
			Brand:        entry["Brand"],
			ExpireMonth:  entry["ExpireMonth"],
			ExpireYear:   entry["ExpireYear"],
		})
	}

	return cards, nil
}

func (m *SavedCardManager) DeleteCard(ctx context.Context, token string) error {
	hash := m.sign([]Field{
		F("ClientCode", m.creds.ClientCode),
		F("TerminalID", m.creds.TerminalID),
		F("CardToken", token),
	})

	fields := []Field{
		m.authFields(),
		F("TerminalID", m.creds.TerminalID),
		F("CardToken", token),
		F("RequestHash", hash),
	}

	_, err := m.roundTrip(ctx, ActionDeleteCard, fields)
	if err != nil {
		return err
	}

	m.logger.Info("stored card deleted", "token_suffix", tail(token, 6))
	return nil
}

// ChargeCard charges a stored card in a single round trip. For the secure
// tier the returned result carries the challenge redirect and the final
// outcome arrives via webhook; for the direct tier the result is final.
func (m *SavedCardManager) ChargeCard(ctx context.Context, token, cvv string, order OrderDetails, tier string) (*ChargeResult, error) {
	total := NormalizeAmount(order.AmountMinor)
	hash := m.sign([]Field{
		F("ClientCode", m.creds.ClientCode),
		F("TerminalID", m.creds.TerminalID),
		F("CardToken", token),
		F("TotalAmount", total),
		F("OrderID", order.OrderID),
		F("SecurityTier", tier),
	})

	fields := []Field{
		m.authFields(),
		F("TerminalID", m.creds.TerminalID),
		F("CardToken", token),
		F("CVV", cvv),
		F("TotalAmount", total),
		F("OrderID", order.OrderID),
		F("SecurityTier", tier),
		F("RequestHash", hash),
	}

	raw, err := m.transport.Call(ctx, ActionChargeCard, fields)
	if err != nil {
		return nil, err
	}

	result := Parse(raw, ActionChargeCard)
	switch result.Outcome {
	case OutcomeFault:
		m.logger.Error("stored card charge faulted", "order_id", order.OrderID, "fault", result.FaultMessage)
		return nil, internal.NewProtocolFaultError(result.FaultMessage)
	case OutcomeUnparsed:
		appErr := internal.NewProtocolFaultError("gateway response could not be parsed")
		appErr.Code = internal.ErrCodeUnparsedResponse
		return nil, appErr
	}

	charge := &ChargeResult{
		ResultCode:    result.Get("ResultCode"),
		Message:       resultMessage(result),
		TransactionID: result.Get("TransactionID"),
		RedirectURL:   result.Get("RedirectURL"),
	}
	charge.Succeeded = charge.ResultCode == "1"

	m.logger.Info("stored card charge submitted",
		"order_id", order.OrderID,
		"tier", tier,
		"result_code", charge.ResultCode)

	return charge, nil
}

// roundTrip runs one call and enforces the result-code discriminant shared
// by save and delete.
func (m *SavedCardManager) roundTrip(ctx context.Context, action string, fields []Field) (ParsedResult, error) {
	raw, err := m.transport.Call(ctx, action, fields)
	if err != nil {
		return ParsedResult{}, err
	}

	result := Parse(raw, action)
	switch result.Outcome {
	case OutcomeFault:
		m.logger.Error("card operation faulted", "action", action, "fault", result.FaultMessage)
		return ParsedResult{}, internal.NewProtocolFaultError(result.FaultMessage)
	case OutcomeUnparsed:
		appErr := internal.NewProtocolFaultError("gateway response could not be parsed")
		appErr.Code = internal.ErrCodeUnparsedResponse
		return ParsedResult{}, appErr
	}

	if code := result.Get("ResultCode"); code != "1" {
		return ParsedResult{}, internal.NewProtocolFaultError(
			fmt.Sprintf("%s rejected: %s", action, resultMessage(result)))
	}

	return result, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
