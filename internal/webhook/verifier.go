package webhook

import (
	internal "github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/gateway"
)

// Notification is the raw provider payload after form decoding, before
// any trust is established.
type Notification struct {
	OrderID     string
	Status      string
	TotalAmount string
	Hash        string
}

// Verifier recomputes the provider's integrity hash for an inbound
// notification. Nothing downstream of a failed verification may touch
// the store.
type Verifier struct {
	secret string
}

func NewVerifier(creds gateway.Credentials) *Verifier {
	return &Verifier{secret: creds.SecretGUID}
}

// Verify recomputes the hash over the provider-mandated field order:
// order id, secret, status, amount. A missing required field is a
// verification failure, not a panic.
func (v *Verifier) Verify(n Notification) error {
	if n.OrderID == "" || n.Status == "" || n.TotalAmount == "" || n.Hash == "" {
		return internal.NewVerificationError("notification missing required fields")
	}

	expected := gateway.HashSHA256([]gateway.Field{
		gateway.F("OrderID", n.OrderID),
		gateway.F("Secret", v.secret),
		gateway.F("Status", n.Status),
		gateway.F("TotalAmount", gateway.NormalizeAmountString(n.TotalAmount)),
	})

	if !gateway.HashEqual(expected, n.Hash) {
		return internal.NewVerificationError("notification hash mismatch")
	}

	return nil
}
