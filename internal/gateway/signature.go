package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/shopspring/decimal"
)

// Field is one (name, value) pair of a signed request. Field order is part
// of the provider contract: every operation defines a fixed concatenation
// order and the engine must reproduce it exactly. Fields are never sorted.
type Field struct {
	Name     string
	Value    string
	Children []Field
}

func F(name, value string) Field {
	return Field{Name: name, Value: value}
}

// ConcatValues joins field values in their given order with no separator.
func ConcatValues(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.Value)
	}
	return b.String()
}

// HashSHA256 returns Base64(SHA-256(concatenated UTF-8 values)).
func HashSHA256(fields []Field) string {
	sum := sha256.Sum256([]byte(ConcatValues(fields)))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// HashHMACSHA256 returns Base64(HMAC-SHA-256(secret, concatenated values)).
func HashHMACSHA256(fields []Field, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ConcatValues(fields)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// HashEqual compares two Base64 hashes in constant time.
func HashEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// NormalizeAmount renders a minor-unit amount as a major-unit string with
// a `.` decimal separator, e.g. 12990 -> "129.90". The provider hashes the
// textual amount, so locale commas would change the signature.
func NormalizeAmount(minorUnits int64) string {
	return decimal.NewFromInt(minorUnits).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// NormalizeAmountString rewrites a caller-supplied amount to use `.` as
// the decimal separator before it enters a hash concatenation.
func NormalizeAmountString(amount string) string {
	return strings.ReplaceAll(amount, ",", ".")
}
