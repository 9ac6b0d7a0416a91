package gateway_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/subscription-billing/internal/gateway"
)

var _ = Describe("Signature", func() {
	Describe("HashSHA256", func() {
		It("is deterministic for the same fields", func() {
			fields := []gateway.Field{
				gateway.F("ClientCode", "CC01"),
				gateway.F("OrderID", "order-1"),
				gateway.F("TotalAmount", "129.90"),
			}

			Expect(gateway.HashSHA256(fields)).To(Equal(gateway.HashSHA256(fields)))
		})

		It("changes when field order changes", func() {
			a := gateway.HashSHA256([]gateway.Field{
				gateway.F("ClientCode", "CC01"),
				gateway.F("OrderID", "order-1"),
			})
			b := gateway.HashSHA256([]gateway.Field{
				gateway.F("OrderID", "order-1"),
				gateway.F("ClientCode", "CC01"),
			})

			Expect(a).ToNot(Equal(b))
		})

		It("changes when any value changes", func() {
			a := gateway.HashSHA256([]gateway.Field{gateway.F("TotalAmount", "129.90")})
			b := gateway.HashSHA256([]gateway.Field{gateway.F("TotalAmount", "129.91")})

			Expect(a).ToNot(Equal(b))
		})
	})

	Describe("HashHMACSHA256", func() {
		fields := []gateway.Field{
			gateway.F("ClientCode", "CC01"),
			gateway.F("CardToken", "tok-1"),
		}

		It("is keyed by the secret", func() {
			Expect(gateway.HashHMACSHA256(fields, "secret-a")).
				ToNot(Equal(gateway.HashHMACSHA256(fields, "secret-b")))
		})

		It("differs from the plain digest of the same fields", func() {
			Expect(gateway.HashHMACSHA256(fields, "secret-a")).
				ToNot(Equal(gateway.HashSHA256(fields)))
		})
	})

	Describe("HashEqual", func() {
		It("matches identical hashes", func() {
			h := gateway.HashSHA256([]gateway.Field{gateway.F("A", "1")})
			Expect(gateway.HashEqual(h, h)).To(BeTrue())
		})

		It("rejects hashes of different length", func() {
			Expect(gateway.HashEqual("abc", "abcd")).To(BeFalse())
		})

		It("rejects different hashes of equal length", func() {
			Expect(gateway.HashEqual("aaaa", "aaab")).To(BeFalse())
		})
	})

	Describe("NormalizeAmount", func() {
		It("renders minor units with a dot separator and two decimals", func() {
			Expect(gateway.NormalizeAmount(12990)).To(Equal("129.90"))
			Expect(gateway.NormalizeAmount(100)).To(Equal("1.00"))
			Expect(gateway.NormalizeAmount(5)).To(Equal("0.05"))
			Expect(gateway.NormalizeAmount(179990)).To(Equal("1799.90"))
		})
	})

	Describe("NormalizeAmountString", func() {
		It("rewrites locale commas to dots", func() {
			Expect(gateway.NormalizeAmountString("129,90")).To(Equal("129.90"))
		})

		It("leaves dot-separated amounts alone", func() {
			Expect(gateway.NormalizeAmountString("129.90")).To(Equal("129.90"))
		})
	})
})
