package gateway_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/subscription-billing/internal/gateway"
)

var _ = Describe("Envelope", func() {
	Describe("BuildEnvelope", func() {
		It("wraps fields in a SOAP 1.1 envelope under the action element", func() {
			envelope := gateway.BuildEnvelope("StartSecureSale", []gateway.Field{
				gateway.F("OrderID", "order-1"),
				gateway.F("TotalAmount", "129.90"),
			})

			Expect(envelope).To(HavePrefix(`<?xml version="1.0" encoding="utf-8"?>`))
			Expect(envelope).To(ContainSubstring(`<StartSecureSale xmlns="` + gateway.Namespace + `">`))
			Expect(envelope).To(ContainSubstring("<OrderID>order-1</OrderID>"))
			Expect(envelope).To(ContainSubstring("<TotalAmount>129.90</TotalAmount>"))
			Expect(envelope).To(ContainSubstring("</StartSecureSale>"))
			Expect(envelope).To(HaveSuffix("</soap:Body></soap:Envelope>"))
		})

		It("preserves field order as given", func() {
			envelope := gateway.BuildEnvelope("Op", []gateway.Field{
				gateway.F("B", "2"),
				gateway.F("A", "1"),
			})

			bIdx := strings.Index(envelope, "<B>")
			aIdx := strings.Index(envelope, "<A>")
			Expect(bIdx).To(BeNumerically("<", aIdx))
		})

		It("serializes nested fields", func() {
			envelope := gateway.BuildEnvelope("Op", []gateway.Field{
				{Name: "Auth", Children: []gateway.Field{
					gateway.F("Username", "api"),
					gateway.F("Password", "pw"),
				}},
			})

			Expect(envelope).To(ContainSubstring("<Auth><Username>api</Username><Password>pw</Password></Auth>"))
		})

		It("escapes user-controlled values", func() {
			envelope := gateway.BuildEnvelope("StoreCard", []gateway.Field{
				gateway.F("CardHolderName", `O'Brien <& "Sons">`),
			})

			Expect(envelope).To(ContainSubstring("<CardHolderName>O&apos;Brien &lt;&amp; &quot;Sons&quot;&gt;</CardHolderName>"))
			Expect(envelope).ToNot(ContainSubstring("<& "))
		})
	})

	Describe("EscapeXML and UnescapeXML", func() {
		It("round-trips all five reserved characters", func() {
			original := `a<b>c&d'e"f`
			Expect(gateway.UnescapeXML(gateway.EscapeXML(original))).To(Equal(original))
		})
	})
})
