package gateway_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/subscription-billing/internal/gateway"
)

var _ = Describe("SOAPAction negotiation", func() {
	Describe("ActionHeaderCandidates", func() {
		It("produces the fixed candidate order", func() {
			candidates := gateway.ActionHeaderCandidates("https://gateway.example.net/pos/", "StartSecureSale")

			Expect(candidates).To(Equal([]string{
				`"StartSecureSale"`,
				`StartSecureSale`,
				`"https://gateway.example.net/pos/StartSecureSale"`,
				`https://gateway.example.net/pos/StartSecureSale`,
				`'StartSecureSale'`,
				`'https://gateway.example.net/pos/StartSecureSale'`,
				`urn:StartSecureSale`,
				``,
			}))
		})
	})

	Describe("IsActionRejected", func() {
		It("recognizes the known rejection phrasings", func() {
			bodies := []string{
				`<faultstring>Server did not recognize the value of HTTP Header SOAPAction: StartSecureSale.</faultstring>`,
				`<faultstring>The SOAPAction header was not recognized by the server</faultstring>`,
				`<faultcode>soap:ActionNotSupported</faultcode>`,
				`<faultstring>There was no SOAPAction header in the request</faultstring>`,
				`<faultstring>Unable to handle request without a valid action parameter</faultstring>`,
			}
			for _, body := range bodies {
				Expect(gateway.IsActionRejected(body)).To(BeTrue(), body)
			}
		})

		It("does not classify application faults as negotiation failures", func() {
			Expect(gateway.IsActionRejected(`<faultstring>Insufficient funds</faultstring>`)).To(BeFalse())
			Expect(gateway.IsActionRejected(`<faultstring>Invalid card number</faultstring>`)).To(BeFalse())
			Expect(gateway.IsActionRejected(``)).To(BeFalse())
		})
	})
})
