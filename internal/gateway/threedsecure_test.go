package gateway_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/gateway"
)

// stubCaller cans responses per action and records every outbound call.
type stubCaller struct {
	responses map[string]string
	err       error
	calls     []stubCall
}

type stubCall struct {
	action string
	fields []gateway.Field
}

func (s *stubCaller) Call(ctx context.Context, action string, fields []gateway.Field) (string, error) {
	s.calls = append(s.calls, stubCall{action: action, fields: fields})
	if s.err != nil {
		return "", s.err
	}
	return s.responses[action], nil
}

func fieldValue(fields []gateway.Field, name string) string {
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

var _ = Describe("ThreeDSFlow", func() {
	var (
		caller  *stubCaller
		flow    *gateway.ThreeDSFlow
		card    gateway.CardDetails
		order   gateway.OrderDetails
		returns = internal.ReturnURLConfig{
			SuccessURL: "https://app.example.com/payment/return/success",
			FailureURL: "https://app.example.com/payment/return/failure",
		}
	)

	BeforeEach(func() {
		caller = &stubCaller{responses: map[string]string{}}
		flow = gateway.NewThreeDSFlow(testCredentials("http://unused"), caller, returns, testLogger())
		card = gateway.CardDetails{
			HolderName:  "Jane Doe",
			Number:      "4111111111111111",
			ExpireMonth: "08",
			ExpireYear:  "2027",
			CVV:         "123",
		}
		order = gateway.OrderDetails{OrderID: "order-1", AmountMinor: 12990, Installments: 1}
	})

	Describe("Start", func() {
		It("returns the challenge redirect and session token", func() {
			caller.responses[gateway.ActionStartSecureSale] = soapBody(
				`<StartSecureSaleResult>` +
					`<ResultCode>1</ResultCode>` +
					`<RedirectURL>https://3ds.example.net/challenge</RedirectURL>` +
					`<SessionToken>tok-123</SessionToken>` +
					`</StartSecureSaleResult>`)

			challenge, err := flow.Start(context.Background(), card, order)

			Expect(err).ToNot(HaveOccurred())
			Expect(challenge.RedirectURL).To(Equal("https://3ds.example.net/challenge"))
			Expect(challenge.SessionToken).To(Equal("tok-123"))
		})

		It("signs the request over the provider's field order", func() {
			caller.responses[gateway.ActionStartSecureSale] = soapBody(
				`<StartSecureSaleResult><ResultCode>1</ResultCode>` +
					`<RedirectURL>u</RedirectURL><SessionToken>t</SessionToken></StartSecureSaleResult>`)

			_, err := flow.Start(context.Background(), card, order)
			Expect(err).ToNot(HaveOccurred())

			expected := gateway.HashSHA256([]gateway.Field{
				gateway.F("ClientCode", "CC01"),
				gateway.F("Guid", "guid-secret"),
				gateway.F("Installments", "1"),
				gateway.F("ItemAmount", "129.90"),
				gateway.F("TotalAmount", "129.90"),
				gateway.F("OrderID", "order-1"),
				gateway.F("FailureURL", returns.FailureURL),
				gateway.F("SuccessURL", returns.SuccessURL),
			})
			Expect(fieldValue(caller.calls[0].fields, "RequestHash")).To(Equal(expected))
		})

		It("normalizes the amount fields to dot-separated major units", func() {
			caller.responses[gateway.ActionStartSecureSale] = soapBody(
				`<StartSecureSaleResult><ResultCode>1</ResultCode>` +
					`<RedirectURL>u</RedirectURL><SessionToken>t</SessionToken></StartSecureSaleResult>`)

			_, err := flow.Start(context.Background(), card, order)
			Expect(err).ToNot(HaveOccurred())

			Expect(fieldValue(caller.calls[0].fields, "TotalAmount")).To(Equal("129.90"))
			Expect(fieldValue(caller.calls[0].fields, "ItemAmount")).To(Equal("129.90"))
		})

		It("propagates gateway faults", func() {
			caller.responses[gateway.ActionStartSecureSale] = soapBody(
				`<soap:Fault><faultstring>Invalid card number</faultstring></soap:Fault>`)

			_, err := flow.Start(context.Background(), card, order)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeProtocolFault))
			Expect(appErr.Message).To(Equal("Invalid card number"))
		})

		It("rejects a declined init result", func() {
			caller.responses[gateway.ActionStartSecureSale] = soapBody(
				`<StartSecureSaleResult><ResultCode>14</ResultCode>` +
					`<ResultMessage>Card expired</ResultMessage></StartSecureSaleResult>`)

			_, err := flow.Start(context.Background(), card, order)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeProtocolFault))
			Expect(appErr.Message).To(ContainSubstring("Card expired"))
		})

		It("fails when the redirect or token is missing", func() {
			caller.responses[gateway.ActionStartSecureSale] = soapBody(
				`<StartSecureSaleResult><ResultCode>1</ResultCode></StartSecureSaleResult>`)

			_, err := flow.Start(context.Background(), card, order)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeProtocolFault))
		})

		It("flags an unparseable response distinctly", func() {
			caller.responses[gateway.ActionStartSecureSale] = "<html>bad gateway</html>"

			_, err := flow.Start(context.Background(), card, order)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUnparsedResponse))
		})
	})

	Describe("Complete", func() {
		It("reports success on result code 1", func() {
			caller.responses[gateway.ActionCompleteSecureSale] = soapBody(
				`<CompleteSecureSaleResult>` +
					`<ResultCode>1</ResultCode><TransactionID>tx-42</TransactionID>` +
					`</CompleteSecureSaleResult>`)

			outcome, err := flow.Complete(context.Background(), order, "tok-123")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.Succeeded).To(BeTrue())
			Expect(outcome.TransactionID).To(Equal("tx-42"))
		})

		It("reports a decline without error", func() {
			caller.responses[gateway.ActionCompleteSecureSale] = soapBody(
				`<CompleteSecureSaleResult>` +
					`<ResultCode>05</ResultCode><ResultMessage>Do not honour</ResultMessage>` +
					`</CompleteSecureSaleResult>`)

			outcome, err := flow.Complete(context.Background(), order, "tok-123")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.Succeeded).To(BeFalse())
			Expect(outcome.Message).To(Equal("Do not honour"))
		})

		It("echoes the session token in the request", func() {
			caller.responses[gateway.ActionCompleteSecureSale] = soapBody(
				`<CompleteSecureSaleResult><ResultCode>1</ResultCode></CompleteSecureSaleResult>`)

			_, err := flow.Complete(context.Background(), order, "tok-echo")
			Expect(err).ToNot(HaveOccurred())

			Expect(fieldValue(caller.calls[0].fields, "SessionToken")).To(Equal("tok-echo"))
		})
	})
})
