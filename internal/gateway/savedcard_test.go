package gateway_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/gateway"
)

var _ = Describe("SavedCardManager", func() {
	var (
		caller  *stubCaller
		manager *gateway.SavedCardManager
		card    gateway.CardDetails
	)

	BeforeEach(func() {
		caller = &stubCaller{responses: map[string]string{}}
		manager = gateway.NewSavedCardManager(testCredentials("http://unused"), caller, testLogger())
		card = gateway.CardDetails{
			HolderName:  "Jane Doe",
			Number:      "4111111111111111",
			ExpireMonth: "08",
			ExpireYear:  "2027",
		}
	})

	Describe("SaveCard", func() {
		It("returns the issued card token", func() {
			caller.responses[gateway.ActionStoreCard] = soapBody(
				`<StoreCardResult><ResultCode>1</ResultCode><CardToken>ct-100</CardToken></StoreCardResult>`)

			token, err := manager.SaveCard(context.Background(), card)

			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("ct-100"))
		})

		It("signs the request with the HMAC scheme", func() {
			caller.responses[gateway.ActionStoreCard] = soapBody(
				`<StoreCardResult><ResultCode>1</ResultCode><CardToken>ct-100</CardToken></StoreCardResult>`)

			_, err := manager.SaveCard(context.Background(), card)
			Expect(err).ToNot(HaveOccurred())

			expected := gateway.HashHMACSHA256([]gateway.Field{
				gateway.F("ClientCode", "CC01"),
				gateway.F("TerminalID", "T001"),
				gateway.F("CardNumber", card.Number),
			}, "guid-secret")
			Expect(fieldValue(caller.calls[0].fields, "RequestHash")).To(Equal(expected))
		})

		It("surfaces the provider's rejection reason", func() {
			caller.responses[gateway.ActionStoreCard] = soapBody(
				`<StoreCardResult><ResultCode>12</ResultCode><ResultMessage>Card not eligible</ResultMessage></StoreCardResult>`)

			_, err := manager.SaveCard(context.Background(), card)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(ContainSubstring("Card not eligible"))
		})

		It("fails when the token is absent from an accepted response", func() {
			caller.responses[gateway.ActionStoreCard] = soapBody(
				`<StoreCardResult><ResultCode>1</ResultCode></StoreCardResult>`)

			_, err := manager.SaveCard(context.Background(), card)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ListCards", func() {
		It("parses repeated card blocks from the raw body", func() {
			caller.responses[gateway.ActionListStoredCards] = soapBody(
				`<ListStoredCardsResult><ResultCode>1</ResultCode>` +
					`<StoredCard>` +
					`<CardToken>ct-1</CardToken><CardHolderName>Jane Doe</CardHolderName>` +
					`<MaskedNumber>411111******1111</MaskedNumber><Brand>VISA</Brand>` +
					`<ExpireMonth>08</ExpireMonth><ExpireYear>2027</ExpireYear>` +
					`</StoredCard>` +
					`<StoredCard>` +
					`<CardToken>ct-2</CardToken><CardHolderName>Jane Doe</CardHolderName>` +
					`<MaskedNumber>520000******0007</MaskedNumber><Brand>MC</Brand>` +
					`<ExpireMonth>01</ExpireMonth><ExpireYear>2026</ExpireYear>` +
					`</StoredCard>` +
					`</ListStoredCardsResult>`)

			cards, err := manager.ListCards(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(cards).To(HaveLen(2))
			Expect(cards[0].Token).To(Equal("ct-1"))
			Expect(cards[0].MaskedNumber).To(Equal("411111******1111"))
			Expect(cards[1].Token).To(Equal("ct-2"))
			Expect(cards[1].Brand).To(Equal("MC"))
		})

		It("returns an empty list when no cards are stored", func() {
			caller.responses[gateway.ActionListStoredCards] = soapBody(
				`<ListStoredCardsResult><ResultCode>1</ResultCode></ListStoredCardsResult>`)

			cards, err := manager.ListCards(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(cards).To(BeEmpty())
		})
	})

	Describe("DeleteCard", func() {
		It("succeeds on result code 1", func() {
			caller.responses[gateway.ActionDeleteCard] = soapBody(
				`<DeleteStoredCardResult><ResultCode>1</ResultCode></DeleteStoredCardResult>`)

			Expect(manager.DeleteCard(context.Background(), "ct-1")).To(Succeed())
		})

		It("rejects any other result code", func() {
			caller.responses[gateway.ActionDeleteCard] = soapBody(
				`<DeleteStoredCardResult><ResultCode>20</ResultCode><ResultMessage>Unknown token</ResultMessage></DeleteStoredCardResult>`)

			err := manager.DeleteCard(context.Background(), "ct-gone")

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(ContainSubstring("Unknown token"))
		})
	})

	Describe("ChargeCard", func() {
		order := gateway.OrderDetails{OrderID: "order-9", AmountMinor: 9990, Installments: 1}

		It("returns a final outcome for the direct tier", func() {
			caller.responses[gateway.ActionChargeCard] = soapBody(
				`<ChargeStoredCardResult>` +
					`<ResultCode>1</ResultCode><TransactionID>tx-7</TransactionID>` +
					`</ChargeStoredCardResult>`)

			result, err := manager.ChargeCard(context.Background(), "ct-1", "123", order, gateway.TierDirect)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Succeeded).To(BeTrue())
			Expect(result.TransactionID).To(Equal("tx-7"))
			Expect(result.RedirectURL).To(BeEmpty())
		})

		It("returns a challenge redirect for the secure tier", func() {
			caller.responses[gateway.ActionChargeCard] = soapBody(
				`<ChargeStoredCardResult>` +
					`<ResultCode>1</ResultCode>` +
					`<RedirectURL>https://3ds.example.net/challenge</RedirectURL>` +
					`</ChargeStoredCardResult>`)

			result, err := manager.ChargeCard(context.Background(), "ct-1", "123", order, gateway.TierSecure)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.RedirectURL).To(Equal("https://3ds.example.net/challenge"))
		})

		It("includes the security tier in the signed fields", func() {
			caller.responses[gateway.ActionChargeCard] = soapBody(
				`<ChargeStoredCardResult><ResultCode>1</ResultCode></ChargeStoredCardResult>`)

			_, err := manager.ChargeCard(context.Background(), "ct-1", "123", order, gateway.TierSecure)
			Expect(err).ToNot(HaveOccurred())

			Expect(fieldValue(caller.calls[0].fields, "SecurityTier")).To(Equal(gateway.TierSecure))
			Expect(fieldValue(caller.calls[0].fields, "TotalAmount")).To(Equal("99.90"))
		})

		It("reports a decline without error", func() {
			caller.responses[gateway.ActionChargeCard] = soapBody(
				`<ChargeStoredCardResult>` +
					`<ResultCode>05</ResultCode><ResultMessage>Do not honour</ResultMessage>` +
					`</ChargeStoredCardResult>`)

			result, err := manager.ChargeCard(context.Background(), "ct-1", "123", order, gateway.TierDirect)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Succeeded).To(BeFalse())
			Expect(result.Message).To(Equal("Do not honour"))
		})
	})
})
