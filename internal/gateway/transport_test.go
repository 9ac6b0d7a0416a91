package gateway_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/gateway"
)

const actionRejectedBody = `<?xml version="1.0" encoding="utf-8"?>` +
	`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
	`<soap:Fault><faultcode>soap:Client</faultcode>` +
	`<faultstring>Server did not recognize the value of HTTP Header SOAPAction</faultstring>` +
	`</soap:Fault></soap:Body></soap:Envelope>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCredentials(endpoint string) gateway.Credentials {
	return gateway.Credentials{
		ClientCode:     "CC01",
		ClientUsername: "api-user",
		ClientPassword: "api-pass",
		TerminalID:     "T001",
		SecretGUID:     "guid-secret",
		EndpointURL:    endpoint,
		Mode:           "test",
	}
}

var _ = Describe("Transport", func() {
	var fields []gateway.Field

	BeforeEach(func() {
		fields = []gateway.Field{gateway.F("OrderID", "order-1")}
	})

	Context("when the gateway only accepts one header format", func() {
		It("walks the candidates in order and stops at the accepted one", func() {
			accepted := gateway.ActionHeaderCandidates(gateway.Namespace, "StartSecureSale")[2]
			var requests int32
			var seenHeaders []string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requests, 1)
				seenHeaders = append(seenHeaders, r.Header.Get("SOAPAction"))
				if r.Header.Get("SOAPAction") != accepted {
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(actionRejectedBody))
					return
				}
				w.Write([]byte(soapBody(`<StartSecureSaleResult><ResultCode>1</ResultCode></StartSecureSaleResult>`)))
			}))
			defer server.Close()

			transport := gateway.NewTransport(testCredentials(server.URL), 5*time.Second, testLogger())
			body, err := transport.Call(context.Background(), "StartSecureSale", fields)

			Expect(err).ToNot(HaveOccurred())
			Expect(body).To(ContainSubstring("<ResultCode>1</ResultCode>"))
			Expect(atomic.LoadInt32(&requests)).To(Equal(int32(3)))
			Expect(seenHeaders[2]).To(Equal(accepted))
		})
	})

	Context("when the gateway answers a real application fault", func() {
		It("returns the fault body without consuming more candidates", func() {
			var requests int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requests, 1)
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(soapBody(`<soap:Fault><faultstring>Insufficient funds</faultstring></soap:Fault>`)))
			}))
			defer server.Close()

			transport := gateway.NewTransport(testCredentials(server.URL), 5*time.Second, testLogger())
			body, err := transport.Call(context.Background(), "CompleteSecureSale", fields)

			Expect(err).ToNot(HaveOccurred())
			Expect(body).To(ContainSubstring("Insufficient funds"))
			Expect(atomic.LoadInt32(&requests)).To(Equal(int32(1)))
		})
	})

	Context("when every header format is rejected", func() {
		It("terminates with a negotiation error after the full candidate list", func() {
			var requests int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requests, 1)
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(actionRejectedBody))
			}))
			defer server.Close()

			transport := gateway.NewTransport(testCredentials(server.URL), 5*time.Second, testLogger())
			_, err := transport.Call(context.Background(), "StartSecureSale", fields)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNegotiation))
			Expect(atomic.LoadInt32(&requests)).To(Equal(int32(8)))
		})
	})

	Context("when the gateway does not answer within the deadline", func() {
		It("surfaces a timeout transport error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(500 * time.Millisecond)
			}))
			defer server.Close()

			transport := gateway.NewTransport(testCredentials(server.URL), 50*time.Millisecond, testLogger())
			_, err := transport.Call(context.Background(), "StartSecureSale", fields)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeTransport))
			Expect(appErr.Code).To(Equal(internal.ErrCodeGatewayTimeout))
		})
	})

	Context("when the endpoint is unreachable", func() {
		It("surfaces a transport error", func() {
			transport := gateway.NewTransport(testCredentials("http://127.0.0.1:1"), time.Second, testLogger())
			_, err := transport.Call(context.Background(), "StartSecureSale", fields)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeTransport))
		})
	})

	It("sends the enveloped body with the SOAP content type", func() {
		var contentType, receivedBody string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			raw, _ := io.ReadAll(r.Body)
			receivedBody = string(raw)
			w.Write([]byte(soapBody(`<Result><ResultCode>1</ResultCode></Result>`)))
		}))
		defer server.Close()

		transport := gateway.NewTransport(testCredentials(server.URL), 5*time.Second, testLogger())
		_, err := transport.Call(context.Background(), "StoreCard", []gateway.Field{
			gateway.F("CardNumber", "4111111111111111"),
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(contentType).To(Equal("text/xml; charset=utf-8"))
		Expect(receivedBody).To(ContainSubstring(`<StoreCard xmlns="` + gateway.Namespace + `">`))
		Expect(receivedBody).To(ContainSubstring("<CardNumber>4111111111111111</CardNumber>"))
	})
})
