package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	internal "github.com/frahmantamala/subscription-billing/internal"
)

// Caller is the outbound RPC boundary. The 3D-Secure flow and the saved
// card manager depend on this interface so tests can stub the wire.
type Caller interface {
	Call(ctx context.Context, action string, fields []Field) (string, error)
}

type Transport struct {
	creds      Credentials
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

func NewTransport(creds Credentials, timeout time.Duration, logger *slog.Logger) *Transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transport{
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		logger:     logger,
	}
}

// Call posts the enveloped request, negotiating the SOAPAction header
// format across the fixed candidate list. This is not a retry loop: each
// candidate is tried at most once, the first accepted one wins, and a
// non-negotiation failure stops the loop immediately. No automatic retry
// happens here because the remote side gives no idempotency guarantee for
// payment-mutating operations.
func (t *Transport) Call(ctx context.Context, action string, fields []Field) (string, error) {
	envelope := BuildEnvelope(action, fields)
	candidates := ActionHeaderCandidates(Namespace, action)

	for i, header := range candidates {
		body, rejected, err := t.post(ctx, action, header, envelope)
		if err != nil {
			return "", err
		}
		if rejected {
			t.logger.Debug("gateway rejected action header format, trying next",
				"action", action,
				"candidate", i,
				"header", header)
			continue
		}
		if i > 0 {
			t.logger.Info("gateway accepted non-default action header format",
				"action", action,
				"candidate", i)
		}
		return body, nil
	}

	t.logger.Error("gateway rejected every action header format", "action", action)
	return "", internal.NewNegotiationError(
		fmt.Sprintf("gateway rejected all %d action header formats for %s", len(candidates), action))
}

// post performs one request. rejected=true means the response was a
// negotiation failure and the caller should try the next header format.
func (t *Transport) post(ctx context.Context, action, soapAction, envelope string) (body string, rejected bool, err error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, t.creds.EndpointURL, strings.NewReader(envelope))
	if err != nil {
		return "", false, internal.NewTransportError("failed to build gateway request", err)
	}
	req.Header.Set("Content-Type", `text/xml; charset=utf-8`)
	req.Header.Set("SOAPAction", soapAction)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			appErr := internal.NewTransportError(fmt.Sprintf("gateway call %s timed out after %s", action, t.timeout), err)
			appErr.Code = internal.ErrCodeGatewayTimeout
			return "", false, appErr
		}
		return "", false, internal.NewTransportError(fmt.Sprintf("gateway call %s failed", action), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, internal.NewTransportError("failed to read gateway response", err)
	}

	text := string(raw)

	// SOAP stacks answer both application faults and unrecognized action
	// headers with HTTP 500, so the body is what distinguishes the two.
	// Ambiguous 500s are propagated as response text for the parser to
	// classify rather than silently exhausting the candidate list.
	if resp.StatusCode >= http.StatusInternalServerError && IsActionRejected(text) {
		return "", true, nil
	}

	return text, false, nil
}
