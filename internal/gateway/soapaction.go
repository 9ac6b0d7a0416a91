package gateway

import (
	"fmt"
	"strings"
)

// The service's accepted SOAPAction header format is not documented
// reliably; different deployments accept different shapes. The candidates
// below are tried in order for the same logical operation until one is not
// rejected as an unrecognized action.
func ActionHeaderCandidates(namespace, action string) []string {
	full := namespace + action
	return []string{
		fmt.Sprintf("%q", action),
		action,
		fmt.Sprintf("%q", full),
		full,
		"'" + action + "'",
		"'" + full + "'",
		"urn:" + action,
		"",
	}
}

// negotiationMarkers identify "wrong action header format" responses.
// The set is deliberately small: anything not matching is treated as a
// real application error and propagated, so genuine failures are never
// masked as format issues.
var negotiationMarkers = []string{
	"did not recognize the value of http header soapaction",
	"soapaction header was not recognized",
	"actionnotsupported",
	"no soapaction header",
	"unable to handle request without a valid action parameter",
}

// IsActionRejected classifies a fault body as a negotiation failure.
// Pure predicate so it can be tested without network I/O.
func IsActionRejected(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range negotiationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
