package gateway

import (
	"regexp"
	"strings"
)

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFault    Outcome = "fault"
	OutcomeUnparsed Outcome = "unparsed"
)

// ParsedResult is the tagged outcome of a gateway response. Callers must
// branch on Outcome; Fields is only meaningful for success, FaultMessage
// for fault, Raw for unparsed.
type ParsedResult struct {
	Outcome      Outcome
	Fields       map[string]string
	FaultMessage string
	Raw          string
}

func (r ParsedResult) Get(name string) string {
	return r.Fields[name]
}

// providerResultTag is the provider's own generic wrapper, seen on some
// operations instead of the SOAP-conventional <ActionResult>.
const providerResultTag = "TransactionResult"

// simpleTagPattern matches flat <tag>value</tag> pairs for the last-resort
// generic scan.
var simpleTagPattern = regexp.MustCompile(`<([A-Za-z_][A-Za-z0-9_]*)>([^<]*)</([A-Za-z_][A-Za-z0-9_]*)>`)

// Parse extracts a structured result from raw response text. The response
// shape varies by operation and deployment, so extraction is layered:
//
//  1. fault scan, which wins over any success-shaped content because a
//     fault body can embed result-looking tags in its detail section;
//  2. locate the envelope body;
//  3. <ActionResult>, <ActionResponse>, generic <Result>, then the
//     provider's generic wrapper, first non-empty match wins;
//  4. generic flat tag scan over the body;
//  5. nothing extracted: unparsed, carrying the raw text for diagnostics.
func Parse(raw, action string) ParsedResult {
	if msg, ok := scanFault(raw); ok {
		return ParsedResult{Outcome: OutcomeFault, FaultMessage: msg, Raw: raw}
	}

	body := envelopeBody(raw)

	for _, wrapper := range []string{action + "Result", action + "Response", "Result", providerResultTag} {
		if inner := extractTag(body, wrapper); inner != "" {
			if fields := scanSimpleTags(inner); len(fields) > 0 {
				return ParsedResult{Outcome: OutcomeSuccess, Fields: fields, Raw: raw}
			}
			// A wrapper holding a bare scalar is still a result.
			if !strings.Contains(inner, "<") {
				return ParsedResult{
					Outcome: OutcomeSuccess,
					Fields:  map[string]string{wrapper: UnescapeXML(strings.TrimSpace(inner))},
					Raw:     raw,
				}
			}
		}
	}

	if fields := scanSimpleTags(body); len(fields) > 0 {
		return ParsedResult{Outcome: OutcomeSuccess, Fields: fields, Raw: raw}
	}

	return ParsedResult{Outcome: OutcomeUnparsed, Raw: raw}
}

func scanFault(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	if !strings.Contains(lower, ":fault>") && !strings.Contains(lower, "<fault>") &&
		!strings.Contains(lower, "<faultstring>") {
		return "", false
	}

	if msg := extractTag(raw, "faultstring"); msg != "" {
		return UnescapeXML(strings.TrimSpace(msg)), true
	}
	return "gateway returned a fault without a faultstring", true
}

// envelopeBody returns the region inside the SOAP body element, or the
// whole text when no body element is present.
func envelopeBody(raw string) string {
	lower := strings.ToLower(raw)
	start := strings.Index(lower, ":body")
	if start < 0 {
		start = strings.Index(lower, "<body")
	}
	if start < 0 {
		return raw
	}
	open := strings.IndexByte(raw[start:], '>')
	if open < 0 {
		return raw
	}
	begin := start + open + 1

	end := strings.LastIndex(lower, ":body>")
	if end < 0 || end <= begin {
		return raw[begin:]
	}
	// back up over "</soap" (or similar prefix) before ":body>"
	closeIdx := strings.LastIndex(lower[:end], "<")
	if closeIdx < begin {
		return raw[begin:]
	}
	return raw[begin:closeIdx]
}

// extractTag returns the inner text of the first <tag ...>...</tag>
// occurrence, tolerating attributes on the opening tag.
func extractTag(text, tag string) string {
	lower := strings.ToLower(text)
	needle := "<" + strings.ToLower(tag)
	from := 0
	for {
		idx := strings.Index(lower[from:], needle)
		if idx < 0 {
			return ""
		}
		idx += from
		after := idx + len(needle)
		if after < len(text) && text[after] != '>' && text[after] != ' ' && text[after] != '\t' {
			from = after
			continue
		}
		open := strings.IndexByte(text[idx:], '>')
		if open < 0 {
			return ""
		}
		begin := idx + open + 1
		closing := "</" + strings.ToLower(tag) + ">"
		end := strings.Index(lower[begin:], closing)
		if end < 0 {
			return ""
		}
		return text[begin : begin+end]
	}
}

func scanSimpleTags(text string) map[string]string {
	matches := simpleTagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	fields := make(map[string]string, len(matches))
	for _, m := range matches {
		if m[1] != m[3] {
			continue
		}
		fields[m[1]] = UnescapeXML(m[2])
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
