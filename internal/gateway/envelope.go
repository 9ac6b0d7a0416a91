package gateway

import (
	"strings"
)

// Namespace wraps every request body element. The remote service ignores
// unknown child namespaces but rejects a missing one on the action element.
const Namespace = "https://gateway.example.net/pos/"

const envelopeHeader = `<?xml version="1.0" encoding="utf-8"?>` +
	`<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"` +
	` xmlns:xsd="http://www.w3.org/2001/XMLSchema"` +
	` xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
	`<soap:Body>`

const envelopeFooter = `</soap:Body></soap:Envelope>`

// BuildEnvelope serializes the request fields, in source order, under a
// single element named after the action and wraps the result in a SOAP 1.1
// envelope. Values are escaped before insertion: card holder names and
// addresses are user-controlled, and an unescaped `<` breaks the document
// structure rather than just the rendering.
func BuildEnvelope(action string, fields []Field) string {
	var b strings.Builder
	b.WriteString(envelopeHeader)
	b.WriteByte('<')
	b.WriteString(action)
	b.WriteString(` xmlns="`)
	b.WriteString(Namespace)
	b.WriteString(`">`)
	writeFields(&b, fields)
	b.WriteString("</")
	b.WriteString(action)
	b.WriteByte('>')
	b.WriteString(envelopeFooter)
	return b.String()
}

func writeFields(b *strings.Builder, fields []Field) {
	for _, f := range fields {
		b.WriteByte('<')
		b.WriteString(f.Name)
		b.WriteByte('>')
		if len(f.Children) > 0 {
			writeFields(b, f.Children)
		} else {
			b.WriteString(EscapeXML(f.Value))
		}
		b.WriteString("</")
		b.WriteString(f.Name)
		b.WriteByte('>')
	}
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&apos;", "'",
	"&quot;", `"`,
	"&amp;", "&",
)

// EscapeXML escapes the five reserved markup characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

func UnescapeXML(s string) string {
	return xmlUnescaper.Replace(s)
}
