package apiclient

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/Jeffail/gabs/v2"

	"blogclient/internal/pkg/errs"
)

// maxRawMessage caps how much of a non-JSON error body is surfaced as a message.
const maxRawMessage = 200

// parseJSON parses body keeping numbers exact, so sub-documents re-encode unchanged.
func parseJSON(body []byte) (*gabs.Container, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return gabs.ParseJSONDecoder(dec)
}

// at returns the first present, non-null dotted path of doc (e.g. "data.blogs").
func at(doc *gabs.Container, paths ...string) (*gabs.Container, bool) {
	for _, path := range paths {
		if !doc.ExistsP(path) {
			continue
		}
		if found := doc.Path(path); found.Data() != nil {
			return found, true
		}
	}
	return nil, false
}

// envelopeMessage extracts the user-facing message of an error response.
//
// Precedence: errors[] (joined with ", "), error, message, then the raw body
// text. An empty result means the caller's default message applies.
func envelopeMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	if body[0] != '{' {
		return rawMessage(body)
	}

	doc, err := parseJSON(body)
	if err != nil {
		return rawMessage(body)
	}

	if msgs := itemMessages(doc.S("errors")); len(msgs) > 0 {
		return strings.Join(msgs, ", ")
	}

	if msg := looseString(doc.S("error")); msg != "" {
		return msg
	}

	if msg, ok := doc.S("message").Data().(string); ok {
		return strings.TrimSpace(msg)
	}

	return ""
}

func itemMessages(items *gabs.Container) []string {
	if _, ok := items.Data().([]any); !ok {
		return nil
	}

	var msgs []string
	for _, item := range items.Children() {
		if s := looseString(item); s != "" {
			msgs = append(msgs, s)
		}
	}

	return msgs
}

// looseString reads a string, or the msg/error/message field of an object.
func looseString(c *gabs.Container) string {
	switch v := c.Data().(type) {
	case string:
		return strings.TrimSpace(v)

	case map[string]any:
		for _, key := range []string{"msg", "error", "message"} {
			if s, ok := v[key].(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}

	return ""
}

func rawMessage(body []byte) string {
	// HTML error pages are not worth showing.
	if body[0] == '<' || !utf8.Valid(body) {
		return ""
	}

	text := strings.Join(strings.Fields(string(body)), " ")
	if utf8.RuneCountInString(text) > maxRawMessage {
		text = string([]rune(text)[:maxRawMessage]) + "…"
	}

	return text
}

// decodeAt decodes the first present dotted path of body into out. When none
// of paths is present, the whole body is decoded.
func decodeAt(body []byte, out any, paths ...string) *errs.CustomError {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return errs.NewError(errs.ErrMalformedResponse)
	}

	doc, err := parseJSON(body)
	if err != nil {
		return errs.NewError(errs.ErrMalformedResponse).WithCause(err)
	}

	return decodeDoc(doc, out, paths...)
}

// decodeDoc is decodeAt over an already parsed body.
func decodeDoc(doc *gabs.Container, out any, paths ...string) *errs.CustomError {
	if found, ok := at(doc, paths...); ok {
		doc = found
	}

	if err := json.Unmarshal(doc.Bytes(), out); err != nil {
		return errs.NewError(errs.ErrMalformedResponse).WithCause(err)
	}

	return nil
}
