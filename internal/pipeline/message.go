package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Message is one inbound email as delivered by the CloudMailin JSON webhook.
type Message struct {
	HTML    string
	Plain   string
	Subject string
}

type webhookPayload struct {
	HTML    string                     `json:"html"`
	Plain   string                     `json:"plain"`
	Headers map[string]json.RawMessage `json:"headers"`
}

// DecodeMessage parses a CloudMailin JSON payload. An empty body, invalid
// JSON or an empty object is a *ShapeError.
func DecodeMessage(raw []byte) (Message, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Message{}, &ShapeError{Reason: "no payload"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Message{}, &ShapeError{Reason: "payload is not a JSON object", Cause: err}
	}
	if len(fields) == 0 {
		return Message{}, &ShapeError{Reason: "no payload"}
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Message{}, &ShapeError{Reason: "unexpected payload fields", Cause: err}
	}

	return Message{
		HTML:    payload.HTML,
		Plain:   payload.Plain,
		Subject: headerValue(payload.Headers, "subject"),
	}, nil
}

// headerValue looks a header up case-insensitively. CloudMailin sends
// repeated headers as arrays; the first value is used.
func headerValue(headers map[string]json.RawMessage, name string) string {
	raw, ok := headers[name]
	if !ok {
		for k, v := range headers {
			if strings.EqualFold(k, name) {
				raw, ok = v, true
				break
			}
		}
	}
	if !ok {
		return ""
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var multi []string
	if err := json.Unmarshal(raw, &multi); err == nil && len(multi) > 0 {
		return multi[0]
	}
	return ""
}

// EmailHash identifies an email in logs and alerts without exposing its
// content: the first 16 hex characters of the SHA-256 of the HTML body.
func EmailHash(html string) string {
	if html == "" {
		return "no-html"
	}
	sum := sha256.Sum256([]byte(html))
	return hex.EncodeToString(sum[:])[:16]
}
