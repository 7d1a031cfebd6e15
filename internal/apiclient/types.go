package apiclient

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers http.Header

	// Token, when set, is sent as a bearer credential.
	Token string
}

// Response is a decoded API reply. Body is always valid JSON.
type Response struct {
	Status int
	Body   json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Detail extracts the server's human-readable message, or "".
// A string detail is returned as-is; a list of validation items is joined
// with "; ". Falls back to a top-level message.
func (r *Response) Detail() string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return ""
	}
	if d := detailText(body.Detail); d != "" {
		return d
	}
	return strings.TrimSpace(body.Message)
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(items))
	for _, item := range items {
		var m struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(item, &m); err == nil && m.Msg != "" {
			msgs = append(msgs, m.Msg)
			continue
		}
		if err := json.Unmarshal(item, &s); err == nil && s != "" {
			msgs = append(msgs, s)
		}
	}
	return strings.Join(msgs, "; ")
}
