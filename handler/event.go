package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidJSON   = errors.New("invalid JSON")
	ErrMissingPrompt = errors.New("missing prompt")
)

// Event is the subset of an API Gateway proxy event the function reads.
// Body holds the raw JSON value: a string for proxy integrations, or an
// already decoded object for direct invocations.
type Event struct {
	HTTPMethod      string          `json:"httpMethod"`
	Body            json.RawMessage `json:"body,omitempty"`
	IsBase64Encoded bool            `json:"isBase64Encoded,omitempty"`
}

// NewEvent wraps a plain HTTP request body the way API Gateway delivers it.
func NewEvent(method string, body []byte) Event {
	ev := Event{HTTPMethod: method}
	if len(body) > 0 {
		ev.Body, _ = json.Marshal(string(body))
	}
	return ev
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		HTTPMethod      string          `json:"httpMethod"`
		Body            json.RawMessage `json:"body"`
		IsBase64Encoded bool            `json:"isBase64Encoded"`
		RequestContext  struct {
			HTTP struct {
				Method string `json:"method"`
			} `json:"http"`
		} `json:"requestContext"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.HTTPMethod = raw.HTTPMethod
	if e.HTTPMethod == "" {
		// HTTP API payload format 2.0
		e.HTTPMethod = raw.RequestContext.HTTP.Method
	}
	e.Body = raw.Body
	e.IsBase64Encoded = raw.IsBase64Encoded
	return nil
}

// ParsePrompt returns the trimmed prompt, ErrInvalidJSON when the body
// cannot be decoded into a request, or ErrMissingPrompt when it is empty.
func ParsePrompt(ev Event) (string, error) {
	body, err := requestBody(ev)
	if err != nil {
		return "", err
	}
	// Field names are matched exactly, encoding/json would also accept "Prompt".
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", errors.Join(ErrInvalidJSON, fmt.Errorf("body is not an object: %w", err))
	}
	var prompt string
	if raw, ok := fields["prompt"]; ok {
		var value *string
		if err := json.Unmarshal(raw, &value); err != nil {
			return "", errors.Join(ErrInvalidJSON, err)
		}
		if value != nil {
			prompt = strings.TrimSpace(*value)
		}
	}
	if prompt == "" {
		return "", ErrMissingPrompt
	}
	return prompt, nil
}

// requestBody unwraps a string body into the JSON document it carries.
func requestBody(ev Event) ([]byte, error) {
	body := bytes.TrimSpace(ev.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, errors.Join(ErrInvalidJSON, errors.New("no body"))
	}
	if body[0] != '"' {
		return body, nil
	}
	var s string
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, errors.Join(ErrInvalidJSON, err)
	}
	if ev.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.Join(ErrInvalidJSON, err)
		}
		s = string(decoded)
	}
	if trimmed := strings.TrimSpace(s); trimmed == "" || trimmed == "null" {
		return nil, errors.Join(ErrInvalidJSON, errors.New("no body"))
	}
	return []byte(s), nil
}
