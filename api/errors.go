package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	MessageTransport = "Unable to reach the server. Please check your connection and try again."
	MessageUnknown   = "Something went wrong. Please try again."
)

// ValidationError is a 4xx answer with a structured JSON body.
type ValidationError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (HTTP %d): %s", e.Status, e.Message)
}

// Field returns the first message reported for a field.
func (e *ValidationError) Field(name string) string {
	if msgs := e.Fields[name]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// TransportError means no response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport error: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnknownError is a response that could not be understood, or a request that was never
// sent (Status 0).
type UnknownError struct {
	Status int
	Body   string
	Err    error
}

func (e *UnknownError) Error() string {
	if e.Status == 0 && e.Err != nil {
		return fmt.Sprintf("request not sent: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("unexpected response (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("unexpected response (HTTP %d): %s", e.Status, e.Body)
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

// UserError carries text written for the user, shown as is.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

// userFacing errors know their own banner text.
type userFacing interface {
	UserMessage() string
}

func (e *UserError) UserMessage() string {
	return e.Message
}

func classifyStatus(status int, body []byte) error {
	if status >= 400 && status < 500 {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(body, &payload); err == nil && len(payload) > 0 {
			return newValidationError(status, payload)
		}
	}
	return &UnknownError{Status: status, Body: truncate(string(body))}
}

// newValidationError reads DRF-style bodies: {"detail": "..."}, {"error": "..."},
// {"message": "..."}, {"non_field_errors": [...]} or {"field": ["msg", ...]}.
func newValidationError(status int, payload map[string]json.RawMessage) *ValidationError {
	verr := &ValidationError{Status: status, Fields: map[string][]string{}}

	for key, raw := range payload {
		msgs := decodeMessages(raw)
		if len(msgs) == 0 {
			continue
		}
		switch key {
		case "detail", "error", "message", "non_field_errors":
		default:
			verr.Fields[key] = msgs
		}
	}

	for _, key := range []string{"detail", "error", "message", "non_field_errors"} {
		if msgs := decodeMessages(payload[key]); len(msgs) > 0 {
			verr.Message = msgs[0]
			return verr
		}
	}

	if len(verr.Fields) > 0 {
		names := make([]string, 0, len(verr.Fields))
		for name := range verr.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		verr.Message = fmt.Sprintf("%s: %s", humanize(names[0]), verr.Fields[names[0]][0])
		return verr
	}

	verr.Message = http.StatusText(status)
	return verr
}

func decodeMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var generic []interface{}
	if err := json.Unmarshal(raw, &generic); err == nil {
		var out []string
		for _, v := range generic {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return nil
}

func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// UserMessage turns any error into a string fit for a banner. Errors outside the
// taxonomy get the generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}

	var terr *TransportError
	if errors.As(err, &terr) {
		if errors.Is(err, context.Canceled) {
			return "Request cancelled."
		}
		return MessageTransport
	}

	var uf userFacing
	if errors.As(err, &uf) {
		return uf.UserMessage()
	}

	return MessageUnknown
}

// IsUnauthorized reports whether the backend rejected the credential.
func IsUnauthorized(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) && verr.Status == http.StatusUnauthorized
}
