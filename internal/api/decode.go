package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBody is returned by decoders when a successful response carried no payload.
var ErrEmptyBody = errors.New("empty response body")

// ErrMissingField is returned when a JSON payload lacks a required key.
var ErrMissingField = errors.New("missing response field")

// ErrorBody is the backend's error payload. Both fields are optional.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ParseError extracts an ErrorBody from a non-2xx payload. ok is false when the
// payload is not a JSON object with at least one of the fields.
func ParseError(body []byte) (ErrorBody, bool) {
	var raw struct {
		Code    *int    `json:"code"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return ErrorBody{}, false
	}
	if raw.Code == nil && raw.Message == nil {
		return ErrorBody{}, false
	}

	var out ErrorBody
	if raw.Code != nil {
		out.Code = *raw.Code
	}
	if raw.Message != nil {
		out.Message = *raw.Message
	}
	return out, true
}

// ParseBoolString interprets a boolean-string payload. The backend answers
// with a bare true/false, optionally JSON-quoted. Anything other than a
// case-insensitive "true" is false.
func ParseBoolString(body []byte) (bool, error) {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return false, ErrEmptyBody
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	return strings.EqualFold(s, "true"), nil
}

// ParseAvailable interprets the username availability payload. Accepted shapes
// are {"available": bool} and a bare boolean-string. An object without an
// "available" value is an error rather than a silent false.
func ParseAvailable(body []byte) (bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false, ErrEmptyBody
	}
	if trimmed[0] != '{' {
		return ParseBoolString(trimmed)
	}

	var payload struct {
		Available json.RawMessage `json:"available"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return false, err
	}
	if len(payload.Available) == 0 || string(payload.Available) == "null" {
		return false, fmt.Errorf("%w: available", ErrMissingField)
	}
	return ParseBoolString(payload.Available)
}

// DecodeJSON unmarshals a non-empty body into v. v may be pre-populated with
// defaults; keys absent from the body leave them untouched.
func DecodeJSON(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(body, v)
}
