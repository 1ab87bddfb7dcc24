// Package jsonx holds strict JSON decoding helpers for low-trust inputs.
package jsonx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MaxBodyBytes caps how much of a request body or file is read before decoding.
const MaxBodyBytes = 1 << 20

var (
	ErrEmptyBody    = errors.New("empty body")
	ErrTrailingJSON = errors.New("trailing data")
)

// DecodeStrict reads src and decodes exactly one JSON value into dst.
//
// Rejected (all map to HTTP 400 at the REST boundary):
//   - malformed or truncated JSON
//   - empty input (ErrEmptyBody)
//   - more than one JSON value (ErrTrailingJSON)
//   - unknown object fields
//   - field type mismatches
//
// Presence of required fields and semantic rules are left to the caller.
func DecodeStrict[T any](src io.Reader, dst *T) error {
	body, err := io.ReadAll(io.LimitReader(src, MaxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrTrailingJSON
	}
	return nil
}

// ParseStrictJSONBody strictly decodes an HTTP request body into dst.
func ParseStrictJSONBody[T any](r *http.Request, dst *T) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	return DecodeStrict(r.Body, dst)
}
