// Package request holds small helpers for reading HTTP requests.
package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Pagination reads skip/limit query parameters. Missing or invalid values fall back to
// 0 and DefaultLimit; limit is capped at MaxLimit.
func Pagination(r *http.Request) (offset, limit int) {
	offset, limit = 0, DefaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil && v > 0 {
		offset = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, MaxLimit)
	}
	return offset, limit
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// Bool parses a boolean query parameter, defaulting to false.
func Bool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
