// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the standard API response envelope.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta describes the page returned by a list endpoint.
type Meta struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Page writes a 200 response for one page of a list. count is the number of items in data.
func Page(w http.ResponseWriter, data interface{}, skip, limit, count int) {
	JSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Meta{Skip: skip, Limit: limit, Count: count},
	})
}

// Created writes a 201 response with data.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a failure envelope with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Error: message})
}

// BadRequest is used for rejected input.
func BadRequest(w http.ResponseWriter, message string) { Error(w, http.StatusBadRequest, message) }

// Unauthorized is used when no valid identity accompanies the request.
func Unauthorized(w http.ResponseWriter, message string) { Error(w, http.StatusUnauthorized, message) }

// NotFound also covers records owned by someone else.
func NotFound(w http.ResponseWriter, message string) { Error(w, http.StatusNotFound, message) }

// TooLarge is used when the request body exceeds its limit.
func TooLarge(w http.ResponseWriter, message string) {
	Error(w, http.StatusRequestEntityTooLarge, message)
}

// InternalError hides the cause from the client; callers log it.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal server error")
}
