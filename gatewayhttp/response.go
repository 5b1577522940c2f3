// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gatewayhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind classifies a gateway HTTP error by cause. It is a closed
// vocabulary, not a hierarchy of distinct error types — errors are
// still wrapped with fmt.Errorf's %w everywhere else in this module.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindInternal   Kind = "INTERNAL"
)

func (k Kind) status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Response is the uniform envelope every endpoint responds with.
type Response struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is the uniform error shape within a Response.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// HTTPError pairs a Kind with the message a handler wants reported for
// it; its Kind alone drives the HTTP status code.
type HTTPError struct {
	Kind    Kind
	Message string
}

func (e HTTPError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// NewHTTPError builds an HTTPError of the given kind.
func NewHTTPError(kind Kind, message string) HTTPError {
	return HTTPError{Kind: kind, Message: message}
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes a Response carrying err. An HTTPError's Kind drives
// both the HTTP status and the embedded error kind; any other error is
// reported as an opaque internal failure.
func WriteError(w http.ResponseWriter, err error) error {
	he, ok := err.(HTTPError)
	if !ok {
		he = HTTPError{Kind: KindInternal, Message: err.Error()}
	}
	return WriteJSON(w, he.Kind.status(), Response{
		Success: false,
		Error:   &Error{Kind: he.Kind, Message: he.Message},
	})
}

// WriteSuccess writes a Response carrying result with HTTP 200.
func WriteSuccess(w http.ResponseWriter, result interface{}) error {
	return WriteJSON(w, http.StatusOK, Response{Success: true, Result: result})
}
