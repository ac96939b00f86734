// Package middleware holds the HTTP middleware and response helpers of the UI.
package middleware

import (
	"encoding/json"
	"net/http"

	"cutvalid/domain/core"
	"cutvalid/internal/errors"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// StatusFor maps an application error to an HTTP status
func StatusFor(err error) int {
	switch {
	case core.IsNotFoundError(err), errors.HasCode(err, errors.CodeNotFound):
		return http.StatusNotFound
	case errors.HasCode(err, errors.CodeUnknownDirection),
		errors.HasCode(err, errors.CodeMalformedInput),
		errors.HasCode(err, errors.CodeConfigInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON encodes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Code: code, Error: message})
}

// WriteErr writes err with the status StatusFor picks. Internal errors are not
// echoed to the client.
func WriteErr(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	code := errors.GetCode(err)
	message := err.Error()
	if status == http.StatusNotFound {
		code = errors.CodeNotFound
	}
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	WriteError(w, status, code, message)
}
