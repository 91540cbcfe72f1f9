package router

import (
	"encoding/json"
	"io"
	"net/http"
)

// Error is an error that knows how to render itself as an HTTP response.
type Error interface {
	error
	StatusCode() int
	ContentType() string
	Encode(w io.Writer) error
}

// JsonError renders as {"code": <status>, "error": <message>}.
type JsonError struct {
	Code int    `json:"code"`
	Err  string `json:"error"`
}

func NewJsonError(code int, msg string) JsonError {
	return JsonError{Code: code, Err: msg}
}

func (e JsonError) StatusCode() int {
	return e.Code
}

func (e JsonError) Error() string {
	return e.Err
}

func (e JsonError) ContentType() string {
	return "application/json"
}

func (e JsonError) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(e)
}

// IsClientError reports whether the response status is in the 4xx range.
func IsClientError(e Error) bool {
	return e.StatusCode() >= http.StatusBadRequest && e.StatusCode() < http.StatusInternalServerError
}
