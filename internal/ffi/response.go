package ffi

import (
	"encoding/json"
)

// Status codes of the JSON response envelope.
const (
	StatusError = -2
	StatusOK    = 1
)

// Response is the JSON envelope returned by the string-based library calls.
type Response struct {
	StatusCode   int    `json:"status_code"`
	Value        any    `json:"value"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// OK wraps a value.
func OK(value any) []byte {
	return marshalResponse(Response{StatusCode: StatusOK, Value: value})
}

// Failure reports err.
func Failure(err error) []byte {
	return marshalResponse(Response{StatusCode: StatusError, ErrorMessage: err.Error()})
}

func marshalResponse(r Response) []byte {
	data, err := json.Marshal(r)
	if err != nil {
		data, _ = json.Marshal(Response{StatusCode: StatusError, ErrorMessage: err.Error()})
	}
	return data
}
