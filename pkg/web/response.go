// Package web defines common components for a web application.
package web

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error wraps a given err into json friendly struct.
func Error(err error) Response {
	return Response{Message: err.Error()}
}

// GetErrorMsg turns the first validation failure into a human readable message.
func GetErrorMsg(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return ""
	}

	fe := ve[0]

	switch fe.Tag() {
	case "required":
		return fe.Field() + " field is required"
	case "amount":
		return fe.Field() + " must be a positive number below 10000000000000 with at most two decimal places"
	case "uuid":
		return fe.Field() + " must be a valid UUID"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	}

	return fe.Field() + " is invalid"
}

// ErrMalformedRequest is reported when the request cannot be decoded at all.
var ErrMalformedRequest = errors.New("Malformed request")

// ValidationMessage describes a binding error for the client.
func ValidationMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return GetErrorMsg(ve)
	}

	return ErrMalformedRequest.Error()
}
