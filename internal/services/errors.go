package services

import "strings"

// ValidationError is a client-side input problem; nothing has been written when it is returned.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func missingFields(fields []string) *ValidationError {
	return &ValidationError{
		Message: "missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}
