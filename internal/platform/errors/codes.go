// Package errors provides coded errors that carry their transport mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeMissingInput    Code = "MISSING_INPUT"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeMalformedInput  Code = "MALFORMED_INPUT"

	// Draw errors
	CodeInsufficientParticipants Code = "INSUFFICIENT_PARTICIPANTS"
	CodeAssignmentIncomplete     Code = "ASSIGNMENT_INCOMPLETE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
//
// Only caller mistakes that the caller can fix without touching file
// contents are client errors; anything that fails while processing an
// upload is reported as a server-side processing failure.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingInput, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
