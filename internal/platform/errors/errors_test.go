package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "message only", err: New(CodeMissingInput, "no employee file provided"), want: "no employee file provided"},
		{name: "message and cause", err: Wrap(CodeMalformedInput, "read roster", stderrors.New("bad zip")), want: "read roster: bad zip"},
		{name: "cause only", err: Wrap(CodeUnknown, "", stderrors.New("boom")), want: "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeInsufficientParticipants, "not enough participants")
	err := fmt.Errorf("draw: %w", New(CodeInsufficientParticipants, "roster has 1 participant"))

	if !stderrors.Is(err, sentinel) {
		t.Fatal("expected wrapped error to match sentinel by code")
	}
	if stderrors.Is(err, New(CodeMalformedInput, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "persist draw", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: New(CodeMissingInput, "x"), want: http.StatusBadRequest},
		{err: New(CodeInvalidArgument, "x"), want: http.StatusBadRequest},
		{err: New(CodeNotFound, "x"), want: http.StatusNotFound},
		{err: New(CodeMalformedInput, "x"), want: http.StatusInternalServerError},
		{err: New(CodeInsufficientParticipants, "x"), want: http.StatusInternalServerError},
		{err: New(CodeAssignmentIncomplete, "x"), want: http.StatusInternalServerError},
		{err: fmt.Errorf("wrapped: %w", New(CodeMissingInput, "x")), want: http.StatusBadRequest},
		{err: stderrors.New("plain"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWithMetadata(t *testing.T) {
	err := WithMetadata(CodeAssignmentIncomplete, "no recipient", map[string]string{"unassigned": "Eve"})
	if err.Metadata["unassigned"] != "Eve" {
		t.Fatalf("metadata = %v", err.Metadata)
	}
	if GetCode(err) != CodeAssignmentIncomplete {
		t.Fatalf("code = %s", GetCode(err))
	}
}
