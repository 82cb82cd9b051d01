package domain

import apperrors "github.com/louisbranch/secretsanta/internal/platform/errors"

// Sentinel errors matched with errors.Is by code.
var (
	// ErrMissingInput indicates a required upload was not supplied.
	ErrMissingInput = apperrors.New(apperrors.CodeMissingInput, "missing input")
	// ErrInvalidArgument indicates an optional request field could not be parsed.
	ErrInvalidArgument = apperrors.New(apperrors.CodeInvalidArgument, "invalid argument")
	// ErrMalformedInput indicates a tabular input is unreadable or lacks required columns.
	ErrMalformedInput = apperrors.New(apperrors.CodeMalformedInput, "malformed input")
	// ErrInsufficientParticipants indicates the roster is too small to draw.
	ErrInsufficientParticipants = apperrors.New(apperrors.CodeInsufficientParticipants, "insufficient participants")
	// ErrAssignmentIncomplete indicates some participant could not be given a recipient.
	ErrAssignmentIncomplete = apperrors.New(apperrors.CodeAssignmentIncomplete, "assignment incomplete")
)
