// Package errors defines the coded error type surfaced by the engine, the CLI and the API.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnknownIdentifier indicates the taxonomy directory cannot resolve a taxonomy ID
	UnknownIdentifier ErrorCode = "UNKNOWN_IDENTIFIER"
	// MalformedRecord indicates a data line is missing the mandatory columns or has a bad score
	MalformedRecord ErrorCode = "MALFORMED_RECORD"
	// InvalidRequest indicates a request body or parameter is unusable
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// NameNotFound indicates a taxon name matched no identifiers
	NameNotFound ErrorCode = "NAME_NOT_FOUND"
	// UploadTooLarge indicates an upload exceeded the configured size limit
	UploadTooLarge ErrorCode = "UPLOAD_TOO_LARGE"
	// TaxonomyUnavailable indicates the taxonomy directory could not be provisioned or opened
	TaxonomyUnavailable ErrorCode = "TAXONOMY_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// EditInput suggests correcting the uploaded data
	EditInput FixActionType = "edit-input"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is a taxsun error with a stable code, a message and suggested fixes
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an Error with the default suggested fixes for its code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error by code, so errors.Is(err, &Error{Code: X}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// As is errors.As for callers that import this package under its own name.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	UnknownIdentifier: {
		{
			Type:        EditInput,
			Description: "Check the taxonomy ID column; IDs must exist in the NCBI taxdump",
		},
		{
			Type:        RunCommand,
			Command:     "taxsun taxdump fetch --force",
			Safe:        true,
			Description: "Refresh the taxonomy dump if the ID was added recently",
		},
	},
	MalformedRecord: {
		{
			Type:        EditInput,
			Description: "Each data line needs at least gene name and taxonomy ID separated by a tab",
		},
	},
	TaxonomyUnavailable: {
		{
			Type:        RunCommand,
			Command:     "taxsun taxdump fetch",
			Safe:        true,
			Description: "Download and import the NCBI taxonomy dump",
		},
		{
			Type:        RunCommand,
			Command:     "taxsun taxdump status",
			Safe:        true,
			Description: "Inspect the local taxonomy data directory",
		},
	},
	NameNotFound: {
		{
			Type:        RunCommand,
			Command:     "taxsun lookup \"<scientific name>\"",
			Safe:        true,
			Description: "Names are matched exactly against NCBI scientific names",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
