// Package ledger implements the admission-request and check-in state
// machines together with the authorization gate that fronts every
// mutation.  All operations return a typed *Error so that handlers and
// internal callers can branch on a closed code set instead of matching
// message strings; nothing in this package panics across its boundary.
package ledger

import (
	"errors"
	"fmt"
)

// Code classifies a ledger failure.
type Code string

const (
	CodeNotAuthorized      Code = "not_authorized"
	CodeNotFound           Code = "not_found"
	CodeInvalidPayload     Code = "invalid_payload"
	CodePreconditionFailed Code = "precondition_failed"
	CodeValidationError    Code = "validation_error"
	CodeStoreUnavailable   Code = "store_unavailable"
)

// Scan payload mismatch reasons, carried on CodeInvalidPayload errors.
const (
	ReasonWrongEvent = "wrong_event"
	ReasonWrongUser  = "wrong_user"
	ReasonMalformed  = "malformed"
)

// Error is the typed failure returned by every ledger operation.  Reason
// is only set for invalid-payload errors and names which part of the scan
// mismatched, because each sub-reason implies a different door action.
type Error struct {
	Code   Code
	Reason string
	Msg    string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// CodeOf extracts the ledger code from an error chain.  Unexpected errors
// that did not originate in this package classify as store failures.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return CodeStoreUnavailable
}

// IsCode reports whether err carries the given ledger code.
func IsCode(err error, code Code) bool { return err != nil && CodeOf(err) == code }

func notAuthorized() *Error {
	return &Error{Code: CodeNotAuthorized, Msg: "caller is not an admin of the owning fraternity"}
}

func notFound(what string) *Error {
	return &Error{Code: CodeNotFound, Msg: what + " not found"}
}

func precondition(msg string) *Error {
	return &Error{Code: CodePreconditionFailed, Msg: msg}
}

func invalidPayload(reason, msg string) *Error {
	return &Error{Code: CodeInvalidPayload, Reason: reason, Msg: msg}
}

func validation(msg string) *Error {
	return &Error{Code: CodeValidationError, Msg: msg}
}

func storeFailure(op string, err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Msg: op + " failed", cause: err}
}
