// Package apperr defines the error taxonomy shared by the domain
// packages and the HTTP shell. Domain code tags failures with a Kind;
// handlers translate kinds to HTTP statuses without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers.
type Kind int

const (
	KindInternal Kind = iota // programmer error, logged with context
	KindValidation
	KindNotFound
	KindForbidden
	KindCurrencyMismatch
	KindInsufficientFunds
	KindCreditLimitExceeded
	KindBlockedByRule
	KindGoalAlreadyCompleted
	KindAccountInactive
	KindConflict
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindCurrencyMismatch:
		return "currency_mismatch"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindCreditLimitExceeded:
		return "credit_limit_exceeded"
	case KindBlockedByRule:
		return "blocked_by_rule"
	case KindGoalAlreadyCompleted:
		return "goal_already_completed"
	case KindAccountInactive:
		return "account_inactive"
	case KindConflict:
		return "conflict"
	case KindTimeout:
		return "timeout"
	}
	return "internal"
}

// Error is a Kind-tagged error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a tagged error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error. A nil cause yields nil.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the Kind of err; unrecognized errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to the status the REST shell responds with.
// Domain rejections surface as 422, access problems as 403/404.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindCurrencyMismatch, KindInsufficientFunds, KindCreditLimitExceeded,
		KindBlockedByRule, KindGoalAlreadyCompleted, KindAccountInactive:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
