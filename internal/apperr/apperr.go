// Package apperr defines the typed failures surfaced by the client library.
//
// Every failure carries a human-readable message. Callers classify with
// errors.As or the Is* helpers; the CLI maps Kind to an exit code.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the coarse failure category.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindRequest
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindRequest:
		return "request"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// KindOf returns the category of err, or KindUnknown.
func KindOf(err error) Kind {
	var (
		ve *ValidationError
		ae *AuthError
		re *RequestError
		ne *NetworkError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ae):
		return KindAuth
	case errors.As(err, &re):
		return KindRequest
	case errors.As(err, &ne):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// RuleKind names a violated client-side rule.
type RuleKind string

const (
	RuleRequired      RuleKind = "required"
	RuleInvalidLength RuleKind = "invalid_length"
	RuleInvalidFormat RuleKind = "invalid_format"
	RuleInvalidValue  RuleKind = "invalid_value"
	RuleMissingID     RuleKind = "missing_id"
)

// Rule is one violated input rule.
type Rule struct {
	Field   string
	Kind    RuleKind
	Message string
}

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	Rules []Rule
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Rules: make([]Rule, 0)}
}

// MissingID reports an entity that carried none of its identifier aliases.
func MissingID(entity string) *ValidationError {
	ve := NewValidationError()
	ve.Add(entity+"_id", RuleMissingID, fmt.Sprintf("%s identifier is missing", entity))
	return ve
}

// Add appends a violated rule.
func (e *ValidationError) Add(field string, kind RuleKind, message string) {
	e.Rules = append(e.Rules, Rule{Field: field, Kind: kind, Message: message})
}

// HasErrors reports whether any rule was violated.
func (e *ValidationError) HasErrors() bool {
	return len(e.Rules) > 0
}

// Has reports whether a rule of the given kind was recorded.
func (e *ValidationError) Has(kind RuleKind) bool {
	for _, r := range e.Rules {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

func (e *ValidationError) Error() string {
	switch len(e.Rules) {
	case 0:
		return "validation failed"
	case 1:
		return e.Rules[0].Message
	}
	msgs := make([]string, 0, len(e.Rules))
	for _, r := range e.Rules {
		msgs = append(msgs, r.Message)
	}
	return strings.Join(msgs, "; ")
}

// AuthKind distinguishes authentication failures.
type AuthKind int

const (
	InvalidCredentials AuthKind = iota + 1
	NotAuthenticated
	SessionExpired
	MalformedResponse
	AuthServerError
)

func (k AuthKind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid credentials"
	case NotAuthenticated:
		return "not authenticated"
	case SessionExpired:
		return "session expired"
	case MalformedResponse:
		return "malformed response"
	case AuthServerError:
		return "server error"
	default:
		return "auth error"
	}
}

// AuthError is a failure of the session lifecycle.
type AuthError struct {
	Kind    AuthKind
	Message string
	Cause   error
}

// NewAuthError builds an AuthError; an empty message defaults to the kind.
func NewAuthError(kind AuthKind, message string) *AuthError {
	if message == "" {
		message = kind.String()
	}
	return &AuthError{Kind: kind, Message: message}
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Cause }

// RequestKind is derived from the HTTP status family.
type RequestKind int

const (
	ClientError RequestKind = iota + 1
	ServerError
	// MalformedBody is a successful response whose body could not be read.
	MalformedBody
)

func (k RequestKind) String() string {
	switch k {
	case ServerError:
		return "server error"
	case MalformedBody:
		return "malformed body"
	default:
		return "client error"
	}
}

// RequestError is a non-2xx response, or an unreadable 2xx one, turned into
// a failure.
type RequestError struct {
	Kind    RequestKind
	Status  int
	Message string
	Cause   error
}

// NewRequestError classifies status: 5xx is ServerError, anything else ClientError.
func NewRequestError(status int, message string) *RequestError {
	kind := ClientError
	if status >= 500 {
		kind = ServerError
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &RequestError{Kind: kind, Status: status, Message: message}
}

// Malformed wraps a decode failure of a successful response body.
func Malformed(what string, err error) *RequestError {
	return &RequestError{Kind: MalformedBody, Message: "malformed " + what + " response", Cause: err}
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Cause }

// NetworkError is a transport-level failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuth reports whether err is an AuthError of the given kind.
func IsAuth(err error, kind AuthKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

// IsRequest reports whether err is a RequestError of the given kind.
func IsRequest(err error, kind RequestKind) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == kind
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
