package authority

import (
	"errors"
	"net/http"
)

// Reason is the machine-readable code attached to every rejection.
// Display text is carried separately so clients can branch on the code.
type Reason string

const (
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonInvalidCredential  Reason = "invalid_credential"
	ReasonExpired            Reason = "expired"
	ReasonActionNotPermitted Reason = "action_not_permitted"
	ReasonOutOfScope         Reason = "out_of_scope"
	ReasonInvalidTransition  Reason = "invalid_transition"
)

// Sentinel errors for the identity verifier.
var (
	ErrUnauthenticated   = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpired           = errors.New("credential expired")
)

// ReasonForError maps a verifier error to its rejection reason.
func ReasonForError(err error) Reason {
	switch {
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrInvalidCredential):
		return ReasonInvalidCredential
	default:
		return ReasonUnauthenticated
	}
}

// HTTPStatus maps a reason to the status code callers should return:
// 401 for authentication failures, 403 for authorization failures,
// 400 for state conflicts.
func (r Reason) HTTPStatus() int {
	switch r {
	case ReasonUnauthenticated, ReasonInvalidCredential, ReasonExpired:
		return http.StatusUnauthorized
	case ReasonActionNotPermitted, ReasonOutOfScope:
		return http.StatusForbidden
	case ReasonInvalidTransition:
		return http.StatusBadRequest
	default:
		return http.StatusForbidden
	}
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Admit returns an allowing decision.
func Admit() Decision {
	return Decision{Allowed: true}
}

// Deny returns a rejecting decision carrying a reason code and display text.
func Deny(reason Reason, message string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: message}
}
