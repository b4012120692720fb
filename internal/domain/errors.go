package domain

import "errors"

// Error kinds. Every error returned by the service layer unwraps to exactly one
// of these so the transport can pick a status code.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStore        = errors.New("store failure")
)

// Error carries a stable machine-readable code next to a client-safe message.
// Two Errors match under errors.Is when their codes are equal, so a copy made
// with WithMessage still matches the sentinel it came from.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: msg}
}

var (
	ErrInvalidAmount    = &Error{Kind: ErrValidation, Code: "InvalidAmount", Message: "amount must equal the tranche fee"}
	ErrInvalidTranche   = &Error{Kind: ErrValidation, Code: "InvalidTranche", Message: "tranche must be 1 or 2"}
	ErrInvalidDecision  = &Error{Kind: ErrValidation, Code: "InvalidDecision", Message: "decision must be validated or rejected"}
	ErrInvalidMatricule = &Error{Kind: ErrValidation, Code: "InvalidMatricule", Message: "matricule must be at least 3 alphanumeric characters"}
	ErrInvalidRequest   = &Error{Kind: ErrValidation, Code: "InvalidRequest", Message: "invalid request"}
	ErrUnknownField     = &Error{Kind: ErrValidation, Code: "UnknownField", Message: "request contains a field that cannot be updated"}
	ErrEmptyPatch       = &Error{Kind: ErrValidation, Code: "EmptyPatch", Message: "no field to update"}

	ErrStudentNotFound = &Error{Kind: ErrNotFound, Code: "StudentNotFound", Message: "student not found"}
	ErrPaymentNotFound = &Error{Kind: ErrNotFound, Code: "PaymentNotFound", Message: "payment not found"}

	ErrDuplicatePayment   = &Error{Kind: ErrConflict, Code: "DuplicatePayment", Message: "an active payment already exists for this tranche and academic year"}
	ErrAlreadyDecided     = &Error{Kind: ErrConflict, Code: "AlreadyDecided", Message: "payment has already been decided"}
	ErrDuplicateMatricule = &Error{Kind: ErrConflict, Code: "DuplicateMatricule", Message: "a student with this matricule already exists"}

	ErrInvalidToken       = &Error{Kind: ErrUnauthorized, Code: "Unauthorized", Message: "missing or invalid authentication token"}
	ErrWrongRole          = &Error{Kind: ErrUnauthorized, Code: "RoleDenied", Message: "access denied"}
	ErrInvalidCredentials = &Error{Kind: ErrUnauthorized, Code: "InvalidCredentials", Message: "invalid credentials"}
)

// CodeOf returns the stable code carried by err, or an empty string.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// MessageOf returns the client-safe message carried by err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
