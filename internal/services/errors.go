package services

import "errors"

// Typed outcomes surfaced to callers. The HTTP layer maps these to
// status codes; the worker records them per record.
var (
	// ErrConflict reports a duplicate email at account creation.
	ErrConflict = errors.New("email already registered")

	// ErrInvalidToken reports a malformed or expired verification token.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrNotFound reports an unknown account or object.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials reports a failed authentication. Unverified
	// accounts fail with the same error as a wrong password so the
	// verification state is not leaked.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDependency reports an unreachable or failing dependency
	// (store, secrets, event publish).
	ErrDependency = errors.New("dependency failure")
)

// VerificationOutcome is the result of a token redemption.
type VerificationOutcome int

// The zero value is deliberately not a valid outcome, so an outcome
// returned alongside an error can never read as "verified".
const (
	// OutcomeVerified means this call flipped the account to verified.
	OutcomeVerified VerificationOutcome = iota + 1
	// OutcomeAlreadyVerified means the account was verified before this
	// call; redemption is an idempotent no-op.
	OutcomeAlreadyVerified
)

func (o VerificationOutcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeAlreadyVerified:
		return "already_verified"
	default:
		return "unknown"
	}
}
