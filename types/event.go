package types

import "time"

// Verification event statuses. Status is advisory: the authoritative
// verification state lives on Account.Verified.
const (
	EventStatusPending  = "pending"
	EventStatusVerified = "verified"
	EventStatusExpired  = "expired"
)

// EventTypeVerification tags verification-email audit rows.
const EventTypeVerification = "verification"

// Actions carried by published user events.
const (
	ActionUserCreation = "user_creation"
	ActionUserVerified = "user_verified"
)

// UserEvent is the JSON payload published to the downstream event
// topic when an account is created or verified.
type UserEvent struct {
	Action    string `json:"action"`
	Email     string `json:"email"`
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// VerificationEvent is an append-only audit record written whenever a
// verification token is issued for an account.
type VerificationEvent struct {
	// ID is the unique identifier of the audit row.
	ID int64 `json:"id" db:"id"`

	// AccountID references the owning account. Rows are removed
	// together with the account.
	AccountID int64 `json:"account_id" db:"account_id"`

	// EventType tags the kind of email that was sent.
	EventType string `json:"event_type" db:"event_type"`

	// Subject is the subject line of the email.
	Subject string `json:"subject" db:"subject"`

	// Token is the issued verification token. Unique, so a token can
	// never be recorded twice.
	Token string `json:"token" db:"token"`

	// ExpiresAt is the instant after which the token is no longer valid.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// Status is one of pending, verified, or expired.
	Status string `json:"status" db:"status"`

	// SentAt is the timestamp when the token was issued.
	SentAt time.Time `json:"sent_at" db:"sent_at"`
}
