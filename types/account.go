package types

import "time"

// Account represents a user account in the system.
// It contains identity, credential, and audit metadata.
type Account struct {
	// ID is the unique identifier of the account.
	ID int64 `json:"id" db:"id"`

	// Email is the account's unique email address, stored as given.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the salted one-way hash of the password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// FirstName is the account holder's first name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the account holder's last name.
	LastName string `json:"last_name" db:"last_name"`

	// Verified reports whether the email address has been confirmed.
	// It transitions false to true exactly once and never back.
	Verified bool `json:"verified" db:"verified"`

	// AccountCreated is the timestamp when the account was created.
	AccountCreated time.Time `json:"account_created" db:"account_created"`

	// AccountUpdated is the timestamp of the most recent mutation.
	AccountUpdated time.Time `json:"account_updated" db:"account_updated"`
}
