package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cloudacct/accountsvc/internal/store"
	"github.com/cloudacct/accountsvc/internal/token"
	"github.com/cloudacct/accountsvc/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const verificationSubject = "Verify Your Email Address"

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	MarkVerified(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// EventRepository defines persistence operations for the audit trail.
type EventRepository interface {
	Create(ctx context.Context, event types.VerificationEvent) (types.VerificationEvent, error)
	MarkVerified(ctx context.Context, accountID int64) error
}

// Notifier abstracts the notification dispatcher.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	PublishEvent(ctx context.Context, subject string, payload any) error
}

// AccountService orchestrates account creation, token issuance, token
// redemption, and authentication. It is the only component allowed to
// flip the verified flag.
type AccountService struct {
	accounts AccountRepository
	events   EventRepository
	codec    token.Codec
	notifier Notifier

	verifyBaseURL string
	tokenTTL      time.Duration
	now           func() time.Time
	log           *logrus.Entry
}

type AccountServiceOption func(*AccountService)

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) AccountServiceOption {
	return func(s *AccountService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewAccountService(
	accounts AccountRepository,
	events EventRepository,
	codec token.Codec,
	notifier Notifier,
	verifyBaseURL string,
	tokenTTL time.Duration,
	logger *logrus.Logger,
	opts ...AccountServiceOption,
) *AccountService {
	svc := &AccountService{
		accounts:      accounts,
		events:        events,
		codec:         codec,
		notifier:      notifier,
		verifyBaseURL: strings.TrimRight(verifyBaseURL, "/"),
		tokenTTL:      tokenTTL,
		now:           time.Now,
		log:           logger.WithField("component", "accounts"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateAccount registers a new unverified account, issues a
// verification token, and announces the creation downstream. Email
// delivery is best-effort; a failed event publish rolls the whole
// creation back so no unverifiable orphan row survives.
func (s *AccountService) CreateAccount(ctx context.Context, email, rawPassword, firstName, lastName string) (types.Account, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return types.Account{}, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Account{}, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	account, err := s.accounts.Create(ctx, types.Account{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    firstName,
		LastName:     lastName,
		Verified:     false,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Account{}, ErrConflict
		}
		return types.Account{}, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	if _, err := s.IssueVerification(ctx, account); err != nil {
		s.rollbackCreation(ctx, account.ID)
		return types.Account{}, err
	}

	event := types.UserEvent{
		Action:    types.ActionUserCreation,
		Email:     account.Email,
		UserID:    account.ID,
		FirstName: account.FirstName,
		LastName:  account.LastName,
	}
	if err := s.notifier.PublishEvent(ctx, "New User Registration Notification", event); err != nil {
		s.rollbackCreation(ctx, account.ID)
		return types.Account{}, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	s.log.WithField("account_id", account.ID).Info("account created")
	return account, nil
}

// IssueVerification issues a fresh verification token for the account,
// records the audit row, and sends the verification email. The email
// is best-effort; the audit insert is not. Shared by the HTTP creation
// path and the async ingest worker.
func (s *AccountService) IssueVerification(ctx context.Context, account types.Account) (string, error) {
	now := s.now()
	tok, err := s.codec.Issue(account.ID, now)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependency, err)
	}

	if _, err := s.events.Create(ctx, types.VerificationEvent{
		AccountID: account.ID,
		EventType: types.EventTypeVerification,
		Subject:   verificationSubject,
		Token:     tok,
		ExpiresAt: now.Add(s.tokenTTL),
		Status:    types.EventStatusPending,
		SentAt:    now,
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependency, err)
	}

	link := fmt.Sprintf("%s/v1/verify?token=%s", s.verifyBaseURL, url.QueryEscape(tok))
	body := fmt.Sprintf(
		"Hello %s,\n\nPlease verify your email by clicking the link below. This link will expire in %s:\n%s\n\nThank you!\n",
		account.FirstName, s.tokenTTL, link,
	)
	if err := s.notifier.SendEmail(ctx, account.Email, verificationSubject, body); err != nil {
		s.log.WithError(err).WithField("account_id", account.ID).Warn("verification email not delivered")
	}

	return tok, nil
}

// RedeemToken validates the token and flips the subject account to
// verified. Redemption is idempotent: a second redeem of a still-valid
// token observes OutcomeAlreadyVerified and fires no side effects.
func (s *AccountService) RedeemToken(ctx context.Context, tok string) (VerificationOutcome, error) {
	subjectID, err := s.codec.Validate(tok, s.now())
	if err != nil {
		return 0, ErrInvalidToken
	}

	account, err := s.accounts.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	// Conditional update, not read-then-write: concurrent redemptions
	// race on the store's atomic flip and exactly one of them wins.
	flipped, err := s.accounts.MarkVerified(ctx, account.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	if !flipped {
		return OutcomeAlreadyVerified, nil
	}

	if err := s.events.MarkVerified(ctx, account.ID); err != nil {
		// Audit only; accounts.verified is the authoritative state.
		s.log.WithError(err).WithField("account_id", account.ID).Warn("audit status update failed")
	}

	event := types.UserEvent{
		Action:    types.ActionUserVerified,
		Email:     account.Email,
		UserID:    account.ID,
		FirstName: account.FirstName,
		LastName:  account.LastName,
	}
	if err := s.notifier.PublishEvent(ctx, "User Verified", event); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	s.log.WithField("account_id", account.ID).Info("account verified")
	return OutcomeVerified, nil
}

// Authenticate checks the credentials and requires a verified account.
// An unverified account with a correct password fails exactly like a
// wrong password.
func (s *AccountService) Authenticate(ctx context.Context, email, rawPassword string) (types.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrInvalidCredentials
		}
		return types.Account{}, fmt.Errorf("%w: %v", ErrDependency, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(rawPassword)); err != nil {
		return types.Account{}, ErrInvalidCredentials
	}

	if !account.Verified {
		s.log.WithField("email", email).Info("unverified account attempted to log in")
		return types.Account{}, ErrInvalidCredentials
	}

	return account, nil
}

// GetByID loads an account by id.
func (s *AccountService) GetByID(ctx context.Context, id int64) (types.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, fmt.Errorf("%w: %v", ErrDependency, err)
	}
	return account, nil
}

func (s *AccountService) rollbackCreation(ctx context.Context, id int64) {
	// The audit rows cascade with the account row.
	if err := s.accounts.Delete(ctx, id); err != nil {
		s.log.WithError(err).WithField("account_id", id).Error("creation rollback failed")
	}
}
