package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cloudacct/accountsvc/internal/store"
	"github.com/cloudacct/accountsvc/internal/token"
	"github.com/cloudacct/accountsvc/types"
)

var testClock = time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

type fakeAccountRepo struct {
	accounts map[int64]types.Account
	nextID   int64
	deleted  []int64

	createErr       error
	markVerifiedErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[int64]types.Account{}, nextID: 1}
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (types.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (r *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (r *fakeAccountRepo) Create(ctx context.Context, account types.Account) (types.Account, error) {
	if r.createErr != nil {
		return types.Account{}, r.createErr
	}
	account.ID = r.nextID
	r.nextID++
	r.accounts[account.ID] = account
	return account, nil
}

func (r *fakeAccountRepo) MarkVerified(ctx context.Context, id int64) (bool, error) {
	if r.markVerifiedErr != nil {
		return false, r.markVerifiedErr
	}
	account, ok := r.accounts[id]
	if !ok || account.Verified {
		return false, nil
	}
	account.Verified = true
	r.accounts[id] = account
	return true, nil
}

func (r *fakeAccountRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.accounts, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeEventRepo struct {
	rows      []types.VerificationEvent
	verified  []int64
	createErr error
	markErr   error
}

func (r *fakeEventRepo) Create(ctx context.Context, event types.VerificationEvent) (types.VerificationEvent, error) {
	if r.createErr != nil {
		return types.VerificationEvent{}, r.createErr
	}
	event.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, event)
	return event, nil
}

func (r *fakeEventRepo) MarkVerified(ctx context.Context, accountID int64) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.verified = append(r.verified, accountID)
	return nil
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

type publishedEvent struct {
	subject string
	payload any
}

type fakeNotifier struct {
	emails     []sentEmail
	events     []publishedEvent
	emailErr   error
	publishErr error
}

func (n *fakeNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if n.emailErr != nil {
		return n.emailErr
	}
	n.emails = append(n.emails, sentEmail{to: to, subject: subject, body: body})
	return nil
}

func (n *fakeNotifier) PublishEvent(ctx context.Context, subject string, payload any) error {
	if n.publishErr != nil {
		return n.publishErr
	}
	n.events = append(n.events, publishedEvent{subject: subject, payload: payload})
	return nil
}

type accountFixture struct {
	svc      *AccountService
	accounts *fakeAccountRepo
	events   *fakeEventRepo
	notifier *fakeNotifier
	codec    token.Codec
}

func newAccountFixture(t *testing.T, opts ...AccountServiceOption) *accountFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	accounts := newFakeAccountRepo()
	events := &fakeEventRepo{}
	notifier := &fakeNotifier{}
	codec := token.NewJWTCodec([]byte("test-secret"), 2*time.Minute)

	opts = append([]AccountServiceOption{WithClock(func() time.Time { return testClock })}, opts...)
	svc := NewAccountService(accounts, events, codec, notifier, "http://localhost:8080", 2*time.Minute, logger, opts...)

	return &accountFixture{
		svc:      svc,
		accounts: accounts,
		events:   events,
		notifier: notifier,
		codec:    codec,
	}
}

func TestCreateAccount(t *testing.T) {
	f := newAccountFixture(t)

	account, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.ID)
	assert.False(t, account.Verified)

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("s3cret!")))

	require.Len(t, f.events.rows, 1)
	row := f.events.rows[0]
	assert.Equal(t, account.ID, row.AccountID)
	assert.Equal(t, types.EventStatusPending, row.Status)
	assert.Equal(t, testClock.Add(2*time.Minute), row.ExpiresAt)

	subject, err := f.codec.Validate(row.Token, testClock)
	require.NoError(t, err)
	assert.Equal(t, account.ID, subject)

	require.Len(t, f.notifier.emails, 1)
	assert.Equal(t, "jane@example.com", f.notifier.emails[0].to)
	assert.Contains(t, f.notifier.emails[0].body, "/v1/verify?token=")

	require.Len(t, f.notifier.events, 1)
	payload, ok := f.notifier.events[0].payload.(types.UserEvent)
	require.True(t, ok)
	assert.Equal(t, types.ActionUserCreation, payload.Action)
	assert.Equal(t, account.ID, payload.UserID)
}

func TestCreateAccountConflict(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)

	_, err = f.svc.CreateAccount(context.Background(), "jane@example.com", "other", "Janet", "Doe")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateAccountRollsBackOnPublishFailure(t *testing.T) {
	f := newAccountFixture(t)
	f.notifier.publishErr = errors.New("broker down")

	_, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	assert.ErrorIs(t, err, ErrDependency)

	assert.Empty(t, f.accounts.accounts)
	assert.Equal(t, []int64{1}, f.accounts.deleted)
}

func TestCreateAccountRollsBackOnAuditFailure(t *testing.T) {
	f := newAccountFixture(t)
	f.events.createErr = errors.New("insert failed")

	_, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	assert.ErrorIs(t, err, ErrDependency)
	assert.Empty(t, f.accounts.accounts)
}

func TestCreateAccountSucceedsWhenEmailFails(t *testing.T) {
	f := newAccountFixture(t)
	f.notifier.emailErr = errors.New("smtp down")

	account, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)
	assert.NotZero(t, account.ID)
	assert.Len(t, f.notifier.events, 1)
}

func TestRedeemToken(t *testing.T) {
	f := newAccountFixture(t)

	account, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)
	tok := f.events.rows[0].Token

	outcome, err := f.svc.RedeemToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, outcome)

	assert.True(t, f.accounts.accounts[account.ID].Verified)
	assert.Equal(t, []int64{account.ID}, f.events.verified)

	require.Len(t, f.notifier.events, 2)
	payload, ok := f.notifier.events[1].payload.(types.UserEvent)
	require.True(t, ok)
	assert.Equal(t, types.ActionUserVerified, payload.Action)
}

func TestRedeemTokenIdempotent(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)
	tok := f.events.rows[0].Token

	outcome, err := f.svc.RedeemToken(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, OutcomeVerified, outcome)
	eventsAfterFirst := len(f.notifier.events)

	outcome, err = f.svc.RedeemToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyVerified, outcome)

	// The second redemption is a read-only observation.
	assert.Len(t, f.notifier.events, eventsAfterFirst)
	assert.Len(t, f.events.verified, 1)
}

func TestRedeemTokenExpired(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)
	tok := f.events.rows[0].Token

	late := newAccountFixture(t, WithClock(func() time.Time { return testClock.Add(3 * time.Minute) }))
	late.accounts.accounts = f.accounts.accounts

	_, err = late.svc.RedeemToken(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, late.accounts.accounts[1].Verified)
}

func TestRedeemTokenGarbage(t *testing.T) {
	f := newAccountFixture(t)

	outcome, err := f.svc.RedeemToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotEqual(t, OutcomeVerified, outcome)
	assert.Empty(t, f.notifier.events)
}

func TestVerificationOutcomeZeroValue(t *testing.T) {
	var zero VerificationOutcome
	assert.NotEqual(t, OutcomeVerified, zero)
	assert.NotEqual(t, OutcomeAlreadyVerified, zero)
	assert.Equal(t, "unknown", zero.String())
}

func TestRedeemTokenUnknownAccount(t *testing.T) {
	f := newAccountFixture(t)

	tok, err := f.codec.Issue(404, testClock)
	require.NoError(t, err)

	_, err = f.svc.RedeemToken(context.Background(), tok)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemTokenPublishFailure(t *testing.T) {
	f := newAccountFixture(t)

	account, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)
	tok := f.events.rows[0].Token

	f.notifier.publishErr = errors.New("broker down")
	_, err = f.svc.RedeemToken(context.Background(), tok)
	assert.ErrorIs(t, err, ErrDependency)

	// The flip itself is durable; only the announcement failed.
	assert.True(t, f.accounts.accounts[account.ID].Verified)
}

func TestIssueVerificationSharedPath(t *testing.T) {
	f := newAccountFixture(t)
	account := types.Account{ID: 55, Email: "queued@example.com", FirstName: "Quinn"}
	f.accounts.accounts[account.ID] = account

	tok, err := f.svc.IssueVerification(context.Background(), account)
	require.NoError(t, err)

	subject, err := f.codec.Validate(tok, testClock)
	require.NoError(t, err)
	assert.Equal(t, account.ID, subject)

	require.Len(t, f.events.rows, 1)
	assert.Equal(t, account.ID, f.events.rows[0].AccountID)
	require.Len(t, f.notifier.emails, 1)
	assert.Equal(t, "queued@example.com", f.notifier.emails[0].to)
	assert.Empty(t, f.notifier.events)
}

func TestAuthenticate(t *testing.T) {
	f := newAccountFixture(t)

	created, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), "jane@example.com", "s3cret!")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unverified account must not authenticate")

	_, err = f.svc.RedeemToken(context.Background(), f.events.rows[0].Token)
	require.NoError(t, err)

	account, err := f.svc.Authenticate(context.Background(), "jane@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)

	_, err = f.svc.Authenticate(context.Background(), "jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Authenticate(context.Background(), "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetByID(t *testing.T) {
	f := newAccountFixture(t)

	created, err := f.svc.CreateAccount(context.Background(), "jane@example.com", "s3cret!", "Jane", "Doe")
	require.NoError(t, err)

	account, err := f.svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", account.Email)

	_, err = f.svc.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
