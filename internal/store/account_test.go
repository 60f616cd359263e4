package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudacct/accountsvc/types"
)

var accountColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "verified", "account_created", "account_updated",
}

func newAccountRepo(t *testing.T) (*AccountRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewAccountRepository(db), mock
}

func TestAccountGetByEmail(t *testing.T) {
	repo, mock := newAccountRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, email, password_hash, first_name, last_name, verified, account_created, account_updated FROM accounts WHERE email = \\$1").
		WithArgs("jane@example.com").
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(1), "jane@example.com", "hash", "Jane", "Doe", false, now, now))

	account, err := repo.GetByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.ID)
	assert.Equal(t, "jane@example.com", account.Email)
	assert.False(t, account.Verified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountGetByIDNotFound(t *testing.T) {
	repo, mock := newAccountRepo(t)

	mock.ExpectQuery("SELECT id, email, password_hash, first_name, last_name, verified, account_created, account_updated FROM accounts WHERE id = \\$1").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreate(t *testing.T) {
	repo, mock := newAccountRepo(t)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("jane@example.com", "hash", "Jane", "Doe", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	account, err := repo.Create(context.Background(), types.Account{
		Email:        "jane@example.com",
		PasswordHash: "hash",
		FirstName:    "Jane",
		LastName:     "Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), account.ID)
	assert.False(t, account.AccountCreated.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreateDuplicateEmail(t *testing.T) {
	repo, mock := newAccountRepo(t)

	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "accounts_email_key"})

	_, err := repo.Create(context.Background(), types.Account{Email: "jane@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountMarkVerified(t *testing.T) {
	repo, mock := newAccountRepo(t)

	mock.ExpectExec("UPDATE accounts SET verified = TRUE").
		WithArgs(sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	flipped, err := repo.MarkVerified(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, flipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountMarkVerifiedAlreadySet(t *testing.T) {
	repo, mock := newAccountRepo(t)

	mock.ExpectExec("UPDATE accounts SET verified = TRUE").
		WithArgs(sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	flipped, err := repo.MarkVerified(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, flipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountDelete(t *testing.T) {
	repo, mock := newAccountRepo(t)

	mock.ExpectExec("DELETE FROM accounts WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountDeleteMissing(t *testing.T) {
	repo, mock := newAccountRepo(t)

	mock.ExpectExec("DELETE FROM accounts WHERE id = \\$1").
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
