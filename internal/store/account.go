package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudacct/accountsvc/types"
)

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (types.Account, error) {
	const query = `
		SELECT id, email, password_hash, first_name, last_name, verified, account_created, account_updated
		FROM accounts
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	const query = `
		SELECT id, email, password_hash, first_name, last_name, verified, account_created, account_updated
		FROM accounts
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := time.Now()
	account.AccountCreated = now
	account.AccountUpdated = now

	const query = `
		INSERT INTO accounts (email, password_hash, first_name, last_name, verified, account_created, account_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Verified,
		account.AccountCreated,
		account.AccountUpdated,
	).Scan(&account.ID); err != nil {
		return types.Account{}, mapUniqueViolation(err)
	}
	return account, nil
}

// MarkVerified flips the verified flag with an atomic conditional
// update. It returns false without error when the flag was already set,
// which callers treat as the idempotent already-verified outcome.
func (r *AccountRepository) MarkVerified(ctx context.Context, id int64) (bool, error) {
	const query = `
		UPDATE accounts
		SET verified = TRUE,
			account_updated = $1
		WHERE id = $2 AND verified = FALSE`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM accounts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) scanOne(row *sql.Row) (types.Account, error) {
	var account types.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Verified,
		&account.AccountCreated,
		&account.AccountUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}
