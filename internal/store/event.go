package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cloudacct/accountsvc/types"
)

// EventRepository handles the append-only verification audit trail.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an audit row for a freshly issued token. The token
// column is unique; a collision fails the insert with ErrDuplicate
// rather than overwriting an existing row.
func (r *EventRepository) Create(ctx context.Context, event types.VerificationEvent) (types.VerificationEvent, error) {
	if event.SentAt.IsZero() {
		event.SentAt = time.Now()
	}
	if event.Status == "" {
		event.Status = types.EventStatusPending
	}

	const query = `
		INSERT INTO email_events (account_id, event_type, subject, token, expires_at, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		event.AccountID,
		event.EventType,
		event.Subject,
		event.Token,
		event.ExpiresAt,
		event.Status,
		event.SentAt,
	).Scan(&event.ID); err != nil {
		return types.VerificationEvent{}, mapUniqueViolation(err)
	}
	return event, nil
}

func (r *EventRepository) ListByAccount(ctx context.Context, accountID int64) ([]types.VerificationEvent, error) {
	const query = `
		SELECT id, account_id, event_type, subject, token, expires_at, status, sent_at
		FROM email_events
		WHERE account_id = $1
		ORDER BY sent_at DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.VerificationEvent
	for rows.Next() {
		var event types.VerificationEvent
		if err := rows.Scan(
			&event.ID,
			&event.AccountID,
			&event.EventType,
			&event.Subject,
			&event.Token,
			&event.ExpiresAt,
			&event.Status,
			&event.SentAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// MarkVerified advances pending audit rows for the account. The column
// is advisory; the authoritative flag lives on accounts.verified, so
// callers treat a failure here as a log-only condition.
func (r *EventRepository) MarkVerified(ctx context.Context, accountID int64) error {
	const query = `
		UPDATE email_events
		SET status = $1
		WHERE account_id = $2 AND status = $3`
	_, err := r.db.ExecContext(ctx, query, types.EventStatusVerified, accountID, types.EventStatusPending)
	return err
}
