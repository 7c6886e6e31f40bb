package outboxdb

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	dberrs "github.com/agrolink/geo-discovery-service/internal/platform/db/errs"
)

type Repository struct {
	exec sqlx.ExtContext
}

func New(exec sqlx.ExtContext) *Repository { return &Repository{exec: exec} }

// Enqueue records an event in the same transaction as the domain write
// that produced it.
func (r *Repository) Enqueue(ctx context.Context, eventType, payloadJSON string) error {
	const op = "outbox.repo.enqueue"

	const q = `
        INSERT INTO location_event_outbox (event_type, payload, status, attempts, next_attempt_at, created_at, updated_at)
        VALUES ($1, $2::jsonb, 'pending', 0, NOW(), NOW(), NOW());
    `
	if _, err := r.exec.ExecContext(ctx, q, eventType, payloadJSON); err != nil {
		return dberrs.Map(err, op)
	}
	return nil
}

type Event struct {
	ID          int64  `db:"id"`
	EventType   string `db:"event_type"`
	PayloadJSON string `db:"payload"`
	Attempts    int    `db:"attempts"`
}

// ClaimBatch claims up to limit due events, skipping rows already
// locked by a competing relay instance.
func (r *Repository) ClaimBatch(ctx context.Context, limit int) ([]Event, error) {
	const op = "outbox.repo.claim_batch"

	const q = `
        WITH claimed AS (
            UPDATE location_event_outbox
            SET status = 'processing',
                attempts = attempts + 1,
                updated_at = NOW()
            WHERE id IN (
                SELECT id
                FROM location_event_outbox
                WHERE status = 'pending' AND next_attempt_at <= NOW()
                ORDER BY id
                FOR UPDATE SKIP LOCKED
                LIMIT $1
            )
            RETURNING id, event_type, payload, attempts
        )
        SELECT id, event_type, payload, attempts FROM claimed ORDER BY id;
    `

	var events []Event
	if err := sqlx.SelectContext(ctx, r.exec, &events, q, limit); err != nil {
		return nil, dberrs.Map(err, op)
	}
	return events, nil
}

func (r *Repository) MarkDispatchedBatch(ctx context.Context, ids []int64) error {
	const op = "outbox.repo.mark_dispatched_batch"

	if len(ids) == 0 {
		return nil
	}

	q, args, err := sqlx.In(`
        UPDATE location_event_outbox
        SET status = 'dispatched', updated_at = NOW()
        WHERE id IN (?);
    `, ids)
	if err != nil {
		return dberrs.Map(err, op)
	}

	q = sqlx.Rebind(sqlx.DOLLAR, q)
	if _, err := r.exec.ExecContext(ctx, q, args...); err != nil {
		return dberrs.Map(err, op)
	}
	return nil
}

func (r *Repository) MarkRetryBatch(ctx context.Context, ids []int64, nextAttemptAt time.Time, lastErr string) error {
	const op = "outbox.repo.mark_retry_batch"

	if len(ids) == 0 {
		return nil
	}

	q, args, err := sqlx.In(`
        UPDATE location_event_outbox
        SET status = 'pending',
            next_attempt_at = ?,
            last_error = ?,
            updated_at = NOW()
        WHERE id IN (?);
    `, nextAttemptAt, lastErr, ids)
	if err != nil {
		return dberrs.Map(err, op)
	}

	q = sqlx.Rebind(sqlx.DOLLAR, q)
	if _, err := r.exec.ExecContext(ctx, q, args...); err != nil {
		return dberrs.Map(err, op)
	}
	return nil
}

func (r *Repository) MarkDead(ctx context.Context, id int64, lastErr string) error {
	const op = "outbox.repo.mark_dead"

	const q = `
        UPDATE location_event_outbox
        SET status = 'dead',
            last_error = $2,
            updated_at = NOW()
        WHERE id = $1;
    `
	if _, err := r.exec.ExecContext(ctx, q, id, lastErr); err != nil {
		return dberrs.Map(err, op)
	}
	return nil
}
