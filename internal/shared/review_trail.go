package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewAction enumerates review trail actions.
type ReviewAction string

const (
	// ReviewSubmit marks the initial submission of an entity for review.
	ReviewSubmit ReviewAction = "SUBMIT"
	// ReviewApprove marks an approval.
	ReviewApprove ReviewAction = "APPROVE"
	// ReviewReject marks a rejection.
	ReviewReject ReviewAction = "REJECT"
)

// ReviewEntry represents a single review trail record.
type ReviewEntry struct {
	ID      int64
	Module  string
	RefID   uuid.UUID
	ActorID int64
	Action  ReviewAction
	Note    string
	At      time.Time
}

// ReviewTrail persists who approved or rejected what, and when.
type ReviewTrail struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewReviewTrail constructs ReviewTrail.
func NewReviewTrail(pool *pgxpool.Pool, logger *slog.Logger) *ReviewTrail {
	return &ReviewTrail{pool: pool, logger: logger}
}

// Record writes a review entry to the database.
func (r *ReviewTrail) Record(ctx context.Context, entry ReviewEntry) error {
	if r == nil {
		return errors.New("review trail not initialised")
	}
	if entry.Module == "" {
		return errors.New("review module required")
	}
	if entry.ActorID == 0 {
		return errors.New("review actor required")
	}
	if entry.RefID == uuid.Nil {
		return errors.New("review ref id required")
	}
	if entry.Action == "" {
		return errors.New("review action required")
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO review_trail (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, $6)`, entry.Module, entry.RefID, entry.ActorID, string(entry.Action), entry.Note, orNow(entry.At))
	if err != nil {
		r.logger.Error("record review entry", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns the trail for a module/ref ordered oldest first.
func (r *ReviewTrail) List(ctx context.Context, module string, ref uuid.UUID) ([]ReviewEntry, error) {
	if r == nil {
		return nil, errors.New("review trail not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, ref_id, actor_id, action, note, at
FROM review_trail WHERE module=$1 AND ref_id=$2 ORDER BY at ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ReviewEntry
	for rows.Next() {
		var e ReviewEntry
		var action string
		if err := rows.Scan(&e.ID, &e.Module, &e.RefID, &e.ActorID, &action, &e.Note, &e.At); err != nil {
			return nil, err
		}
		e.Action = ReviewAction(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
