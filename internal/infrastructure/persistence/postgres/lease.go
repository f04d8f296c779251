package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/hsewatch/internal/domain"
)

// tryAcquireLeaseQuery takes the lease when it is free, expired, or already
// ours. A live lease held by someone else leaves the row untouched and
// returns no rows.
const tryAcquireLeaseQuery = `
INSERT INTO run_leases (run_type, holder_id, acquired_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (run_type) DO UPDATE
SET holder_id = EXCLUDED.holder_id,
    acquired_at = EXCLUDED.acquired_at,
    expires_at = EXCLUDED.expires_at
WHERE run_leases.expires_at < EXCLUDED.acquired_at
   OR run_leases.holder_id = EXCLUDED.holder_id
RETURNING holder_id`

// TryAcquireRunLease attempts to take the exclusive lease for runType.
func (s *Store) TryAcquireRunLease(ctx context.Context, runType, holderID string, lease time.Duration) (release func(), acquired bool, err error) {
	now := time.Now().UTC()

	var holder string
	err = s.db.QueryRow(ctx, tryAcquireLeaseQuery, runType, holderID, now, now.Add(lease)).Scan(&holder)
	if err != nil {
		// No rows means the lease is held by another run - normal contention
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to acquire lease: %w", err)
	}

	if holder != holderID {
		return nil, false, nil
	}

	releaseFunc := func() {
		_, err := s.db.Exec(context.Background(),
			`DELETE FROM run_leases WHERE run_type = $1 AND holder_id = $2`, runType, holderID)
		if err != nil {
			slog.Error("failed to release run lease", "run_type", runType, "error", err)
		}
	}

	return releaseFunc, true, nil
}

// ExtendRunLease moves the expiry of a lease still held by holderID.
func (s *Store) ExtendRunLease(ctx context.Context, runType, holderID string, lease time.Duration) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE run_leases SET expires_at = $3 WHERE run_type = $1 AND holder_id = $2`,
		runType, holderID, time.Now().UTC().Add(lease))
	if err != nil {
		return fmt.Errorf("failed to extend lease: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunLeaseLost, runType)
	}
	return nil
}
