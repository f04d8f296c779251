package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/hsewatch/internal/domain"
)

const tryAcquireLeaseQuery = `
INSERT INTO run_leases (run_type, holder_id, acquired_at, expires_at)
VALUES (?1, ?2, ?3, ?4)
ON CONFLICT (run_type) DO UPDATE
SET holder_id = excluded.holder_id,
    acquired_at = excluded.acquired_at,
    expires_at = excluded.expires_at
WHERE run_leases.expires_at < excluded.acquired_at
   OR run_leases.holder_id = excluded.holder_id
RETURNING holder_id`

// TryAcquireRunLease attempts to take the exclusive lease for runType.
func (s *Store) TryAcquireRunLease(ctx context.Context, runType, holderID string, lease time.Duration) (release func(), acquired bool, err error) {
	now := time.Now()

	var holder string
	err = s.db.QueryRowContext(ctx, tryAcquireLeaseQuery,
		runType, holderID, formatTimestamp(now), formatTimestamp(now.Add(lease))).Scan(&holder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to acquire lease: %w", err)
	}

	if holder != holderID {
		return nil, false, nil
	}

	releaseFunc := func() {
		_, err := s.db.ExecContext(context.Background(),
			`DELETE FROM run_leases WHERE run_type = ? AND holder_id = ?`, runType, holderID)
		if err != nil {
			slog.Error("failed to release run lease", "run_type", runType, "error", err)
		}
	}

	return releaseFunc, true, nil
}

// ExtendRunLease moves the expiry of a lease still held by holderID.
func (s *Store) ExtendRunLease(ctx context.Context, runType, holderID string, lease time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_leases SET expires_at = ? WHERE run_type = ? AND holder_id = ?`,
		formatTimestamp(time.Now().Add(lease)), runType, holderID)
	if err != nil {
		return fmt.Errorf("failed to extend lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to extend lease: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunLeaseLost, runType)
	}
	return nil
}
