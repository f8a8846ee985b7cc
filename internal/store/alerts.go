package store

import (
	"context"
	"fmt"
)

// SentJobIDs returns the ids of every job already sent to the user.
func (s *Store) SentJobIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, s.q(`SELECT job_id FROM sent_alerts WHERE user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("fetch sent alerts for user %d: %w", userID, err)
	}
	return ids, nil
}

// RecordSent stores one alert row per job. Existing pairs are left untouched.
func (s *Store) RecordSent(ctx context.Context, userID int64, jobIDs []int64) error {
	if len(jobIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := s.q(`INSERT INTO sent_alerts (user_id, job_id) VALUES (?, ?) ON CONFLICT (user_id, job_id) DO NOTHING`)
	for _, id := range jobIDs {
		if _, err := tx.ExecContext(ctx, query, userID, id); err != nil {
			return fmt.Errorf("record alert for user %d job %d: %w", userID, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
