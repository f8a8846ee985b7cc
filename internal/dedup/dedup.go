// Package dedup keeps track of which jobs were already delivered to a user.
package dedup

import (
	"context"
	"fmt"

	"github.com/spigell/job-alerter/internal/posting"
)

// Store persists sent (user, job) pairs.
type Store interface {
	SentJobIDs(ctx context.Context, userID int64) ([]int64, error)
	RecordSent(ctx context.Context, userID int64, jobIDs []int64) error
}

type Tracker struct {
	store Store
}

func New(store Store) *Tracker {
	return &Tracker{store: store}
}

// Candidates returns the jobs from recent that were never sent to the user.
// The order of recent is preserved.
func (t *Tracker) Candidates(ctx context.Context, userID int64, recent []*posting.Job) ([]*posting.Job, error) {
	if len(recent) == 0 {
		return nil, nil
	}

	ids, err := t.store.SentJobIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sent jobs for user %d: %w", userID, err)
	}

	sent := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}

	out := make([]*posting.Job, 0, len(recent))
	for _, job := range recent {
		if job == nil {
			continue
		}
		if _, ok := sent[job.ID]; ok {
			continue
		}
		out = append(out, job)
	}

	return out, nil
}

// RecordSent marks jobs as delivered to the user. Recording a pair twice is
// not an error.
func (t *Tracker) RecordSent(ctx context.Context, userID int64, jobs []*posting.Job) error {
	ids := posting.IDs(jobs)
	if len(ids) == 0 {
		return nil
	}

	if err := t.store.RecordSent(ctx, userID, ids); err != nil {
		return fmt.Errorf("record sent jobs for user %d: %w", userID, err)
	}

	return nil
}
