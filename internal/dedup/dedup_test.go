package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/job-alerter/internal/posting"
)

type memoryStore struct {
	sent    map[int64]map[int64]struct{}
	records int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sent: make(map[int64]map[int64]struct{})}
}

func (m *memoryStore) SentJobIDs(_ context.Context, userID int64) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	var ids []int64
	for id := range m.sent[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memoryStore) RecordSent(_ context.Context, userID int64, jobIDs []int64) error {
	m.records++
	if m.sent[userID] == nil {
		m.sent[userID] = make(map[int64]struct{})
	}
	for _, id := range jobIDs {
		m.sent[userID][id] = struct{}{}
	}
	return nil
}

func jobs(ids ...int64) []*posting.Job {
	out := make([]*posting.Job, 0, len(ids))
	for _, id := range ids {
		out = append(out, &posting.Job{ID: id})
	}
	return out
}

func TestCandidatesExcludesSentAndKeepsOrder(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.sent[1] = map[int64]struct{}{2: {}, 4: {}}
	tracker := New(store)

	got, err := tracker.Candidates(context.Background(), 1, jobs(5, 4, 3, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int64{5, 3, 1}
	if ids := posting.IDs(got); len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	} else {
		for i := range want {
			if ids[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, ids)
			}
		}
	}
}

func TestCandidatesAreEmptyAfterRecordSent(t *testing.T) {
	t.Parallel()

	tracker := New(newMemoryStore())
	recent := jobs(10, 11, 12)

	if err := tracker.RecordSent(context.Background(), 7, recent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := tracker.Candidates(context.Background(), 7, recent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", posting.IDs(got))
	}

	other, err := tracker.Candidates(context.Background(), 8, recent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other) != len(recent) {
		t.Fatal("sent state must not leak to other users")
	}
}

func TestRecordSentEmptyIsNoop(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	if err := New(store).RecordSent(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.records != 0 {
		t.Fatal("expected store not to be touched")
	}
}

func TestCandidatesPropagatesStoreError(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.err = errors.New("db down")

	if _, err := New(store).Candidates(context.Background(), 1, jobs(1)); !errors.Is(err, store.err) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
