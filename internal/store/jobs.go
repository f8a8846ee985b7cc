package store

import (
	"context"
	"fmt"

	"github.com/spigell/job-alerter/internal/posting"
)

const jobColumns = "id, title, company, location, field, experience, description, url"

// UpsertJob stores the job unless one with the same url exists. It reports
// whether a new row was written and sets job.ID either way.
func (s *Store) UpsertJob(ctx context.Context, job *posting.Job) (bool, error) {
	if job == nil || job.URL == "" {
		return false, fmt.Errorf("job url is required")
	}

	var id int64
	err := s.db.GetContext(ctx, &id, s.q(`
		INSERT INTO jobs (title, company, location, field, experience, description, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`),
		job.Title, job.Company, job.Location, job.Field, job.Experience, job.Description, job.URL,
	)
	if err == nil {
		job.ID = id
		return true, nil
	}
	if !isNoRows(err) {
		return false, fmt.Errorf("insert job %s: %w", job.URL, err)
	}

	if err := s.db.GetContext(ctx, &id, s.q(`SELECT id FROM jobs WHERE url = ?`), job.URL); err != nil {
		return false, fmt.Errorf("lookup job %s: %w", job.URL, err)
	}
	job.ID = id

	return false, nil
}

// FetchRecentJobs returns up to limit jobs, newest first.
func (s *Store) FetchRecentJobs(ctx context.Context, limit int) ([]*posting.Job, error) {
	if limit <= 0 {
		return nil, nil
	}

	var jobs []*posting.Job
	err := s.db.SelectContext(ctx, &jobs, s.q(`SELECT `+jobColumns+` FROM jobs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent jobs: %w", err)
	}

	return jobs, nil
}
