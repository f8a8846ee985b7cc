package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spigell/job-alerter/internal/posting"
)

type userRow struct {
	UserID      int64           `db:"user_id"`
	Profession  string          `db:"profession"`
	Experience  string          `db:"experience"`
	Preferences string          `db:"preferences"`
	Lat         sql.NullFloat64 `db:"lat"`
	Lon         sql.NullFloat64 `db:"lon"`
}

func (r userRow) profile() *posting.Profile {
	p := &posting.Profile{
		UserID:      r.UserID,
		Profession:  r.Profession,
		Experience:  r.Experience,
		Preferences: r.Preferences,
	}
	if r.Lat.Valid && r.Lon.Valid {
		p.Location = &posting.Location{Lat: r.Lat.Float64, Lon: r.Lon.Float64}
	}
	return p
}

// SaveUser creates or replaces a user profile.
func (s *Store) SaveUser(ctx context.Context, p *posting.Profile) error {
	if p == nil || p.UserID == 0 {
		return fmt.Errorf("user id is required")
	}

	var lat, lon sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: p.Location.Lon, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (user_id, profession, experience, preferences, lat, lon)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			profession = excluded.profession,
			experience = excluded.experience,
			preferences = excluded.preferences,
			lat = excluded.lat,
			lon = excluded.lon`),
		p.UserID, p.Profession, p.Experience, p.Preferences, lat, lon,
	)
	if err != nil {
		return fmt.Errorf("save user %d: %w", p.UserID, err)
	}
	return nil
}

// FetchUsers returns every stored profile ordered by user id.
func (s *Store) FetchUsers(ctx context.Context) ([]*posting.Profile, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT user_id, profession, experience, preferences, lat, lon FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}

	profiles := make([]*posting.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.profile())
	}
	return profiles, nil
}
