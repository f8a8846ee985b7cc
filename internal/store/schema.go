package store

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		field TEXT NOT NULL DEFAULT '',
		experience TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		profession TEXT NOT NULL DEFAULT '',
		experience TEXT NOT NULL DEFAULT '',
		preferences TEXT NOT NULL DEFAULT '',
		lat REAL,
		lon REAL
	)`,
	`CREATE TABLE IF NOT EXISTS sent_alerts (
		user_id INTEGER NOT NULL,
		job_id INTEGER NOT NULL REFERENCES jobs(id),
		sent_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, job_id)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		field TEXT NOT NULL DEFAULT '',
		experience TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		profession TEXT NOT NULL DEFAULT '',
		experience TEXT NOT NULL DEFAULT '',
		preferences TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS sent_alerts (
		user_id BIGINT NOT NULL,
		job_id BIGINT NOT NULL REFERENCES jobs(id),
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, job_id)
	)`,
}
