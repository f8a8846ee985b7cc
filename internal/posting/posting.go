package posting

import (
	"fmt"
	"strings"
)

// DefaultTitle is used when a message has no usable lines.
const DefaultTitle = "Job Post"

// Job is a structured job announcement. URL is its identity: a job with a
// given URL is stored at most once and never changed afterwards.
type Job struct {
	ID          int64  `json:"id,omitempty" db:"id"`
	Title       string `json:"title" db:"title"`
	Company     string `json:"company" db:"company"`
	Location    string `json:"location" db:"location"`
	Field       string `json:"field" db:"field"`
	Experience  string `json:"experience" db:"experience"`
	Description string `json:"description" db:"description"`
	URL         string `json:"url" db:"url"`
}

// Text composes the job attributes used for classification.
func (j *Job) Text() string {
	if j == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf(
		"Job title: %s. Company: %s. Field: %s. Experience: %s. Description: %s",
		j.Title, j.Company, j.Field, j.Experience, j.Description,
	))
}

// Fields holds the optional attributes which enrichment is allowed to fill.
type Fields struct {
	Company    string
	Location   string
	Field      string
	Experience string
}

// Missing reports whether any enrichable attribute is still unknown.
func (j *Job) Missing() bool {
	return j.Company == "" || j.Location == "" || j.Field == "" || j.Experience == ""
}

// Fill copies values from f into the attributes that are still empty.
func (j *Job) Fill(f Fields) {
	if j.Company == "" {
		j.Company = strings.TrimSpace(f.Company)
	}
	if j.Location == "" {
		j.Location = strings.TrimSpace(f.Location)
	}
	if j.Field == "" {
		j.Field = strings.TrimSpace(f.Field)
	}
	if j.Experience == "" {
		j.Experience = strings.TrimSpace(f.Experience)
	}
}

// Location is a lat/lon pair shared by the user during onboarding.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Profile is a user profile created by onboarding. It is read-only here.
type Profile struct {
	UserID      int64     `json:"user_id"`
	Location    *Location `json:"location,omitempty"`
	Profession  string    `json:"profession"`
	Experience  string    `json:"experience"`
	Preferences string    `json:"preferences"`
}

// Text describes the profile for logs.
func (p *Profile) Text() string {
	if p == nil {
		return ""
	}
	loc := ""
	if p.Location != nil {
		loc = fmt.Sprintf("Location: lat %v, lon %v.", p.Location.Lat, p.Location.Lon)
	}
	return strings.TrimSpace(fmt.Sprintf("Profession: %s. Experience: %s. Preferences: %s. %s",
		p.Profession, p.Experience, p.Preferences, loc))
}

// Scored is a job with its relevance score for one profile.
type Scored struct {
	Job   *Job
	Score float64
}

// Jobs extracts the jobs from a scored list keeping the order.
func Jobs(scored []Scored) []*Job {
	out := make([]*Job, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Job)
	}
	return out
}

// IDs returns the stored identifiers of the jobs.
func IDs(jobs []*Job) []int64 {
	ids := make([]int64, 0, len(jobs))
	for _, j := range jobs {
		if j == nil {
			continue
		}
		ids = append(ids, j.ID)
	}
	return ids
}

// Message is a raw channel message as fetched from a source.
type Message struct {
	Source string
	ID     int64
	Text   string
}
