package posting

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const messageBaseURL = "https://t.me"

var labelRe = regexp.MustCompile(`(?i)^(Company|Location|Field|Experience|Description)\s*:\s*(.+)$`)

// Enricher fills attributes the message itself does not label.
type Enricher interface {
	Enrich(ctx context.Context, text string) (Fields, error)
}

// EnricherFunc adapts a function to the Enricher interface.
type EnricherFunc func(ctx context.Context, text string) (Fields, error)

func (f EnricherFunc) Enrich(ctx context.Context, text string) (Fields, error) {
	return f(ctx, text)
}

// URL derives the stable job url for a channel message.
func URL(source string, messageID int64) string {
	channel := strings.TrimPrefix(strings.TrimSpace(source), "@")
	return fmt.Sprintf("%s/%s/%d", messageBaseURL, channel, messageID)
}

// Parse turns one raw channel message into a Job. The first non-empty line is
// the title, labelled lines fill the matching attributes and everything else
// goes to the description. When enrich is not nil and some attributes are
// still unknown, it is called once with the raw text; its errors are ignored.
func Parse(ctx context.Context, text, source string, messageID int64, enrich Enricher) *Job {
	lines := make([]string, 0)
	for _, raw := range strings.Split(text, "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}

	job := &Job{Title: DefaultTitle, URL: URL(source, messageID)}
	if len(lines) > 0 {
		job.Title = lines[0]
	}

	var description []string
	for _, line := range tail(lines) {
		m := labelRe.FindStringSubmatch(line)
		if m == nil {
			description = append(description, line)
			continue
		}

		value := strings.TrimSpace(m[2])
		switch strings.ToLower(m[1]) {
		case "company":
			job.Company = value
		case "location":
			job.Location = value
		case "field":
			job.Field = value
		case "experience":
			job.Experience = value
		case "description":
			description = append(description, value)
		}
	}

	job.Description = strings.TrimSpace(strings.Join(description, "\n"))

	if enrich != nil && job.Missing() {
		if fields, err := enrich.Enrich(ctx, text); err == nil {
			job.Fill(fields)
		}
	}

	return job
}

func tail(lines []string) []string {
	if len(lines) < 2 {
		return nil
	}
	return lines[1:]
}
