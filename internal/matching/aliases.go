package matching

import (
	"strings"

	"github.com/spigell/job-alerter/internal/ai"
)

var aliases = map[string]string{
	"Software Engineering": "Engineering",
	"Software Engineer":    "Engineering",
	"Backend Development":  "Web Development",
	"Frontend Development": "Web Development",
	"Mobile":               "Mobile Development",
	"Product":              "Product Management",
	"HR":                   "Human Resources",
}

var domainLabels = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ai.FieldLabels))
	for _, l := range ai.FieldLabels {
		set[l] = struct{}{}
	}
	return set
}()

// Normalize maps a profession or job field onto the domain label set when an
// alias is known. Unknown values are returned trimmed.
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if _, ok := domainLabels[value]; ok {
		return value
	}
	if alias, ok := aliases[value]; ok {
		return alias
	}
	return value
}
