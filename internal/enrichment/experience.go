package enrichment

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/spigell/job-alerter/internal/ai"
)

type experienceRule struct {
	label    string
	keywords []string
}

// Rules are checked in order; the first one with any keyword hit wins.
var experienceRules = []experienceRule{
	{label: ai.ExperienceEntry, keywords: []string{"entry", "junior", "fresh"}},
	{label: ai.ExperienceMid, keywords: []string{"mid", "intermediate"}},
	{label: ai.ExperienceSenior, keywords: []string{"senior", "sr", "5+ years", "5 years", "6 years", "7 years", "8 years"}},
	{label: ai.ExperienceLead, keywords: []string{"lead", "manager", "head", "principal", "director"}},
}

// experienceMatcher maps free text to an experience label by substring keywords.
type experienceMatcher struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	rank     map[string]int
}

func newExperienceMatcher() *experienceMatcher {
	m := &experienceMatcher{rank: make(map[string]int)}
	for i, rule := range experienceRules {
		for _, kw := range rule.keywords {
			m.keywords = append(m.keywords, kw)
			m.rank[kw] = i
		}
	}
	m.matcher = ahocorasick.NewStringMatcher(m.keywords)
	return m
}

func (m *experienceMatcher) Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}

	best := len(experienceRules)
	for _, hit := range m.matcher.MatchThreadSafe([]byte(text)) {
		if hit >= len(m.keywords) {
			continue
		}
		if r := m.rank[m.keywords[hit]]; r < best {
			best = r
		}
	}

	if best == len(experienceRules) {
		return ""
	}
	return experienceRules[best].label
}
