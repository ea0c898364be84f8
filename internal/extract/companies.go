// Package extract turns free-form model output into structured records. All
// parsers here are best-effort: they never return errors, they return
// whatever the heuristics could recognize.
package extract

import (
	"strings"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// Label prefixes the company parser recognizes, matched case-insensitively.
// The model answers in English or Russian depending on the prompt, so both
// spellings are kept.
var (
	nameLabels            = []string{"компания:", "company:", "название:", "name:", "продукт:", "product:"}
	websiteLabels         = []string{"сайт:", "website:", "url:"}
	countryLabels         = []string{"страна:", "country:"}
	characteristicsLabels = []string{"характеристики:", "characteristics:"}
)

// Companies runs a line-oriented state machine over raw model text. A line
// with a name label starts a new record; field labels fill the current one;
// bare http links append to its link list; a blank line flushes it.
// Unmatched lines are ignored.
func Companies(text string) []models.Company {
	var companies []models.Company
	var current *models.Company

	flush := func() {
		if current != nil {
			companies = append(companies, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case hasAnyPrefixWord(lower, nameLabels):
			flush()
			current = &models.Company{Name: labelValue(line)}
		case hasAnyPrefixWord(lower, websiteLabels):
			if current != nil {
				current.Website = labelValue(line)
			}
		case hasAnyPrefixWord(lower, countryLabels):
			if current != nil {
				current.Country = labelValue(line)
			}
		case hasAnyPrefixWord(lower, characteristicsLabels):
			if current != nil {
				current.Characteristics = labelValue(line)
			}
		case strings.HasPrefix(line, "http"):
			if current != nil {
				current.Links = append(current.Links, line)
			}
		}
	}
	flush()

	return companies
}

// hasAnyPrefixWord reports whether the lowered line contains one of the
// labels. Containment rather than strict prefix keeps list markers like
// "1. Company: Acme" matching, as the source heuristics do.
func hasAnyPrefixWord(lower string, labels []string) bool {
	for _, l := range labels {
		if strings.Contains(lower, l) {
			return true
		}
	}
	return false
}

// labelValue returns the trimmed remainder after the first colon, or the
// whole line when no colon is present.
func labelValue(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
