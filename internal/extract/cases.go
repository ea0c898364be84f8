package extract

import (
	"fmt"
	"strings"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// caseMarkers returns the line prefixes that open case number n. The model
// numbers cases itself, so only the marker for the next expected number is
// matched; both the feature ("Кейс") and product ("Продукт") wordings appear.
func caseMarkers(n int) []string {
	return []string{
		fmt.Sprintf("**Кейс %d", n),
		fmt.Sprintf("Кейс %d", n),
		fmt.Sprintf("**Продукт %d", n),
		fmt.Sprintf("Продукт %d", n),
		fmt.Sprintf("**Case %d", n),
		fmt.Sprintf("Case %d", n),
		fmt.Sprintf("**Product %d", n),
		fmt.Sprintf("Product %d", n),
	}
}

// Cases splits model output into numbered case records. A marker line for
// the currently expected number starts a new case; every other non-empty
// line accumulates into the active case's body, with bare links also
// collected for later verification. Text before the first marker is dropped.
func Cases(content string) []models.Case {
	var cases []models.Case
	var current *models.Case
	next := 1

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(current.Body)
			cases = append(cases, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if matchesMarker(line, next) {
			flush()
			title := strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
			current = &models.Case{Number: next, Title: title}
			next++
			continue
		}

		if current == nil {
			continue
		}
		if strings.HasPrefix(line, "http") {
			current.Links = append(current.Links, line)
		}
		if current.Body != "" {
			current.Body += "\n"
		}
		current.Body += line
	}
	flush()

	return cases
}

func matchesMarker(line string, n int) bool {
	for _, m := range caseMarkers(n) {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}
