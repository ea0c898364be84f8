package extract

import (
	"encoding/json"
	"strings"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// InsightTier names which parsing strategy produced the insights.
type InsightTier string

const (
	// TierJSON means the response carried a well-formed JSON array.
	TierJSON InsightTier = "json"
	// TierLines means the structured parse failed and every non-empty line
	// became a minimal insight.
	TierLines InsightTier = "lines"
)

// rawInsight mirrors the JSON shape the extraction prompt asks for. All
// fields are optional; missing ones normalize to zero values.
type rawInsight struct {
	SourceFile   string   `json:"source_file"`
	DownloadLink string   `json:"download_link"`
	Section      string   `json:"section"`
	Fact         string   `json:"fact"`
	Metrics      string   `json:"metrics"`
	Date         string   `json:"date"`
	Links        []string `json:"links"`
}

// Insights parses model output with a two-tier strategy: a JSON array first,
// then a plain-line fallback. It never fails; the returned tier says which
// strategy succeeded.
func Insights(content string) ([]models.Insight, InsightTier) {
	if insights, ok := insightsFromJSON(content); ok {
		return insights, TierJSON
	}
	return insightsFromLines(content), TierLines
}

// insightsFromJSON locates the outermost JSON array in the content and
// normalizes its objects. Models wrap arrays in prose or code fences often
// enough that scanning for brackets is required.
func insightsFromJSON(content string) ([]models.Insight, bool) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var raw []rawInsight
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, false
	}

	insights := make([]models.Insight, 0, len(raw))
	for _, r := range raw {
		sourceFile := r.SourceFile
		if sourceFile == "" {
			sourceFile = "unknown.pdf"
		}
		insights = append(insights, models.Insight{
			SourceFile:   sourceFile,
			DownloadLink: r.DownloadLink,
			Section:      r.Section,
			Fact:         r.Fact,
			Metrics:      r.Metrics,
			Date:         r.Date,
			Links:        r.Links,
		})
	}
	return insights, true
}

// insightsFromLines treats every non-empty line, stripped of leading bullet
// characters, as a one-fact insight with no source attribution.
func insightsFromLines(content string) []models.Insight {
	var insights []models.Insight
	for _, line := range strings.Split(content, "\n") {
		line = strings.Trim(line, " -•*\t")
		if line == "" {
			continue
		}
		insights = append(insights, models.Insight{
			SourceFile: "unknown.pdf",
			Fact:       line,
		})
	}
	return insights
}
