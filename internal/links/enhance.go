package links

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/maclay/research-assistant/backend/internal/llm"
	"github.com/maclay/research-assistant/backend/internal/models"
)

const (
	// maxEnhanceContent bounds how much of the report goes into the
	// enhancement prompt.
	maxEnhanceContent = 15000
	// maxPoolSize caps the candidate links sent to the model.
	maxPoolSize = 20

	truncationMarker = "\n\n[... remainder of the report omitted ...]"
)

// Candidate is one verified working link offered to the model.
type Candidate struct {
	URL     string `json:"url"`
	Company string `json:"company"`
	Context string `json:"context"`
}

// Enhancer asks the model to weave verified links into a finished report.
type Enhancer struct {
	client llm.Client
	logger *zap.Logger
}

func NewEnhancer(client llm.Client, logger *zap.Logger) *Enhancer {
	return &Enhancer{client: client, logger: logger}
}

// CandidatePool gathers the working verified links from all cases, capped at
// maxPoolSize entries.
func CandidatePool(cases []models.Case) []Candidate {
	var pool []Candidate
	for _, cs := range cases {
		for _, l := range cs.WorkingLinks() {
			pool = append(pool, Candidate{
				URL:     l.URL,
				Company: cs.Title,
				Context: cs.Body,
			})
		}
	}
	if len(pool) > maxPoolSize {
		pool = pool[:maxPoolSize]
	}
	return pool
}

// Enhance returns the report with markdown links inserted by the model. The
// pass is strictly best-effort: with no candidates, a model failure, or an
// empty model answer, the original report comes back unchanged.
func (e *Enhancer) Enhance(ctx context.Context, report string, cases []models.Case) string {
	pool := CandidatePool(cases)
	if len(pool) == 0 {
		return report
	}

	preview := report
	if len(preview) > maxEnhanceContent {
		preview = preview[:maxEnhanceContent] + truncationMarker
	}

	poolJSON, err := json.MarshalIndent(pool, "", "  ")
	if err != nil {
		return report
	}

	prompt := fmt.Sprintf(`You are an expert at adding source links to research reports. Improve the report by adding relevant links from the verified sources.

REPORT TO IMPROVE:
%s

VERIFIED LINKS:
%s

TASK:
1. Find mentions of companies, products, or facts in the report
2. Attach relevant links from the verified source list to them
3. Use the format: [text](link)
4. Do NOT restructure the report, only add links
5. At most 3-5 links per paragraph
6. Priority: official sites > case studies > news
7. IMPORTANT: return the FULL report with the added links, do not cut it short

RETURN THE FULL IMPROVED REPORT WITH THE ADDED LINKS.`, preview, poolJSON)

	enhanced, err := e.client.Generate(ctx, prompt, 0.3, 4096)
	if err != nil {
		e.logger.Warn("link enhancement failed, keeping original report", zap.Error(err))
		return report
	}
	if enhanced == "" {
		e.logger.Warn("link enhancement returned empty output, keeping original report")
		return report
	}

	e.logger.Info("report enhanced with links",
		zap.Int("original_len", len(report)),
		zap.Int("enhanced_len", len(enhanced)),
		zap.Int("candidates", len(pool)),
	)
	return enhanced
}
