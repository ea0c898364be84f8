package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// stubModel scripts one Generate answer and records the prompt it saw.
type stubModel struct {
	out    string
	err    error
	prompt string
	calls  int
}

func (s *stubModel) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.out, s.err
}

func workingCase(url string) models.Case {
	return models.Case{
		Number:        1,
		Title:         "Case 1: Acme",
		Body:          "Acme ships instant settlement.",
		VerifiedLinks: []models.VerifiedLink{{URL: url, Status: models.LinkWorking}},
	}
}

func TestEnhanceInsertsLinks(t *testing.T) {
	model := &stubModel{out: "report with [Acme](https://acme.example)"}
	e := NewEnhancer(model, zap.NewNop())

	got := e.Enhance(context.Background(), "report", []models.Case{workingCase("https://acme.example")})

	assert.Equal(t, "report with [Acme](https://acme.example)", got)
	assert.Contains(t, model.prompt, "https://acme.example")
	assert.Contains(t, model.prompt, "report")
}

func TestEnhanceNoCandidates(t *testing.T) {
	model := &stubModel{out: "should never be used"}
	e := NewEnhancer(model, zap.NewNop())

	broken := models.Case{
		Number:        1,
		Title:         "Case 1: Acme",
		VerifiedLinks: []models.VerifiedLink{{URL: "https://dead.example", Status: models.LinkBroken}},
	}
	got := e.Enhance(context.Background(), "original", []models.Case{broken})

	assert.Equal(t, "original", got)
	assert.Zero(t, model.calls, "no candidates means no model call")
}

func TestEnhanceModelFailureKeepsOriginal(t *testing.T) {
	model := &stubModel{err: errors.New("model down")}
	e := NewEnhancer(model, zap.NewNop())

	got := e.Enhance(context.Background(), "original", []models.Case{workingCase("https://acme.example")})
	assert.Equal(t, "original", got)
}

func TestEnhanceEmptyOutputKeepsOriginal(t *testing.T) {
	model := &stubModel{out: ""}
	e := NewEnhancer(model, zap.NewNop())

	got := e.Enhance(context.Background(), "original", []models.Case{workingCase("https://acme.example")})
	assert.Equal(t, "original", got)
}

func TestEnhanceTruncatesLongReports(t *testing.T) {
	model := &stubModel{out: "enhanced"}
	e := NewEnhancer(model, zap.NewNop())

	report := strings.Repeat("a", maxEnhanceContent) + "THE-VERY-END"
	e.Enhance(context.Background(), report, []models.Case{workingCase("https://acme.example")})

	assert.Contains(t, model.prompt, truncationMarker)
	assert.NotContains(t, model.prompt, "THE-VERY-END")
}

func TestCandidatePoolCap(t *testing.T) {
	var cases []models.Case
	for i := 0; i < 5; i++ {
		c := models.Case{Number: i + 1, Title: fmt.Sprintf("Case %d: Co", i+1)}
		for j := 0; j < 6; j++ {
			c.VerifiedLinks = append(c.VerifiedLinks, models.VerifiedLink{
				URL:    fmt.Sprintf("https://co%d.example/%d", i, j),
				Status: models.LinkWorking,
			})
		}
		cases = append(cases, c)
	}

	pool := CandidatePool(cases)
	require.Len(t, pool, maxPoolSize)
	assert.Equal(t, "https://co0.example/0", pool[0].URL)
	assert.Equal(t, "Case 1: Co", pool[0].Company)
}
