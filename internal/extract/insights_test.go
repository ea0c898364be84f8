package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsightsJSONTier(t *testing.T) {
	content := `Here are the extracted facts:

[
  {"source_file": "market2024.pdf", "section": "Adoption", "fact": "QR payments grew 40% YoY", "metrics": "40%", "date": "2024-03", "links": ["https://example.com/report"]},
  {"section": "Pricing", "fact": "average fee dropped to 0.4%"}
]

Let me know if you need more.`

	got, tier := Insights(content)
	require.Equal(t, TierJSON, tier)
	require.Len(t, got, 2)

	assert.Equal(t, "market2024.pdf", got[0].SourceFile)
	assert.Equal(t, "Adoption", got[0].Section)
	assert.Equal(t, "QR payments grew 40% YoY", got[0].Fact)
	assert.Equal(t, "40%", got[0].Metrics)
	assert.Equal(t, []string{"https://example.com/report"}, got[0].Links)

	// Missing source attribution normalizes to the sentinel name.
	assert.Equal(t, "unknown.pdf", got[1].SourceFile)
	assert.Equal(t, "average fee dropped to 0.4%", got[1].Fact)
}

func TestInsightsLineFallback(t *testing.T) {
	content := `- QR payments grew 40% YoY
• average fee dropped to 0.4%

* merchants prefer instant settlement`

	got, tier := Insights(content)
	require.Equal(t, TierLines, tier)
	require.Len(t, got, 3)

	assert.Equal(t, "QR payments grew 40% YoY", got[0].Fact)
	assert.Equal(t, "average fee dropped to 0.4%", got[1].Fact)
	assert.Equal(t, "merchants prefer instant settlement", got[2].Fact)
	for _, ins := range got {
		assert.Equal(t, "unknown.pdf", ins.SourceFile)
	}
}

func TestInsightsMalformedJSONFallsBack(t *testing.T) {
	// Brackets present but the array does not parse.
	content := `[this is not json]
but this line survives`

	got, tier := Insights(content)
	assert.Equal(t, TierLines, tier)
	assert.NotEmpty(t, got)
}

func TestInsightsNeverFails(t *testing.T) {
	for _, content := range []string{"", "   \n\n  "} {
		got, tier := Insights(content)
		assert.Equal(t, TierLines, tier)
		assert.Empty(t, got)
	}
}
