package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// newTestChecker points a Checker at the test server and removes the pacing
// so checks run at full speed.
func newTestChecker(srv *httptest.Server, baseURL string) *Checker {
	c := NewChecker(baseURL, zap.NewNop())
	c.httpClient = srv.Client()
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func newLinkServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestCheckURL(t *testing.T) {
	srv := newLinkServer()
	defer srv.Close()
	c := newTestChecker(srv, "http://self.example")

	assert.Equal(t, models.LinkWorking, c.CheckURL(context.Background(), srv.URL+"/ok"))
	assert.Equal(t, models.LinkBroken, c.CheckURL(context.Background(), srv.URL+"/missing"))
}

func TestCheckURLSelfHostedDocuments(t *testing.T) {
	// Links under our own /data/ prefix never hit the network.
	c := NewChecker("http://self.example", zap.NewNop())
	c.httpClient = nil // any network call would panic

	assert.Equal(t, models.LinkWorking,
		c.CheckURL(context.Background(), "http://self.example/data/report.pdf"))
}

func TestCheckURLConnectionRefused(t *testing.T) {
	srv := newLinkServer()
	url := srv.URL
	srv.Close()

	c := NewChecker("http://self.example", zap.NewNop())
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	assert.Equal(t, models.LinkBroken, c.CheckURL(context.Background(), url+"/ok"))
}

func TestVerifyCases(t *testing.T) {
	srv := newLinkServer()
	defer srv.Close()
	c := newTestChecker(srv, "http://self.example")

	cases := []models.Case{{
		Number: 1,
		Title:  "Case 1: Acme",
		Links:  []string{srv.URL + "/ok", srv.URL + "/missing"},
	}}
	c.VerifyCases(context.Background(), cases)

	require.Len(t, cases[0].VerifiedLinks, 2)
	assert.Equal(t, models.LinkWorking, cases[0].VerifiedLinks[0].Status)
	assert.Equal(t, models.LinkBroken, cases[0].VerifiedLinks[1].Status)
	assert.Equal(t, []string{srv.URL + "/missing"}, cases[0].BrokenLinks)
	require.Len(t, cases[0].WorkingLinks(), 1)
	assert.Equal(t, srv.URL+"/ok", cases[0].WorkingLinks()[0].URL)
}

func TestVerifyReportRemovesBrokenSpans(t *testing.T) {
	srv := newLinkServer()
	defer srv.Close()
	c := newTestChecker(srv, "http://self.example")

	content := "Intro with [good source](" + srv.URL + "/ok).\n\n" +
		"Paragraph citing [dead source](" + srv.URL + "/missing).\n\nOutro."

	cleaned, stats := c.VerifyReport(context.Background(), content)

	assert.Equal(t, Stats{Total: 2, Working: 1, Broken: 1}, stats)
	assert.Contains(t, cleaned, "[good source]")
	assert.NotContains(t, cleaned, "[dead source]")
	assert.NotContains(t, cleaned, "/missing")
	assert.NotContains(t, cleaned, "\n\n\n", "blank runs must be collapsed after removal")
}

func TestVerifyReportNoLinks(t *testing.T) {
	c := NewChecker("http://self.example", zap.NewNop())
	content := "A report without a single markdown link."

	cleaned, stats := c.VerifyReport(context.Background(), content)
	assert.Equal(t, content, cleaned)
	assert.Equal(t, Stats{}, stats)
}

func TestExtractMarkdownLinks(t *testing.T) {
	got := ExtractMarkdownLinks("see [a](http://x) and [b](http://y)")
	assert.Equal(t, []MarkdownLink{
		{Text: "a", URL: "http://x"},
		{Text: "b", URL: "http://y"},
	}, got)
}

func TestWorkingPercent(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.WorkingPercent())
	assert.Equal(t, 50.0, Stats{Total: 2, Working: 1, Broken: 1}.WorkingPercent())
	assert.Equal(t, 100.0, Stats{Total: 3, Working: 3}.WorkingPercent())
}

func TestSummary(t *testing.T) {
	s := Summary(Stats{Total: 4, Working: 3, Broken: 1})
	assert.Contains(t, s, "## Link verification summary")
	assert.Contains(t, s, "**Total links checked:** 4")
	assert.Contains(t, s, "**Working links:** 3")
	assert.Contains(t, s, "**Broken links:** 1")
	assert.Contains(t, s, "75.0%")
}

func TestCleanReportContent(t *testing.T) {
	dirty := "  \n# Title\n\n\n\nBody\n \n\t\n \nEnd\n\n"
	clean := CleanReportContent(dirty)

	assert.Equal(t, "# Title\n\nBody\n\nEnd", clean)
	assert.Equal(t, clean, CleanReportContent(clean), "cleaning must be idempotent")
	assert.False(t, strings.Contains(clean, "\n\n\n"))
}
