// Package links implements the report post-processing passes: reachability
// verification of embedded URLs, enhancement with verified sources, and
// whitespace cleanup.
package links

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// markdownLink matches [text](url).
var markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// MarkdownLink is one link occurrence in a report.
type MarkdownLink struct {
	Text string
	URL  string
}

// Stats summarizes one verification pass over a report.
type Stats struct {
	Total   int
	Working int
	Broken  int
}

// WorkingPercent is 0.0 when no links were found.
func (s Stats) WorkingPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Working) / float64(s.Total) * 100
}

// Checker performs best-effort HEAD reachability checks. Checks run one at a
// time, paced by a rate limiter so a link-heavy report does not hammer the
// targets. Network failures only downgrade a link to broken, never error.
type Checker struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *zap.Logger
}

// NewChecker builds a Checker. URLs under baseURL/data/ are self-hosted
// reference documents and count as working without a network call.
func NewChecker(baseURL string, logger *zap.Logger) *Checker {
	return &Checker{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// CheckURL returns the reachability status of one URL.
func (c *Checker) CheckURL(ctx context.Context, url string) models.LinkStatus {
	if strings.HasPrefix(url, c.baseURL+"/data/") {
		return models.LinkWorking
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.LinkBroken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return models.LinkBroken
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("link check failed", zap.String("url", url), zap.Error(err))
		return models.LinkBroken
	}
	resp.Body.Close()

	if resp.StatusCode < 400 {
		return models.LinkWorking
	}
	c.logger.Debug("link check rejected", zap.String("url", url), zap.Int("status", resp.StatusCode))
	return models.LinkBroken
}

// VerifyCases checks every bare link collected from the case bodies and
// fills VerifiedLinks and BrokenLinks in place.
func (c *Checker) VerifyCases(ctx context.Context, cases []models.Case) {
	for i := range cases {
		for _, url := range cases[i].Links {
			status := c.CheckURL(ctx, url)
			cases[i].VerifiedLinks = append(cases[i].VerifiedLinks, models.VerifiedLink{URL: url, Status: status})
			if status == models.LinkBroken {
				cases[i].BrokenLinks = append(cases[i].BrokenLinks, url)
			}
		}
	}
}

// ExtractMarkdownLinks returns every [text](url) occurrence in order.
func ExtractMarkdownLinks(content string) []MarkdownLink {
	matches := markdownLink.FindAllStringSubmatch(content, -1)
	out := make([]MarkdownLink, 0, len(matches))
	for _, m := range matches {
		out = append(out, MarkdownLink{Text: m[1], URL: m[2]})
	}
	return out
}

// VerifyReport checks every markdown link in the report, removes the full
// spans of broken ones, collapses the resulting whitespace, and returns the
// cleaned content with pass statistics.
func (c *Checker) VerifyReport(ctx context.Context, content string) (string, Stats) {
	found := ExtractMarkdownLinks(content)
	stats := Stats{Total: len(found)}
	if len(found) == 0 {
		return content, stats
	}

	for _, l := range found {
		if c.CheckURL(ctx, l.URL) == models.LinkWorking {
			stats.Working++
			continue
		}
		stats.Broken++
		content = strings.ReplaceAll(content, fmt.Sprintf("[%s](%s)", l.Text, l.URL), "")
	}

	if stats.Broken > 0 {
		content = CleanReportContent(content)
	}
	return content, stats
}

// Summary renders the verification block appended to every report.
func Summary(stats Stats) string {
	return fmt.Sprintf(`

## Link verification summary

- **Total links checked:** %d
- **Working links:** %d
- **Broken links:** %d
- **Working percentage:** %.1f%%

*All links were checked for availability.*
`, stats.Total, stats.Working, stats.Broken, stats.WorkingPercent())
}
