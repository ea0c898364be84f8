package links

import (
	"regexp"
	"strings"
)

// blankRun matches a run of three or more newlines, with any horizontal
// whitespace on the blank lines.
var blankRun = regexp.MustCompile(`\n[ \t]*\n([ \t]*\n)+`)

// CleanReportContent collapses multi-blank-line runs to a single blank line
// and strips leading and trailing whitespace. Idempotent: cleaning already
// clean text is a no-op.
func CleanReportContent(content string) string {
	content = blankRun.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
