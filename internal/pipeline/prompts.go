package pipeline

import (
	"fmt"
	"strings"

	"github.com/maclay/research-assistant/backend/internal/docs"
	"github.com/maclay/research-assistant/backend/internal/models"
)

func dataCollectionPrompt(req models.ResearchRequest) string {
	if req.Kind == models.KindProduct {
		return fmt.Sprintf(`You are an expert in finding and collecting data about fintech products.

GOAL: find and collect the MOST DETAILED information about products matching these characteristics: "%s".

RESEARCH PARAMETERS:
- Product: %s
- Segment: %s
- Characteristics: %s
- Required players: %s
- Required countries: %s

CRITICAL - LINK DISCOVERY:
1. Find AT LEAST 15-20 distinct products
2. For EACH product find AT LEAST 8-10 OFFICIAL LINKS:
   - Official company website
   - Social profiles (LinkedIn, Twitter, Facebook)
   - Product and feature pages
   - Case studies and customer reviews
   - Press releases and news

OUTPUT FORMAT, one block per product, blank line between blocks:
Product: <name>
Website: <official site>
Country: <country>
Characteristics: <short description>
<one bare URL per line>`,
			req.ProductCharacteristics, req.ProductDescription, req.Segment,
			req.ProductCharacteristics, req.RequiredPlayers, req.RequiredCountries)
	}

	return fmt.Sprintf(`You are an expert in finding and collecting data about fintech products.

GOAL: find and collect the MOST DETAILED information about companies that use the feature "%s".

RESEARCH PARAMETERS:
- Product: %s
- Segment: %s
- Element: %s
- Benchmarks: %s
- Required players: %s
- Required countries: %s

CRITICAL - LINK DISCOVERY:
1. Find AT LEAST 15-20 companies
2. For EACH company find AT LEAST 8-10 OFFICIAL LINKS:
   - Official company website
   - Social profiles (LinkedIn, Twitter, Facebook)
   - Product and feature pages
   - Case studies and customer reviews
   - Press releases and news

OUTPUT FORMAT, one block per company, blank line between blocks:
Company: <name>
Website: <official site>
Country: <country>
Characteristics: <how the feature is implemented>
<one bare URL per line>`,
		req.ResearchElement, req.ProductDescription, req.Segment, req.ResearchElement,
		req.Benchmarks, req.RequiredPlayers, req.RequiredCountries)
}

func localDocumentsPrompt(files []docs.Document, req models.ResearchRequest) string {
	var sb strings.Builder
	sb.WriteString(`You are an analyst extracting facts from reference documents for a market research report.

RESEARCH SUBJECT: ` + req.Element() + `
SEGMENT: ` + req.Segment + `

DOCUMENTS:
`)
	for _, f := range files {
		sb.WriteString("\n--- FILE: " + f.Name + " ---\n")
		sb.WriteString(f.Text)
		sb.WriteString("\n")
	}
	sb.WriteString(`
TASK: extract every fact relevant to the research subject. Answer with ONLY a JSON array, one object per fact:
[{"source_file": "<file name>", "section": "<section or heading>", "fact": "<the fact>", "metrics": "<numbers if any>", "date": "<date if any>", "links": ["<url>"]}]`)
	return sb.String()
}

func caseAnalysisPrompt(market *models.MarketData, req models.ResearchRequest) string {
	marker := "Case"
	if req.Kind == models.KindProduct {
		marker = "Product"
	}
	return fmt.Sprintf(`You are a product analyst. Based on the collected market data below, write detailed numbered case studies.

RESEARCH SUBJECT: %s
SEGMENT: %s

MARKET DATA:
%s

TASK:
1. Produce 10 or more cases, numbered sequentially starting at 1
2. Start each case with a line "**%s N: <company name>**"
3. For each case give: company website, country, 4-5 sentences about the product, measurable results, publication dates
4. List the source URLs for each case, one bare URL per line`,
		req.Element(), req.Segment, market.RawContent, marker)
}

func reportPrompt(cases []models.Case, insights []models.Insight, req models.ResearchRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are writing the final market research report.

RESEARCH SUBJECT: %s
PRODUCT: %s
SEGMENT: %s
REQUIRED PLAYERS: %s
REQUIRED COUNTRIES: %s

ANALYZED CASES:
`, req.Element(), req.ProductDescription, req.Segment, req.RequiredPlayers, req.RequiredCountries)

	for _, c := range cases {
		fmt.Fprintf(&sb, "\n%s\n%s\n", c.Title, c.Body)
	}

	if len(insights) > 0 {
		sb.WriteString("\nSUPPORTING FACTS FROM REFERENCE DOCUMENTS:\n")
		for _, ins := range insights {
			fmt.Fprintf(&sb, "- %s (%s)\n", ins.Fact, ins.SourceFile)
		}
	}

	sb.WriteString(`
TASK: write a complete markdown report with:
1. Executive summary: conclusions first, details after
2. All cases, numbered, each with company site, country, 4-5 sentences, sources and dates
3. An overview table covering every case
4. An "Applicability" section mapping findings to our goals and metrics
5. An "Implementation plan" section
Neutral business tone, clear wording, no jargon.`)
	return sb.String()
}
