package models

import "time"

// ResearchKind selects the prompt family used by the pipeline.
type ResearchKind string

const (
	KindFeature ResearchKind = "feature"
	KindProduct ResearchKind = "product"
)

// ResearchRequest is the immutable input to one pipeline run. None of the
// fields are validated beyond presence; absent fields render as empty strings
// in prompts.
type ResearchRequest struct {
	Kind                   ResearchKind `json:"kind"`
	ProductDescription     string       `json:"product_description"`
	Segment                string       `json:"segment"`
	ResearchElement        string       `json:"research_element"`
	ProductCharacteristics string       `json:"product_characteristics"`
	Benchmarks             string       `json:"benchmarks"`
	RequiredPlayers        string       `json:"required_players"`
	RequiredCountries      string       `json:"required_countries"`
}

// Element returns the free-text subject of the research: the feature under
// investigation for feature research, the product characteristics otherwise.
func (r ResearchRequest) Element() string {
	if r.Kind == KindProduct {
		return r.ProductCharacteristics
	}
	return r.ResearchElement
}

// Company is one record parsed out of the market-data stage output. Parsing
// is heuristic and lossy: a field the model did not label stays empty.
type Company struct {
	Name            string   `json:"name" bson:"name"`
	Website         string   `json:"website,omitempty" bson:"website,omitempty"`
	Country         string   `json:"country,omitempty" bson:"country,omitempty"`
	Characteristics string   `json:"characteristics,omitempty" bson:"characteristics,omitempty"`
	Links           []string `json:"links,omitempty" bson:"links,omitempty"`
}

// MarketData is the artifact of the data-collection stage: the raw model
// text plus whatever companies could be recognized in it.
type MarketData struct {
	RawContent string       `json:"raw_content" bson:"raw_content"`
	Companies  []Company    `json:"companies" bson:"companies"`
	Kind       ResearchKind `json:"research_type" bson:"research_type"`
	Timestamp  time.Time    `json:"timestamp" bson:"timestamp"`
	TotalFound int          `json:"total_found" bson:"total_found"`
}

// Insight is a structured fact extracted from a local reference document.
type Insight struct {
	SourceFile   string   `json:"source_file" bson:"source_file"`
	DownloadLink string   `json:"download_link,omitempty" bson:"download_link,omitempty"`
	Section      string   `json:"section" bson:"section"`
	Fact         string   `json:"fact" bson:"fact"`
	Metrics      string   `json:"metrics,omitempty" bson:"metrics,omitempty"`
	Date         string   `json:"date,omitempty" bson:"date,omitempty"`
	Links        []string `json:"links,omitempty" bson:"links,omitempty"`
}

// LocalInsights is the artifact of the local-documents stage. The stage is
// best-effort: on failure it degrades to an empty insight list but still
// reports which files were seen.
type LocalInsights struct {
	Insights []Insight `json:"insights" bson:"insights"`
	Files    []string  `json:"files" bson:"files"`
}

// LinkStatus is the outcome of an HTTP reachability check.
type LinkStatus string

const (
	LinkWorking LinkStatus = "working"
	LinkBroken  LinkStatus = "broken"
)

// VerifiedLink is one checked URL belonging to a case.
type VerifiedLink struct {
	URL    string     `json:"url" bson:"url"`
	Status LinkStatus `json:"status" bson:"status"`
}

// Case is one numbered example in the case-analysis output. Body accumulates
// every unlabeled line between this case's marker and the next.
type Case struct {
	Number        int            `json:"number" bson:"number"`
	Title         string         `json:"title" bson:"title"`
	Body          string         `json:"body" bson:"body"`
	Links         []string       `json:"links,omitempty" bson:"links,omitempty"`
	VerifiedLinks []VerifiedLink `json:"verified_links,omitempty" bson:"verified_links,omitempty"`
	BrokenLinks   []string       `json:"broken_links,omitempty" bson:"broken_links,omitempty"`
}

// WorkingLinks returns the subset of verified links that passed the check.
func (c Case) WorkingLinks() []VerifiedLink {
	var out []VerifiedLink
	for _, l := range c.VerifiedLinks {
		if l.Status == LinkWorking {
			out = append(out, l)
		}
	}
	return out
}

// Report is a persisted research report row.
type Report struct {
	ID                 int64        `json:"id"`
	Title              string       `json:"title"`
	Content            string       `json:"content"`
	Kind               ResearchKind `json:"research_type"`
	ProductDescription string       `json:"product_description"`
	Segment            string       `json:"segment"`
	ResearchElement    string       `json:"research_element"`
	Benchmarks         string       `json:"benchmarks"`
	RequiredPlayers    string       `json:"required_players"`
	RequiredCountries  string       `json:"required_countries"`
	SessionID          string       `json:"session_id"`
	AIModel            string       `json:"ai_model"`
	ProcessingTime     int          `json:"processing_time"`
	TokensUsed         int          `json:"tokens_used"`
	ObjectKey          string       `json:"object_key,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// Result is what one pipeline run resolves to. Exactly one of Report or
// Error is meaningful depending on Success.
type Result struct {
	Success  bool   `json:"success"`
	Report   string `json:"report,omitempty"`
	ReportID int64  `json:"report_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunArtifacts is the per-run debugging document stored in MongoDB: every
// intermediate artifact the pipeline produced, keyed by the client id.
type RunArtifacts struct {
	ClientID  string          `json:"client_id" bson:"client_id"`
	Request   ResearchRequest `json:"request" bson:"request"`
	Market    *MarketData     `json:"market,omitempty" bson:"market,omitempty"`
	Insights  *LocalInsights  `json:"insights,omitempty" bson:"insights,omitempty"`
	Cases     []Case          `json:"cases,omitempty" bson:"cases,omitempty"`
	Succeeded bool            `json:"succeeded" bson:"succeeded"`
	Error     string          `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
}
