package models

// SearchHit is a single course-material match from the vector search.
// Hits are immutable once returned by the retriever.
type SearchHit struct {
	ID             string  `json:"id"`
	Content        string  `json:"content"`
	MaterialID     string  `json:"material_id"`
	MaterialTitle  string  `json:"material_title"`
	FileType       string  `json:"file_type"`
	Category       string  `json:"category"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// WebHit is a single result from the web search gateway.
type WebHit struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	SourceDomain   string  `json:"source_domain"`
	PublishedDate  string  `json:"published_date,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

// HybridResult is the combined response for one query. Course and web
// results stay in two separate ordered groups so the UI can label them.
type HybridResult struct {
	Query            string      `json:"query"`
	CourseResults    []SearchHit `json:"course_results"`
	WebResults       []WebHit    `json:"web_results"`
	TookMs           int64       `json:"took_ms"`
	UsedWebSearch    bool        `json:"used_web_search"`
	AverageRelevance float64     `json:"average_relevance"`
	WebSearchNote    string      `json:"web_search_note,omitempty"`
}

// WebMode is the tri-state include_web flag. Auto means the orchestrator
// decides from the average course relevance.
type WebMode int

const (
	WebAuto WebMode = iota
	WebForce
	WebSkip
)

// WebModeFromFlag maps the nullable API flag onto the tri-state.
func WebModeFromFlag(includeWeb *bool) WebMode {
	switch {
	case includeWeb == nil:
		return WebAuto
	case *includeWeb:
		return WebForce
	default:
		return WebSkip
	}
}

func (m WebMode) String() string {
	switch m {
	case WebForce:
		return "force"
	case WebSkip:
		return "skip"
	default:
		return "auto"
	}
}

// CourseSource and WebSource are the per-item entries of SourceAttribution.
type CourseSource struct {
	Title     string  `json:"title"`
	Type      string  `json:"type"`
	Relevance float64 `json:"relevance"`
}

type WebSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SourceAttribution records which retrieved items contributed to generated
// or chat output. SourceMixRatio is the fraction of cited sources that came
// from the web; it is omitted when no sources are present at all.
type SourceAttribution struct {
	Course         []CourseSource `json:"course"`
	Web            []WebSource    `json:"web,omitempty"`
	SourceMixRatio *float64       `json:"source_mix_ratio,omitempty"`
}
