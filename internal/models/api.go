package models

type HybridSearchRequest struct {
	CourseID   string `json:"course_id" binding:"required"`
	Query      string `json:"query" binding:"required"`
	Category   string `json:"category"`
	IncludeWeb *bool  `json:"include_web"` // nil = auto-decide from relevance
	Limit      int    `json:"limit"`
}

type SemanticSearchRequest struct {
	CourseID string `json:"course_id" binding:"required"`
	Query    string `json:"query" binding:"required"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

type WebSearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

type WebSearchResponse struct {
	Results []WebHit `json:"results"`
	Source  string   `json:"source"`
	Cached  bool     `json:"cached"`
	TookMs  int64    `json:"took_ms"`
}

type GenerateRequest struct {
	CourseID string `json:"course_id" binding:"required"`
	Topic    string `json:"topic" binding:"required"`
	GenType  string `json:"type"`
	UseWeb   *bool  `json:"use_web"`
}

type GenerateResponse struct {
	ID            string            `json:"id"`
	Topic         string            `json:"topic"`
	GenType       string            `json:"type"`
	Content       string            `json:"content"`
	Sources       SourceAttribution `json:"sources"`
	UsedWebSearch bool              `json:"used_web_search"`
	TookMs        int64             `json:"took_ms"`
}

type ValidateContentRequest struct {
	CourseID        string `json:"course_id" binding:"required"`
	Topic           string `json:"topic" binding:"required"`
	Content         string `json:"content" binding:"required"`
	CheckGrounding  *bool  `json:"check_grounding"`   // nil = true
	CheckWebSources *bool  `json:"check_web_sources"` // nil = true
}

// ValidationIssue is one finding from a content validation pass. Type is
// one of error, warning, info.
type ValidationIssue struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type ContentValidationResponse struct {
	Status          string            `json:"status"` // validated, warning, failed
	Score           float64           `json:"score"`
	GroundingScore  float64           `json:"grounding_score"`
	StructureScore  float64           `json:"structure_score"`
	RelevanceScore  float64           `json:"relevance_score"`
	Issues          []ValidationIssue `json:"issues"`
	WebSourcesValid bool              `json:"web_sources_valid"`
	Suggestions     []string          `json:"suggestions"`
}

type CreateCourseRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type CreateMaterialRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	FileType string `json:"file_type"`
	Category string `json:"category"`
}

type CreateChatSessionRequest struct {
	CourseID string `json:"course_id" binding:"required"`
	Title    string `json:"title"`
}

type ChatMessageRequest struct {
	Content    string `json:"content" binding:"required"`
	IncludeWeb *bool  `json:"include_web"`
}

type ChatMessageResponse struct {
	SessionID     string            `json:"session_id"`
	Message       ChatMessage       `json:"message"`
	Sources       SourceAttribution `json:"sources"`
	UsedWebSearch bool              `json:"used_web_search"`
}
