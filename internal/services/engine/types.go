package engine

import "encoding/json"

// Priority buckets assigned by the scoring step.
const (
	PriorityReadNext = "read_next"
	PriorityWorthIt  = "worth_it"
	PriorityIfTime   = "if_time"
	PrioritySkip     = "skip"
)

var knownPriorities = map[string]struct{}{
	PriorityReadNext: {},
	PriorityWorthIt:  {},
	PriorityIfTime:   {},
	PrioritySkip:     {},
}

// Request carries everything the enrichment engine needs for one item.
type Request struct {
	URL        string `json:"url"`
	IntentText string `json:"intent_text"`
	Text       string `json:"text"`
	Profile    string `json:"profile,omitempty"`
	SourceType string `json:"source_type"`
	Title      string `json:"title,omitempty"`
	Domain     string `json:"domain,omitempty"`
	RunID      string `json:"run_id"`
}

// Summary is the structured output of the summarize step.
type Summary struct {
	Bullets []string `json:"bullets"`
	Insight string   `json:"insight"`
}

// Score is the structured output of the scoring step.
type Score struct {
	MatchScore float64  `json:"match_score"`
	Priority   string   `json:"priority"`
	Reasons    []string `json:"reasons"`
}

// Todo is a single actionable task derived from the content.
type Todo struct {
	Title string `json:"title"`
	ETA   string `json:"eta"`
	Type  string `json:"type"`
}

// Card is the shareable payload rendered by the export step.
type Card struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Domain     string   `json:"domain"`
	Intent     string   `json:"intent"`
	Bullets    []string `json:"bullets"`
	Insight    string   `json:"insight"`
	Priority   string   `json:"priority"`
	MatchScore float64  `json:"match_score"`
	Todos      []Todo   `json:"todos"`
}

// Result bundles all enrichment outputs for one run.
type Result struct {
	Summary Summary `json:"summary"`
	Score   Score   `json:"score"`
	Todos   []Todo  `json:"todos"`
	Card    Card    `json:"card"`
}

// MarshalPayloads serializes each artifact payload independently so the
// artifact store records them as separate versioned documents.
func (r *Result) MarshalPayloads() (summary, score, todos, card json.RawMessage, err error) {
	if summary, err = json.Marshal(r.Summary); err != nil {
		return
	}
	if score, err = json.Marshal(r.Score); err != nil {
		return
	}
	if todos, err = json.Marshal(struct {
		Todos []Todo `json:"todos"`
	}{r.Todos}); err != nil {
		return
	}
	card, err = json.Marshal(r.Card)
	return
}
