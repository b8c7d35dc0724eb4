package engine

import (
	"context"
	"fmt"
	"strings"
)

// Stub is a deterministic engine used for tests and offline development. It
// derives a score from keyword overlap between intent and text so repeated
// runs with the same input produce the same artifacts.
type Stub struct{}

// NewStub constructs the deterministic engine.
func NewStub() *Stub {
	return &Stub{}
}

// Version reports the enrichment contract version.
func (s *Stub) Version() string {
	return EngineVersion + "-stub"
}

// Enrich produces a deterministic enrichment result.
func (s *Stub) Enrich(_ context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("stub engine: extracted text required")
	}

	score := overlapScore(req.IntentText, req.Text)
	priority := PrioritySkip
	switch {
	case score >= 75:
		priority = PriorityReadNext
	case score >= 50:
		priority = PriorityWorthIt
	case score >= 25:
		priority = PriorityIfTime
	}

	bullets := []string{
		"Covers: " + firstSentence(req.Text),
		fmt.Sprintf("Roughly %d words of source material.", len(strings.Fields(req.Text))),
	}
	insight := "Deterministic stub assessment for " + req.SourceType + " content."
	todos := []Todo{
		{Title: "Read the captured page", ETA: "20m", Type: "read"},
		{Title: "Note one takeaway against the stated intent", ETA: "10m", Type: "write"},
	}

	result := &Result{
		Summary: Summary{Bullets: bullets, Insight: insight},
		Score: Score{
			MatchScore: score,
			Priority:   priority,
			Reasons:    []string{fmt.Sprintf("intent keyword overlap %.0f%%", score)},
		},
		Todos: todos,
		Card: Card{
			Title:      req.Title,
			URL:        req.URL,
			Domain:     req.Domain,
			Intent:     req.IntentText,
			Bullets:    bullets,
			Insight:    insight,
			Priority:   priority,
			MatchScore: score,
			Todos:      todos,
		},
	}
	return result, nil
}

func overlapScore(intent, text string) float64 {
	intentWords := strings.Fields(strings.ToLower(intent))
	if len(intentWords) == 0 {
		return 50
	}
	lowered := strings.ToLower(text)
	matched := 0
	for _, word := range intentWords {
		if len(word) < 3 {
			continue
		}
		if strings.Contains(lowered, word) {
			matched++
		}
	}
	return float64(matched) / float64(len(intentWords)) * 100
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?\n"); idx > 0 {
		text = text[:idx+1]
	}
	if len(text) > 140 {
		text = text[:140] + "..."
	}
	return text
}
