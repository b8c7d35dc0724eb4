package engine

import (
	"fmt"
	"strings"
)

const enrichmentSystemPrompt = `You are a reading assistant. Given a reader's stated intent and the text of an article, respond with JSON only, matching this shape exactly:
{
  "summary": {"bullets": ["..."], "insight": "..."},
  "score": {"match_score": 0-100, "priority": "read_next|worth_it|if_time|skip", "reasons": ["..."]},
  "todos": [{"title": "...", "eta": "15m", "type": "read|write|share"}]
}
Summarize in at most five bullets. Score how well the article serves the stated intent. Derive at most four actionable todos.`

func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Intent: %s\n", req.IntentText)
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.Title)
	}
	if req.Domain != "" {
		fmt.Fprintf(&b, "Domain: %s\n", req.Domain)
	}
	fmt.Fprintf(&b, "Source type: %s\n", req.SourceType)
	if req.Profile != "" {
		fmt.Fprintf(&b, "Reader profile: %s\n", req.Profile)
	}
	b.WriteString("\nArticle text:\n")
	b.WriteString(req.Text)
	return b.String()
}
