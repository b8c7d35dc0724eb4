package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"intake/internal/services"
	"intake/internal/services/engine"
)

// RendererName identifies this renderer in export payloads.
const RendererName = "file/markdown"

// DefaultTemplateVersion is recorded in artifact metadata when the caller
// does not pin one.
const DefaultTemplateVersion = "card/v1"

// Known output formats.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

// File describes one produced export file.
type File struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Bytes  int64  `json:"bytes"`
}

// Result is the renderer output recorded for replay.
type Result struct {
	Files           []File `json:"files"`
	Renderer        string `json:"renderer"`
	TemplateVersion string `json:"template_version"`
}

// FileRenderer turns a card payload into shareable files on disk.
type FileRenderer struct {
	dir             string
	templateVersion string
}

// NewFileRenderer constructs a renderer writing under dir.
func NewFileRenderer(dir, templateVersion string) *FileRenderer {
	if strings.TrimSpace(templateVersion) == "" {
		templateVersion = DefaultTemplateVersion
	}
	return &FileRenderer{dir: dir, templateVersion: templateVersion}
}

// Render writes the requested formats for one item's card. An empty format
// list renders every known format. Zero produced files is reported as a
// failure by the caller, not a panic here.
func (r *FileRenderer) Render(ctx context.Context, card json.RawMessage, itemID string, formats []string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var parsed engine.Card
	if err := json.Unmarshal(card, &parsed); err != nil {
		return nil, services.Wrap(services.ErrValidation, "export", "parse card", itemID, err)
	}

	if len(formats) == 0 {
		formats = []string{FormatMarkdown, FormatJSON}
	}
	itemDir := filepath.Join(r.dir, itemID)
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "export", "ensure directory", itemDir, err)
	}

	result := &Result{Renderer: RendererName, TemplateVersion: r.templateVersion}
	for _, format := range formats {
		switch strings.ToLower(strings.TrimSpace(format)) {
		case FormatMarkdown:
			path := filepath.Join(itemDir, "card.md")
			data := []byte(renderMarkdown(parsed))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return nil, services.Wrap(services.ErrTransient, "export", "write markdown", path, err)
			}
			result.Files = append(result.Files, File{Path: path, Format: FormatMarkdown, Bytes: int64(len(data))})
		case FormatJSON:
			path := filepath.Join(itemDir, "card.json")
			data, err := json.MarshalIndent(parsed, "", "  ")
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "export", "encode card", itemID, err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return nil, services.Wrap(services.ErrTransient, "export", "write json", path, err)
			}
			result.Files = append(result.Files, File{Path: path, Format: FormatJSON, Bytes: int64(len(data))})
		default:
			return nil, services.Wrap(services.ErrValidation, "export", "render", fmt.Sprintf("unknown format %q", format), nil)
		}
	}
	return result, nil
}

func renderMarkdown(card engine.Card) string {
	var b strings.Builder
	title := card.Title
	if title == "" {
		title = card.URL
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if card.URL != "" {
		fmt.Fprintf(&b, "> %s\n\n", card.URL)
	}
	if card.Intent != "" {
		fmt.Fprintf(&b, "**Why captured:** %s\n\n", card.Intent)
	}
	if card.Priority != "" {
		fmt.Fprintf(&b, "**Priority:** %s (match %.0f/100)\n\n", card.Priority, card.MatchScore)
	}
	if len(card.Bullets) > 0 {
		b.WriteString("## Summary\n\n")
		for _, bullet := range card.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
		b.WriteByte('\n')
	}
	if card.Insight != "" {
		fmt.Fprintf(&b, "**Insight:** %s\n\n", card.Insight)
	}
	if len(card.Todos) > 0 {
		b.WriteString("## Todos\n\n")
		for _, todo := range card.Todos {
			fmt.Fprintf(&b, "- [ ] %s (%s, %s)\n", todo.Title, todo.ETA, todo.Type)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
