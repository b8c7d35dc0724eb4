package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"intake/internal/services"
)

const (
	defaultTimeout   = 8 * time.Second
	defaultMaxBytes  = 5 * 1024 * 1024
	defaultMinChars  = 100
	defaultMaxChars  = 15000
	defaultUserAgent = "intake/1.0 (+https://github.com/intake)"
)

// Content is the result of content extraction.
type Content struct {
	NormalizedText string `json:"normalized_text"`
	Meta           Meta   `json:"content_meta"`
}

// Meta holds metadata about the extracted content.
type Meta struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
	WordCount   int    `json:"word_count"`
}

// Config captures the runtime settings for the extractor.
type Config struct {
	TimeoutSeconds int
	MaxBodyBytes   int64
	MinTextChars   int
	MaxTextChars   int
	UserAgent      string
}

// HTTPExtractor fetches web pages and extracts readable content using
// go-readability. The timeout bounds the whole fetch so a stuck origin cannot
// hold a job lease indefinitely; lease expiry remains the backstop.
type HTTPExtractor struct {
	client    *http.Client
	maxBytes  int64
	minChars  int
	maxChars  int
	userAgent string
}

// New constructs an HTTP-based content extractor.
func New(cfg Config) *HTTPExtractor {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	minChars := cfg.MinTextChars
	if minChars <= 0 {
		minChars = defaultMinChars
	}
	maxChars := cfg.MaxTextChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPExtractor{
		client:    &http.Client{Timeout: timeout},
		maxBytes:  maxBytes,
		minChars:  minChars,
		maxChars:  maxChars,
		userAgent: userAgent,
	}
}

// Extract fetches the URL and extracts the main readable content.
func (e *HTTPExtractor) Extract(ctx context.Context, url string) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "build request", url, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "extract", "fetch", url, err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "extract", "fetch", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "extract", "fetch", fmt.Sprintf("HTTP %d for %s", resp.StatusCode, url), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "extract", "read body", url, err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "extract", "read body", url, err)
	}

	parsedURL, _ := nurl.Parse(url)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extract", "parse", url, err)
	}

	text := normalizeText(article.TextContent)
	if utf8.RuneCountInString(text) < e.minChars {
		// Likely a login wall, cookie wall, or empty page.
		return nil, services.Wrap(services.ErrExternalTool, "extract", "validate",
			fmt.Sprintf("extracted content too short (%d chars)", utf8.RuneCountInString(text)), nil)
	}
	if utf8.RuneCountInString(text) > e.maxChars {
		runes := []rune(text)
		text = string(runes[:e.maxChars]) + "\n... [truncated]"
	}

	var publishDate string
	if article.PublishedTime != nil && !article.PublishedTime.IsZero() {
		publishDate = article.PublishedTime.Format(time.RFC3339)
	}

	return &Content{
		NormalizedText: text,
		Meta: Meta{
			Title:       strings.TrimSpace(article.Title),
			Author:      strings.TrimSpace(article.Byline),
			SiteName:    strings.TrimSpace(article.SiteName),
			PublishDate: publishDate,
			WordCount:   len(strings.Fields(text)),
		},
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var (
	multiSpace   = regexp.MustCompile(`[ \t]+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
