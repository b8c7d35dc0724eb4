package extract_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"intake/internal/services"
	"intake/internal/services/extract"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Understanding Leases</title></head>
<body>
<article>
<h1>Understanding Leases</h1>
<p>` + "A lease is a time-bounded exclusive claim on a unit of work. " +
	"When the owner crashes, the expiry allows another worker to reclaim the job without operator intervention. " +
	"This paragraph is intentionally long enough to pass the minimum content check that filters out login walls and cookie banners. " +
	"Compare-and-swap on the lease state keeps concurrent schedulers from double-claiming." + `</p>
</article>
</body>
</html>`

func TestExtractReturnsNormalizedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	extractor := extract.New(extract.Config{})
	content, err := extractor.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(content.NormalizedText, "time-bounded exclusive claim") {
		t.Fatalf("unexpected text: %q", content.NormalizedText)
	}
	if content.Meta.WordCount == 0 {
		t.Fatal("expected word count to be set")
	}
}

func TestExtractRejectsShortContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>nope</p></body></html>"))
	}))
	defer srv.Close()

	extractor := extract.New(extract.Config{})
	_, err := extractor.Extract(context.Background(), srv.URL)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "too short") {
		t.Fatalf("expected short-content message, got %v", err)
	}
}

func TestExtractRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	extractor := extract.New(extract.Config{})
	if _, err := extractor.Extract(context.Background(), srv.URL); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestExtractTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("lease reclamation keeps the queue healthy. ", 600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><article><p>" + long + "</p></article></body></html>"))
	}))
	defer srv.Close()

	extractor := extract.New(extract.Config{MaxTextChars: 500})
	content, err := extractor.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.HasSuffix(content.NormalizedText, "[truncated]") {
		t.Fatal("expected truncation marker")
	}
}
