package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"intake/internal/config"
	"intake/internal/lifecycle"
	"intake/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewItem creates a captured item for tests using the provided store. The
// capture key defaults to a fresh uuid so tests never collide.
func NewItem(t testing.TB, st *store.Store, url, intent string) *store.Item {
	t.Helper()

	item := &store.Item{
		ID:         uuid.NewString(),
		CaptureKey: uuid.NewString(),
		URL:        url,
		SourceType: "web",
		IntentText: intent,
		Status:     lifecycle.StatusCaptured,
	}
	if err := st.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("store.CreateItem: %v", err)
	}
	return item
}
