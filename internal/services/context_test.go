package services_test

import (
	"context"
	"testing"

	"intake/internal/services"
)

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("empty context should not carry an item id")
	}

	ctx = services.WithItemID(ctx, "item-1")
	ctx = services.WithJobID(ctx, 42)
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != "item-1" {
		t.Fatalf("item id = %q, %v", id, ok)
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("job id = %d, %v", id, ok)
	}
	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("run id = %q, %v", id, ok)
	}
	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "req-1" {
		t.Fatalf("request id = %q, %v", id, ok)
	}
}

func TestWithItemIDIgnoresEmpty(t *testing.T) {
	ctx := services.WithItemID(context.Background(), "")
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("empty item id should not be stored")
	}
}
