package ops

import (
	"context"
	"strings"

	"intake/internal/diff"
	"intake/internal/lifecycle"
	"intake/internal/store"
)

var knownArtifactTypes = map[string]struct{}{
	store.ArtifactExtraction: {},
	store.ArtifactSummary:    {},
	store.ArtifactScore:      {},
	store.ArtifactTodos:      {},
	store.ArtifactCard:       {},
	store.ArtifactExport:     {},
}

// ItemDetail bundles an item with its selected artifacts and, optionally,
// the full per-type version history.
type ItemDetail struct {
	Item      *store.Item
	Failure   *lifecycle.FailureInfo
	Artifacts map[string]*store.Artifact
	History   map[string][]*store.Artifact
}

// GetItem loads an item plus its artifacts. Overrides pin specific versions
// per type; a pinned version that does not exist falls back to the latest
// one for that type.
func (s *Service) GetItem(ctx context.Context, id string, overrides map[string]int, includeHistory bool) (*ItemDetail, error) {
	for artifactType, version := range overrides {
		if _, ok := knownArtifactTypes[artifactType]; !ok {
			return nil, Errorf(CodeValidation, "unknown artifact type %q", artifactType)
		}
		if version < 1 {
			return nil, Errorf(CodeValidation, "artifact version must be positive, got %d", version)
		}
	}

	item, err := s.requireItem(ctx, id)
	if err != nil {
		return nil, err
	}
	failure, err := item.Failure()
	if err != nil {
		return nil, NewError(CodeDataCorruption, "stored failure payload is unreadable", err)
	}
	artifacts, err := s.store.SelectedArtifacts(ctx, item.ID, overrides)
	if err != nil {
		return nil, NewError(CodeInternal, "load artifacts", err)
	}

	detail := &ItemDetail{Item: item, Failure: failure, Artifacts: artifacts}
	if includeHistory {
		detail.History = make(map[string][]*store.Artifact)
		for artifactType := range artifacts {
			history, err := s.store.ArtifactHistory(ctx, item.ID, artifactType)
			if err != nil {
				return nil, NewError(CodeInternal, "load artifact history", err)
			}
			detail.History[artifactType] = history
		}
	}
	return detail, nil
}

// CompareArtifact diffs two stored versions of one artifact type.
func (s *Service) CompareArtifact(ctx context.Context, id, artifactType string, baseVersion, targetVersion int) (diff.Summary, error) {
	artifactType = strings.ToLower(strings.TrimSpace(artifactType))
	if _, ok := knownArtifactTypes[artifactType]; !ok {
		return diff.Summary{}, Errorf(CodeValidation, "unknown artifact type %q", artifactType)
	}
	item, err := s.requireItem(ctx, id)
	if err != nil {
		return diff.Summary{}, err
	}
	base, err := s.artifactVersion(ctx, item.ID, artifactType, baseVersion)
	if err != nil {
		return diff.Summary{}, err
	}
	target, err := s.artifactVersion(ctx, item.ID, artifactType, targetVersion)
	if err != nil {
		return diff.Summary{}, err
	}
	summary, err := diff.Compare(base.Payload, target.Payload)
	if err != nil {
		return diff.Summary{}, NewError(CodeDataCorruption, "stored artifact payload is unreadable", err)
	}
	return summary, nil
}

func (s *Service) artifactVersion(ctx context.Context, itemID, artifactType string, version int) (*store.Artifact, error) {
	if version < 1 {
		return nil, Errorf(CodeValidation, "artifact version must be positive, got %d", version)
	}
	art, err := s.store.GetArtifact(ctx, itemID, artifactType, version)
	if err != nil {
		return nil, NewError(CodeInternal, "load artifact", err)
	}
	if art == nil {
		return nil, Errorf(CodeNotFound, "artifact %s v%d not found for item %s", artifactType, version, itemID)
	}
	return art, nil
}

// ListItems returns items matching the filter in (created_at, id) order.
func (s *Service) ListItems(ctx context.Context, filter store.ItemFilter) ([]*store.Item, error) {
	items, err := s.store.ListItems(ctx, filter)
	if err != nil {
		return nil, NewError(CodeInternal, "list items", err)
	}
	return items, nil
}
