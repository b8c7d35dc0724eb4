package ops

import (
	"context"
	"encoding/json"

	"intake/internal/lifecycle"
	"intake/internal/logging"
	"intake/internal/store"
)

// editableArtifactTypes are the enrichment outputs a user may revise. The
// extraction and export types stay system-written.
var editableArtifactTypes = map[string]struct{}{
	store.ArtifactSummary: {},
	store.ArtifactScore:   {},
	store.ArtifactTodos:   {},
	store.ArtifactCard:    {},
}

// EditArtifact appends a user-authored version of one artifact. The new
// version becomes the latest for pin-or-latest reads; earlier versions stay
// intact for history and diffing.
func (s *Service) EditArtifact(ctx context.Context, itemID, artifactType string, payload json.RawMessage) (*store.Artifact, error) {
	if _, ok := editableArtifactTypes[artifactType]; !ok {
		return nil, Errorf(CodeValidation, "artifact type %q is not editable", artifactType)
	}
	if !json.Valid(payload) {
		return nil, Errorf(CodeValidation, "artifact payload is not valid JSON")
	}
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == lifecycle.StatusProcessing {
		return nil, Errorf(CodeProcessNotAllowed, "item %s is processing", item.ID)
	}
	// Versions are contiguous from 1, so version 1 existing means the
	// type exists at all.
	base, err := s.store.GetArtifact(ctx, item.ID, artifactType, 1)
	if err != nil {
		return nil, NewError(CodeInternal, "load artifact", err)
	}
	if base == nil {
		return nil, Errorf(CodeValidation, "item %s has no %s artifact to edit", item.ID, artifactType)
	}

	artifact := &store.Artifact{
		ItemID:    item.ID,
		Type:      artifactType,
		CreatedBy: store.CreatedByUser,
		Payload:   payload,
	}
	if err := s.store.WriteArtifact(ctx, artifact); err != nil {
		return nil, NewError(CodeInternal, "write artifact", err)
	}

	s.logger.Info("artifact edited",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("artifact_type", artifactType),
		logging.Int("version", artifact.Version))
	return artifact, nil
}
