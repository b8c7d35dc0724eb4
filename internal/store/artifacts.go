package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const artifactColumns = "id, item_id, artifact_type, version, created_by, run_id, engine_version, template_version, payload, created_at"

// WriteArtifact appends a new artifact version for (item, type). The version
// is computed as max(existing)+1 inside a single INSERT...SELECT so
// concurrent writers cannot produce gaps or duplicates; prior rows are never
// touched. The written version is filled into art.Version.
func (s *Store) WriteArtifact(ctx context.Context, art *Artifact) error {
	if art == nil {
		return errors.New("artifact is nil")
	}
	if art.ItemID == "" || art.Type == "" {
		return errors.New("artifact item id and type are required")
	}
	if len(art.Payload) == 0 {
		return errors.New("artifact payload is empty")
	}
	if art.CreatedBy == "" {
		art.CreatedBy = CreatedBySystem
	}
	now := time.Now().UTC()
	art.CreatedAt = now

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (item_id, artifact_type, version, created_by, run_id, engine_version, template_version, payload, created_at)
         SELECT ?, ?, COALESCE(MAX(version), 0) + 1, ?, ?, ?, ?, ?, ?
         FROM artifacts WHERE item_id = ? AND artifact_type = ?`,
		art.ItemID,
		art.Type,
		art.CreatedBy,
		nullableString(art.RunID),
		nullableString(art.EngineVersion),
		nullableString(art.TemplateVersion),
		string(art.Payload),
		formatTime(now),
		art.ItemID,
		art.Type,
	)
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	art.ID = id

	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT version FROM artifacts WHERE id = ?`, id)
	if err := row.Scan(&art.Version); err != nil {
		return fmt.Errorf("read written version: %w", err)
	}
	return nil
}

// GetArtifact fetches one exact (item, type, version) row. Returns nil when
// the version does not exist.
func (s *Store) GetArtifact(ctx context.Context, itemID, artifactType string, version int) (*Artifact, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+artifactColumns+` FROM artifacts WHERE item_id = ? AND artifact_type = ? AND version = ?`,
		itemID,
		artifactType,
		version,
	)
	art, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return art, nil
}

// LatestArtifacts returns the highest-version row per artifact type for an
// item, keyed by type.
func (s *Store) LatestArtifacts(ctx context.Context, itemID string) (map[string]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+artifactColumns+` FROM artifacts a
         WHERE item_id = ?
           AND version = (SELECT MAX(version) FROM artifacts b
                          WHERE b.item_id = a.item_id AND b.artifact_type = a.artifact_type)`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("latest artifacts: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]*Artifact)
	for rows.Next() {
		art, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		latest[art.Type] = art
	}
	return latest, rows.Err()
}

// SelectedArtifacts returns the latest artifact per type, except that types
// named in overrides resolve to the pinned version when it exists. A pinned
// version that does not exist falls back to latest (the PinOrLatest policy).
func (s *Store) SelectedArtifacts(ctx context.Context, itemID string, overrides map[string]int) (map[string]*Artifact, error) {
	selected, err := s.LatestArtifacts(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for artifactType, version := range overrides {
		if _, present := selected[artifactType]; !present {
			continue
		}
		pinned, err := s.GetArtifact(ctx, itemID, artifactType, version)
		if err != nil {
			return nil, err
		}
		if pinned != nil {
			selected[artifactType] = pinned
		}
	}
	return selected, nil
}

// ArtifactHistory returns all versions of one artifact type, newest first.
func (s *Store) ArtifactHistory(ctx context.Context, itemID, artifactType string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+artifactColumns+` FROM artifacts WHERE item_id = ? AND artifact_type = ? ORDER BY version DESC`,
		itemID,
		artifactType,
	)
	if err != nil {
		return nil, fmt.Errorf("artifact history: %w", err)
	}
	defer rows.Close()

	var history []*Artifact
	for rows.Next() {
		art, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, art)
	}
	return history, rows.Err()
}

// HasPrimaryArtifacts reports whether all four primary artifact types have
// at least one version for the item.
func (s *Store) HasPrimaryArtifacts(ctx context.Context, itemID string) (bool, error) {
	placeholders := makePlaceholders(len(PrimaryArtifactTypes))
	args := make([]any, 0, len(PrimaryArtifactTypes)+1)
	args = append(args, itemID)
	for _, artifactType := range PrimaryArtifactTypes {
		args = append(args, artifactType)
	}
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(DISTINCT artifact_type) FROM artifacts WHERE item_id = ? AND artifact_type IN (`+placeholders+`)`,
		args...,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("count primary artifacts: %w", err)
	}
	return count == len(PrimaryArtifactTypes), nil
}

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		id              int64
		itemID          string
		artifactType    string
		version         int
		createdBy       string
		runID           sql.NullString
		engineVersion   sql.NullString
		templateVersion sql.NullString
		payload         string
		createdRaw      string
	)

	if err := scanner.Scan(
		&id,
		&itemID,
		&artifactType,
		&version,
		&createdBy,
		&runID,
		&engineVersion,
		&templateVersion,
		&payload,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	art := &Artifact{
		ID:              id,
		ItemID:          itemID,
		Type:            artifactType,
		Version:         version,
		CreatedBy:       createdBy,
		RunID:           runID.String,
		EngineVersion:   engineVersion.String,
		TemplateVersion: templateVersion.String,
		Payload:         json.RawMessage(payload),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		art.CreatedAt = created
	}
	return art, nil
}
