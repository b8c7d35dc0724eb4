package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FindExportRecord returns the stored export payload for a request key, or
// nil when no export was committed under that key.
func (s *Store) FindExportRecord(ctx context.Context, requestKey string) (*ExportRecord, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT request_key, item_id, payload, created_at FROM export_requests WHERE request_key = ?`,
		requestKey,
	)
	rec, err := scanExportRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find export record: %w", err)
	}
	return rec, nil
}

// SaveExportRecord commits an export payload under its request key. When a
// concurrent export already committed the same key, the stored record is
// returned with created=false so the caller can replay it verbatim.
func (s *Store) SaveExportRecord(ctx context.Context, rec *ExportRecord) (*ExportRecord, bool, error) {
	if rec == nil {
		return nil, false, errors.New("export record is nil")
	}
	now := time.Now().UTC()
	rec.CreatedAt = now

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO export_requests (request_key, item_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		rec.RequestKey,
		rec.ItemID,
		string(rec.Payload),
		formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.FindExportRecord(ctx, rec.RequestKey)
			if findErr != nil {
				return nil, false, findErr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("save export record: %w", err)
	}
	return rec, true, nil
}

func scanExportRecord(scanner interface{ Scan(dest ...any) error }) (*ExportRecord, error) {
	var (
		requestKey string
		itemID     string
		payload    string
		createdRaw string
	)
	if err := scanner.Scan(&requestKey, &itemID, &payload, &createdRaw); err != nil {
		return nil, err
	}
	rec := &ExportRecord{
		RequestKey: requestKey,
		ItemID:     itemID,
		Payload:    json.RawMessage(payload),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return rec, nil
}
