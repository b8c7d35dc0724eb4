package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"intake/internal/lifecycle"
)

const itemColumns = "id, capture_key, url, url_original, title, domain, source_type, intent_text, status, priority, match_score, failure_json, created_at, updated_at"

// CreateItem inserts a new item. A capture_key collision surfaces as a
// unique-violation error; use FindByCaptureKey to resolve it as a replay.
func (s *Store) CreateItem(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = lifecycle.StatusCaptured
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO items (
            id, capture_key, url, url_original, title, domain, source_type,
            intent_text, status, priority, match_score, failure_json,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.CaptureKey,
		item.URL,
		nullableString(item.URLOriginal),
		nullableString(item.Title),
		nullableString(item.Domain),
		item.SourceType,
		item.IntentText,
		item.Status,
		nullableString(item.Priority),
		item.MatchScore,
		nullableString(item.FailureJSON),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err came from a uniqueness constraint.
func IsUniqueViolation(err error) bool {
	return isUniqueViolation(err)
}

// GetItem fetches an item by identifier. Returns nil when not found.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindByCaptureKey returns the item matching a capture key, or nil.
func (s *Store) FindByCaptureKey(ctx context.Context, key string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM items WHERE capture_key = ?`, key)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by capture key: %w", err)
	}
	return item, nil
}

// TransitionStatus applies a compare-and-swap status change. Transitioning
// into queued always clears any stored failure payload. Zero matched rows
// yields ErrStateConflict.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to lifecycle.Status) error {
	var (
		res sql.Result
		err error
	)
	now := formatTime(time.Now())
	if to == lifecycle.StatusQueued {
		res, err = s.execWithRetry(
			ctx,
			`UPDATE items SET status = ?, failure_json = NULL, updated_at = ? WHERE id = ? AND status = ?`,
			to, now, id, from,
		)
	} else {
		res, err = s.execWithRetry(
			ctx,
			`UPDATE items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, now, id, from,
		)
	}
	if err != nil {
		return fmt.Errorf("transition item %s: %w", id, err)
	}
	return requireOneRow(res, id, from, to)
}

// TransitionToReady moves a processing item to ready, recording its score.
func (s *Store) TransitionToReady(ctx context.Context, id, priority string, matchScore float64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET status = ?, priority = ?, match_score = ?, failure_json = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		lifecycle.StatusReady,
		priority,
		matchScore,
		formatTime(time.Now()),
		id,
		lifecycle.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("transition item %s to ready: %w", id, err)
	}
	return requireOneRow(res, id, lifecycle.StatusProcessing, lifecycle.StatusReady)
}

// TransitionToFailed moves an item into a failed status with a structured
// failure payload.
func (s *Store) TransitionToFailed(ctx context.Context, id string, from, to lifecycle.Status, failureJSON string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET status = ?, failure_json = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		nullableString(failureJSON),
		formatTime(time.Now()),
		id,
		from,
	)
	if err != nil {
		return fmt.Errorf("transition item %s to %s: %w", id, to, err)
	}
	return requireOneRow(res, id, from, to)
}

// UpdateIntent replaces the stated intent and capture fingerprint for an
// item. Rejected with ErrStateConflict while the item is processing.
func (s *Store) UpdateIntent(ctx context.Context, id, intent, captureKey string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE items SET intent_text = ?, capture_key = ?, updated_at = ? WHERE id = ? AND status != ?`,
		intent,
		captureKey,
		formatTime(time.Now()),
		id,
		lifecycle.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update intent for %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}
	return nil
}

// UpdateTitle records a title discovered during extraction.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE items SET title = ?, updated_at = ? WHERE id = ?`,
		nullableString(title),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update title for %s: %w", id, err)
	}
	return nil
}

// ListItems returns items matching the filter in deterministic
// (created_at, id) order.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var clauses []string
	var args []any

	if len(filter.Statuses) > 0 {
		placeholders := makePlaceholders(len(filter.Statuses))
		clauses = append(clauses, `status IN (`+placeholders+`)`)
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.Priority != "" {
		clauses = append(clauses, `priority = ?`)
		args = append(args, filter.Priority)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Health aggregates item and job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	summary := HealthSummary{ByStatus: make(map[lifecycle.Status]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM items GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status lifecycle.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return summary, err
		}
		summary.ByStatus[status] = count
		summary.TotalItems += count
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	jobRows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("job stats: %w", err)
	}
	defer jobRows.Close()
	for jobRows.Next() {
		var status string
		var count int
		if err := jobRows.Scan(&status, &count); err != nil {
			return summary, err
		}
		switch status {
		case JobQueued:
			summary.QueuedJobs = count
		case JobLeased:
			summary.LeasedJobs = count
		case JobFailed:
			summary.FailedJobs = count
		}
	}
	return summary, jobRows.Err()
}

func requireOneRow(res sql.Result, id string, from, to lifecycle.Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s %s -> %s: %w", id, from, to, ErrStateConflict)
	}
	return nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id          string
		captureKey  string
		url         string
		urlOriginal sql.NullString
		title       sql.NullString
		domain      sql.NullString
		sourceType  string
		intentText  string
		statusStr   string
		priority    sql.NullString
		matchScore  sql.NullFloat64
		failureJSON sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&captureKey,
		&url,
		&urlOriginal,
		&title,
		&domain,
		&sourceType,
		&intentText,
		&statusStr,
		&priority,
		&matchScore,
		&failureJSON,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:          id,
		CaptureKey:  captureKey,
		URL:         url,
		URLOriginal: urlOriginal.String,
		Title:       title.String,
		Domain:      domain.String,
		SourceType:  sourceType,
		IntentText:  intentText,
		Status:      lifecycle.Status(statusStr),
		Priority:    priority.String,
		FailureJSON: failureJSON.String,
	}
	if matchScore.Valid {
		score := matchScore.Float64
		item.MatchScore = &score
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}
