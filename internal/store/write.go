package store

import (
	"context"
	"fmt"
	"time"
)

// Property is one payload entry under a revision event. The default value
// of a field is recorded under property "data"; explicit language variants
// are recorded under "data" + the language id (e.g. "data1012").
type Property struct {
	Property string
	Data     string
}

// Event is one tracked field-change: a header row plus its payload rows.
type Event struct {
	PageID   int64
	FieldID  int64
	UserID   int64
	UserName string
	Time     time.Time
	Payload  []Property
}

// WriteEvent inserts one revision event (header + payload rows) atomically.
// Returns the header row id.
//
// Payload rows are inserted in slice order so the joined read preserves
// the default-value-then-variants ordering the capture layer produces.
func (s *Store) WriteEvent(ctx context.Context, ev Event) (int64, error) {
	if len(ev.Payload) == 0 {
		return 0, fmt.Errorf("write event: payload must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write event: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO revision_header
		(pages_id, fields_id, users_id, username, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		ev.PageID,
		ev.FieldID,
		ev.UserID,
		ev.UserName,
		ev.Time.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("write event: insert header: %w", err)
	}

	headerID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write event: last insert id: %w", err)
	}

	for _, p := range ev.Payload {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO revision_data (header_id, property, data)
			VALUES (?, ?, ?)
		`, headerID, p.Property, p.Data); err != nil {
			return 0, fmt.Errorf("write event: insert data %q: %w", p.Property, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write event: commit: %w", err)
	}

	return headerID, nil
}

// DeleteForPages removes all revision events for the given page ids.
// Data rows cascade via the header foreign key.
// Called when a tracked page (or repeater sub-page) is deleted.
func (s *Store) DeleteForPages(ctx context.Context, pageIDs ...int64) error {
	if len(pageIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete for pages: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range pageIDs {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM revision_header WHERE pages_id = ?
		`, id); err != nil {
			return fmt.Errorf("delete for pages: page %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete for pages: commit: %w", err)
	}
	return nil
}

// Prune deletes events created strictly before the horizon.
// Returns the number of header rows removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM revision_header WHERE created_at < ?
	`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune: rows affected: %w", err)
	}
	return n, nil
}

// PruneToDepth keeps at most depth most-recent events per (page, field)
// pair and deletes the rest. Returns the number of header rows removed.
func (s *Store) PruneToDepth(ctx context.Context, depth int) (int64, error) {
	if depth < 0 {
		return 0, fmt.Errorf("prune to depth: depth must be non-negative, got %d", depth)
	}

	// Rank events newest-first within each (page, field) group; everything
	// past the requested depth goes.
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM revision_header WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY pages_id, fields_id
					ORDER BY created_at DESC, id DESC
				) AS rank
				FROM revision_header
			) WHERE rank > ?
		)
	`, depth)
	if err != nil {
		return 0, fmt.Errorf("prune to depth: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune to depth: rows affected: %w", err)
	}
	return n, nil
}
