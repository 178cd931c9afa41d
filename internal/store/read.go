package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Row is one entry of the joined audit log, shaped as the 6-tuple the
// oracle compares against: (subject, field, user, username, property, value).
type Row struct {
	PageID   int64
	FieldID  int64
	UserID   int64
	UserName string
	Property string
	Value    string
}

// ReadRows returns the full joined audit log in insertion order.
// Insertion order is the data row id: payload rows are inserted in capture
// order, so this matches the chronological order of field-mutating saves.
//
// Returns an empty slice (not nil) when the log is empty.
func (s *Store) ReadRows(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.pages_id, h.fields_id, h.users_id, h.username, d.property, d.data
		FROM revision_header h
		JOIN revision_data d ON d.header_id = h.id
		ORDER BY d.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query audit rows: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.PageID, &r.FieldID, &r.UserID, &r.UserName, &r.Property, &r.Value); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}

	return out, nil
}

// ReadRowsForPage returns the joined audit log restricted to one subject,
// in insertion order.
func (s *Store) ReadRowsForPage(ctx context.Context, pageID int64) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.pages_id, h.fields_id, h.users_id, h.username, d.property, d.data
		FROM revision_header h
		JOIN revision_data d ON d.header_id = h.id
		WHERE h.pages_id = ?
		ORDER BY d.id ASC
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("query audit rows for page %d: %w", pageID, err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.PageID, &r.FieldID, &r.UserID, &r.UserName, &r.Property, &r.Value); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}

	return out, nil
}

// CountEvents returns the number of header rows for a page.
func (s *Store) CountEvents(ctx context.Context, pageID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM revision_header WHERE pages_id = ?
	`, pageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// PropertiesAt returns the payload of the most recent event for
// (page, field) at or before the given instant, keyed by property name.
// ok is false when no event exists at or before that instant.
//
// Used by snapshot reconstruction: the latest surviving event per field
// determines the field's value as of that time.
func (s *Store) PropertiesAt(ctx context.Context, pageID, fieldID int64, at time.Time) (map[string]string, bool, error) {
	var headerID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM revision_header
		WHERE pages_id = ? AND fields_id = ? AND created_at <= ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, pageID, fieldID, at.UnixNano()).Scan(&headerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("latest event: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT property, data FROM revision_data
		WHERE header_id = ?
		ORDER BY id ASC
	`, headerID)
	if err != nil {
		return nil, false, fmt.Errorf("event payload: %w", err)
	}
	defer rows.Close()

	props := make(map[string]string)
	for rows.Next() {
		var property, data string
		if err := rows.Scan(&property, &data); err != nil {
			return nil, false, fmt.Errorf("scan payload: %w", err)
		}
		props[property] = data
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate payload: %w", err)
	}

	return props, true, nil
}
