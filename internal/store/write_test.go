package store

import (
	"context"
	"testing"
	"time"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testEvent builds a single-property event for page/field with a
// deterministic timestamp derived from the field id.
func testEvent(pageID, fieldID int64) Event {
	return Event{
		PageID:   pageID,
		FieldID:  fieldID,
		UserID:   40,
		UserName: "guest",
		Time:     testBase.Add(time.Duration(fieldID) * time.Second),
		Payload:  []Property{{Property: "data", Data: "value"}},
	}
}

func TestWriteEvent_HeaderAndData(t *testing.T) {
	s := openInstalled(t)
	ctx := context.Background()

	ev := Event{
		PageID:   1001,
		FieldID:  76,
		UserID:   40,
		UserName: "guest",
		Time:     testBase,
		Payload: []Property{
			{Property: "data", Data: "a test page"},
		},
	}

	headerID, err := s.WriteEvent(ctx, ev)
	if err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}
	if headerID == 0 {
		t.Error("expected non-zero header id")
	}

	rows, err := s.ReadRows(ctx)
	if err != nil {
		t.Fatalf("ReadRows() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	want := Row{PageID: 1001, FieldID: 76, UserID: 40, UserName: "guest", Property: "data", Value: "a test page"}
	if got != want {
		t.Errorf("row mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestWriteEvent_MultiplePropertiesPreserveOrder(t *testing.T) {
	s := openInstalled(t)
	ctx := context.Background()

	ev := testEvent(1001, 76)
	ev.Payload = []Property{
		{Property: "data", Data: ""},
		{Property: "data1012", Data: "otsikko"},
		{Property: "data1013", Data: "titel"},
	}

	if _, err := s.WriteEvent(ctx, ev); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}

	rows, err := s.ReadRows(ctx)
	if err != nil {
		t.Fatalf("ReadRows() failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	wantProps := []string{"data", "data1012", "data1013"}
	for i, p := range wantProps {
		if rows[i].Property != p {
			t.Errorf("row %d: property = %q, want %q", i, rows[i].Property, p)
		}
	}
}

func TestWriteEvent_EmptyPayloadRejected(t *testing.T) {
	s := openInstalled(t)

	ev := testEvent(1, 1)
	ev.Payload = nil
	if _, err := s.WriteEvent(context.Background(), ev); err == nil {
		t.Error("expected error for empty payload, got nil")
	}
}

func TestDeleteForPages_CascadesData(t *testing.T) {
	s := openInstalled(t)
	ctx := context.Background()

	if _, err := s.WriteEvent(ctx, testEvent(1001, 76)); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}
	if _, err := s.WriteEvent(ctx, testEvent(1002, 76)); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}

	if err := s.DeleteForPages(ctx, 1001); err != nil {
		t.Fatalf("DeleteForPages() failed: %v", err)
	}

	rows, err := s.ReadRows(ctx)
	if err != nil {
		t.Fatalf("ReadRows() failed: %v", err)
	}
	if len(rows) != 1 || rows[0].PageID != 1002 {
		t.Errorf("expected only page 1002 rows to survive, got %+v", rows)
	}

	// Orphaned data rows must not exist
	var orphans int
	err = s.DB().QueryRow(`
		SELECT COUNT(*) FROM revision_data d
		LEFT JOIN revision_header h ON h.id = d.header_id
		WHERE h.id IS NULL
	`).Scan(&orphans)
	if err != nil {
		t.Fatalf("orphan query failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("expected 0 orphaned data rows, got %d", orphans)
	}
}

func TestDeleteForPages_NoIDsIsNoop(t *testing.T) {
	s := openInstalled(t)
	if err := s.DeleteForPages(context.Background()); err != nil {
		t.Errorf("DeleteForPages() with no ids failed: %v", err)
	}
}

func TestPrune_RemovesOldEvents(t *testing.T) {
	s := openInstalled(t)
	ctx := context.Background()

	old := testEvent(1001, 76)
	old.Time = testBase
	recent := testEvent(1001, 78)
	recent.Time = testBase.Add(time.Hour)

	if _, err := s.WriteEvent(ctx, old); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}
	if _, err := s.WriteEvent(ctx, recent); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}

	n, err := s.Prune(ctx, testBase.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned event, got %d", n)
	}

	rows, err := s.ReadRows(ctx)
	if err != nil {
		t.Fatalf("ReadRows() failed: %v", err)
	}
	if len(rows) != 1 || rows[0].FieldID != 78 {
		t.Errorf("expected only the recent event to survive, got %+v", rows)
	}
}

func TestPruneToDepth_KeepsMostRecentPerField(t *testing.T) {
	s := openInstalled(t)
	ctx := context.Background()

	// Three edits of the same field, two of another.
	for i := 0; i < 3; i++ {
		ev := testEvent(1001, 76)
		ev.Time = testBase.Add(time.Duration(i) * time.Minute)
		ev.Payload = []Property{{Property: "data", Data: string(rune('a' + i))}}
		if _, err := s.WriteEvent(ctx, ev); err != nil {
			t.Fatalf("WriteEvent() failed: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		ev := testEvent(1001, 78)
		ev.Time = testBase.Add(time.Duration(i) * time.Minute)
		if _, err := s.WriteEvent(ctx, ev); err != nil {
			t.Fatalf("WriteEvent() failed: %v", err)
		}
	}

	n, err := s.PruneToDepth(ctx, 2)
	if err != nil {
		t.Fatalf("PruneToDepth() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned event, got %d", n)
	}

	// The two newest title edits survive, oldest ("a") is gone.
	props, ok, err := s.PropertiesAt(ctx, 1001, 76, testBase.Add(time.Hour))
	if err != nil || !ok {
		t.Fatalf("PropertiesAt() failed: ok=%v err=%v", ok, err)
	}
	if props["data"] != "c" {
		t.Errorf("newest value = %q, want %q", props["data"], "c")
	}
}

func TestPruneToDepth_NegativeDepth(t *testing.T) {
	s := openInstalled(t)
	if _, err := s.PruneToDepth(context.Background(), -1); err == nil {
		t.Error("expected error for negative depth, got nil")
	}
}
