package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoski/fieldtrail/internal/store"
)

// newTraceDB builds a revision database on disk with a few audit rows.
func newTraceDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "revisions.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.CreateSchema(ctx))

	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = st.WriteEvent(ctx, store.Event{
		PageID: 1001, FieldID: 76, UserID: 40, UserName: "guest", Time: when,
		Payload: []store.Property{{Property: "data", Data: "a test page"}},
	})
	require.NoError(t, err)
	_, err = st.WriteEvent(ctx, store.Event{
		PageID: 1002, FieldID: 76, UserID: 40, UserName: "guest", Time: when,
		Payload: []store.Property{{Property: "data", Data: "another page"}},
	})
	require.NoError(t, err)

	return path
}

func TestTrace_DumpsAllRows(t *testing.T) {
	path := newTraceDB(t)

	out, err := execute(t, "trace", path)
	require.NoError(t, err)
	assert.Contains(t, out, "a test page")
	assert.Contains(t, out, "another page")
	assert.Contains(t, out, "2 row(s)")
}

func TestTrace_PageFilter(t *testing.T) {
	path := newTraceDB(t)

	out, err := execute(t, "trace", path, "--page", "1002")
	require.NoError(t, err)
	assert.NotContains(t, out, "a test page")
	assert.Contains(t, out, "another page")
	assert.Contains(t, out, "1 row(s)")
}

func TestTrace_JSONOutput(t *testing.T) {
	path := newTraceDB(t)

	out, err := execute(t, "trace", path, "--format", "json")
	require.NoError(t, err)

	var response struct {
		Status string     `json:"status"`
		Data   []TraceRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	require.Len(t, response.Data, 2)
	assert.Equal(t, int64(1001), response.Data[0].Page)
	assert.Equal(t, "data", response.Data[0].Property)
}

func TestTrace_MissingDatabase(t *testing.T) {
	_, err := execute(t, "trace", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_EmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.CreateSchema(context.Background()))
	st.Close()

	out, err := execute(t, "trace", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit log is empty.")
}

func TestTrace_NoSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	st.Close()

	_, err = execute(t, "trace", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
