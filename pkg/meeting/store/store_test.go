package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boardroomlabs/boardroom/pkg/core"
	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

func TestCreateFileStartsVersionHistory(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	file, err := s.CreateFile(ctx, "p1", "notes.md", types.FileDoc, "first draft", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, file.ID)
	require.Equal(t, "first draft", file.Content)
	require.Len(t, file.Versions, 1)
	require.Equal(t, "Alice", file.Versions[0].Author)

	_, err = s.CreateFile(ctx, "p1", "  ", types.FileDoc, "x", "Alice")
	require.Error(t, err)
}

func TestUpdateFileAppendsVersions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	file, err := s.CreateFile(ctx, "p1", "notes.md", types.FileDoc, "v1", "Alice")
	require.NoError(t, err)

	updated, err := s.UpdateFile(ctx, file.ID, "v2", "Bob")
	require.NoError(t, err)
	require.Equal(t, "v2", updated.Content)
	require.Len(t, updated.Versions, 2)
	require.Equal(t, "v1", updated.Versions[0].Content)
	require.Equal(t, "v2", updated.Versions[1].Content)

	_, err = s.UpdateFile(ctx, "missing", "x", "Bob")
	require.True(t, core.IsType(err, core.ErrNotFound))
}

func TestRestoreVersionAppendsInsteadOfRewriting(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	file, err := s.CreateFile(ctx, "p1", "notes.md", types.FileDoc, "v1", "Alice")
	require.NoError(t, err)
	updated, err := s.UpdateFile(ctx, file.ID, "v2", "Alice")
	require.NoError(t, err)

	restored, err := s.RestoreVersion(ctx, file.ID, updated.Versions[0].ID, "Bob")
	require.NoError(t, err)
	require.Equal(t, "v1", restored.Content)
	// History stays linear: the restore is a third version, not a rewrite.
	require.Len(t, restored.Versions, 3)
	require.Equal(t, "v1", restored.Versions[2].Content)
	require.Equal(t, "Bob", restored.Versions[2].Author)

	_, err = s.RestoreVersion(ctx, file.ID, "missing-version", "Bob")
	require.True(t, core.IsType(err, core.ErrNotFound))
}

func TestGetAgentFilesFiltersAndOrders(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	times := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	i := 0
	s.now = func() time.Time { ts := times[i%len(times)]; i++; return ts }

	_, err := s.CreateFile(ctx, "p1", "b.md", types.FileDoc, "", "a")
	require.NoError(t, err)
	_, err = s.CreateFile(ctx, "p1", "a.md", types.FileDoc, "", "a")
	require.NoError(t, err)
	_, err = s.CreateFile(ctx, "p2", "other.md", types.FileDoc, "", "a")
	require.NoError(t, err)

	files, err := s.GetAgentFiles(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "b.md", files[0].Name)
	require.Equal(t, "a.md", files[1].Name)
}

func TestTranscriptMemoryRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	turns := []types.TranscriptTurn{
		{Role: types.RoleUser, Text: "hello"},
		{Role: types.RoleModel, Text: "Alice: hi there"},
	}
	require.NoError(t, s.SaveSessionTranscript(ctx, "p1", turns))

	memory, err := s.GetAgentMemory(ctx, "p1", 10)
	require.NoError(t, err)
	require.Equal(t, "- [user] hello\n- [model] Alice: hi there", memory)

	empty, err := s.GetAgentMemory(ctx, "unknown", 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSaveSessionTranscriptSkipsEmpty(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SaveSessionTranscript(context.Background(), "p1", nil))

	memory, err := s.GetAgentMemory(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Empty(t, memory)
}

func TestFormatMemoryKeepsMostRecentTurns(t *testing.T) {
	records := []types.SessionTranscript{
		{
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Turns: []types.TranscriptTurn{
				{Role: types.RoleUser, Text: "one"},
				{Role: types.RoleModel, Text: "two"},
			},
		},
		{
			Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			Turns: []types.TranscriptTurn{
				{Role: types.RoleUser, Text: "three"},
			},
		},
	}

	got := FormatMemory(records, 2)
	require.Equal(t, 2, len(strings.Split(got, "\n")))
	require.Contains(t, got, "two")
	require.Contains(t, got, "three")
	require.NotContains(t, got, "one")

	require.Empty(t, FormatMemory(nil, 5))
}

func TestFormatMemoryOrdersRecordsByTimestamp(t *testing.T) {
	records := []types.SessionTranscript{
		{
			Timestamp: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Turns:     []types.TranscriptTurn{{Role: types.RoleUser, Text: "later"}},
		},
		{
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Turns:     []types.TranscriptTurn{{Role: types.RoleUser, Text: "earlier"}},
		},
	}

	got := FormatMemory(records, 0)
	require.Equal(t, "- [user] earlier\n- [user] later", got)
}
