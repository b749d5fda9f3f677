package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/chainboard/internal/model"
)

func TestIsSnapshotFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"board.jsonl", true},
		{"exports/board-2.jsonl", true},
		{"board.jsonl.tmp", false}, // partial write in progress
		{"board.json", false},
		{"notes.txt", false},
		{"jsonl", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isSnapshotFile(tc.name), "isSnapshotFile(%q)", tc.name)
	}
}

func TestScanAllSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.jsonl")
	first := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	writeSnapshotFile(t, path, snapLine(t, first, model.AgentTile{GID: "GID-00"}))

	// Pin the mtime so the rewrite below can move it forward reliably.
	require.NoError(t, os.Chtimes(path, first, first))

	s := NewFileSource(dir, FileOptions{})
	out := make(chan model.BoardSnapshot, 4)
	mods := make(map[string]time.Time)
	ctx := context.Background()

	s.scanAll(ctx, out, mods)
	s.scanAll(ctx, out, mods)
	assert.Len(t, out, 1, "unchanged file re-emitted")

	second := first.Add(time.Minute)
	writeSnapshotFile(t, path, snapLine(t, second, model.AgentTile{GID: "GID-01"}))
	require.NoError(t, os.Chtimes(path, second, second))

	s.scanAll(ctx, out, mods)
	require.Len(t, out, 2, "rewritten file not picked up")

	<-out
	snap := <-out
	assert.Equal(t, "GID-01", snap.Agents[0].GID)
}

func TestScanAllIgnoresTempFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	writeSnapshotFile(t, filepath.Join(dir, "board.jsonl"), snapLine(t, at, model.AgentTile{GID: "GID-02"}))
	writeSnapshotFile(t, filepath.Join(dir, "board.jsonl.tmp"), snapLine(t, at.Add(time.Hour), model.AgentTile{GID: "GID-09"}))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive"), 0755))

	s := NewFileSource(dir, FileOptions{})
	out := make(chan model.BoardSnapshot, 4)

	s.scanAll(context.Background(), out, nil)
	require.Len(t, out, 1)
	snap := <-out
	assert.Equal(t, "GID-02", snap.Agents[0].GID, "partial write leaked through")
}
