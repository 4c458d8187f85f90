package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/testutil"
)

// createTestStore creates a new store in a temp dir with fixed capture ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewFixedIDGenerator("")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBatch builds one fs.readFile chain whose close carries a
// callback and an fd.
func createTestBatch() *activity.Store {
	b := testutil.NewBatch()
	b.Add(10, 1, testutil.ReadFileOpen, testutil.WithResource(map[string]any{
		"oncomplete": testutil.Callback("done", "/app/index.js:14:3"),
	}))
	b.Add(11, 10, testutil.ReadFileStat)
	b.Add(12, 11, testutil.ReadFileRead)
	b.Add(13, 12, testutil.ReadFileClose, testutil.WithResource(map[string]any{
		"context": map[string]any{"fd": 7},
	}))
	return b.Store()
}
