package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oplens/internal/engine"
	"github.com/roach88/oplens/internal/testutil"
)

func TestSaveCapture_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	batch := createTestBatch()

	c, err := s.SaveCapture(ctx, "readfile", batch)
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-7000-8000-000000000001", c.ID)
	assert.Equal(t, int64(1), c.Seq)
	assert.Equal(t, 4, c.ActivityCount)

	loaded, meta, err := s.LoadCapture(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, meta)
	assert.Equal(t, batch.IDs(), loaded.IDs())

	orig, _ := batch.Get(13)
	got, ok := loaded.Get(13)
	require.True(t, ok)
	assert.Equal(t, orig.InitStack, got.InitStack)
	assert.Equal(t, orig.Destroy, got.Destroy)
	assert.Equal(t, json.Number("7"), got.Resource["context"].(map[string]any)["fd"])
}

func TestSaveCapture_KeepsStringsAsCaptured(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	frame := "at open (/app/cafe\u0301.js:1:1)"
	batch := testutil.NewBatch().
		Add(10, 1, testutil.ReadFileOpen,
			testutil.WithStack(frame),
			testutil.WithResource(map[string]any{"path": "/tmp/cafe\u0301.txt"})).
		Store()

	c, err := s.SaveCapture(ctx, "decomposed", batch)
	require.NoError(t, err)
	loaded, _, err := s.LoadCapture(ctx, c.ID)
	require.NoError(t, err)

	got, ok := loaded.Get(10)
	require.True(t, ok)
	assert.Equal(t, []string{frame}, got.InitStack)
	assert.Equal(t, "/tmp/cafe\u0301.txt", got.Resource["path"])
}

func TestSaveCapture_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	batch := testutil.NewBatch().
		Add(30, 1, testutil.Unrelated).
		Add(5, 1, testutil.Unrelated).
		Add(17, 5, testutil.Unrelated).
		Store()

	c, err := s.SaveCapture(ctx, "unordered ids", batch)
	require.NoError(t, err)

	loaded, _, err := s.LoadCapture(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 5, 17}, loaded.IDs())
}

func TestLoadCapture_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.LoadCapture(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListCaptures(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	empty, err := s.ListCaptures(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.SaveCapture(ctx, "first", createTestBatch())
	require.NoError(t, err)
	_, err = s.SaveCapture(ctx, "second", testutil.NewBatch().Store())
	require.NoError(t, err)

	captures, err := s.ListCaptures(ctx)
	require.NoError(t, err)
	require.Len(t, captures, 2)
	assert.Equal(t, "first", captures[0].Label)
	assert.Equal(t, "second", captures[1].Label)
	assert.Equal(t, 0, captures[1].ActivityCount)
}

func TestDeleteCapture_Cascades(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	c, err := s.SaveCapture(ctx, "doomed", createTestBatch())
	require.NoError(t, err)
	res, err := engine.Process(createTestBatch())
	require.NoError(t, err)
	require.NoError(t, s.SaveReport(ctx, c.ID, "1", res))

	require.NoError(t, s.DeleteCapture(ctx, c.ID))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM activities`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&n))
	assert.Zero(t, n)

	err = s.DeleteCapture(ctx, c.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestSaveReport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	c, err := s.SaveCapture(ctx, "readfile", createTestBatch())
	require.NoError(t, err)
	batch, _, err := s.LoadCapture(ctx, c.ID)
	require.NoError(t, err)

	res, err := engine.Process(batch)
	require.NoError(t, err)
	require.NoError(t, s.SaveReport(ctx, c.ID, "1", res))

	entries, err := s.LoadReport(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "fs.readFile", e.Kind)
	assert.Equal(t, 4, e.Steps)
	assert.Equal(t, int64(10), e.Anchor)
	assert.Equal(t, "1", e.TableVersion)
	assert.Len(t, e.Digest, 64)
	assert.Equal(t, res.Entries[0].Operation.Lifecycle, e.Operation.Lifecycle)
	assert.Equal(t, testutil.UserFrame, e.Operation.CalledBy)
	require.Len(t, e.Operation.UserFunctions, 1)
	assert.Equal(t, "done", e.Operation.UserFunctions[0].Name)
}

func TestSaveReport_ReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	c, err := s.SaveCapture(ctx, "readfile", createTestBatch())
	require.NoError(t, err)
	res, err := engine.Process(createTestBatch())
	require.NoError(t, err)

	require.NoError(t, s.SaveReport(ctx, c.ID, "1", res))
	require.NoError(t, s.SaveReport(ctx, c.ID, "2", res))

	entries, err := s.LoadReport(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].TableVersion)
}

func TestSaveReport_UnknownCapture(t *testing.T) {
	s := createTestStore(t)
	res, err := engine.Process(createTestBatch())
	require.NoError(t, err)

	err = s.SaveReport(context.Background(), "missing", "1", res)
	assert.Error(t, err, "foreign key must reject reports without a capture")
}

func TestFindByDigest_SameOperationAcrossCaptures(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	var ids []string
	for _, label := range []string{"a", "b"} {
		c, err := s.SaveCapture(ctx, label, createTestBatch())
		require.NoError(t, err)
		batch, _, err := s.LoadCapture(ctx, c.ID)
		require.NoError(t, err)
		res, err := engine.Process(batch)
		require.NoError(t, err)
		require.NoError(t, s.SaveReport(ctx, c.ID, "1", res))
		ids = append(ids, c.ID)
	}

	entries, err := s.LoadReport(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, entries, 1)

	found, err := s.FindByDigest(ctx, entries[0].Digest)
	require.NoError(t, err)
	assert.Equal(t, ids, found)
}

func TestLoadReport_Empty(t *testing.T) {
	s := createTestStore(t)
	entries, err := s.LoadReport(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
