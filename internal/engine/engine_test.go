package engine

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/assemble"
	"github.com/roach88/oplens/internal/signature"
	"github.com/roach88/oplens/internal/testutil"
)

func mixedBatch() *activity.Store {
	b := testutil.NewBatch()
	testutil.ReadFileChain(b, 10, 1)
	b.Add(20, 2, testutil.WriteFileOpen).
		Add(21, 20, testutil.WriteFileWrite).
		Add(22, 21, testutil.WriteFileClose)
	b.Add(30, 3, testutil.Unrelated).
		Add(31, 30, testutil.Tick, testutil.WithResource(testutil.StreamTick("/tmp/out", false, true))).
		Add(32, 30, testutil.WriteStreamOpen).
		Add(33, 30, testutil.WriteStreamWrite).
		Add(34, 30, testutil.WriteStreamWrite).
		Add(35, 30, testutil.WriteStreamClose)
	return b.Store()
}

func TestProcess_SingleReadFile(t *testing.T) {
	s := testutil.ReadFileChain(testutil.NewBatch(), 10, 1).Store()

	res, err := Process(s)
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	entry := res.Entries[0]
	assert.Equal(t, "fs.readFile", entry.Kind)
	assert.Equal(t, 4, entry.Steps)
	assert.Equal(t, int64(10), entry.Anchor)

	open, ok := entry.Operation.Role("open")
	require.True(t, ok)
	assert.Equal(t, int64(10), open.ID)
	closeRec, ok := entry.Operation.Role("close")
	require.True(t, ok)
	assert.Equal(t, int64(13), closeRec.ID)

	kr, ok := res.Kind("fs.readFile")
	require.True(t, ok)
	assert.Equal(t, map[int64][]int64{10: {10, 11, 12, 13}}, kr.Groups)
	assert.Same(t, entry.Operation, kr.Operations[10])
}

func TestProcess_IncompleteChainProducesNothing(t *testing.T) {
	s := testutil.NewBatch().
		Add(10, 1, testutil.ReadFileOpen).
		Add(11, 10, testutil.ReadFileStat).
		Add(13, 11, testutil.ReadFileClose).
		Store()

	res, err := Process(s)
	require.NoError(t, err)
	assert.Empty(t, res.Entries)

	kr, ok := res.Kind("fs.readFile")
	require.True(t, ok)
	assert.Empty(t, kr.Groups)
	assert.Len(t, kr.Dropped, 1)
}

func TestProcess_MixedKinds(t *testing.T) {
	res, err := Process(mixedBatch())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"fs.readFile":    1,
		"fs.readStream":  0,
		"fs.writeStream": 1,
		"fs.writeFile":   1,
	}, res.Count())

	var kinds []string
	for _, e := range res.Entries {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []string{"fs.readFile", "fs.writeStream", "fs.writeFile"}, kinds)

	ws, ok := res.Kind("fs.writeStream")
	require.True(t, ok)
	assert.Equal(t, []int64{31, 32, 33, 34, 35}, ws.Groups[32])
	assert.Equal(t, "/tmp/out", ws.Operations[32].Config["path"])
}

func TestProcess_KindOrderBySteps(t *testing.T) {
	res, err := Process(mixedBatch())
	require.NoError(t, err)

	var order []string
	for _, kr := range res.Kinds {
		order = append(order, kr.Kind)
	}
	assert.Equal(t, []string{"fs.readFile", "fs.readStream", "fs.writeStream", "fs.writeFile"}, order)
}

func TestProcess_SharedTickAcrossStreamKinds(t *testing.T) {
	s := testutil.NewBatch().
		Add(5, 1, testutil.Unrelated).
		Add(9, 5, testutil.Tick, testutil.WithResource(testutil.StreamTick("/tmp/x", true, true))).
		Add(10, 5, testutil.ReadStreamOpen).
		Add(11, 5, testutil.ReadStreamRead).
		Add(12, 5, testutil.ReadStreamClose).
		Add(20, 5, testutil.WriteStreamOpen).
		Add(21, 5, testutil.WriteStreamWrite).
		Add(22, 5, testutil.WriteStreamClose).
		Store()

	res, err := Process(s)
	require.NoError(t, err)

	rs, ok := res.Kind("fs.readStream")
	require.True(t, ok)
	assert.Equal(t, map[int64][]int64{10: {9, 10, 11, 12}}, rs.Groups)

	ws, ok := res.Kind("fs.writeStream")
	require.True(t, ok)
	assert.Equal(t, map[int64][]int64{20: {9, 20, 21, 22}}, ws.Groups)
}

// overlapTable declares a short kind whose pattern is a subset of a long one.
const overlapTable = `
version: "overlap"
kinds: {
	"x.long": {
		steps: 3
		strategy: "chain"
		minChain: 3
		anchor: "open"
		terminal: "close"
		roles: {
			open: {type: "OPEN", frames: [{depth: 0, pattern: "^at open"}]}
			work: {type: "WORK", frames: [{depth: 0, pattern: "^at work"}]}
			close: {type: "CLOSE", frames: [{depth: 0, pattern: "^at close"}]}
		}
	}
	"x.short": {
		steps: 2
		strategy: "chain"
		minChain: 2
		anchor: "open"
		terminal: "close"
		roles: {
			open: {type: "OPEN", frames: [{depth: 0, pattern: "^at open"}]}
			close: {type: "CLOSE", frames: [{depth: 0, pattern: "^at close"}]}
		}
	}
}
`

func overlapStore() *activity.Store {
	open := testutil.Signature{Type: "OPEN", Stack: []string{"at open (/app/x.js:1:1)"}}
	work := testutil.Signature{Type: "WORK", Stack: []string{"at work (/app/x.js:2:1)"}}
	closeSig := testutil.Signature{Type: "CLOSE", Stack: []string{"at close (/app/x.js:3:1)"}}
	return testutil.NewBatch().
		Add(10, 1, open).
		Add(11, 10, work).
		Add(12, 11, closeSig).
		Add(20, 2, open).
		Add(21, 20, closeSig).
		Store()
}

func TestProcess_CrossKindExclusivity(t *testing.T) {
	table, err := signature.CompileString("overlap.cue", overlapTable)
	require.NoError(t, err)

	res, err := Process(overlapStore(), WithTable(table))
	require.NoError(t, err)

	long, ok := res.Kind("x.long")
	require.True(t, ok)
	assert.Equal(t, map[int64][]int64{10: {10, 11, 12}}, long.Groups)

	short, ok := res.Kind("x.short")
	require.True(t, ok)
	assert.Equal(t, map[int64][]int64{20: {20, 21}}, short.Groups)
}

func TestProcess_CrossKindExclusivityDisabled(t *testing.T) {
	table, err := signature.CompileString("overlap.cue", overlapTable)
	require.NoError(t, err)

	res, err := Process(overlapStore(), WithTable(table), WithCrossKindExclusivity(false))
	require.NoError(t, err)

	short, ok := res.Kind("x.short")
	require.True(t, ok)
	assert.Equal(t, map[int64][]int64{10: {10, 12}, 20: {20, 21}}, short.Groups)
}

func TestProcess_Deterministic(t *testing.T) {
	s := mixedBatch()

	first, err := Process(s)
	require.NoError(t, err)
	second, err := Process(s)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Equal(t, len(first.Entries), len(second.Entries))
	for i := range first.Entries {
		a, err := assemble.Digest(first.Entries[i].Operation)
		require.NoError(t, err)
		b, err := assemble.Digest(second.Entries[i].Operation)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestProcess_ExclusivePerKind(t *testing.T) {
	b := testutil.NewBatch()
	for i := int64(0); i < 5; i++ {
		testutil.ReadFileChain(b, 10+i*10, 100+i)
	}
	res, err := Process(b.Store())
	require.NoError(t, err)

	for _, kr := range res.Kinds {
		seen := map[int64]bool{}
		for _, members := range kr.Groups {
			for _, id := range members {
				assert.False(t, seen[id], "kind %s: id %d reused", kr.Kind, id)
				seen[id] = true
			}
		}
	}
	assert.Equal(t, 5, res.Count()["fs.readFile"])
}

func TestProcess_TimeAliveIsExact(t *testing.T) {
	res, err := Process(mixedBatch())
	require.NoError(t, err)

	for _, e := range res.Entries {
		lc := e.Operation.Lifecycle
		require.True(t, lc.Created.Valid, e.Kind)
		require.True(t, lc.Destroyed.Valid, e.Kind)
		assert.Equal(t, lc.Destroyed.NS-lc.Created.NS, lc.TimeAlive.NS, e.Kind)
		assert.Greater(t, lc.Destroyed.NS, lc.Created.NS, e.Kind)
	}
}

func TestProcess_AssemblyOptions(t *testing.T) {
	s := testutil.ReadFileChain(testutil.NewBatch(), 10, 1).Store()

	res, err := Process(s, WithActivities(true), WithSeparateFunctions(false), WithMergeFunctions(false))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	for _, rec := range res.Entries[0].Operation.Roles {
		assert.NotNil(t, rec.Activity)
	}
}

func TestProcess_OrderViolationIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := testutil.NewBatch().
		Add(10, 1, testutil.Unrelated, testutil.WithInit(5_000)).
		Add(11, 1, testutil.Unrelated, testutil.WithInit(1_000)).
		Store()

	res, err := Process(s, WithLogger(logger))
	require.NoError(t, err)
	require.NotNil(t, res.OrderViolation)
	assert.Equal(t, int64(11), res.OrderViolation.ID)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "kind resolved")
}

func TestProcess_Errors(t *testing.T) {
	_, err := Process(nil)
	require.Error(t, err)
	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeNilStore, pe.Code)

	_, err = Process(testutil.NewBatch().Store(), WithTable(&signature.Table{}))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeNoTable, pe.Code)
	assert.False(t, IsResolveError(err))
}

func TestProcessAll(t *testing.T) {
	stores := []*activity.Store{
		testutil.ReadFileChain(testutil.NewBatch(), 10, 1).Store(),
		mixedBatch(),
		testutil.NewBatch().Store(),
	}

	results, err := ProcessAll(context.Background(), stores)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Len(t, results[0].Entries, 1)
	assert.Len(t, results[1].Entries, 3)
	assert.Empty(t, results[2].Entries)
}

func TestProcessAll_FirstErrorWins(t *testing.T) {
	_, err := ProcessAll(context.Background(), []*activity.Store{mixedBatch(), nil})
	require.Error(t, err)
	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
}
