package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/signature"
)

func role(t *testing.T, kind, name string) *signature.Role {
	t.Helper()
	k, ok := signature.Default().Kind(kind)
	require.True(t, ok)
	r, ok := k.Role(name)
	require.True(t, ok)
	return r
}

func TestMatchRole_ExactFrames(t *testing.T) {
	read := role(t, "fs.readFile", "read")

	a := &activity.Activity{
		Type: "FSREQWRAP",
		InitStack: []string{
			"at ReadFileContext.read (fs.js:365:8)",
			"at readFileAfterStat (fs.js:420:11)",
			"at /app/index.js:3:4",
		},
	}
	assert.True(t, MatchRole(read, a))

	wrongType := *a
	wrongType.Type = "TickObject"
	assert.False(t, MatchRole(read, &wrongType))

	shortStack := *a
	shortStack.InitStack = a.InitStack[:1]
	assert.False(t, MatchRole(read, &shortStack), "frame 1 is required")

	noStack := *a
	noStack.InitStack = nil
	assert.False(t, MatchRole(read, &noStack))
}

func TestMatchRole_Structural(t *testing.T) {
	tick := role(t, "fs.readStream", "tick")

	a := &activity.Activity{
		Type: "TickObject",
		Resource: map[string]any{
			"args": []any{map[string]any{"path": "/tmp/x", "readable": true}},
		},
	}
	assert.True(t, MatchRole(tick, a))

	notReadable := &activity.Activity{
		Type: "TickObject",
		Resource: map[string]any{
			"args": []any{map[string]any{"path": "/tmp/x", "readable": false}},
		},
	}
	assert.False(t, MatchRole(tick, notReadable))

	noPath := &activity.Activity{
		Type:     "TickObject",
		Resource: map[string]any{"args": []any{map[string]any{"readable": true}}},
	}
	assert.False(t, MatchRole(tick, noPath))

	flagNotBool := &activity.Activity{
		Type:     "TickObject",
		Resource: map[string]any{"args": []any{map[string]any{"path": "/x", "readable": "yes"}}},
	}
	assert.False(t, MatchRole(tick, flagNotBool))
}

func TestClassify_PartitionsByKindAndRole(t *testing.T) {
	s := activity.MustNewStore([]activity.Activity{
		{ID: 10, TriggerID: 1, Type: "FSREQWRAP", InitStack: []string{"at Object.fs.readFile (fs.js:1:1)", "at /app/a.js:1:1"}},
		{ID: 11, TriggerID: 10, Type: "FSREQWRAP", InitStack: []string{"at readFileAfterOpen (fs.js:1:1)", "at FSReqWrap.oncomplete (fs.js:1:1)"}},
		{ID: 12, TriggerID: 1, Type: "TickObject", Resource: map[string]any{
			"args": []any{map[string]any{"path": "/p", "readable": true, "writable": true}},
		}},
		{ID: 13, TriggerID: 1, Type: "Timeout"},
	})

	c := Classify(s, signature.Default())

	assert.Equal(t, []int64{10}, c.IDs("fs.readFile", "open"))
	assert.Equal(t, []int64{11}, c.IDs("fs.readFile", "stat"))
	assert.Empty(t, c.IDs("fs.readFile", "close"))
	assert.True(t, c.Has(10, "fs.readFile", "open"))
	assert.False(t, c.Has(10, "fs.readFile", "stat"))

	// a duplex tick is a tick for both stream kinds
	assert.Equal(t, []Tag{
		{Kind: "fs.readStream", Role: "tick"},
		{Kind: "fs.writeStream", Role: "tick"},
	}, c.TagsOf(12))

	role, ok := c.RoleOf(11, "fs.readFile")
	require.True(t, ok)
	assert.Equal(t, "stat", role)

	_, ok = c.RoleOf(13, "fs.readFile")
	assert.False(t, ok)
	assert.Empty(t, c.TagsOf(13))
	assert.Equal(t, 2, c.Count("fs.readFile"))
}

func TestClassify_IDsReturnsCopy(t *testing.T) {
	s := activity.MustNewStore([]activity.Activity{
		{ID: 10, TriggerID: 1, Type: "FSREQWRAP", InitStack: []string{"at Object.fs.readFile (fs.js:1:1)"}},
	})
	c := Classify(s, signature.Default())

	ids := c.IDs("fs.readFile", "open")
	ids[0] = 99
	assert.Equal(t, []int64{10}, c.IDs("fs.readFile", "open"))
}

func TestClassification_Without(t *testing.T) {
	s := activity.MustNewStore([]activity.Activity{
		{ID: 10, TriggerID: 1, Type: "FSREQWRAP", InitStack: []string{"at Object.fs.readFile (fs.js:1:1)"}},
		{ID: 12, TriggerID: 1, Type: "TickObject", Resource: map[string]any{
			"args": []any{map[string]any{"path": "/p", "readable": true}},
		}},
	})
	c := Classify(s, signature.Default())

	hidden := map[int64]bool{10: true, 12: true}
	keepTicks := func(tag Tag) bool { return tag.Role == "tick" }
	filtered := c.Without(hidden, keepTicks)

	assert.Empty(t, filtered.IDs("fs.readFile", "open"))
	assert.Equal(t, []int64{12}, filtered.IDs("fs.readStream", "tick"))
	assert.Empty(t, filtered.TagsOf(10))

	// the source is untouched
	assert.Equal(t, []int64{10}, c.IDs("fs.readFile", "open"))
}
