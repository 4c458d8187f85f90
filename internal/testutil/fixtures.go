package testutil

import (
	"github.com/roach88/oplens/internal/activity"
)

// Signature is the type and init stack an activity needs to be classified
// as one role of the default signature table.
type Signature struct {
	Kind  string
	Role  string
	Type  string
	Stack []string
}

// UserFrame is the caller frame appended below library frames.
const UserFrame = "at Object.<anonymous> (/app/index.js:12:4)"

// Signatures matching the embedded default table.
var (
	ReadFileOpen = Signature{"fs.readFile", "open", "FSREQWRAP", []string{
		"at Object.fs.readFile (fs.js:296:11)",
		UserFrame,
	}}
	ReadFileStat = Signature{"fs.readFile", "stat", "FSREQWRAP", []string{
		"at readFileAfterOpen (fs.js:380:11)",
		"at FSReqWrap.oncomplete (fs.js:123:15)",
	}}
	ReadFileRead = Signature{"fs.readFile", "read", "FSREQWRAP", []string{
		"at ReadFileContext.read (fs.js:365:11)",
		"at readFileAfterStat (fs.js:420:11)",
		"at FSReqWrap.oncomplete (fs.js:123:15)",
	}}
	ReadFileClose = Signature{"fs.readFile", "close", "FSREQWRAP", []string{
		"at ReadFileContext.close (fs.js:375:11)",
		"at readFileAfterRead (fs.js:401:13)",
		"at FSReqWrap.wrapper [as oncomplete] (fs.js:681:17)",
	}}

	WriteFileOpen = Signature{"fs.writeFile", "open", "FSREQWRAP", []string{
		"at Object.fs.writeFile (fs.js:1247:6)",
		UserFrame,
	}}
	WriteFileWrite = Signature{"fs.writeFile", "write", "FSREQWRAP", []string{
		"at Object.fs.write (fs.js:667:14)",
		"at writeAll (fs.js:1198:6)",
		"at writeFd (fs.js:1251:5)",
	}}
	WriteFileClose = Signature{"fs.writeFile", "close", "FSREQWRAP", []string{
		"at Object.fs.close (fs.js:579:11)",
		"at writeAll (fs.js:1204:14)",
		"at FSReqWrap.wrapper [as oncomplete] (fs.js:681:17)",
	}}

	ReadStreamOpen = Signature{"fs.readStream", "open", "FSREQWRAP", []string{
		"at Object.fs.open (fs.js:636:11)",
		"at ReadStream.open (fs.js:1964:6)",
		"at new ReadStream (fs.js:1951:10)",
		UserFrame,
	}}
	ReadStreamRead = Signature{"fs.readStream", "read", "FSREQWRAP", []string{
		"at Object.fs.read (fs.js:682:14)",
		"at ReadStream._read (fs.js:2013:6)",
		"at ReadStream.Readable.read (_stream_readable.js:442:10)",
	}}
	ReadStreamClose = Signature{"fs.readStream", "close", "FSREQWRAP", []string{
		"at Object.fs.close (fs.js:579:11)",
		"at ReadStream.close (fs.js:2085:6)",
		"at ReadStream.destroy (fs.js:2068:8)",
	}}

	WriteStreamOpen = Signature{"fs.writeStream", "open", "FSREQWRAP", []string{
		"at Object.fs.open (fs.js:636:11)",
		"at WriteStream.open (fs.js:2143:6)",
		"at new WriteStream (fs.js:2136:10)",
		UserFrame,
	}}
	WriteStreamWrite = Signature{"fs.writeStream", "write", "FSREQWRAP", []string{
		"at Object.fs.write (fs.js:667:14)",
		"at WriteStream._write (fs.js:2178:6)",
		"at doWrite (_stream_writable.js:387:12)",
	}}
	WriteStreamClose = Signature{"fs.writeStream", "close", "FSREQWRAP", []string{
		"at Object.fs.close (fs.js:579:11)",
		"at WriteStream.close (fs.js:2223:6)",
		"at finishMaybe (_stream_writable.js:605:14)",
	}}

	// Tick carries no distinguishing stack; see StreamTick for its resource.
	Tick = Signature{"", "tick", "TickObject", []string{
		"at process.nextTick (internal/process/next_tick.js:270:7)",
		"at emitReadable (_stream_readable.js:504:13)",
	}}

	// Unrelated never matches any role.
	Unrelated = Signature{"", "", "Timeout", []string{"at setTimeout (timers.js:386:10)", UserFrame}}
)

// Option adjusts a fixture activity.
type Option func(*activity.Activity)

// WithInit overrides the init timestamp.
func WithInit(ns int64) Option {
	return func(a *activity.Activity) { a.Init = []int64{ns} }
}

// WithDestroy overrides the destroy timestamp.
func WithDestroy(ns int64) Option {
	return func(a *activity.Activity) { a.Destroy = []int64{ns} }
}

// WithoutTimestamps removes every timestamp.
func WithoutTimestamps() Option {
	return func(a *activity.Activity) {
		a.Init, a.Before, a.After, a.Destroy = nil, nil, nil, nil
	}
}

// WithoutStack removes the init stack.
func WithoutStack() Option {
	return func(a *activity.Activity) { a.InitStack = nil }
}

// WithStack replaces the init stack.
func WithStack(frames ...string) Option {
	return func(a *activity.Activity) { a.InitStack = frames }
}

// WithResource sets the resource payload.
func WithResource(res map[string]any) Option {
	return func(a *activity.Activity) { a.Resource = res }
}

// Batch builds an ordered activity batch with deterministic timestamps.
//
// Each Add advances the clock once: init is the new tick, before/after fall
// inside the tick, and destroy lands DestroyAfter later.
type Batch struct {
	clock      *DeterministicClock
	activities []activity.Activity

	// DestroyAfter is the gap between init and destroy.
	DestroyAfter int64
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{clock: NewDeterministicClock(), DestroyAfter: 1_000_000}
}

// Add appends an activity with the given signature.
func (b *Batch) Add(id, triggerID int64, sig Signature, opts ...Option) *Batch {
	init := b.clock.Next()
	stack := make([]string, len(sig.Stack))
	copy(stack, sig.Stack)
	a := activity.Activity{
		ID:        id,
		TriggerID: triggerID,
		Type:      sig.Type,
		InitStack: stack,
		Init:      []int64{init},
		Before:    []int64{init + 100},
		After:     []int64{init + 200},
		Destroy:   []int64{init + b.DestroyAfter},
	}
	for _, opt := range opts {
		opt(&a)
	}
	b.activities = append(b.activities, a)
	return b
}

// Activities returns a copy of the batch.
func (b *Batch) Activities() []activity.Activity {
	out := make([]activity.Activity, len(b.activities))
	copy(out, b.activities)
	return out
}

// Store builds an activity store from the batch. It panics on duplicate ids.
func (b *Batch) Store() *activity.Store {
	return activity.MustNewStore(b.activities)
}

// Callback is a captured user-code function reference.
func Callback(name, location string) map[string]any {
	fn := map[string]any{"$type": "function", "location": location}
	if name != "" {
		fn["name"] = name
	}
	return fn
}

// StreamTick is the resource of a stream's nextTick: args[0] is the stream.
func StreamTick(path string, readable, writable bool) map[string]any {
	return map[string]any{
		"args": []any{
			map[string]any{
				"path":          path,
				"flags":         "r",
				"fd":            nil,
				"readable":      readable,
				"writable":      writable,
				"highWaterMark": 65536,
			},
		},
	}
}

// ReadFileChain adds open, stat, read and close for one fs.readFile starting
// at firstID, the open triggered by triggerID. Ids are consecutive.
func ReadFileChain(b *Batch, firstID, triggerID int64, opts ...Option) *Batch {
	b.Add(firstID, triggerID, ReadFileOpen, opts...)
	b.Add(firstID+1, firstID, ReadFileStat, opts...)
	b.Add(firstID+2, firstID+1, ReadFileRead, opts...)
	b.Add(firstID+3, firstID+2, ReadFileClose, opts...)
	return b
}
