package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_Sequence(t *testing.T) {
	gen := NewFixedIDGenerator("")
	assert.Equal(t, "00000000-0000-7000-8000-000000000001", gen.Generate())
	assert.Equal(t, "00000000-0000-7000-8000-000000000002", gen.Generate())
}

func TestFixedIDGenerator_Prefix(t *testing.T) {
	gen := NewFixedIDGenerator("cap-")
	assert.Equal(t, "cap-000000000001", gen.Generate())
}

func TestFixedIDGenerator_Concurrent(t *testing.T) {
	gen := NewFixedIDGenerator("")
	seen := sync.Map{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(gen.Generate(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
}
