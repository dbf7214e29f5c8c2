package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceIDs(t *testing.T) {
	ids := NewSequenceIDs("run")
	assert.Equal(t, "run-0001", ids.NewID())
	assert.Equal(t, "run-0002", ids.NewID())

	ids.Reset()
	assert.Equal(t, "run-0001", ids.NewID())
}

func TestSequenceIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "test-0001", NewSequenceIDs("").NewID())
}

func TestSequenceIDs_Concurrent(t *testing.T) {
	ids := NewSequenceIDs("c")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids.NewID()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}
