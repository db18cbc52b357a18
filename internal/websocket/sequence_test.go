package websocket

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerPerSymbol(t *testing.T) {
	var s sequencer

	assert.Equal(t, uint64(1), s.next("BBCA-USD"))
	assert.Equal(t, uint64(2), s.next("BBCA-USD"))
	// independent counter per symbol
	assert.Equal(t, uint64(1), s.next("BTC-USD"))
}

func TestSequencerGapFreeUnderConcurrency(t *testing.T) {
	var s sequencer
	const goroutines, perGoroutine = 8, 1000

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s.next("BBCA-USD")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(goroutines*perGoroutine+1), s.next("BBCA-USD"))
}
