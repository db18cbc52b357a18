package websocket

import (
	"sync"
	"sync/atomic"
)

// sequencer hands out a gap-free per-symbol sequence so subscribers can
// detect dropped messages.
type sequencer struct {
	counters sync.Map // map[string]*uint64
}

func (s *sequencer) next(symbol string) uint64 {
	v, _ := s.counters.LoadOrStore(symbol, new(uint64))
	return atomic.AddUint64(v.(*uint64), 1)
}
