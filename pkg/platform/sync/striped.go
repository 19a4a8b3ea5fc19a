// Package sync provides per-key serialization for in-memory stores.
package sync

import (
	"hash/maphash"
	"sync"
)

const stripes = 64

// Striped serializes callbacks that share a key. Keys hash onto a fixed set
// of mutexes, so unrelated keys can contend; a callback must not call Do
// again.
type Striped struct {
	seed  maphash.Seed
	locks [stripes]sync.Mutex
}

func NewStriped() *Striped {
	return &Striped{seed: maphash.MakeSeed()}
}

// Do runs fn while holding key's stripe and returns fn's error.
func (s *Striped) Do(key string, fn func() error) error {
	mu := &s.locks[s.stripe(key)]
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func (s *Striped) stripe(key string) uint64 {
	return maphash.String(s.seed, key) % stripes
}
