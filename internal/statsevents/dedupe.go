package statsevents

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type resultDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newResultDedupe(size int) *resultDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, uint64](size)
	return &resultDedupe{lru: c}
}

// seen reports whether key last published digest.
func (d *resultDedupe) seen(key string, digest uint64) bool {
	if key == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(key)
	return ok && last == digest
}

func (d *resultDedupe) record(key string, digest uint64) {
	if key == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lru.Add(key, digest)
}
