package ingest

import "sync"

// regionLocks serializes the dedup-check and append for a given region so two
// concurrent identical requests cannot both pass the duplicate scan before
// either writes. The map grows with the number of distinct regions, which is
// small and fixed in practice.
type regionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRegionLocks() *regionLocks {
	return &regionLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for region and returns its release function.
func (r *regionLocks) acquire(region string) func() {
	r.mu.Lock()
	l, ok := r.locks[region]
	if !ok {
		l = &sync.Mutex{}
		r.locks[region] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
