package service

import "sync"

// cottageLocks serializes the check-then-write sequence per cottage so two
// concurrent submissions for the same cottage cannot both pass the conflict
// check before either writes. Locks are scoped to this process; the request
// model runs one instance in front of the store.
type cottageLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCottageLocks() *cottageLocks {
	return &cottageLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for cottageID and returns its unlock func.
func (c *cottageLocks) Lock(cottageID string) func() {
	c.mu.Lock()
	m, ok := c.locks[cottageID]
	if !ok {
		m = &sync.Mutex{}
		c.locks[cottageID] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}
