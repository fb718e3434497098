package reconciliation

import "sync"

// runLock serialises reconciliation runs that could touch the same revenue
// records. Runs lock on their property key; the empty key is the whole
// portfolio and excludes every other run. Two runs over the same property
// never interleave even when their periods overlap.
type runLock struct {
	mu   sync.Mutex
	cond *sync.Cond
	held map[string]bool
}

func newRunLock() *runLock {
	l := &runLock{held: make(map[string]bool)}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *runLock) acquire(propertyID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.conflicts(propertyID) {
		l.cond.Wait()
	}
	l.held[propertyID] = true
}

func (l *runLock) conflicts(propertyID string) bool {
	if l.held[""] || l.held[propertyID] {
		return true
	}
	// A portfolio-wide run must wait for every per-property run.
	return propertyID == "" && len(l.held) > 0
}

func (l *runLock) release(propertyID string) {
	l.mu.Lock()
	delete(l.held, propertyID)
	l.cond.Broadcast()
	l.mu.Unlock()
}
