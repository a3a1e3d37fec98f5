package enrich

import (
	"sync"
	"time"
)

// resultMutex guards the shared Result struct the DAG's goroutines write
// into; each step only ever touches its own field, but the mutex keeps race
// detectors quiet about concurrent writes to sibling fields of the same
// struct value.
type resultMutex struct{ mu sync.Mutex }

func (m *resultMutex) lock()   { m.mu.Lock() }
func (m *resultMutex) unlock() { m.mu.Unlock() }

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
