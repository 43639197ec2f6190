package quiz

import (
	"hash/fnv"
	"strconv"
	"sync"
)

const lockStripes = 64

// stripedLocks maps keys onto a fixed set of mutexes. Distinct keys may share
// a stripe, so never hold two stripes of the same set at once.
type stripedLocks struct {
	mu [lockStripes]sync.Mutex
}

func (l *stripedLocks) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.mu[h.Sum32()%lockStripes]
}

// lock acquires the stripe for key and returns its unlock.
func (l *stripedLocks) lock(key string) func() {
	mu := l.stripe(key)
	mu.Lock()
	return mu.Unlock
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
