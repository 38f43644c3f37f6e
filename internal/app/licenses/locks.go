package licenses

import (
	"sync"

	"github.com/transito-regional/licensing-api/internal/domain"
)

// licenseLocks serializes read-modify-write cycles per license id so that
// two concurrent point mutations (or a mutation racing a renewal) cannot
// both read the same starting balance. With a multi-process deployment the
// equivalent guarantee must come from the storage layer (row lock); this
// process-local lock is the contract for the single-API setup.
type licenseLocks struct {
	mu sync.Mutex
	m  map[domain.LicenseID]*sync.Mutex
}

func newLicenseLocks() *licenseLocks {
	return &licenseLocks{m: make(map[domain.LicenseID]*sync.Mutex)}
}

// lock acquires the per-id mutex and returns its unlock func.
func (l *licenseLocks) lock(id domain.LicenseID) func() {
	l.mu.Lock()
	lm, ok := l.m[id]
	if !ok {
		lm = &sync.Mutex{}
		l.m[id] = lm
	}
	l.mu.Unlock()

	lm.Lock()
	return lm.Unlock
}
