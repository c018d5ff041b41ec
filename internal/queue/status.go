package queue

import (
	"sync"

	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// StatusTable maps file ids to their latest ProcessingStatus for one user.
// Entries are copied in and out so readers never observe a partial update.
type StatusTable struct {
	mu      sync.RWMutex
	entries map[int64]models.ProcessingStatus
}

func NewStatusTable() *StatusTable {
	return &StatusTable{entries: make(map[int64]models.ProcessingStatus)}
}

// Set replaces the entry for fileID.
func (t *StatusTable) Set(fileID int64, status models.ProcessingStatus) {
	t.mu.Lock()
	t.entries[fileID] = status.Clone()
	t.mu.Unlock()
}

// Update applies fn to the current entry for fileID and stores the result.
// It reports false, without calling fn, when there is no entry.
func (t *StatusTable) Update(fileID int64, fn func(*models.ProcessingStatus)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.entries[fileID]
	if !ok {
		return false
	}
	next := cur.Clone()
	fn(&next)
	t.entries[fileID] = next.Clone()
	return true
}

func (t *StatusTable) Get(fileID int64) (models.ProcessingStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.entries[fileID]
	if !ok {
		return models.ProcessingStatus{}, false
	}
	return st.Clone(), true
}

// Snapshot returns a copy of every entry.
func (t *StatusTable) Snapshot() map[int64]models.ProcessingStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[int64]models.ProcessingStatus, len(t.entries))
	for id, st := range t.entries {
		out[id] = st.Clone()
	}
	return out
}

func (t *StatusTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
