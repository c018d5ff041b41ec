package queue

import (
	"slices"
	"sync"

	"github.com/kiranshivaraju/mediaqueue/internal/metrics"
)

// Registry owns the per-user work queues and status tables. One Registry is
// created at startup and shared by the Service and the Supervisor.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]*userState
}

type userState struct {
	queue  *WorkQueue
	status *StatusTable
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]*userState)}
}

// GetOrCreate returns the user's queue and status table, creating both on first use.
// Concurrent first calls for one user all receive the same instances.
func (r *Registry) GetOrCreate(userID int64) (*WorkQueue, *StatusTable) {
	r.mu.RLock()
	st, ok := r.users[userID]
	r.mu.RUnlock()
	if ok {
		return st.queue, st.status
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.users[userID]; ok {
		return st.queue, st.status
	}
	st = &userState{queue: NewWorkQueue(), status: NewStatusTable()}
	r.users[userID] = st
	metrics.RegisteredUsers.Set(float64(len(r.users)))
	return st.queue, st.status
}

// Lookup returns the user's queue and status table without creating them.
func (r *Registry) Lookup(userID int64) (*WorkQueue, *StatusTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.users[userID]
	if !ok {
		return nil, nil, false
	}
	return st.queue, st.status, true
}

// Users returns the ids of all registered users in ascending order.
func (r *Registry) Users() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}
