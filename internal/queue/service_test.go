package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kiranshivaraju/mediaqueue/internal/queue"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(fs *fakeStore) (*queue.Service, *queue.Registry, *fakeStarter, *fakeCache) {
	reg := queue.NewRegistry()
	starter := &fakeStarter{}
	cache := &fakeCache{}
	return queue.NewService(fs, reg, starter, cache, nil), reg, starter, cache
}

func TestEnqueue_EmptyListRejected(t *testing.T) {
	svc, reg, starter, _ := newTestService(newFakeStore())

	_, err := svc.Enqueue(context.Background(), 1, nil)
	assert.ErrorIs(t, err, queue.ErrInvalidRequest)
	assert.Empty(t, reg.Users())
	assert.Equal(t, 0, starter.count())
}

func TestEnqueue_QueuedImmediatelyVisible(t *testing.T) {
	fs := newFakeStore()
	fs.addFile(models.File{ID: 1, UserID: 10, Filetype: "txt"})
	fs.addFile(models.File{ID: 2, UserID: 10, Filetype: "wav"})
	svc, reg, starter, cache := newTestService(fs)

	res, err := svc.Enqueue(context.Background(), 10, []int64{1, 2})
	require.NoError(t, err)
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, []int64{1, 2}, res.QueuedFiles)

	status := svc.Status(10)
	require.Len(t, status, 2)
	for _, id := range res.QueuedFiles {
		assert.Equal(t, models.StatusQueued, status[id].Status)
		assert.Equal(t, 0, status[id].Progress)
		assert.Equal(t, res.BatchID, status[id].BatchID)
		assert.NotNil(t, status[id].QueuedAt)
	}

	q, _, ok := reg.Lookup(10)
	require.True(t, ok)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1, starter.count())
	assert.ElementsMatch(t, []int64{1, 2}, cache.ids())
}

func TestEnqueue_SkipsUnknownAndForeignFiles(t *testing.T) {
	fs := newFakeStore()
	fs.addFile(models.File{ID: 1, UserID: 10, Filetype: "txt"})
	fs.addFile(models.File{ID: 2, UserID: 20, Filetype: "wav"})
	svc, _, _, _ := newTestService(fs)

	res, err := svc.Enqueue(context.Background(), 10, []int64{1, 2, 404})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.QueuedFiles)

	status := svc.Status(10)
	assert.Contains(t, status, int64(1))
	assert.NotContains(t, status, int64(2))
	assert.NotContains(t, status, int64(404))
	assert.Empty(t, svc.Status(20))
}

func TestEnqueue_AllForeignQueuesNothing(t *testing.T) {
	fs := newFakeStore()
	fs.addFile(models.File{ID: 2, UserID: 20, Filetype: "wav"})
	svc, reg, starter, _ := newTestService(fs)

	res, err := svc.Enqueue(context.Background(), 10, []int64{2})
	require.NoError(t, err)
	assert.Empty(t, res.QueuedFiles)
	assert.NotNil(t, res.QueuedFiles)

	_, _, ok := reg.Lookup(10)
	assert.False(t, ok)
	assert.Equal(t, 0, starter.count())
}

func TestEnqueue_DuplicateIDsQueuedOnce(t *testing.T) {
	fs := newFakeStore()
	fs.addFile(models.File{ID: 1, UserID: 10, Filetype: "txt"})
	svc, reg, _, _ := newTestService(fs)

	res, err := svc.Enqueue(context.Background(), 10, []int64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.QueuedFiles)

	q, _, _ := reg.Lookup(10)
	assert.Equal(t, 1, q.Len())
}

func TestEnqueue_StoreErrorAborts(t *testing.T) {
	fs := newFakeStore()
	fs.getErr = errors.New("db down")
	svc, reg, _, _ := newTestService(fs)

	_, err := svc.Enqueue(context.Background(), 10, []int64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, reg.Users())
}

func TestEnqueue_ReenqueueOverwritesStatus(t *testing.T) {
	fs := newFakeStore()
	fs.addFile(models.File{ID: 1, UserID: 10, Filetype: "txt"})
	svc, reg, _, _ := newTestService(fs)

	first, err := svc.Enqueue(context.Background(), 10, []int64{1})
	require.NoError(t, err)

	_, table, _ := reg.Lookup(10)
	table.Update(1, func(s *models.ProcessingStatus) {
		s.Status = models.StatusCompleted
		s.Progress = 100
		s.Results = &models.ProcessingResult{Transcript: "old"}
	})

	second, err := svc.Enqueue(context.Background(), 10, []int64{1})
	require.NoError(t, err)
	assert.NotEqual(t, first.BatchID, second.BatchID)

	st := svc.Status(10)[1]
	assert.Equal(t, models.StatusQueued, st.Status)
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, second.BatchID, st.BatchID)
	assert.Nil(t, st.Results)
}

func TestStatus_UnknownUserIsEmptyAndCreatesNothing(t *testing.T) {
	svc, reg, _, _ := newTestService(newFakeStore())

	status := svc.Status(77)
	assert.NotNil(t, status)
	assert.Empty(t, status)
	assert.Empty(t, reg.Users())
}
