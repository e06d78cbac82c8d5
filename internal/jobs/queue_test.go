package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is the minimal in-memory Store used by queue tests.
type memStore struct {
	mu   sync.Mutex
	jobs map[string]*TranslationJob
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*TranslationJob)}
}

func (m *memStore) CreateJob(ctx context.Context, job *TranslationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *memStore) GetJob(ctx context.Context, id string) (*TranslationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (m *memStore) ListJobs(ctx context.Context) ([]*TranslationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*TranslationJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		ret = append(ret, job.Clone())
	}
	return ret, nil
}

func (m *memStore) UpdateJob(ctx context.Context, id string, update JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	if update.Status != nil {
		job.Status = *update.Status
	}
	return nil
}

func (m *memStore) ResetJobForRetry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Status = StatusPending
	return nil
}

func (m *memStore) DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func newJob(id, url string) *TranslationJob {
	return &TranslationJob{
		ID:             id,
		SourceURL:      url,
		TargetLanguage: "Spanish",
		CEFRLevel:      "B1",
		Status:         StatusPending,
	}
}

func TestDedupeKey(t *testing.T) {
	a := newJob("1", "https://example.com/a")
	b := &TranslationJob{ID: "2", SourceURL: "https://example.com/a", TargetLanguage: " spanish ", CEFRLevel: "b1"}
	assert.Equal(t, a.DedupeKey(), b.DedupeKey())

	c := newJob("3", "https://example.com/other")
	assert.NotEqual(t, a.DedupeKey(), c.DedupeKey())
}

func TestEnqueueDedupesInFlight(t *testing.T) {
	q := NewQueue(1, newMemStore())

	first := newJob("job-1", "https://example.com/a")
	id, created := q.Enqueue(first)
	assert.True(t, created)
	assert.Equal(t, "job-1", id)

	duplicate := newJob("job-2", "https://example.com/a")
	id, created = q.Enqueue(duplicate)
	assert.False(t, created)
	assert.Equal(t, "job-1", id)

	activeID, ok := q.ActiveJobID(first.DedupeKey())
	assert.True(t, ok)
	assert.Equal(t, "job-1", activeID)
}

func TestQueueExecutesJobs(t *testing.T) {
	store := newMemStore()
	q := NewQueue(2, store)
	defer q.Stop()

	var mu sync.Mutex
	executed := map[string]int{}
	q.Start(func(ctx context.Context, jobID string) error {
		mu.Lock()
		executed[jobID]++
		mu.Unlock()
		return nil
	})

	q.Enqueue(newJob("job-1", "https://example.com/a"))
	q.Enqueue(newJob("job-2", "https://example.com/b"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return executed["job-1"] == 1 && executed["job-2"] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueReleasesKeyAfterExecution(t *testing.T) {
	store := newMemStore()
	q := NewQueue(1, store)
	defer q.Stop()

	done := make(chan string, 4)
	q.Start(func(ctx context.Context, jobID string) error {
		done <- jobID
		return nil
	})

	job := newJob("job-1", "https://example.com/a")
	_, created := q.Enqueue(job)
	require.True(t, created)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first job never executed")
	}

	// Once the first run is released the same key is accepted again.
	require.Eventually(t, func() bool {
		_, active := q.ActiveJobID(job.DedupeKey())
		return !active
	}, 2*time.Second, 10*time.Millisecond)

	_, created = q.Enqueue(newJob("job-2", "https://example.com/a"))
	assert.True(t, created)
}

func TestEnqueueBeforeStartIsDeferred(t *testing.T) {
	store := newMemStore()
	q := NewQueue(1, store)
	defer q.Stop()

	q.Enqueue(newJob("job-1", "https://example.com/a"))

	done := make(chan string, 1)
	q.Start(func(ctx context.Context, jobID string) error {
		done <- jobID
		return nil
	})

	select {
	case id := <-done:
		assert.Equal(t, "job-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("deferred job never executed")
	}
}

func TestStartHydratesPendingJobsOnly(t *testing.T) {
	store := newMemStore()
	pending := newJob("pending-1", "https://example.com/a")
	require.NoError(t, store.CreateJob(context.Background(), pending))

	stranded := newJob("stranded-1", "https://example.com/b")
	stranded.Status = StatusTranslating
	require.NoError(t, store.CreateJob(context.Background(), stranded))

	completed := newJob("done-1", "https://example.com/c")
	completed.Status = StatusCompleted
	require.NoError(t, store.CreateJob(context.Background(), completed))

	q := NewQueue(1, store)
	defer q.Stop()

	var mu sync.Mutex
	var executed []string
	q.Start(func(ctx context.Context, jobID string) error {
		mu.Lock()
		executed = append(executed, jobID)
		mu.Unlock()
		return nil
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(executed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"pending-1"}, executed)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusFetching.Terminal())
	assert.False(t, StatusTranslating.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestCloneIsDeep(t *testing.T) {
	job := newJob("1", "https://example.com/a")
	job.OriginalChunks = []string{"one", "two"}

	clone := job.Clone()
	clone.OriginalChunks[0] = "mutated"
	assert.Equal(t, "one", job.OriginalChunks[0])
}
