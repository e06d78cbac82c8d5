package jobs

import (
	"context"
	"sync"

	"github.com/pretzelai/openlingo/pkg/log"
)

// Executor runs one job to a terminal state. It owns every write to the job
// record; the queue only schedules ids and tracks in-flight dedupe.
type Executor func(ctx context.Context, jobID string) error

// Queue is the background worker pool that decouples pipeline execution from
// the request cycle. The job record in the store is the durable source of
// truth; the queue holds only scheduling state.
type Queue struct {
	workerCount int
	store       Store

	mu       sync.RWMutex
	active   map[string]string // dedupe key -> job id
	keyByID  map[string]string
	started  bool
	deferred []string // enqueued before Start

	pendingIDs chan string
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewQueue(workerCount int, store Store) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Queue{
		workerCount: workerCount,
		store:       store,
		active:      make(map[string]string),
		keyByID:     make(map[string]string),
		pendingIDs:  make(chan string, 1024),
		stopCh:      make(chan struct{}),
	}
}

// Enqueue schedules a created job for execution. When an equivalent job is
// already in flight it returns that job's id and false instead.
func (q *Queue) Enqueue(job *TranslationJob) (string, bool) {
	key := job.DedupeKey()

	q.mu.Lock()
	if existingID, ok := q.active[key]; ok {
		q.mu.Unlock()
		return existingID, false
	}
	q.active[key] = job.ID
	q.keyByID[job.ID] = key
	started := q.started
	if !started {
		q.deferred = append(q.deferred, job.ID)
	}
	q.mu.Unlock()

	if started {
		q.push(job.ID)
	}
	return job.ID, true
}

// ActiveJobID reports the in-flight job for a dedupe key, if any.
func (q *Queue) ActiveJobID(key string) (string, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	id, ok := q.active[key]
	return id, ok
}

// Start hydrates pending jobs from the store, then launches the workers.
// Jobs stranded mid-run by a previous process stay as they are: their
// checkpointed state remains readable and a retry is an explicit action.
func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	backlog := q.deferred
	q.deferred = nil
	q.mu.Unlock()

	for _, id := range q.hydrateFromStore(context.Background()) {
		q.push(id)
	}
	for _, id := range backlog {
		q.push(id)
	}

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case id := <-q.pendingIDs:
			if err := exec(context.Background(), id); err != nil {
				log.Error("Job %s finished with error: %v", id, err)
			}
			q.release(id)
		}
	}
}

func (q *Queue) push(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() { q.pendingIDs <- id }()
	}
}

func (q *Queue) release(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	key, ok := q.keyByID[id]
	if !ok {
		return
	}
	delete(q.keyByID, id)
	if q.active[key] == id {
		delete(q.active, key)
	}
}

// hydrateFromStore registers non-terminal jobs for dedupe and returns the
// pending ones for re-scheduling.
func (q *Queue) hydrateFromStore(ctx context.Context) []string {
	if q.store == nil {
		return nil
	}
	loaded, err := q.store.ListJobs(ctx)
	if err != nil {
		log.Error("Failed to load jobs from store: %v", err)
		return nil
	}

	var pending []string
	q.mu.Lock()
	for _, job := range loaded {
		if job == nil || job.ID == "" || job.Status.Terminal() {
			continue
		}
		key := job.DedupeKey()
		if _, taken := q.active[key]; taken {
			continue
		}
		if job.Status == StatusPending {
			q.active[key] = job.ID
			q.keyByID[job.ID] = key
			pending = append(pending, job.ID)
		}
	}
	q.mu.Unlock()
	return pending
}
