package fpengine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/landmarkfp/fpengine/pkg/utils"
)

// taskRunner is the background ingestion worker pool: "one in-flight track
// per worker; clients get an immediate acknowledgement and poll for effect"
// (spec.md §5). Jobs queue on a buffered channel; a fixed-size errgroup of
// workers drains it.
type taskRunner struct {
	queue  chan taskJob
	ingest func(ctx context.Context, req IngestRequest) (uint64, error)
	log    Logger

	mu       sync.Mutex
	statuses map[string]TaskStatus

	group  *errgroup.Group
	cancel context.CancelFunc
}

type taskJob struct {
	id  string
	req IngestRequest
}

func newTaskRunner(workers, queueSize int, ingest func(context.Context, IngestRequest) (uint64, error), log Logger) *taskRunner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)

	r := &taskRunner{
		queue:    make(chan taskJob, queueSize),
		ingest:   ingest,
		log:      log,
		statuses: make(map[string]TaskStatus),
		group:    group,
		cancel:   cancel,
	}

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			r.work(groupCtx)
			return nil
		})
	}
	return r
}

func (r *taskRunner) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-r.queue:
			if !ok {
				return
			}
			r.setStatus(job.id, TaskStatus{ID: job.id, State: TaskRunning})
			songID, err := r.ingest(ctx, job.req)
			if err != nil {
				r.log.Warnf("ingestion task %s failed: %v", job.id, err)
				r.setStatus(job.id, TaskStatus{ID: job.id, State: TaskFailed, Err: err.Error()})
				continue
			}
			r.setStatus(job.id, TaskStatus{ID: job.id, State: TaskDone, SongID: songID})
		}
	}
}

// enqueue assigns a task ID and queues req, returning immediately. Returns
// an error if the queue is full or ctx is already done.
func (r *taskRunner) enqueue(ctx context.Context, req IngestRequest) (string, error) {
	id := utils.GenerateUUID()
	r.setStatus(id, TaskStatus{ID: id, State: TaskPending})

	select {
	case r.queue <- taskJob{id: id, req: req}:
		return id, nil
	case <-ctx.Done():
		r.setStatus(id, TaskStatus{ID: id, State: TaskFailed, Err: ctx.Err().Error()})
		return "", ctx.Err()
	default:
		return "", fmt.Errorf("fpengine: ingestion queue full")
	}
}

func (r *taskRunner) status(taskID string) (TaskStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[taskID]
	if !ok {
		return TaskStatus{}, ErrNotFound
	}
	return st, nil
}

func (r *taskRunner) setStatus(id string, st TaskStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = st
}

func (r *taskRunner) stop() {
	close(r.queue)
	r.cancel()
	_ = r.group.Wait()
}
