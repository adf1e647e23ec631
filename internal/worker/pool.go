package worker

import (
	"context"
	"errors"
	"sync"

	"school-admin-core/internal/logger"

	"github.com/rs/zerolog"
)

type Job func(context.Context) error

var ErrPoolStopped = errors.New("worker pool stopped")

// WorkerPool runs jobs on a fixed number of goroutines. Submit blocks while
// the queue is full, so no job is ever dropped.
type WorkerPool struct {
	workerCount int
	jobChan     chan Job
	wg          sync.WaitGroup
	stopOnce    sync.Once
	mu          sync.RWMutex
	stopped     bool
	log         zerolog.Logger
}

func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan Job, workerCount*2),
		log:         logger.Component("worker_pool"),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Debug().Int("worker_count", wp.workerCount).Msg("Starting worker pool")

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop closes the queue and waits for queued and running jobs to finish.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		wp.mu.Lock()
		wp.stopped = true
		close(wp.jobChan)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
	wp.log.Debug().Msg("Worker pool stopped")
}

// Submit queues job. It returns ctx.Err() if ctx ends before a slot frees up
// and ErrPoolStopped once Stop has been called.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.jobChan <- job:
		return nil
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	log := wp.log.With().Int("worker_id", id).Logger()

	for job := range wp.jobChan {
		if err := job(ctx); err != nil {
			log.Debug().Err(err).Msg("Job execution failed")
		}
	}
}
