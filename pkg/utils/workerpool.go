package utils

import (
	"sync"

	"github.com/gammazero/workerpool"
)

// WorkerPoolWithErrors wraps a workerpool so that errors returned by
// submitted jobs are collected instead of being lost.
type WorkerPoolWithErrors struct {
	maxWorkers int
	pool       *workerpool.WorkerPool
	errors     []error
	mutex      sync.Mutex
}

func NewWorkerPoolWithErrors(maxWorkers int) *WorkerPoolWithErrors {
	return &WorkerPoolWithErrors{
		maxWorkers: maxWorkers,
		pool:       workerpool.New(maxWorkers),
	}
}

func (wp *WorkerPoolWithErrors) Submit(cb func() error) {
	wp.pool.Submit(func() {
		err := cb()
		if err != nil {
			wp.mutex.Lock()
			defer wp.mutex.Unlock()
			wp.errors = append(wp.errors, err)
		}
	})
}

// StopWait waits for all submitted jobs to finish. When restart is true
// the pool can be reused afterwards.
func (wp *WorkerPoolWithErrors) StopWait(restart bool) error {
	if wp.pool == nil {
		return nil
	}
	wp.pool.StopWait()
	if restart {
		wp.pool = workerpool.New(wp.maxWorkers)
	} else {
		wp.pool = nil
	}

	wp.mutex.Lock()
	defer wp.mutex.Unlock()

	if len(wp.errors) == 0 {
		return nil
	}
	err := NewErrorListOrNil(wp.errors)
	wp.errors = nil
	return err
}

func (wp *WorkerPoolWithErrors) Errors() []error {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	return wp.errors
}
