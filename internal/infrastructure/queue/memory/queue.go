// Package memory provides an in-process job queue for single-runtime
// deployments. Jobs do not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

const defaultBuffer = 1024

// Queue is an instance-owned FIFO channel with receive-timeout semantics.
// Each constructed queue is isolated; there is no process-wide state.
type Queue struct {
	jobs chan domain.UploadJob

	closeOnce sync.Once
	closed    chan struct{}
}

func New(buffer int) *Queue {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Queue{
		jobs:   make(chan domain.UploadJob, buffer),
		closed: make(chan struct{}),
	}
}

func (q *Queue) Enqueue(ctx context.Context, job domain.UploadJob) error {
	select {
	case <-q.closed:
		return domain.WrapError(domain.ErrTemporary, "memory enqueue", fmt.Errorf("queue closed"))
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return domain.WrapError(domain.ErrTemporary, "memory enqueue", fmt.Errorf("queue buffer full (%d)", cap(q.jobs)))
	}
}

// Dequeue blocks up to wait for the next job and returns (nil, nil) when the
// timeout elapses with nothing to deliver.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*domain.UploadJob, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case job := <-q.jobs:
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closed:
		// Drain what is already buffered before reporting empty.
		select {
		case job := <-q.jobs:
			return &job, nil
		default:
			return nil, nil
		}
	}
}

func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}
