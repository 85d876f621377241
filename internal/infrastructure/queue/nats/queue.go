// Package nats provides the durable job queue. Multiple worker processes
// compete on one queue group; delivery is at least once, so consumers must
// guard against redelivery.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
	"github.com/resumepilot/resume-optimizer/internal/infrastructure/resilience"
)

const workerGroup = "workers"

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor

	subMu sync.Mutex
	sub   *nats.Subscription
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("resume-optimizer"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Enqueue(ctx context.Context, job domain.UploadJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal upload job: %w", err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// Dequeue pulls the next job for this queue group, blocking up to wait.
// A timeout is not an error; it returns (nil, nil).
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*domain.UploadJob, error) {
	sub, err := q.subscription()
	if err != nil {
		return nil, wrapTemporaryIfNeeded(err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
	}
	if wait <= 0 {
		return nil, ctx.Err()
	}

	msg, err := sub.NextMsg(wait)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, wrapTemporaryIfNeeded(fmt.Errorf("nats next msg: %w", err))
	}

	var job domain.UploadJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal upload job: %w", err)
	}
	return &job, nil
}

func (q *Queue) subscription() (*nats.Subscription, error) {
	q.subMu.Lock()
	defer q.subMu.Unlock()

	if q.sub != nil {
		return q.sub, nil
	}
	sub, err := q.conn.QueueSubscribeSync(q.subject, workerGroup)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return nil, fmt.Errorf("nats flush: %w", err)
	}
	q.sub = sub
	return sub, nil
}

func (q *Queue) Close() {
	q.subMu.Lock()
	if q.sub != nil {
		if err := q.sub.Drain(); err != nil {
			log.Printf("nats drain subscription: %v", err)
		}
		q.sub = nil
	}
	q.subMu.Unlock()

	if q.conn != nil {
		if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
			log.Printf("nats flush on close: %v", err)
		}
		q.conn.Close()
	}
}
