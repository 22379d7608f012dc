// Package worker drains the frame queue and hands each frame to viewers.
//
// A single dispatcher is used so that frames reach every viewer in the
// order the sequencer produced them.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/pkg/logger"
	"github.com/okian/salesboard/pkg/metrics"
)

// Broadcaster delivers a frame to every connected viewer.
type Broadcaster interface {
	Broadcast(ctx context.Context, f model.Frame) error
}

// Queue defines how the dispatcher receives frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Frame
}

// Dispatcher forwards frames from a queue to a broadcaster, one at a time.
type Dispatcher struct {
	queue       Queue
	broadcaster Broadcaster
	name        string

	dispatched atomic.Int64
	failed     atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(q Queue, b Broadcaster, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:       q,
		broadcaster: b,
		name:        "dispatcher",
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run forwards frames until ctx is cancelled, Shutdown is called or the
// queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	frames := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			d.dispatch(ctx, f)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, f model.Frame) { //nolint:gocritic // hugeParam: frames travel by value
	start := time.Now()
	if err := d.broadcaster.Broadcast(ctx, f); err != nil {
		d.failed.Add(1)
		metrics.RecordErrorByComponent("dispatcher", "broadcast_error")
		d.logger.Error(ctx, "frame broadcast failed",
			logger.String("frame_id", f.ID),
			logger.String("kind", string(f.Kind)),
			logger.Error(err),
		)
		return
	}
	d.dispatched.Add(1)
	d.logger.Debug(ctx, "frame dispatched",
		logger.String("frame_id", f.ID),
		logger.String("kind", string(f.Kind)),
		logger.Duration("took", time.Since(start)),
	)
}

// Stats returns how many frames were dispatched and how many failed.
func (d *Dispatcher) Stats() (dispatched, failed int64) {
	return d.dispatched.Load(), d.failed.Load()
}

// Shutdown stops the dispatcher and waits for the loop to exit.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	select {
	case <-d.shutdown:
	default:
		close(d.shutdown)
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out", logger.String("name", d.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
