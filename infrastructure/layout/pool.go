package layout

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mapcore/domain/graph"
	apperrors "mapcore/pkg/errors"
)

// Task is a unit of layout work submitted to the pool
type Task func(ctx context.Context) (map[string]graph.Position, error)

// Handle tracks a submitted task. Callers wait on it or cancel it; the
// pool never delivers results to anything but the handle.
type Handle struct {
	done      chan struct{}
	positions map[string]graph.Position
	err       error
	cancel    context.CancelFunc
}

// Cancel aborts the task if it has not completed
func (h *Handle) Cancel() {
	h.cancel()
}

// Wait blocks until the task completes, the task's own context is
// cancelled, or the waiting context expires
func (h *Handle) Wait(ctx context.Context) (map[string]graph.Position, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.positions, h.err
	}
}

type submission struct {
	ctx    context.Context
	task   Task
	handle *Handle
}

// Pool runs layout tasks on background goroutines so large layouts never
// block the interaction path. A worker panic is converted into a worker
// error on the task's handle; the pool itself keeps running.
type Pool struct {
	mu     sync.Mutex
	tasks  chan *submission
	g      *errgroup.Group
	closed bool
	logger *zap.Logger
}

// NewPool starts a pool with the given number of workers
func NewPool(workers int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		tasks:  make(chan *submission, workers*4),
		g:      &errgroup.Group{},
		logger: logger,
	}

	for i := 0; i < workers; i++ {
		p.g.Go(p.workerLoop)
	}

	return p
}

// Submit queues a task. It fails fast when the pool is closed or the
// queue is saturated; callers are expected to fall back to synchronous
// computation.
func (p *Pool) Submit(ctx context.Context, task Task) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, apperrors.NewWorkerError("layout pool is closed", nil)
	}
	p.mu.Unlock()

	taskCtx, cancel := context.WithCancel(ctx)
	handle := &Handle{done: make(chan struct{}), cancel: cancel}

	select {
	case p.tasks <- &submission{ctx: taskCtx, task: task, handle: handle}:
		return handle, nil
	default:
		cancel()
		return nil, apperrors.NewWorkerError("layout queue is saturated", nil)
	}
}

// Close drains the pool and waits for in-flight tasks
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.g.Wait()
}

// workerLoop executes submissions until the queue closes
func (p *Pool) workerLoop() error {
	for sub := range p.tasks {
		p.run(sub)
	}
	return nil
}

// run executes a single submission with panic recovery
func (p *Pool) run(sub *submission) {
	defer close(sub.handle.done)
	defer sub.handle.cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Layout worker panicked", zap.Any("panic", r))
			sub.handle.err = apperrors.NewWorkerError(
				"layout worker panicked",
				fmt.Errorf("%v", r),
			)
		}
	}()

	if err := sub.ctx.Err(); err != nil {
		sub.handle.err = err
		return
	}

	sub.handle.positions, sub.handle.err = sub.task(sub.ctx)
}
