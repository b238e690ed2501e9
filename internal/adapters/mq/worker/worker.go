package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ghostslot/internal/adapters/mq/queue"
	"github.com/okian/ghostslot/pkg/logger"
	"github.com/okian/ghostslot/pkg/metrics"
)

const defaultMailboxSize = 1024

// Handler processes one message. Calls for the same key never overlap.
type Handler[T any] func(ctx context.Context, msg T)

// Worker drains a single mailbox, handling messages one at a time.
type Worker[T any] struct {
	mailbox *queue.Queue[T]
	handle  Handler[T]
	name    string
	done    chan struct{}
	logger  logger.Logger
}

func newWorker[T any](mailbox *queue.Queue[T], handle Handler[T], name string, log logger.Logger) *Worker[T] {
	return &Worker[T]{
		mailbox: mailbox,
		handle:  handle,
		name:    name,
		done:    make(chan struct{}),
		logger:  log,
	}
}

// Run handles messages until the mailbox is closed and drained or ctx ends.
func (w *Worker[T]) Run(ctx context.Context) {
	defer close(w.done)

	items := w.mailbox.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-items:
			if !ok {
				return
			}
			w.process(ctx, msg)
			w.mailbox.Len()
		}
	}
}

// process runs the handler for one message. A panicking handler is logged
// and the worker keeps going.
func (w *Worker[T]) process(ctx context.Context, msg T) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "handler panicked",
				logger.String("worker", w.name),
				logger.Any("panic", r),
			)
		}
	}()
	w.handle(ctx, msg)
}

// Done is closed once Run returns.
func (w *Worker[T]) Done() <-chan struct{} {
	return w.done
}

// Pool lazily starts one Worker per key. Messages for one key are handled in
// submission order; different keys run in parallel.
type Pool[K comparable, T any] struct {
	newHandler  func(key K) Handler[T]
	mailboxSize int
	name        string
	logger      logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	workers map[K]*Worker[T]
	started bool
	stopped bool
}

// NewPool creates a pool that builds a handler for each new key.
func NewPool[K comparable, T any](newHandler func(key K) Handler[T], opts ...Option) *Pool[K, T] {
	s := settings{
		mailboxSize: defaultMailboxSize,
		name:        "worker-pool",
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named(s.name)
	}

	return &Pool[K, T]{
		newHandler:  newHandler,
		mailboxSize: s.mailboxSize,
		name:        s.name,
		logger:      s.logger,
		workers:     make(map[K]*Worker[T]),
	}
}

// Start makes the pool accept messages. Workers are created on first use.
// Cancelling ctx closes every mailbox as Stop does: queued messages are
// still handled and later submissions fail with ErrStopped.
func (p *Pool[K, T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.started = true
	go p.watch(ctx, p.ctx)
}

func (p *Pool[K, T]) watch(parent, run context.Context) {
	select {
	case <-parent.Done():
		p.close()
		p.logger.Info(run, "pool closed by context", logger.String("pool", p.name))
	case <-run.Done():
	}
}

// close refuses new messages and returns the workers to wait on.
func (p *Pool[K, T]) close() []*Worker[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	workers := make([]*Worker[T], 0, len(p.workers))
	for _, w := range p.workers {
		_ = w.mailbox.Close()
		workers = append(workers, w)
	}
	return workers
}

// Submit enqueues msg on key's mailbox, starting its worker if needed.
// It returns ErrFull when the mailbox is at capacity and ErrStopped when the
// pool is not running.
func (p *Pool[K, T]) Submit(ctx context.Context, key K, msg T) error {
	w, err := p.worker(key)
	if err != nil {
		return err
	}
	if w.mailbox.Enqueue(ctx, msg) {
		return nil
	}
	if w.mailbox.IsClosed() {
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrFull, w.name)
}

func (p *Pool[K, T]) worker(key K) (*Worker[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return nil, ErrStopped
	}
	if w, ok := p.workers[key]; ok {
		return w, nil
	}

	name := fmt.Sprint(key)
	mailbox := queue.New[T](queue.WithCapacity(p.mailboxSize), queue.WithName(name))
	w := newWorker(mailbox, p.newHandler(key), name, p.logger)
	p.workers[key] = w
	go w.Run(p.ctx)

	metrics.UpdateActorCount(len(p.workers))
	p.logger.Debug(p.ctx, "worker started", logger.String("key", name))
	return w, nil
}

// Len returns the number of running workers.
func (p *Pool[K, T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Depth returns the number of pending messages for key.
func (p *Pool[K, T]) Depth(key K) int {
	p.mu.Lock()
	w, ok := p.workers[key]
	p.mu.Unlock()
	if !ok {
		return 0
	}
	return w.mailbox.Len()
}

// Stop closes every mailbox and waits up to timeout for the workers to drain.
// Handlers still running after timeout see their context cancelled.
func (p *Pool[K, T]) Stop(timeout time.Duration) error {
	workers := p.close()
	p.mu.Lock()
	stopRun := p.cancel
	p.mu.Unlock()
	if stopRun != nil {
		defer stopRun()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, w := range workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			select {
			case <-w.done:
			default:
				errs = append(errs, fmt.Errorf("worker %s did not stop within %s", w.name, timeout))
			}
		}
	}
	metrics.UpdateActorCount(0)
	return errors.Join(errs...)
}
