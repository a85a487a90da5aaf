package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"devflow/internal/middleware"
	"devflow/internal/models"
	"devflow/internal/observability"
	"devflow/internal/repository"

	"github.com/google/uuid"
)

// InteractionSink accepts behavioral events. Record must not block and must
// not report failure to the caller.
type InteractionSink interface {
	Record(ctx context.Context, in models.Interaction)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(context.Context, models.Interaction) {}

const (
	DefaultRecorderWorkers   = 2
	DefaultRecorderQueueSize = 1024
	recordTimeout            = 5 * time.Second
)

// RecorderConfig sizes the Recorder.
type RecorderConfig struct {
	Workers   int
	QueueSize int
}

type recordTask struct {
	ctx context.Context
	in  models.Interaction
}

// Recorder appends interactions on background workers fed by a bounded queue.
type Recorder struct {
	store   *repository.Store
	queue   chan recordTask
	workers sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	// pending counts accepted events not yet written; idle is closed
	// whenever it drops to zero.
	pendingMu sync.Mutex
	pending   int
	idle      chan struct{}
}

// NewRecorder starts the worker goroutines. Call Close to stop them.
func NewRecorder(store *repository.Store, cfg RecorderConfig) *Recorder {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultRecorderWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultRecorderQueueSize
	}

	r := &Recorder{
		store: store,
		queue: make(chan recordTask, cfg.QueueSize),
		idle:  make(chan struct{}),
	}
	close(r.idle)
	for range cfg.Workers {
		r.workers.Add(1)
		go r.work()
	}
	return r
}

// Record enqueues in without waiting. A full or closed queue drops the event.
// Events are stamped here so worker scheduling cannot reorder history.
func (r *Recorder) Record(ctx context.Context, in models.Interaction) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		observability.InteractionsDropped.WithLabelValues("closed").Inc()
		return
	}

	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	task := recordTask{ctx: middleware.WithTaskID(context.WithoutCancel(ctx), uuid.NewString()), in: in}
	r.begin()
	select {
	case r.queue <- task:
		observability.InteractionQueueDepth.Inc()
	default:
		r.done()
		observability.InteractionsDropped.WithLabelValues("full").Inc()
		middleware.Logger.WarnContext(task.ctx, "interaction queue full, dropping event",
			slog.String("action", string(in.Action)),
		)
	}
}

func (r *Recorder) work() {
	defer r.workers.Done()
	for task := range r.queue {
		observability.InteractionQueueDepth.Dec()
		r.write(task)
		r.done()
	}
}

func (r *Recorder) begin() {
	r.pendingMu.Lock()
	if r.pending == 0 {
		r.idle = make(chan struct{})
	}
	r.pending++
	r.pendingMu.Unlock()
}

func (r *Recorder) done() {
	r.pendingMu.Lock()
	r.pending--
	if r.pending == 0 {
		close(r.idle)
	}
	r.pendingMu.Unlock()
}

func (r *Recorder) write(task recordTask) {
	ctx, cancel := context.WithTimeout(task.ctx, recordTimeout)
	defer cancel()

	in := task.in
	if err := r.store.Interactions().Create(ctx, &in); err != nil {
		observability.InteractionsRecorded.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "failed to record interaction",
			slog.String("action", string(in.Action)),
			slog.String("target_type", string(in.TargetType)),
			slog.Any("target_id", in.TargetID),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.InteractionsRecorded.WithLabelValues("ok").Inc()
}

// Drain waits until every accepted event has been written or ctx ends.
func (r *Recorder) Drain(ctx context.Context) error {
	r.pendingMu.Lock()
	idle := r.idle
	r.pendingMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for the workers to finish the queue.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
