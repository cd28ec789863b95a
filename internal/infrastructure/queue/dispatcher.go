package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/innerpath/client-core/internal/api/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

type task struct {
	key string
	fn  func(ctx context.Context) error
}

// Dispatcher runs detached container work on a fixed set of workers. Tasks
// are sharded by key with consistent hashing, so tasks sharing a key run one
// at a time in submission order.
type Dispatcher struct {
	workers []chan task
	log     zerolog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	running sync.WaitGroup
	pending sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers. Each
// task gets timeout to finish; zero means no limit.
func NewDispatcher(numWorkers int, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan task, numWorkers),
		log:     log,
		timeout: timeout,
	}
	for i := range d.workers {
		d.workers[i] = make(chan task, channelBuffer)
	}
	return d
}

// Start launches the workers. Tasks run with contexts derived from ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.running.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Go enqueues fn on the worker owning key. It blocks only when that
// worker's buffer is full. Tasks submitted after Stop are dropped.
func (d *Dispatcher) Go(key string, fn func(ctx context.Context) error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warn().Str("task", key).Msg("dispatcher stopped, task dropped")
		return
	}
	d.pending.Add(1)
	idx := d.shardIndex(key)
	d.workers[idx] <- task{key: key, fn: fn}
	metrics.TaskQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
}

// Wait blocks until every task enqueued so far has finished.
func (d *Dispatcher) Wait() { d.pending.Wait() }

// Stop refuses new tasks, lets the workers drain their queues and waits
// for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.running.Wait()
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan task) {
	defer d.running.Done()
	for t := range ch {
		d.run(ctx, id, t)
	}
}

func (d *Dispatcher) run(ctx context.Context, id int, t task) {
	defer d.pending.Done()
	metrics.TaskQueueDepth.WithLabelValues(strconv.Itoa(id)).Dec()
	start := time.Now()
	defer func() {
		metrics.TaskDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			metrics.TasksTotal.WithLabelValues("panic").Inc()
			d.log.Error().Interface("panic", r).Str("task", t.key).Int("worker_id", id).Msg("task panicked")
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := t.fn(ctx); err != nil {
		metrics.TasksTotal.WithLabelValues("error").Inc()
		d.log.Error().Err(err).
			Str("task", t.key).
			Int("worker_id", id).
			Msg("task failed")
		return
	}
	metrics.TasksTotal.WithLabelValues("ok").Inc()
}
