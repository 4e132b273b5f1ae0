package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned by SubmitJob when the job queue is saturated.
	ErrQueueFull = errors.New("worker: job queue full")
	// ErrStopped is returned by SubmitJob after Stop.
	ErrStopped = errors.New("worker: dispatcher stopped")
)

// Job represents a unit of work to be executed.
type Job interface {
	Execute(ctx context.Context) error
	ID() string
}

// JobObserver is told about every finished job, typically for metrics.
type JobObserver interface {
	JobFinished(err error)
}

// Worker is responsible for processing jobs.
// It runs in its own goroutine and registers its job channel with the pool
// whenever it is idle.
type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	logger     logrus.FieldLogger
	observer   JobObserver
}

// NewWorker creates a new Worker.
func NewWorker(id int, workerPool chan chan Job, logger logrus.FieldLogger, observer JobObserver) Worker {
	return Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		logger:     logger.WithField("worker_id", id),
		observer:   observer,
	}
}

// Start makes the Worker listen for jobs until ctx is cancelled.
func (w Worker) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.logger.Debug("Worker stopping")
				return
			}

			select {
			case job := <-w.JobChannel:
				w.run(ctx, job)
			case <-ctx.Done():
				w.logger.Debug("Worker stopping")
				return
			}
		}
	}()
}

func (w Worker) run(ctx context.Context, job Job) {
	log := w.logger.WithField("job_id", job.ID())
	log.Info("Started job")
	err := job.Execute(ctx)
	if err != nil {
		log.WithError(err).Error("Error processing job")
	} else {
		log.Info("Finished job")
	}
	if w.observer != nil {
		w.observer.JobFinished(err)
	}
}

// Options configure a Dispatcher.
type Options struct {
	MaxWorkers   int
	JobQueueSize int
	Logger       logrus.FieldLogger
	Observer     JobObserver
}

// Dispatcher manages a pool of workers and dispatches jobs to them.
type Dispatcher struct {
	MaxWorkers int
	WorkerPool chan chan Job
	JobQueue   chan Job
	Workers    []Worker

	logger   logrus.FieldLogger
	observer JobObserver
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.JobQueueSize < 0 {
		opts.JobQueueSize = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		MaxWorkers: opts.MaxWorkers,
		WorkerPool: make(chan chan Job, opts.MaxWorkers),
		JobQueue:   make(chan Job, opts.JobQueueSize),
		Workers:    make([]Worker, 0, opts.MaxWorkers),
		logger:     logger.WithField("component", "dispatcher"),
		observer:   opts.Observer,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the dispatcher and its workers.
func (d *Dispatcher) Run() {
	d.logger.WithField("workers", d.MaxWorkers).Info("Dispatcher starting")
	for i := 1; i <= d.MaxWorkers; i++ {
		worker := NewWorker(i, d.WorkerPool, d.logger, d.observer)
		d.Workers = append(d.Workers, worker)
		worker.Start(d.ctx, &d.wg)
	}

	d.wg.Add(1)
	go d.dispatch()
}

// dispatch hands queued jobs to idle workers, one at a time.
func (d *Dispatcher) dispatch() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.JobQueue:
			select {
			case jobChannel := <-d.WorkerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.logger.WithField("job_id", job.ID()).Warn("Dropping job on shutdown")
					return
				}
			case <-d.ctx.Done():
				d.logger.WithField("job_id", job.ID()).Warn("Dropping job on shutdown")
				return
			}
		case <-d.ctx.Done():
			return
		}
	}
}

// SubmitJob enqueues job without blocking.
func (d *Dispatcher) SubmitJob(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.JobQueue <- job:
		d.logger.WithField("job_id", job.ID()).Debug("Job submitted to queue")
		return nil
	default:
		d.logger.WithField("job_id", job.ID()).Warn("Job queue full")
		return ErrQueueFull
	}
}

// Stop cancels the context passed to running jobs and waits for all workers
// to return. Jobs still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.logger.Info("Dispatcher: initiating shutdown")
	d.cancel()
	d.wg.Wait()
	if n := len(d.JobQueue); n > 0 {
		d.logger.WithField("dropped", n).Warn("Dispatcher: dropped queued jobs")
	}
	d.logger.Info("Dispatcher: shutdown complete")
}
