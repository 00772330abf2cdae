package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job is one storage query scheduled on the pool
type Job struct {
	ID      string
	Kind    string // logical query type, e.g. "bioseq_info"
	Run     func(context.Context)
	Context context.Context
}

// Pool runs fetch queries on a bounded set of goroutines so that callers
// never block on storage I/O.
type Pool struct {
	name      string
	workers   int
	queueSize int
	jobs      chan Job
	logger    *zap.Logger
	wg        sync.WaitGroup
	stopOnce  sync.Once
	stopCh    chan struct{}

	busy      int32
	submitted uint64
	completed uint64
	panicked  uint64
	rejected  uint64

	mu     sync.Mutex
	byKind map[string]uint64
}

// Config holds pool configuration
type Config struct {
	Name      string
	Workers   int
	QueueSize int
	Logger    *zap.Logger
}

// New creates and starts a pool
func New(cfg *Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 16
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Pool{
		name:      cfg.Name,
		workers:   cfg.Workers,
		queueSize: cfg.QueueSize,
		jobs:      make(chan Job, cfg.QueueSize),
		logger:    cfg.Logger,
		stopCh:    make(chan struct{}),
		byKind:    make(map[string]uint64),
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop(i)
	}

	p.logger.Info("Fetch pool started",
		zap.String("name", p.name),
		zap.Int("workers", p.workers),
		zap.Int("queue_size", p.queueSize))

	return p
}

func (p *Pool) loop(worker int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case job := <-p.jobs:
			p.execute(worker, job)
		}
	}
}

func (p *Pool) execute(worker int, job Job) {
	atomic.AddInt32(&p.busy, 1)
	defer atomic.AddInt32(&p.busy, -1)

	start := time.Now()
	if err := p.safeRun(job); err != nil {
		atomic.AddUint64(&p.panicked, 1)
		p.logger.Error("Fetch job panicked",
			zap.String("pool", p.name),
			zap.Int("worker_id", worker),
			zap.String("task_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Error(err))
		return
	}
	atomic.AddUint64(&p.completed, 1)
	p.logger.Debug("Fetch job done",
		zap.String("pool", p.name),
		zap.String("task_id", job.ID),
		zap.String("kind", job.Kind),
		zap.Duration("duration", time.Since(start)))
}

func (p *Pool) safeRun(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	ctx := job.Context
	if ctx == nil {
		ctx = context.Background()
	}
	job.Run(ctx)
	return nil
}

// Submit queues a job without blocking.
// It fails when the queue is full or the pool is stopped.
func (p *Pool) Submit(job Job) error {
	select {
	case <-p.stopCh:
		atomic.AddUint64(&p.rejected, 1)
		return fmt.Errorf("fetch pool %q is stopped", p.name)
	default:
	}

	select {
	case p.jobs <- job:
		p.accept(job)
		return nil
	default:
		atomic.AddUint64(&p.rejected, 1)
		return fmt.Errorf("fetch pool %q queue is full", p.name)
	}
}

// SubmitWait queues a job, blocking until accepted or ctx is done
func (p *Pool) SubmitWait(ctx context.Context, job Job) error {
	select {
	case <-p.stopCh:
		atomic.AddUint64(&p.rejected, 1)
		return fmt.Errorf("fetch pool %q is stopped", p.name)
	case <-ctx.Done():
		atomic.AddUint64(&p.rejected, 1)
		return ctx.Err()
	case p.jobs <- job:
		p.accept(job)
		return nil
	}
}

func (p *Pool) accept(job Job) {
	atomic.AddUint64(&p.submitted, 1)
	p.mu.Lock()
	p.byKind[job.Kind]++
	p.mu.Unlock()
}

// Stop stops the workers, waiting at most timeout for running jobs
func (p *Pool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.stopCh)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Info("Fetch pool stopped", zap.String("name", p.name))
		case <-time.After(timeout):
			err = fmt.Errorf("fetch pool %q stop timeout after %v", p.name, timeout)
		}
	})
	return err
}

// Stats returns a point-in-time view of the pool
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	byKind := make(map[string]uint64, len(p.byKind))
	for k, v := range p.byKind {
		byKind[k] = v
	}
	p.mu.Unlock()

	return Stats{
		Name:      p.name,
		Workers:   p.workers,
		Busy:      int(atomic.LoadInt32(&p.busy)),
		QueueSize: p.queueSize,
		Queued:    len(p.jobs),
		Submitted: atomic.LoadUint64(&p.submitted),
		Completed: atomic.LoadUint64(&p.completed),
		Panicked:  atomic.LoadUint64(&p.panicked),
		Rejected:  atomic.LoadUint64(&p.rejected),
		ByKind:    byKind,
	}
}

// Stats is a snapshot of pool counters
type Stats struct {
	Name      string            `json:"name"`
	Workers   int               `json:"workers"`
	Busy      int               `json:"busy"`
	QueueSize int               `json:"queue_size"`
	Queued    int               `json:"queued"`
	Submitted uint64            `json:"submitted"`
	Completed uint64            `json:"completed"`
	Panicked  uint64            `json:"panicked"`
	Rejected  uint64            `json:"rejected"`
	ByKind    map[string]uint64 `json:"by_kind"`
}

// QueueUtilization returns the queue fill level as a percentage
func (s Stats) QueueUtilization() float64 {
	if s.QueueSize == 0 {
		return 0
	}
	return float64(s.Queued) / float64(s.QueueSize) * 100.0
}
