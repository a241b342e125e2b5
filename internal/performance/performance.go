// Package performance provides the worker pool that runs bot requests off the
// polling loop.
package performance

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool manages a pool of workers for concurrent task execution.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup

	// mu guards running and stopped against a concurrent close of taskQueue.
	mu      sync.RWMutex
	running bool
	stopped bool

	tasksTotal    atomic.Uint64
	tasksDone     atomic.Uint64
	tasksRejected atomic.Uint64
}

// NewWorkerPool creates a new worker pool with the specified number of
// workers and queue depth. Non-positive values default to runtime.NumCPU()
// workers and 100 queued tasks per worker.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = workers * 100
	}

	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), queue),
	}
}

// Start starts the worker pool. It is a no-op on a stopped pool.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.stopped {
		return
	}
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for task := range p.taskQueue {
		task()
		p.tasksDone.Add(1)
	}
}

// Submit submits a task to the worker pool.
// Returns false if the pool is not running or the queue is full.
func (p *WorkerPool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		p.tasksRejected.Add(1)
		return false
	}

	select {
	case p.taskQueue <- task:
		p.tasksTotal.Add(1)
		return true
	default:
		p.tasksRejected.Add(1)
		return false // Queue full
	}
}

// SubmitWait submits a task and waits for it to complete.
func (p *WorkerPool) SubmitWait(task func()) bool {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		task()
	}

	if !p.Submit(wrapped) {
		return false
	}

	<-done
	return true
}

// Stop stops accepting tasks, runs the ones already queued and waits for
// the workers to exit. A stopped pool cannot be restarted.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats returns pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()

	return PoolStats{
		Workers:       p.workers,
		Running:       running,
		TasksTotal:    p.tasksTotal.Load(),
		TasksDone:     p.tasksDone.Load(),
		TasksRejected: p.tasksRejected.Load(),
		QueueLen:      len(p.taskQueue),
	}
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Workers       int
	Running       bool
	TasksTotal    uint64
	TasksDone     uint64
	TasksRejected uint64
	QueueLen      int
}
