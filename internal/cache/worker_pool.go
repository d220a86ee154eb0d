package cache

import (
	"sync"

	"dealhub/pkg/log"
)

// RebuildPool bounded worker pool for cache rebuild jobs. Explicitly
// constructed and injected; Start on process init, Stop on shutdown.
type RebuildPool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewRebuildPool creates a pool with the given number of workers and a
// queue twice as deep.
func NewRebuildPool(workers int) *RebuildPool {
	if workers <= 0 {
		workers = 10
	}
	p := &RebuildPool{
		tasks: make(chan func(), workers*2),
	}
	p.start(workers)
	return p
}

func (p *RebuildPool) start(workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
}

// Submit enqueues a rebuild without blocking. Returns false when the queue
// is full or the pool is stopped; callers treat that as "skip rebuild".
func (p *RebuildPool) Submit(task func()) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	select {
	case p.tasks <- task:
		return true
	default:
		log.Warn("Cache rebuild pool saturated, skipping rebuild")
		return false
	}
}

// Stop drains queued rebuilds and waits for workers to exit
func (p *RebuildPool) Stop() {
	p.mu.Lock()
	if p.stopped || !p.started {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.tasks)
	p.wg.Wait()
}
