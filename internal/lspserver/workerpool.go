package lspserver

import (
	"sync"
	"time"

	"github.com/char5742/groovy-lsp/internal/logging"
)

// Pool is the bounded request-execution worker pool of spec.md §5: a
// fixed core of long-lived workers plus an elastic overflow that grows up
// to max under load and exits after sitting idle, generalized from the
// teacher's fixed ProcessFiles task-channel-and-workerID pool
// (internal/indexing/pipeline_processor.go) into a dynamically sized pool,
// since the dispatcher's request load (unlike a one-shot indexing pass)
// is bursty rather than steady.
type Pool struct {
	jobs chan func()
	max  int
	idle time.Duration

	mu      sync.Mutex
	running int
}

// NewPool creates a Pool with core always-running workers, growing up to
// max under load, with elastic workers exiting after idle inactivity.
func NewPool(core, max int, idle time.Duration) *Pool {
	if core <= 0 {
		core = 10
	}
	if max < core {
		max = core
	}
	if idle <= 0 {
		idle = 60 * time.Second
	}
	p := &Pool{jobs: make(chan func()), max: max, idle: idle}
	for i := 0; i < core; i++ {
		p.spawnCore()
	}
	return p
}

// Submit runs f on an available worker, or grows the pool (up to max)
// if every existing worker is busy.
func (p *Pool) Submit(f func()) {
	select {
	case p.jobs <- f:
		return
	default:
	}

	p.mu.Lock()
	grow := p.running < p.max
	if grow {
		p.running++
	}
	p.mu.Unlock()

	if grow {
		p.spawnElastic()
	}
	p.jobs <- f
}

func (p *Pool) spawnCore() {
	p.mu.Lock()
	p.running++
	p.mu.Unlock()
	go func() {
		defer p.workerDone()
		for f := range p.jobs {
			p.runJob(f)
		}
	}()
}

func (p *Pool) spawnElastic() {
	go func() {
		defer p.workerDone()
		timer := time.NewTimer(p.idle)
		defer timer.Stop()
		for {
			select {
			case f, ok := <-p.jobs:
				if !ok {
					return
				}
				p.runJob(f)
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(p.idle)
			case <-timer.C:
				return
			}
		}
	}()
}

func (p *Pool) workerDone() {
	p.mu.Lock()
	p.running--
	p.mu.Unlock()
}

func (p *Pool) runJob(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf(component, "worker pool job panicked: %v", r)
		}
	}()
	f()
}

// Shutdown closes the job queue and waits up to timeout for every running
// worker to drain, per the bounded worker-pool shutdown of spec.md §5
// (5s timeout, then force).
func (p *Pool) Shutdown(timeout time.Duration) {
	close(p.jobs)
	done := make(chan struct{})
	go func() {
		for {
			p.mu.Lock()
			r := p.running
			p.mu.Unlock()
			if r == 0 {
				close(done)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logging.Warnf(component, "worker pool shutdown timed out after %s, forcing exit", timeout)
	}
}
