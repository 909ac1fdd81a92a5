package lspserver

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsSubmittedJobsConcurrently(t *testing.T) {
	p := NewPool(4, 8, 50*time.Millisecond)

	var n int32
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			atomic.AddInt32(&n, 1)
			wg.Done()
		})
	}
	wg.Wait()
	assert.EqualValues(t, 10, atomic.LoadInt32(&n))

	p.Shutdown(time.Second)
}

func TestPoolGrowsBeyondCoreUnderLoad(t *testing.T) {
	p := NewPool(1, 4, 50*time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		p.Submit(func() {
			started <- struct{}{}
			<-release
			wg.Done()
		})
	}

	for i := 0; i < 4; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("not every job started: pool failed to grow past core size")
		}
	}

	close(release)
	wg.Wait()
	p.Shutdown(time.Second)
}

func TestPoolShutdownWaitsForRunningJobs(t *testing.T) {
	p := NewPool(2, 4, time.Second)

	done := make(chan struct{})
	p.Submit(func() {
		time.Sleep(30 * time.Millisecond)
		close(done)
	})

	p.Shutdown(time.Second)
	select {
	case <-done:
	default:
		t.Fatal("Shutdown returned before the running job finished")
	}
}

func TestPoolShutdownForcesAfterTimeout(t *testing.T) {
	p := NewPool(1, 1, time.Second)

	block := make(chan struct{})
	p.Submit(func() { <-block })

	start := time.Now()
	p.Shutdown(20 * time.Millisecond)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	close(block)
}
