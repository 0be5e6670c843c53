// Package parallel bounds how many raster tiles evaluate at once.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of long-lived goroutines that run tile evaluations.
// Materializations share one pool, so total tile concurrency stays at the
// worker count no matter how many rasters evaluate at the same time.
//
// A tile batch is known in full before it runs, so the pool feeds all
// workers from a single shared queue. Uneven tiles (focal halos, short
// edge tiles, masked regions) balance themselves: a worker that finishes
// early just pulls the next tile.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	queue   chan task
	done    chan struct{}
	wg      sync.WaitGroup
	workers int
	closed  atomic.Bool
}

// task pairs one tile evaluation with the barrier of its batch.
type task struct {
	run   func()
	batch *sync.WaitGroup
}

// New starts a pool with the given number of workers. Zero or negative
// means GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		queue:   make(chan task, workers*2),
		done:    make(chan struct{}),
		workers: workers,
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case t := <-p.queue:
			t.run()
			t.batch.Done()
		case <-p.done:
			// Finish what is already queued before exiting.
			for {
				select {
				case t := <-p.queue:
					t.run()
					t.batch.Done()
				default:
					return
				}
			}
		}
	}
}

// Run executes every task on the pool and returns once all of them have
// finished. Batches from concurrent Run calls interleave on the same
// workers. After Close, Run is a no-op.
func (p *Pool) Run(tasks []func()) {
	if len(tasks) == 0 || p.closed.Load() {
		return
	}
	var batch sync.WaitGroup
	batch.Add(len(tasks))
	for _, fn := range tasks {
		select {
		case p.queue <- task{run: fn, batch: &batch}:
		case <-p.done:
			batch.Done()
		}
	}
	batch.Wait()
}

// Close stops the workers after draining queued tasks. Safe to call more
// than once.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the pool's worker count.
func (p *Pool) Workers() int { return p.workers }
