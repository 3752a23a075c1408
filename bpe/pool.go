package bpe

import (
	"runtime"
	"sync"
)

// Pool is a long-lived fork-join worker pool shared by the BPE learner's
// scheduler and both the bpe.Encoder and wordpiece.Encoder appliers. It is
// the Go-native analogue of the original thread_pool.h: a fixed set of
// goroutines consuming short-lived tasks from a queue, with Wait blocking
// the submitter until every task dispatched since the last Wait has
// completed. Workers are never cancelled mid-task; shutdown only happens
// on Close.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
	quit  chan struct{}
	size  int
}

// ResolveThreadCount maps the "0 means hardware concurrency" convention
// spec §6 describes ("n_threads = 0 ... use hardware concurrency; fall
// back to 8 if unavailable") to a concrete worker count.
func ResolveThreadCount(n int) int {
	if n > 0 {
		return n
	}
	if c := runtime.NumCPU(); c > 0 {
		return c
	}
	return 8
}

// NewPool starts a pool of ResolveThreadCount(n) workers.
func NewPool(n int) *Pool {
	size := ResolveThreadCount(n)
	p := &Pool{
		tasks: make(chan func()),
		quit:  make(chan struct{}),
		size:  size,
	}
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		case <-p.quit:
			return
		}
	}
}

// Submit queues f for execution by a worker goroutine. Safe to call from
// a single submitter goroutine between calls to Wait; concurrent Submit
// calls from multiple goroutines are also safe, Wait is not.
func (p *Pool) Submit(f func()) {
	p.wg.Add(1)
	p.tasks <- func() {
		defer p.wg.Done()
		f()
	}
}

// Wait blocks until every task submitted since the last Wait call has
// completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size reports the number of worker goroutines in the pool.
func (p *Pool) Size() int {
	return p.size
}

// Close stops all workers. The pool must not be used afterward.
func (p *Pool) Close() {
	close(p.quit)
}

// RunSharded splits n units of work into shards (at most Size() of them)
// and runs fn(shardStart, shardEnd) for each shard concurrently, blocking
// until all shards complete. When the pool has only one worker, fn runs
// inline in the calling goroutine with a single shard covering all of n —
// the "pool size <= 1 runs inline" rule spec §4.4/§4.5 call for.
func (p *Pool) RunSharded(n int, fn func(begin, end int)) {
	if n <= 0 {
		return
	}
	if p.size <= 1 {
		fn(0, n)
		return
	}

	shards := p.size
	if shards > n {
		shards = n
	}
	shardLen := (n + shards - 1) / shards

	begin := 0
	for begin < n {
		end := begin + shardLen
		if end > n {
			end = n
		}
		b, e := begin, end
		p.Submit(func() { fn(b, e) })
		begin = end
	}
	p.Wait()
}
