package bpe

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPoolSubmitWait(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var count int64
	for i := 0; i < 100; i++ {
		p.Submit(func() { atomic.AddInt64(&count, 1) })
	}
	p.Wait()

	if count != 100 {
		t.Errorf("count = %d, want 100", count)
	}
}

func TestResolveThreadCount(t *testing.T) {
	if got := ResolveThreadCount(4); got != 4 {
		t.Errorf("ResolveThreadCount(4) = %d, want 4", got)
	}
	if got := ResolveThreadCount(0); got <= 0 {
		t.Errorf("ResolveThreadCount(0) = %d, want > 0", got)
	}
}

func TestRunShardedCoversAllIndices(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	const n = 37
	var mu sync.Mutex
	seen := make([]int, n)

	p.RunSharded(n, func(begin, end int) {
		mu.Lock()
		for i := begin; i < end; i++ {
			seen[i]++
		}
		mu.Unlock()
	})

	for i, c := range seen {
		if c != 1 {
			t.Errorf("index %d visited %d times, want 1", i, c)
		}
	}
}

func TestRunShardedInlineForSingleWorker(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	const n = 10
	seen := make([]int, n)
	p.RunSharded(n, func(begin, end int) {
		for i := begin; i < end; i++ {
			seen[i]++
		}
	})
	for i, c := range seen {
		if c != 1 {
			t.Errorf("index %d visited %d times, want 1", i, c)
		}
	}
}
