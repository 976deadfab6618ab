package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}

	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	expected := runtime.GOMAXPROCS(0)
	if pool.Workers() != expected {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), expected)
	}
}

func TestWorkerPool_CreateNegativeWorkers(t *testing.T) {
	pool := NewWorkerPool(-5)
	defer pool.Close()

	expected := runtime.GOMAXPROCS(0)
	if pool.Workers() != expected {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), expected)
	}
}

func TestDefault_Shared(t *testing.T) {
	a := Default()
	b := Default()
	if a != b {
		t.Error("Default() returned different pools")
	}
	if !a.IsRunning() {
		t.Error("Default pool should be running")
	}
}

// =============================================================================
// Bounds / Chunks Tests
// =============================================================================

func TestBounds_CoversRange(t *testing.T) {
	tests := []struct {
		n, chunks int
	}{
		{1, 1},
		{10, 3},
		{100, 7},
		{7, 7},
		{1 << 20, 16},
	}

	for _, tt := range tests {
		next := 0
		for c := range tt.chunks {
			lo, hi := Bounds(tt.n, tt.chunks, c)
			if lo != next {
				t.Fatalf("Bounds(%d, %d, %d) lo = %d, want %d", tt.n, tt.chunks, c, lo, next)
			}
			if hi <= lo {
				t.Fatalf("Bounds(%d, %d, %d) empty range [%d, %d)", tt.n, tt.chunks, c, lo, hi)
			}
			next = hi
		}
		if next != tt.n {
			t.Errorf("chunks of n=%d end at %d", tt.n, next)
		}
	}
}

func TestBounds_Balanced(t *testing.T) {
	// 10 items in 3 chunks: 4, 3, 3
	want := [][2]int{{0, 4}, {4, 7}, {7, 10}}
	for c, w := range want {
		lo, hi := Bounds(10, 3, c)
		if lo != w[0] || hi != w[1] {
			t.Errorf("Bounds(10, 3, %d) = [%d, %d), want [%d, %d)", c, lo, hi, w[0], w[1])
		}
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name            string
		n, grain, limit int
		want            int
	}{
		{"empty", 0, 100, 8, 1},
		{"below grain", 50, 100, 8, 1},
		{"exact", 400, 100, 8, 4},
		{"capped", 10000, 100, 8, 8},
		{"zero grain", 5, 0, 8, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Chunks(tt.n, tt.grain, tt.limit); got != tt.want {
				t.Errorf("Chunks(%d, %d, %d) = %d, want %d", tt.n, tt.grain, tt.limit, got, tt.want)
			}
		})
	}
}

// =============================================================================
// For Tests
// =============================================================================

func TestWorkerPool_For(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const n = 10000
	out := make([]int32, n)

	pool.For(n, 16, func(chunk, lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i]++
		}
	})

	for i, v := range out {
		if v != 1 {
			t.Fatalf("out[%d] = %d, want 1 (each index visited once)", i, v)
		}
	}
}

func TestWorkerPool_For_ChunkNumbers(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	const n, chunks = 1000, 9
	seen := make([]atomic.Int32, chunks)

	pool.For(n, chunks, func(chunk, lo, hi int) {
		wantLo, wantHi := Bounds(n, chunks, chunk)
		if lo != wantLo || hi != wantHi {
			t.Errorf("chunk %d got [%d, %d), want [%d, %d)", chunk, lo, hi, wantLo, wantHi)
		}
		seen[chunk].Add(1)
	})

	for c := range seen {
		if seen[c].Load() != 1 {
			t.Errorf("chunk %d ran %d times, want 1", c, seen[c].Load())
		}
	}
}

func TestWorkerPool_For_Empty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	called := false
	pool.For(0, 4, func(int, int, int) { called = true })
	pool.For(10, 4, nil)

	if called {
		t.Error("For with n=0 should not call fn")
	}
}

func TestWorkerPool_For_MoreChunksThanItems(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var calls atomic.Int32
	pool.For(3, 64, func(chunk, lo, hi int) {
		calls.Add(1)
		if hi-lo != 1 {
			t.Errorf("chunk %d size %d, want 1", chunk, hi-lo)
		}
	})

	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWorkerPool_For_AfterClose(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()

	var sum atomic.Int64
	pool.For(100, 8, func(_, lo, hi int) {
		sum.Add(int64(hi - lo))
	})

	if sum.Load() != 100 {
		t.Errorf("sum = %d, want 100 (closed pool runs serially)", sum.Load())
	}
}

func TestWorkerPool_For_Concurrent(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const callers = 8
	var wg sync.WaitGroup
	var total atomic.Int64

	wg.Add(callers)
	for range callers {
		go func() {
			defer wg.Done()
			for range 10 {
				pool.For(1000, 8, func(_, lo, hi int) {
					total.Add(int64(hi - lo))
				})
			}
		}()
	}
	wg.Wait()

	if want := int64(callers * 10 * 1000); total.Load() != want {
		t.Errorf("total = %d, want %d", total.Load(), want)
	}
}

func TestSerial_MatchesFor(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const n, chunks = 777, 5
	a := make([]int, chunks)
	b := make([]int, chunks)

	pool.For(n, chunks, func(c, lo, hi int) { a[c] = hi - lo })
	Serial(n, chunks, func(c, lo, hi int) { b[c] = hi - lo })

	for c := range a {
		if a[c] != b[c] {
			t.Errorf("chunk %d: For size %d, Serial size %d", c, a[c], b[c])
		}
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestWorkerPool_Close(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
}

func TestWorkerPool_NoGoroutineLeak(t *testing.T) {
	before := runtime.NumGoroutine()

	for range 5 {
		pool := NewWorkerPool(8)
		pool.For(100, 8, func(int, int, int) {})
		pool.Close()
	}

	// Give goroutines time to exit
	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before+2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if after := runtime.NumGoroutine(); after > before+2 {
		t.Errorf("goroutines: before=%d after=%d, possible leak", before, after)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkWorkerPool_For(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	data := make([]float32, 1<<20)
	fn := func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			data[i] = data[i]*0.5 + 1
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		pool.For(len(data), pool.Workers()*4, fn)
	}
}
