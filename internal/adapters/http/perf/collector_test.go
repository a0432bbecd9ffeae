package perf

import (
	"sync"
	"testing"
	"time"
)

// TestCollector_Snapshot_GroupsByKind tests that requests, queries and provider calls aggregate separately.
func TestCollector_Snapshot_GroupsByKind(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "POST /api/notify", StatusCode: 200, DurationMs: 10, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "POST /api/notify", StatusCode: 200, DurationMs: 30, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Path: "db.GetContext", DurationMs: 5, Timestamp: now})
	c.Record(Entry{Kind: KindProvider, Path: "provider.sms", Failed: true, DurationMs: 80, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 4 {
		t.Errorf("TotalRecorded = %d, want 4", snap.TotalRecorded)
	}
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].AvgMs != 20 {
		t.Fatalf("unexpected SlowestPaths %+v", snap.SlowestPaths)
	}
	if len(snap.SlowestQueries) != 1 {
		t.Fatalf("SlowestQueries len = %d, want 1", len(snap.SlowestQueries))
	}
	if len(snap.SlowestProviders) != 1 || snap.SlowestProviders[0].Failures != 1 {
		t.Fatalf("unexpected SlowestProviders %+v", snap.SlowestProviders)
	}
}

// TestCollector_RingBuffer_Overwrites tests that the oldest entries are overwritten when full.
func TestCollector_RingBuffer_Overwrites(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "POST /api/notify", DurationMs: float64(i), Timestamp: now})
	}

	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 {
		t.Fatalf("SlowestPaths len = %d, want 1", len(snap.SlowestPaths))
	}
	if snap.SlowestPaths[0].Count != 3 {
		t.Errorf("Count = %d, want 3", snap.SlowestPaths[0].Count)
	}
	if snap.SlowestPaths[0].MaxMs != 4 {
		t.Errorf("MaxMs = %v, want 4", snap.SlowestPaths[0].MaxMs)
	}
}

// TestCollector_Percentiles tests P50/P95/P99 over request entries only.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()

	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "POST /api/notify", DurationMs: float64(i), Timestamp: now})
	}
	c.Record(Entry{Kind: KindProvider, Path: "provider.email", DurationMs: 10000, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.RequestP50Ms < 49 || snap.RequestP50Ms > 51 {
		t.Errorf("P50 = %v, want ~50", snap.RequestP50Ms)
	}
	if snap.RequestP95Ms < 94 || snap.RequestP95Ms > 96 {
		t.Errorf("P95 = %v, want ~95", snap.RequestP95Ms)
	}
	if snap.RequestP99Ms < 98 || snap.RequestP99Ms > 100 {
		t.Errorf("P99 = %v, want ~99", snap.RequestP99Ms)
	}
}

// TestCollector_Snapshot_FiltersBySince tests that old entries are excluded.
func TestCollector_Snapshot_FiltersBySince(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /healthz", DurationMs: 1, Timestamp: now.Add(-2 * time.Hour)})
	c.Record(Entry{Kind: KindRequest, Path: "POST /api/notify", DurationMs: 2, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Hour), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "POST /api/notify" {
		t.Errorf("unexpected SlowestPaths %+v", snap.SlowestPaths)
	}
}

// TestCollector_TopN tests that only the slowest N paths are returned.
func TestCollector_TopN(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()
	for i, p := range []string{"a", "b", "c", "d"} {
		c.Record(Entry{Kind: KindQuery, Path: p, DurationMs: float64(i + 1), Timestamp: now})
	}
	snap := c.Snapshot(now.Add(-time.Minute), 2)
	if len(snap.SlowestQueries) != 2 {
		t.Fatalf("len = %d, want 2", len(snap.SlowestQueries))
	}
	if snap.SlowestQueries[0].Path != "d" || snap.SlowestQueries[1].Path != "c" {
		t.Errorf("unexpected order %+v", snap.SlowestQueries)
	}
}

// TestCollector_NilIsSafe tests that recording into a nil collector is a no-op.
func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	c.Since(KindProvider, "provider.email", time.Now(), false)
	if c.TotalRecorded() != 0 {
		t.Error("nil collector should report zero")
	}
}

// TestCollector_ConcurrentRecord tests that concurrent writers do not race.
func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(50)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Since(KindRequest, "POST /api/notify", time.Now(), false)
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 800 {
		t.Errorf("TotalRecorded = %d, want 800", c.TotalRecorded())
	}
}
