package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tgconstruct/tgconstruct/internal/chopper"
)

// mockBuilder simulates tile construction for testing.
type mockBuilder struct {
	delay     time.Duration
	failTiles map[string]bool // tiles that should fail
	callCount atomic.Int32
}

func (m *mockBuilder) BuildTile(ctx context.Context, id chopper.TileID) error {
	m.callCount.Add(1)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.delay):
	}

	if m.failTiles != nil && m.failTiles[id.String()] {
		return errors.New("simulated failure")
	}

	return nil
}

func TestPool_BasicExecution(t *testing.T) {
	builder := &mockBuilder{delay: 10 * time.Millisecond}

	pool := New(Config{
		Workers: 2,
		Builder: builder,
	})

	tasks := []Task{
		{Tile: chopper.TileID{Lon: 13, Lat: 42}},
		{Tile: chopper.TileID{Lon: 13, Lat: 43}},
		{Tile: chopper.TileID{Lon: 14, Lat: 42}},
	}

	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", r.Task.Tile.String(), r.Err)
		}
	}

	if builder.callCount.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d builder calls, got %d", len(tasks), builder.callCount.Load())
	}
}

func TestPool_Parallelism(t *testing.T) {
	// Use a longer delay to ensure parallelism is tested
	builder := &mockBuilder{delay: 50 * time.Millisecond}

	pool := New(Config{
		Workers: 4,
		Builder: builder,
	})

	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{Tile: chopper.TileID{Lon: 13 + i, Lat: 42}}
	}

	start := time.Now()
	results := pool.Run(context.Background(), tasks)
	elapsed := time.Since(start)

	// With 4 workers and 8 tasks at 50ms each, should take ~100ms (2 batches)
	// Allow some margin for overhead
	maxExpected := 200 * time.Millisecond
	if elapsed > maxExpected {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	t.Logf("Processed %d tasks with %d workers in %v", len(tasks), 4, elapsed)
}

func TestPool_ErrorHandling(t *testing.T) {
	failTile := chopper.TileID{Lon: 13, Lat: 43}
	builder := &mockBuilder{
		delay:     10 * time.Millisecond,
		failTiles: map[string]bool{failTile.String(): true},
	}

	pool := New(Config{
		Workers: 2,
		Builder: builder,
	})

	tasks := []Task{
		{Tile: chopper.TileID{Lon: 13, Lat: 42}},
		{Tile: failTile}, // This one should fail
		{Tile: chopper.TileID{Lon: 14, Lat: 42}},
	}

	results := pool.Run(context.Background(), tasks)

	// Should still get all results
	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	// Count successes and failures
	var successCount, failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			if r.Task.Tile.String() != failTile.String() {
				t.Errorf("Unexpected failure for %s", r.Task.Tile.String())
			}
		} else {
			successCount++
		}
	}

	if successCount != 2 {
		t.Errorf("Expected 2 successes, got %d", successCount)
	}
	if failCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failCount)
	}
}

func TestPool_Cancellation(t *testing.T) {
	builder := &mockBuilder{delay: 100 * time.Millisecond}

	pool := New(Config{
		Workers: 2,
		Builder: builder,
	})

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{Tile: chopper.TileID{Lon: 13 + i, Lat: 42}}
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after a short time
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, tasks)
	elapsed := time.Since(start)

	// Should return early due to cancellation
	if elapsed > 200*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}

	// Some results may have errors due to cancellation
	var cancelledCount int
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.Canceled) {
			cancelledCount++
		}
	}

	t.Logf("Completed with %d results (%d cancelled) in %v", len(results), cancelledCount, elapsed)
}

func TestPool_ProgressCallback(t *testing.T) {
	builder := &mockBuilder{delay: 10 * time.Millisecond}

	var progressCalls atomic.Int32
	var lastCompleted, lastTotal int

	pool := New(Config{
		Workers: 2,
		Builder: builder,
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
		},
	})

	tasks := []Task{
		{Tile: chopper.TileID{Lon: 13, Lat: 42}},
		{Tile: chopper.TileID{Lon: 13, Lat: 43}},
		{Tile: chopper.TileID{Lon: 14, Lat: 42}},
	}

	pool.Run(context.Background(), tasks)

	// Should have received progress callbacks
	if progressCalls.Load() == 0 {
		t.Error("Expected progress callbacks, got none")
	}

	// Final callback should show all completed
	if lastCompleted != len(tasks) {
		t.Errorf("Expected lastCompleted=%d, got %d", len(tasks), lastCompleted)
	}
	if lastTotal != len(tasks) {
		t.Errorf("Expected lastTotal=%d, got %d", len(tasks), lastTotal)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	builder := &mockBuilder{}

	pool := New(Config{
		Workers: 2,
		Builder: builder,
	})

	results := pool.Run(context.Background(), nil)

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}

	if builder.callCount.Load() != 0 {
		t.Errorf("Expected 0 builder calls for empty tasks, got %d", builder.callCount.Load())
	}
}

func TestPool_DistinctTiles(t *testing.T) {
	builder := &mockBuilder{delay: 10 * time.Millisecond}

	pool := New(Config{
		Workers: 1,
		Builder: builder,
	})

	tasks := []Task{
		{Tile: chopper.TileID{Lon: 13, Lat: 42}},
	}

	results := pool.Run(context.Background(), tasks)

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	want := fmt.Sprintf("%s", tasks[0].Tile)
	if got := results[0].Task.Tile.String(); got != want {
		t.Errorf("expected task tile to round-trip, got %s want %s", got, want)
	}
}
