// Package worker provides a bounded worker pool that runs the per-tile
// pipeline in parallel across 1°x1° tiles (spec §5: one task per tile,
// tile state exclusively owned, cooperative cancellation only between
// tiles, never mid-tile).
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/tgconstruct/tgconstruct/internal/chopper"
)

// TileBuilder runs the full per-tile pipeline for one tile: ingest into
// a fresh landclass.LandclassBucket, reconcile boundary nodes,
// triangulate, assign elevations, compute normals/texcoords, and
// persist the result. Implementations own everything the tile needs
// (node set, accumulator, bucket) for the duration of the call; no
// state is shared across tiles.
type TileBuilder interface {
	BuildTile(ctx context.Context, id chopper.TileID) error
}

// Task is a single tile's unit of work.
type Task struct {
	Tile chopper.TileID
}

// Result is the outcome of one tile task.
type Result struct {
	Task    Task
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Builder    TileBuilder
	OnProgress ProgressFunc
}

// Pool runs tile tasks across a bounded number of goroutines.
type Pool struct {
	workers    int
	builder    TileBuilder
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		builder:    cfg.Builder,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns results. Tasks are processed in
// parallel by the configured number of workers. The function blocks
// until all tasks complete; a cancelled context stops a worker from
// picking up its *next* tile but never aborts one mid-build (spec §5's
// "cooperative cancellation at tile boundaries").
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				break
			}
		}
		close(taskCh)
	}()

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		for result := range resultCh {
			results = append(results, result)

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// worker processes tasks from the task channel and sends results to the
// result channel. Cancellation is only checked between tasks: a tile
// already in progress always runs to completion.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{Task: task, Err: ctx.Err()}
			continue
		default:
		}

		start := time.Now()
		// The builder gets a context that is never cancelled, so a tile
		// in progress runs to completion.
		err := p.builder.BuildTile(context.WithoutCancel(ctx), task.Tile)
		elapsed := time.Since(start)

		results <- Result{Task: task, Err: err, Elapsed: elapsed}
	}
}
