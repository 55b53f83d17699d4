// Package worker provides a parallel tile rendering worker pool.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/pinmap/internal/tile"
)

// Renderer produces and stores a single tile. It returns the number of bytes
// written; zero bytes with a nil error means the tile had nothing to draw.
type Renderer interface {
	RenderTile(ctx context.Context, coords tile.Coords) (int, error)
}

// RenderFunc adapts a plain function to the Renderer interface.
type RenderFunc func(ctx context.Context, coords tile.Coords) (int, error)

// RenderTile implements Renderer.
func (f RenderFunc) RenderTile(ctx context.Context, coords tile.Coords) (int, error) {
	return f(ctx, coords)
}

// Task represents a single tile rendering task.
type Task struct {
	Coords tile.Coords
}

// Result represents the outcome of a tile rendering task.
type Result struct {
	Task    Task
	Bytes   int
	Err     error
	Elapsed time.Duration
}

// Skipped reports whether the tile produced no output.
func (r Result) Skipped() bool {
	return r.Err == nil && r.Bytes == 0
}

// Counts is the state of a run after a task completed.
type Counts struct {
	Completed int
	Total     int
	Failed    int
	Skipped   int
	Bytes     int64
}

// Written is the number of completed tasks that produced output.
func (c Counts) Written() int {
	return c.Completed - c.Failed - c.Skipped
}

// add records the outcome of one task.
func (c *Counts) add(r Result) {
	c.Completed++
	switch {
	case r.Err != nil:
		c.Failed++
	case r.Skipped():
		c.Skipped++
	default:
		c.Bytes += int64(r.Bytes)
	}
}

// ProgressFunc is called after each task completes. Calls are sequential.
type ProgressFunc func(Counts)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Renderer   Renderer
	OnProgress ProgressFunc
}

// Pool manages parallel tile rendering.
type Pool struct {
	workers    int
	renderer   Renderer
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
		renderer:   cfg.Renderer,
		onProgress: cfg.OnProgress,
	}
}

// Workers returns the effective number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// Run executes all tasks and returns one result per task in completion order.
// Tasks not started before ctx is cancelled are reported with ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		counts := Counts{Total: len(tasks)}
		for result := range resultCh {
			results = append(results, result)

			counts.add(result)
			if p.onProgress != nil {
				p.onProgress(counts)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// worker processes tasks from the task channel and sends results to the result channel.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		start := time.Now()
		n, err := p.renderer.RenderTile(ctx, task.Coords)

		results <- Result{
			Task:    task,
			Bytes:   n,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
