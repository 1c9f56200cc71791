package render

import (
	"context"
	"sort"
	"sync"
)

// Result is the terminal outcome of one job.
type Result struct {
	Job      Job
	Attempts int
	Err      error
}

// Succeeded reports whether the job produced a verified output.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Runner executes a plan on a bounded worker pool. A job failure never stops
// the other jobs; each failed job retries up to Retries extra attempts.
type Runner struct {
	Encoder Encoder
	Workers int
	Retries int
	// Observe, when set, is called once per terminal job result. Calls
	// are serialized.
	Observe func(Result)
}

// Run encodes every job and returns results ordered by clip index. A
// cancelled context stops dispatching and reports ctx.Err() for jobs that
// never ran to completion.
func (r Runner) Run(ctx context.Context, sourcePath string, jobs []Job) []Result {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if len(jobs) == 0 {
		return []Result{}
	}

	queue := make(chan Job)
	results := make([]Result, 0, len(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(res Result) {
		mu.Lock()
		results = append(results, res)
		if r.Observe != nil {
			r.Observe(res)
		}
		mu.Unlock()
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				record(r.runJob(ctx, sourcePath, job))
			}
		}()
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			record(Result{Job: job, Err: err})
			continue
		}
		select {
		case queue <- job:
		case <-ctx.Done():
			record(Result{Job: job, Err: ctx.Err()})
		}
	}
	close(queue)
	wg.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].Job.Index < results[b].Job.Index })
	return results
}

func (r Runner) runJob(ctx context.Context, sourcePath string, job Job) Result {
	attempts := 0
	var lastErr error
	for attempts <= r.Retries {
		attempts++
		if err := ctx.Err(); err != nil {
			return Result{Job: job, Attempts: attempts, Err: err}
		}
		lastErr = r.Encoder.Encode(ctx, sourcePath, job)
		if lastErr == nil {
			lastErr = r.Encoder.Verify(ctx, job)
		}
		if lastErr == nil {
			return Result{Job: job, Attempts: attempts}
		}
	}
	return Result{Job: job, Attempts: attempts, Err: lastErr}
}
