package session

import (
	"context"
	"sync"
)

type writeJob struct {
	fn     func(ctx context.Context) error
	result chan error
}

// writer runs storage writes one after another in submission order
type writer struct {
	jobs chan writeJob
	wg   sync.WaitGroup
}

func newWriter(size int) *writer {
	return &writer{jobs: make(chan writeJob, size)}
}

func (w *writer) start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for job := range w.jobs {
			job.result <- job.fn(ctx)
		}
	}()
}

// submit queues fn. The returned channel yields its error once it ran
func (w *writer) submit(fn func(ctx context.Context) error) <-chan error {
	result := make(chan error, 1)
	w.jobs <- writeJob{fn: fn, result: result}

	return result
}

// stop drains the queue and waits for the last write
func (w *writer) stop() {
	close(w.jobs)
	w.wg.Wait()
}
