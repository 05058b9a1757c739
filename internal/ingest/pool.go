package ingest

import (
	"fmt"
	"sync"
)

// job is one submitted batch and, once a worker finishes it, its result.
type job struct {
	b   *batch
	res batchResult
}

// workerPool runs a fixed number of goroutines draining a FIFO queue of
// batches. Results are only safe to read once done is closed.
type workerPool struct {
	queue chan *job
	wg    sync.WaitGroup
}

func newWorkerPool(workers int, fn func(*batch) batchResult) *workerPool {
	p := &workerPool{queue: make(chan *job, workers)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.queue {
				j.res = runJob(fn, j.b)
			}
		}()
	}
	return p
}

// runJob turns a panicking batch into a failed result so one bad batch
// cannot take the worker down with it.
func runJob(fn func(*batch) batchResult, b *batch) (res batchResult) {
	defer func() {
		if r := recover(); r != nil {
			res = batchResult{err: fmt.Errorf("rows %d-%d: panic: %v", b.start, b.end, r)}
		}
	}()
	return fn(b)
}

// submit enqueues b, blocking while every worker is busy and the queue is full.
func (p *workerPool) submit(b *batch) *job {
	j := &job{b: b}
	p.queue <- j
	return j
}

// shutdown stops accepting work. Queued batches still run.
func (p *workerPool) shutdown() {
	close(p.queue)
}

// done is closed once every worker has exited.
func (p *workerPool) done() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(ch)
	}()
	return ch
}
