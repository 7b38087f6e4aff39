package render

import "sync"

// maxWorkers caps the pool when the caller asks for no limit.
const maxWorkers = 32

// WorkerPool applies one function to a batch of jobs on a bounded number of
// goroutines. Results keep the order of the jobs that produced them.
type WorkerPool[Job any, Result any] struct {
	numWorkers int
	fn         func(Job) Result
}

// NewWorkerPool returns a pool calling fn on up to numWorkers goroutines.
// Zero or negative means maxWorkers.
func NewWorkerPool[Job any, Result any](numWorkers int, fn func(Job) Result) *WorkerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = maxWorkers
	}
	return &WorkerPool[Job, Result]{numWorkers: numWorkers, fn: fn}
}

// Run calls fn once per job; results[i] belongs to jobs[i].
func (p *WorkerPool[Job, Result]) Run(jobs []Job) []Result {
	results := make([]Result, len(jobs))
	next := make(chan int)

	var wg sync.WaitGroup
	for range min(p.numWorkers, len(jobs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				results[i] = p.fn(jobs[i])
			}
		}()
	}
	for i := range jobs {
		next <- i
	}
	close(next)
	wg.Wait()
	return results
}
