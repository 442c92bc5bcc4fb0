package render

import (
	"runtime"
	"sync"
)

// sequentialThreshold is the job size under which Run skips the workers.
const sequentialThreshold = 64

// Pool fans index ranges out to a fixed set of goroutines. Table builds use
// it to paint sprite cells in parallel; the cell function must be pure.
type Pool struct {
	numWorkers int
	jobChan    chan rangeJob
	wg         sync.WaitGroup
	running    bool
	mu         sync.RWMutex // held shared while a Run dispatches
}

// rangeJob is one contiguous chunk of indices
type rangeJob struct {
	lo, hi int
	fn     func(i int) error
	result chan<- error
}

// NewPool creates a pool with the specified number of workers.
// If numWorkers is 0, it defaults to NumCPU.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	// Cap at reasonable maximum
	if numWorkers > 16 {
		numWorkers = 16
	}

	return &Pool{numWorkers: numWorkers}
}

// Start begins the worker goroutines
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.jobChan = make(chan rangeJob, p.numWorkers*2)
	p.wg.Add(p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go p.worker(p.jobChan)
	}
}

// Stop stops the workers and waits for in-flight chunks.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.jobChan)
	p.wg.Wait()
}

func (p *Pool) worker(jobs <-chan rangeJob) {
	defer p.wg.Done()

	for job := range jobs {
		job.result <- runRange(job.lo, job.hi, job.fn)
	}
}

// Run calls fn for every index in [0, n) and returns the first error.
// Falls back to the calling goroutine when the pool is stopped or the job is
// small.
func (p *Pool) Run(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running || n < sequentialThreshold {
		return runRange(0, n, fn)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	resultChan := make(chan error, p.numWorkers+1)
	numJobs := 0
	var inline error

	for lo := 0; lo < n; lo += chunkSize {
		hi := min(n, lo+chunkSize)
		job := rangeJob{lo: lo, hi: hi, fn: fn, result: resultChan}

		select {
		case p.jobChan <- job:
			numJobs++
		default:
			// Channel full, run the chunk here
			if err := runRange(lo, hi, fn); err != nil && inline == nil {
				inline = err
			}
		}
	}

	first := inline
	for i := 0; i < numJobs; i++ {
		if err := <-resultChan; err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Workers returns the number of workers in the pool
func (p *Pool) Workers() int {
	return p.numWorkers
}

// IsRunning returns whether the pool is currently running
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func runRange(lo, hi int, fn func(i int) error) error {
	for i := lo; i < hi; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}
