package utils

import (
	"errors"
	"sync"
)

// Task is a unit of work run by RunParallel or a WorkerPool.
type Task func() error

// RunParallel runs every task in its own goroutine and returns their errors
// in task order. A nil entry means the task succeeded.
func RunParallel(tasks ...Task) []error {
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t Task) {
			defer wg.Done()
			errs[index] = t()
		}(i, task)
	}

	wg.Wait()
	return errs
}

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	maxWorkers int
	taskChan   chan Task
	wg         sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewWorkerPool creates a pool and starts its workers.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	pool := &WorkerPool{
		maxWorkers: maxWorkers,
		taskChan:   make(chan Task, maxWorkers*2),
	}

	for i := 0; i < maxWorkers; i++ {
		go pool.worker()
	}

	return pool
}

func (p *WorkerPool) worker() {
	for task := range p.taskChan {
		if err := task(); err != nil {
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
		p.wg.Done()
	}
}

// Submit queues a task. It blocks while the queue is full.
func (p *WorkerPool) Submit(task Task) {
	p.wg.Add(1)
	p.taskChan <- task
}

// Wait blocks until every submitted task finished and returns their joined
// errors.
func (p *WorkerPool) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

// Close stops the workers. Submit must not be called afterwards.
func (p *WorkerPool) Close() {
	close(p.taskChan)
}
