// Package worker provides a small bounded worker pool used for the
// independent per-asset steps of the packaging pipeline (strip/objcopy
// invocation and reading staged asset contents).
package worker

import "sync"

// Task is a unit of work passed to Run. It returns an error to report on.
type Task func() error

// Run executes tasks with at most maxWorkers running concurrently and
// returns the first error encountered, after draining the remaining tasks.
// A maxWorkers <= 0 falls back to a single task in flight at a time.
func Run(tasks []Task, maxWorkers int) error {
	if len(tasks) == 0 {
		return nil
	}

	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	if maxWorkers > len(tasks) {
		maxWorkers = len(tasks)
	}

	taskChan := make(chan Task, len(tasks))
	errChan := make(chan error, len(tasks))

	var waitGroup sync.WaitGroup

	for range maxWorkers {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			for task := range taskChan {
				if err := task(); err != nil {
					errChan <- err
				}
			}
		}()
	}

	for _, task := range tasks {
		taskChan <- task
	}

	close(taskChan)

	waitGroup.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}

	return nil
}
