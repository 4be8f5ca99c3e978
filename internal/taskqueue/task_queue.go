package taskqueue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
)

// Task expiration time
var TaskExpirationTime = 4 * time.Hour

// ErrTaskExpired is returned when a task has expired
var ErrTaskExpired = errors.New("task expired")

// Task is a unit of deferred work. When Run returns the RetryOn error the
// queue resubmits the task until it succeeds or expires.
type Task struct {
	Run       func() error
	RetryOn   error
	CreatedAt time.Time
}

// NewTask creates a new task with the given run function and retryable error
func NewTask(run func() error, retryOn error) Task {
	return Task{
		Run:       run,
		RetryOn:   retryOn,
		CreatedAt: time.Now(),
	}
}

// Execute runs the task
func (t Task) Execute() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task execution: %v", r)
		}
	}()

	if t.IsExpired() {
		return ErrTaskExpired
	}

	return t.Run()
}

// ShouldRetry returns true if the error is the task's retryable error
func (t Task) ShouldRetry(err error) bool {
	return t.RetryOn != nil && errors.Is(err, t.RetryOn)
}

// IsExpired returns true if the task was created more than TaskExpirationTime ago
func (t Task) IsExpired() bool {
	return time.Since(t.CreatedAt) > TaskExpirationTime
}

// Queue executes tasks sequentially
type Queue struct {
	pool *workerpool.WorkerPool
	wg   sync.WaitGroup
}

// NewQueue creates a new task queue
func NewQueue() *Queue {
	// Use a pool size of 1 to ensure sequential execution
	return &Queue{
		pool: workerpool.New(1),
	}
}

// Add adds a task to the queue
func (q *Queue) Add(task Task) {
	q.wg.Add(1)
	q.pool.Submit(func() {
		q.processTask(task)
	})
}

// processTask processes a task and retries it if necessary
func (q *Queue) processTask(task Task) {
	defer q.wg.Done()

	if task.IsExpired() {
		return
	}

	err := task.Execute()
	if err != nil {
		if errors.Is(err, ErrTaskExpired) {
			return
		}
		if task.ShouldRetry(err) {
			q.Add(task)
		}
	}
}

// Wait waits for all tasks to complete
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Close stops the worker pool and waits for all tasks to complete
func (q *Queue) Close() {
	q.pool.Stop()
	q.wg.Wait()
}
