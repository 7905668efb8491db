// Package taskqueue implements the single-consumer task FIFO the
// task-runner goroutine drains: outbound protocol work (the handshake
// sends, subscription frames) is queued here instead of written to the
// socket directly, so the connection's send path only ever has one
// writer. The heartbeat is written by the task-runner loop itself, not
// through this queue.
package taskqueue

import "sync"

// ExecStatus is the bitmask a Task's Run returns: Success must be set
// for the task to be considered to have completed without error;
// DontAdvance stops this pass before later tasks in the queue run;
// PopMe removes this task from the queue after Run regardless of
// Success.
type ExecStatus uint8

const (
	Success ExecStatus = 1 << iota
	DontAdvance
	PopMe
)

// Command is passed to Task.Run; FreeResources tells a task to
// release whatever it's holding and return without doing its normal
// work, used when the queue is being torn down.
type Command uint8

const FreeResources Command = 1 << 0

// Task is one unit of outbound work.
type Task interface {
	Run(cmd Command) ExecStatus
}

// TaskFunc adapts a plain function to Task for tasks with no state to
// free on teardown.
type TaskFunc func(cmd Command) ExecStatus

func (f TaskFunc) Run(cmd Command) ExecStatus { return f(cmd) }

// Queue is a single-consumer FIFO of Tasks. Multiple producers may
// Add concurrently; Execute is meant to be called from one goroutine
// (the connection's task-runner loop).
type Queue struct {
	mu    sync.Mutex
	tasks []Task
}

func New() *Queue { return &Queue{} }

// Add appends t to the back of the queue.
func (q *Queue) Add(t Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
}

// Empty reports whether the queue currently has no pending tasks.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks) == 0
}

// Execute runs queued tasks front-to-back until one sets DontAdvance
// or the queue drains. PopMe removes a task regardless of its other
// bits; a Success without DontAdvance also consumes the task (a
// completed one-shot). Success|DontAdvance is the "retry later"
// combination: the task stays at the front and this pass ends, so the
// next Execute call re-runs it first. A status with neither Success
// nor PopMe aborts the pass with the task still queued.
func (q *Queue) Execute() {
	for {
		t, ok := q.peek()
		if !ok {
			return
		}
		status := t.Run(0)
		if status&PopMe != 0 || (status&Success != 0 && status&DontAdvance == 0) {
			q.popFront()
		}
		if status&DontAdvance != 0 {
			return
		}
		if status&Success == 0 && status&PopMe == 0 {
			// task failed and wasn't popped: don't spin on it within one
			// pass, retry on the next.
			return
		}
	}
}

func (q *Queue) peek() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	return q.tasks[0], true
}

func (q *Queue) popFront() {
	q.mu.Lock()
	if len(q.tasks) > 0 {
		q.tasks = q.tasks[1:]
	}
	q.mu.Unlock()
}

// Destroy drains every remaining task with FreeResources, discarding
// their status, then empties the queue — used when a connection is
// closing and queued tasks must release buffers/handles without
// attempting to send anything.
func (q *Queue) Destroy() {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, t := range tasks {
		t.Run(FreeResources)
	}
}
