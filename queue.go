// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"sync"
)

// chunkSize is the number of tasks per node in a taskQueue's linked list.
const chunkSize = 128

// Task is an opaque unit of work. A task may register further work,
// including into the queue it was drawn from.
//
// A task fails by panicking. See [TaskError].
type Task func()

// QueueID identifies one of the four task queues.
type QueueID int

const (
	// QueueMacrotask holds discrete units of work, admitted subject to the
	// per-cycle time budget.
	QueueMacrotask QueueID = iota
	// QueueMicrotask holds work that is drained to a fixpoint after every
	// macrotask, animation frame callback, and idle callback.
	QueueMicrotask
	// QueueAnimationFrame holds pre-render work, snapshotted once per cycle.
	QueueAnimationFrame
	// QueueIdle holds the lowest priority work, at most one per cycle.
	QueueIdle

	queueCount = iota
)

// String returns a human-readable representation of the queue.
func (q QueueID) String() string {
	switch q {
	case QueueMacrotask:
		return "macrotask"
	case QueueMicrotask:
		return "microtask"
	case QueueAnimationFrame:
		return "animationFrame"
	case QueueIdle:
		return "idle"
	default:
		return "unknown"
	}
}

func (q QueueID) valid() bool {
	return q >= 0 && q < queueCount
}

// taskQueue is a chunked linked-list FIFO.
//
// Thread Safety: NOT thread-safe, see queueStore.
type taskQueue struct {
	head   *chunk
	tail   *chunk
	length int
}

// chunkPool recycles exhausted chunks.
var chunkPool = sync.Pool{
	New: func() any {
		return &chunk{}
	},
}

// chunk is a fixed-size node in the linked list, with read and write cursors
// for O(1) push and pop.
type chunk struct {
	tasks   [chunkSize]Task
	next    *chunk
	readPos int
	pos     int
}

func newChunk() *chunk {
	c := chunkPool.Get().(*chunk)
	c.pos = 0
	c.readPos = 0
	c.next = nil
	return c
}

// returnChunk clears any remaining task references then returns c to the
// pool.
func returnChunk(c *chunk) {
	for i := 0; i < c.pos; i++ {
		c.tasks[i] = nil
	}
	c.pos = 0
	c.readPos = 0
	c.next = nil
	chunkPool.Put(c)
}

// push appends a task to the tail.
func (q *taskQueue) push(task Task) {
	if q.tail == nil {
		q.tail = newChunk()
		q.head = q.tail
	}

	if q.tail.pos == len(q.tail.tasks) {
		newTail := newChunk()
		q.tail.next = newTail
		q.tail = newTail
	}

	q.tail.tasks[q.tail.pos] = task
	q.tail.pos++
	q.length++
}

// pop removes and returns the head task. The second return value is false if
// the queue is empty.
func (q *taskQueue) pop() (Task, bool) {
	if q.length == 0 {
		return nil, false
	}

	if q.head.readPos >= q.head.pos {
		// exhausted non-tail chunk (length > 0 guarantees a next chunk)
		oldHead := q.head
		q.head = q.head.next
		returnChunk(oldHead)
	}

	task := q.head.tasks[q.head.readPos]
	q.head.tasks[q.head.readPos] = nil
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
		} else {
			oldHead := q.head
			q.head = q.head.next
			returnChunk(oldHead)
		}
	}

	return task, true
}

// drain removes every task, returning them in FIFO order.
func (q *taskQueue) drain() []Task {
	if q.length == 0 {
		return nil
	}
	tasks := make([]Task, 0, q.length)
	for {
		task, ok := q.pop()
		if !ok {
			return tasks
		}
		tasks = append(tasks, task)
	}
}

// queueStore holds the four task queues, each guarded by its own mutex. The
// lock is only held for the duration of a queue operation, never while a task
// executes, allowing re-entrant registration.
type queueStore struct {
	queues [queueCount]struct {
		mu sync.Mutex
		q  taskQueue
	}
}

// enqueue appends task to the tail of the identified queue.
func (x *queueStore) enqueue(id QueueID, task Task) {
	e := &x.queues[id]
	e.mu.Lock()
	e.q.push(task)
	e.mu.Unlock()
}

// dequeueOne removes and returns the head of the identified queue, or
// returns false if it was empty.
func (x *queueStore) dequeueOne(id QueueID) (Task, bool) {
	e := &x.queues[id]
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.pop()
}

// takeAll atomically snapshots and clears the identified queue.
func (x *queueStore) takeAll(id QueueID) []Task {
	e := &x.queues[id]
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.drain()
}

func (x *queueStore) isEmpty(id QueueID) bool {
	return x.len(id) == 0
}

func (x *queueStore) len(id QueueID) int {
	e := &x.queues[id]
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.length
}

// requeueFront puts tasks back at the head of the identified queue, ahead of
// anything queued since they were taken, preserving their order.
func (x *queueStore) requeueFront(id QueueID, tasks []Task) {
	if len(tasks) == 0 {
		return
	}
	e := &x.queues[id]
	e.mu.Lock()
	defer e.mu.Unlock()
	newer := e.q.drain()
	for _, task := range tasks {
		e.q.push(task)
	}
	for _, task := range newer {
		e.q.push(task)
	}
}
