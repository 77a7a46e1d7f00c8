// Package delegator schedules bounded-concurrency work into groups whose
// completion is reported once, after every member of the group has
// produced a Result — including tasks whose result arrives asynchronously
// from outside the delegator's own workers.
package delegator

import (
	"sync"
	"sync/atomic"
)

// ResultKind tags the three shapes a Result can take.
type ResultKind int

const (
	// Empty signals "I produced no direct contribution; wait for my
	// children and external completions." It lets a task fan out without
	// itself occupying a slot in the final accumulated vector.
	Empty ResultKind = iota
	Error
	Ok
)

// Result is the tagged value a Task or external completion contributes to
// its group.
type Result struct {
	Kind  ResultKind
	Err   error
	Value any
}

// OkResult wraps v as a successful Result.
func OkResult(v any) Result { return Result{Kind: Ok, Value: v} }

// ErrResult wraps err as a failed Result.
func ErrResult(err error) Result { return Result{Kind: Error, Err: err} }

// EmptyResult is the sentinel filtered out of a group's accumulated vector.
func EmptyResult() Result { return Result{Kind: Empty} }

// TaskContext is passed to every running Task. GroupID names the task's
// group; a task passes it to QueueExtraTasks or QueueExtraExternalTask on
// its delegator to add siblings to that group.
type TaskContext struct {
	GroupID uint64
	d       *Delegator
}

// Delegator fans out closures into groups whose completion fires once,
// subject to an admission cap on concurrently running tasks.
type Delegator struct {
	maxConcurrent int

	taskMu  sync.Mutex
	queue   []queuedTask
	running atomic.Int64

	resultsMu   sync.Mutex
	groups      map[uint64]*group
	nextGroupID uint64
}

type queuedTask struct {
	groupID uint64
	fn      TaskFunc
}

// TaskFunc is a unit of work submitted to the delegator.
type TaskFunc func(ctx TaskContext) Result

// OnComplete is invoked exactly once per group, with every non-Empty Result
// the group's members produced, in arrival order.
type OnComplete func([]Result)

type group struct {
	expecting   int
	accumulated []Result
	onComplete  OnComplete
}

// New builds a Delegator admitting at most maxConcurrent tasks at once.
func New(maxConcurrent int) *Delegator {
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	return &Delegator{
		maxConcurrent: maxConcurrent,
		groups:        make(map[uint64]*group),
	}
}

// QueueTasks registers a new group expecting len(tasks) results and submits
// each task for scheduling.
func (d *Delegator) QueueTasks(onComplete OnComplete, tasks ...TaskFunc) uint64 {
	d.taskMu.Lock()
	defer d.taskMu.Unlock()

	d.resultsMu.Lock()
	d.nextGroupID++
	id := d.nextGroupID
	d.groups[id] = &group{
		expecting:   len(tasks),
		accumulated: make([]Result, 0, len(tasks)),
		onComplete:  onComplete,
	}
	d.resultsMu.Unlock()

	for _, t := range tasks {
		d.tryRun(id, t)
	}
	return id
}

// QueueExtraTasks increments the group's expected count and submits
// additional tasks. Safe to call from within a task running in that group.
func (d *Delegator) QueueExtraTasks(id uint64, tasks ...TaskFunc) {
	d.taskMu.Lock()
	defer d.taskMu.Unlock()

	d.resultsMu.Lock()
	if g, ok := d.groups[id]; ok {
		g.expecting += len(tasks)
	}
	d.resultsMu.Unlock()

	for _, t := range tasks {
		d.tryRun(id, t)
	}
}

// ExternalTaskHandle lets a Result be contributed from outside the
// delegator's own workers, e.g. an HTTP transfer completion callback.
// Finish must be called exactly once.
type ExternalTaskHandle struct {
	d        *Delegator
	groupID  uint64
	finished atomic.Bool
}

// Finish delivers result to the handle's group. Calling Finish a second
// time on the same handle is a programmer error.
func (h *ExternalTaskHandle) Finish(result Result) {
	if !h.finished.CompareAndSwap(false, true) {
		panic("delegator: ExternalTaskHandle.Finish called more than once")
	}
	h.d.processResult(h.groupID, result)
}

// QueueExternalTask registers a new one-task group whose only Result
// arrives via the returned handle's Finish method.
func (d *Delegator) QueueExternalTask(onComplete OnComplete) *ExternalTaskHandle {
	d.resultsMu.Lock()
	d.nextGroupID++
	id := d.nextGroupID
	d.groups[id] = &group{
		expecting:   1,
		accumulated: make([]Result, 0, 1),
		onComplete:  onComplete,
	}
	d.resultsMu.Unlock()

	return &ExternalTaskHandle{d: d, groupID: id}
}

// QueueExtraExternalTask increments an existing group's expected count by
// one and returns a handle for the caller to Finish later.
func (d *Delegator) QueueExtraExternalTask(id uint64) *ExternalTaskHandle {
	d.resultsMu.Lock()
	if g, ok := d.groups[id]; ok {
		g.expecting++
	}
	d.resultsMu.Unlock()

	return &ExternalTaskHandle{d: d, groupID: id}
}

func (d *Delegator) tryRun(id uint64, fn TaskFunc) {
	if d.running.Load() < int64(d.maxConcurrent) {
		d.running.Add(1)
		go d.runTask(id, fn)
		return
	}
	d.queue = append(d.queue, queuedTask{groupID: id, fn: fn})
}

func (d *Delegator) runTask(id uint64, fn TaskFunc) {
	result := fn(TaskContext{GroupID: id, d: d})
	d.processResult(id, result)

	d.running.Add(-1)
	d.drainQueue()
}

// drainQueue pulls the next pending task, if any slot is free, and starts
// it. Called after every task finishes so FIFO submissions never stall
// once capacity frees up.
func (d *Delegator) drainQueue() {
	d.taskMu.Lock()
	if len(d.queue) == 0 || d.running.Load() >= int64(d.maxConcurrent) {
		d.taskMu.Unlock()
		return
	}
	next := d.queue[0]
	d.queue = d.queue[1:]
	d.taskMu.Unlock()

	d.running.Add(1)
	go d.runTask(next.groupID, next.fn)
}

func (d *Delegator) processResult(id uint64, result Result) {
	d.resultsMu.Lock()
	g, ok := d.groups[id]
	if !ok {
		d.resultsMu.Unlock()
		return
	}
	g.accumulated = append(g.accumulated, result)
	done := len(g.accumulated) >= g.expecting
	var filtered []Result
	var onComplete OnComplete
	if done {
		filtered = make([]Result, 0, len(g.accumulated))
		for _, r := range g.accumulated {
			if r.Kind != Empty {
				filtered = append(filtered, r)
			}
		}
		onComplete = g.onComplete
		delete(d.groups, id)
	}
	d.resultsMu.Unlock()

	if done && onComplete != nil {
		onComplete(filtered)
	}
}
