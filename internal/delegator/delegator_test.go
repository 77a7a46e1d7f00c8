package delegator

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueTasks_CallsOnCompleteOnceWithAllResults(t *testing.T) {
	d := New(4)
	done := make(chan []Result, 1)

	d.QueueTasks(func(results []Result) {
		done <- results
	},
		func(TaskContext) Result { return OkResult(1) },
		func(TaskContext) Result { return OkResult(2) },
		func(TaskContext) Result { return OkResult(3) },
	)

	select {
	case results := <-done:
		assert.Len(t, results, 3)
	case <-time.After(time.Second):
		t.Fatal("on_complete was never called")
	}
}

func TestQueueTasks_FiltersEmptyResults(t *testing.T) {
	d := New(4)
	done := make(chan []Result, 1)

	d.QueueTasks(func(results []Result) {
		done <- results
	},
		func(TaskContext) Result { return OkResult("a") },
		func(TaskContext) Result { return EmptyResult() },
		func(TaskContext) Result { return OkResult("b") },
	)

	results := <-done
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, Empty, r.Kind)
	}
}

func TestQueueTasks_OnCompleteCalledExactlyOnce(t *testing.T) {
	d := New(4)
	var calls atomic.Int64
	done := make(chan struct{})

	d.QueueTasks(func(results []Result) {
		calls.Add(1)
		close(done)
	},
		func(TaskContext) Result { return OkResult(nil) },
	)

	<-done
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
}

func TestQueueExtraTasks_IncrementsExpecting(t *testing.T) {
	d := New(4)
	done := make(chan []Result, 1)

	id := d.QueueTasks(func(results []Result) {
		done <- results
	}, func(ctx TaskContext) Result {
		d.QueueExtraTasks(ctx.GroupID, func(TaskContext) Result { return OkResult("extra") })
		return OkResult("first")
	})
	_ = id

	results := <-done
	assert.Len(t, results, 2)
}

func TestQueueExternalTask_WaitsForFinish(t *testing.T) {
	d := New(4)
	done := make(chan []Result, 1)

	handle := d.QueueExternalTask(func(results []Result) {
		done <- results
	})

	select {
	case <-done:
		t.Fatal("on_complete fired before Finish was called")
	case <-time.After(50 * time.Millisecond):
	}

	handle.Finish(OkResult("external"))

	results := <-done
	require.Len(t, results, 1)
	assert.Equal(t, "external", results[0].Value)
}

func TestExternalTaskHandle_DoubleFinishPanics(t *testing.T) {
	d := New(4)
	handle := d.QueueExternalTask(func([]Result) {})

	handle.Finish(OkResult(nil))
	assert.Panics(t, func() {
		handle.Finish(OkResult(nil))
	})
}

func TestQueueExtraExternalTask(t *testing.T) {
	d := New(4)
	done := make(chan []Result, 1)

	id := d.QueueTasks(func(results []Result) {
		done <- results
	}, func(ctx TaskContext) Result {
		handle := d.QueueExtraExternalTask(ctx.GroupID)
		go handle.Finish(OkResult("async"))
		return OkResult("sync")
	})
	_ = id

	results := <-done
	assert.Len(t, results, 2)
}

func TestDelegator_AdmissionCap_DrainsFIFO(t *testing.T) {
	d := New(2)
	const n = 10

	var wg sync.WaitGroup
	wg.Add(1)
	order := make([]int, 0, n)
	var mu sync.Mutex

	tasks := make([]TaskFunc, n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = func(TaskContext) Result {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return OkResult(i)
		}
	}

	d.QueueTasks(func(results []Result) {
		wg.Done()
	}, tasks...)

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, order, n)
}

func TestErrResult_CarriesError(t *testing.T) {
	r := ErrResult(errors.New("boom"))
	assert.Equal(t, Error, r.Kind)
	assert.EqualError(t, r.Err, "boom")
}
