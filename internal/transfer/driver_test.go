package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_Submit_DeliversBodyAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	d := New(4, "test-agent", 0)
	d.Run(context.Background())
	defer d.Shutdown()

	done := make(chan struct{})
	var body []byte
	var status int

	d.Submit(srv.URL, RequestOptions{Method: MethodGET}, func(b []byte, url string, st int) {
		body = b
		status = st
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion never fired")
	}

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", string(body))
}

func TestDriver_Submit_TransportFailure_ReportsZeroStatus(t *testing.T) {
	d := New(4, "test-agent", 0)
	d.Run(context.Background())
	defer d.Shutdown()

	done := make(chan struct{})
	var status int

	d.Submit("http://127.0.0.1:0/unreachable", RequestOptions{Method: MethodGET}, func(b []byte, url string, st int) {
		status = st
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion never fired")
	}

	assert.Equal(t, 0, status)
}

func TestDriver_PoolSaturation_DrainsFIFO(t *testing.T) {
	const poolSize = 1
	release := make(chan struct{})
	var serving sync.WaitGroup
	serving.Add(1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serving.Done()
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(poolSize, "test-agent", 0)
	d.Run(context.Background())
	defer d.Shutdown()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)

	for i := 0; i < 3; i++ {
		i := i
		d.Submit(srv.URL, RequestOptions{Method: MethodGET}, func(b []byte, url string, st int) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	serving.Wait()
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
	assert.Equal(t, 0, order[0], "first submission should complete first under a single slot")
}

func TestDriver_RateLimit_SpacesOutRequests(t *testing.T) {
	var timestamps []time.Time
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		timestamps = append(timestamps, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(4, "test-agent", 10) // 10 req/s, burst 4
	d.Run(context.Background())
	defer d.Shutdown()

	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		d.Submit(srv.URL, RequestOptions{Method: MethodGET}, func(b []byte, url string, st int) {
			wg.Done()
		})
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, timestamps, 8)
	// 8 requests at burst 4 + 10/s must take at least ~400ms past the burst.
	assert.True(t, timestamps[7].Sub(timestamps[0]) >= 300*time.Millisecond)
}

func TestDriver_Shutdown_WaitsForInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(4, "test-agent", 0)
	d.Run(context.Background())

	var completed bool
	d.Submit(srv.URL, RequestOptions{Method: MethodGET}, func(b []byte, url string, st int) {
		completed = true
	})

	<-started
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	d.Shutdown()
	assert.True(t, completed)
}

func TestDriver_Shutdown_StartsAlreadyQueuedSubmissions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(4, "test-agent", 0)
	// Bypass Submit/Run: put a submission straight into the buffered
	// channel with the pool otherwise idle (active == 0), mimicking a
	// submission landing a moment before shutdown with free slots
	// available. The only way it can ever complete is if the shutdown
	// path itself starts pending work rather than relying solely on a
	// completion event that, with active == 0, will never arrive.
	done := make(chan struct{})
	d.submissions <- submission{
		url:  srv.URL,
		opts: RequestOptions{Method: MethodGET},
		completion: func(b []byte, url string, st int) {
			close(done)
		},
	}

	d.Run(context.Background())
	close(d.shutdown)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued submission was stranded by shutdown")
	}

	<-d.stopped
}
