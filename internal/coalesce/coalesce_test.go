package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SingleCaller(t *testing.T) {
	c := New(func(ctx context.Context, key string) (string, error) {
		return "value-" + key, nil
	})

	got, err := c.Do(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "value-doc-1", got)
	assert.Equal(t, 0, c.Pending())
}

func TestDo_ConcurrentCallersShareOneInvocation(t *testing.T) {
	var (
		calls   atomic.Int64
		entered = make(chan struct{})
		release = make(chan struct{})
	)
	c := New(func(ctx context.Context, key string) (*struct{ n int }, error) {
		calls.Add(1)
		close(entered)
		<-release
		return &struct{ n int }{n: 42}, nil
	})

	const waiters = 25
	results := make([]*struct{ n int }, waiters)
	errs := make([]error, waiters)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.Do(context.Background(), "doc-1")
	}()

	// Only add duplicate callers once the first one holds the entry.
	<-entered
	wg.Add(waiters - 1)
	for i := 1; i < waiters; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Do(context.Background(), "doc-1")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		// Same result, not just an equal one.
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 0, c.Pending())
}

func TestDo_ErrorFansOutToAllWaiters(t *testing.T) {
	var (
		entered   = make(chan struct{})
		release   = make(chan struct{})
		loadErr   = errors.New("backend unavailable")
		callCount atomic.Int64
	)
	c := New(func(ctx context.Context, key string) (string, error) {
		if callCount.Add(1) == 1 {
			close(entered)
		}
		<-release
		return "", loadErr
	})

	var wg sync.WaitGroup
	errs := make([]error, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = c.Do(context.Background(), "doc-1")
	}()
	<-entered
	wg.Add(9)
	for i := 1; i < 10; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Do(context.Background(), "doc-1")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), callCount.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, loadErr)
	}

	// The entry is gone, so the next call starts fresh.
	_, err := c.Do(context.Background(), "doc-1")
	assert.ErrorIs(t, err, loadErr)
	assert.Equal(t, int64(2), callCount.Load())
}

func TestDo_DistinctKeysDoNotBlockEachOther(t *testing.T) {
	var (
		slowEntered = make(chan struct{})
		slowRelease = make(chan struct{})
	)
	c := New(func(ctx context.Context, key string) (string, error) {
		if key == "slow" {
			close(slowEntered)
			<-slowRelease
		}
		return "value-" + key, nil
	})

	go c.Do(context.Background(), "slow")
	<-slowEntered

	done := make(chan struct{})
	go func() {
		got, err := c.Do(context.Background(), "fast")
		assert.NoError(t, err)
		assert.Equal(t, "value-fast", got)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request for a distinct key blocked behind an unrelated in-flight call")
	}
	close(slowRelease)
}

func TestDo_SharedCallSurvivesFirstCallerContext(t *testing.T) {
	release := make(chan struct{})
	c := New(func(ctx context.Context, key string) (string, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "value", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 1)
	go func() {
		v, err := c.Do(ctx, "doc-1")
		assert.NoError(t, err)
		got <- v
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)

	select {
	case v := <-got:
		assert.Equal(t, "value", v)
	case <-time.After(time.Second):
		t.Fatal("shared call never resolved")
	}
}
