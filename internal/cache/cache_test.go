package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *MemoryStore, *clock) {
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(time.Hour)
	store.now = clk.Now
	c := New(store, Config{TTL: ttl}, testLogger())
	c.now = clk.Now
	return c, store, clk
}

func counter(calls *int32, value []string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestFetchSameKeyWhileFresh(t *testing.T) {
	c, _, clk := newTestCache(time.Minute)
	ctx := context.Background()
	var calls int32

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, "s1", NewKey("users", 0, 10), counter(&calls, []string{"a"}))
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(got) != 1 || got[0] != "a" {
			t.Errorf("got %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	clk.Advance(2 * time.Minute)
	if _, err := Fetch(ctx, c, "s1", NewKey("users", 0, 10), counter(&calls, []string{"a"})); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls after staleness = %d, want 2", calls)
	}
}

func TestFetchDeduplicatesConcurrentReads(t *testing.T) {
	c, _, _ := newTestCache(time.Minute)
	var calls int32
	release := make(chan struct{})

	fn := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Fetch(context.Background(), c, "s1", NewKey("analytics"), fn)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	for i := range results {
		if errs[i] != nil || results[i] != 42 {
			t.Errorf("caller %d got %d, %v", i, results[i], errs[i])
		}
	}
}

func TestInvalidateDuringFetchDropsResult(t *testing.T) {
	c, _, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string)
	go func() {
		got, _ := Fetch(ctx, c, "s1", NewKey("users", 0, 10), func(context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			close(started)
			<-release
			return "blocked=false", nil
		})
		done <- got
	}()

	<-started
	if _, err := c.InvalidateAll(ctx, "users"); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	close(release)
	if got := <-done; got != "blocked=false" {
		t.Errorf("in-flight caller got %q", got)
	}

	got, err := Fetch(ctx, c, "s1", NewKey("users", 0, 10), func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "blocked=true", nil
	})
	if err != nil || got != "blocked=true" {
		t.Errorf("read after invalidation = %q, %v", got, err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestInvalidateLeavesOtherFamilyFetches(t *testing.T) {
	c, _, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		<-started
		c.InvalidateAll(ctx, "users")
		close(release)
	}()
	Fetch(ctx, c, "s1", NewKey("materials"), func(context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return []string{"m1"}, nil
	})
	Fetch(ctx, c, "s1", NewKey("materials"), counter(&calls, []string{"m1"}))

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestWaiterSurvivesStarterCancel(t *testing.T) {
	c, _, _ := newTestCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fn := func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		<-release
		return 7, ctx.Err()
	}

	starterCtx, cancel := context.WithCancel(context.Background())
	starterErr := make(chan error)
	go func() {
		_, err := Fetch(starterCtx, c, "s1", NewKey("analytics"), fn)
		starterErr <- err
	}()
	<-started

	waiter := make(chan int)
	go func() {
		got, err := Fetch(context.Background(), c, "s1", NewKey("analytics"), fn)
		if err != nil {
			t.Errorf("waiter err = %v", err)
		}
		waiter <- got
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-starterErr; !errors.Is(err, context.Canceled) {
		t.Errorf("starter err = %v, want context.Canceled", err)
	}
	close(release)
	if got := <-waiter; got != 7 {
		t.Errorf("waiter got %d, want 7", got)
	}
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c, _, _ := newTestCache(time.Minute)
	boom := errors.New("boom")
	var calls int32

	fail := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", boom
	}
	for i := 0; i < 2; i++ {
		if _, err := Fetch(context.Background(), c, "s1", NewKey("currentUser"), fail); !errors.Is(err, boom) {
			t.Errorf("err = %v, want boom", err)
		}
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestInvalidateFamilyLeavesOthers(t *testing.T) {
	c, _, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var users, materials int32

	Fetch(ctx, c, "s1", NewKey("users", 0, 10), counter(&users, nil))
	Fetch(ctx, c, "s1", NewKey("materials", 10, 0), counter(&materials, nil))

	n, err := c.Invalidate(ctx, "s1", "users")
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}

	Fetch(ctx, c, "s1", NewKey("users", 0, 10), counter(&users, nil))
	Fetch(ctx, c, "s1", NewKey("materials", 10, 0), counter(&materials, nil))

	if users != 2 {
		t.Errorf("users fetched %d times, want 2", users)
	}
	if materials != 1 {
		t.Errorf("materials fetched %d times, want 1", materials)
	}
}

func TestInvalidateStopsAtSegmentBoundary(t *testing.T) {
	c, store, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var calls int32

	Fetch(ctx, c, "s1", NewKey("user", "u1"), counter(&calls, nil))
	Fetch(ctx, c, "s1", NewKey("users", 0, 10), counter(&calls, nil))
	Fetch(ctx, c, "s1", NewKey("orders"), counter(&calls, nil))
	Fetch(ctx, c, "s1", NewKey("orders", "student1"), counter(&calls, nil))

	if _, err := c.Invalidate(ctx, "s1", "user", "orders"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("entries left = %d, want 1", store.Len())
	}
	if _, err := store.Get(ctx, storeKey("s1", NewKey("users", 0, 10))); err != nil {
		t.Errorf("users page should survive: %v", err)
	}
}

func TestScopesAreIsolated(t *testing.T) {
	c, store, _ := newTestCache(time.Minute)
	ctx := context.Background()
	var a, b int32

	Fetch(ctx, c, Scope("alice"), NewKey("currentUser"), counter(&a, []string{"alice"}))
	got, _ := Fetch(ctx, c, Scope("bob"), NewKey("currentUser"), counter(&b, []string{"bob"}))
	if len(got) != 1 || got[0] != "bob" {
		t.Errorf("bob read %v", got)
	}

	if _, err := c.PurgeScope(ctx, Scope("alice")); err != nil {
		t.Fatalf("PurgeScope: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("entries left = %d, want 1", store.Len())
	}

	Fetch(ctx, c, Scope("bob"), NewKey("orders"), counter(&b, nil))
	n, err := c.InvalidateAll(ctx, "currentUser", "orders")
	if err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	if n != 2 || store.Len() != 0 {
		t.Errorf("InvalidateAll removed %d, left %d", n, store.Len())
	}
}

func TestKeyEscapesSeparators(t *testing.T) {
	k := NewKey("user", "a:b*c")
	if got := k.String(); got != "user:a%3Ab%2Ac" {
		t.Errorf("key = %q", got)
	}
	if NewKey("users", 0, 10).String() != "users:0:10" {
		t.Errorf("key = %q", NewKey("users", 0, 10).String())
	}
}

func TestMemoryStoreRetention(t *testing.T) {
	clk := &clock{t: time.Now()}
	store := NewMemoryStore(time.Minute)
	store.now = clk.Now
	ctx := context.Background()

	store.Set(ctx, "k", Entry{Data: []byte("1"), StoredAt: clk.Now()})
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	clk.Advance(2 * time.Minute)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("err = %v, want ErrMiss", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	store := NewRedisStore(RedisConfig{Addr: addr, Prefix: "lectio:test:", Retention: time.Minute})
	defer store.Close()
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	store.Set(ctx, "s1|users:0:10", Entry{Data: []byte(`[]`), StoredAt: now})
	store.Set(ctx, "s1|materials:10:0", Entry{Data: []byte(`[]`), StoredAt: now})

	got, err := store.Get(ctx, "s1|users:0:10")
	if err != nil || !got.StoredAt.Equal(now) {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	n, err := store.DeleteMatching(ctx, "s1|users:*")
	if err != nil || n != 1 {
		t.Errorf("DeleteMatching = %d, %v", n, err)
	}
	if _, err := store.Get(ctx, "s1|materials:10:0"); err != nil {
		t.Errorf("materials entry should survive: %v", err)
	}
	store.DeleteMatching(ctx, "s1|*")
}
