package tokenguard

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis hook counting commands sent to Redis.
type cmdCounter struct {
	commands atomic.Int64

	mu    sync.Mutex
	names []string
}

func (h *cmdCounter) record(cmd redis.Cmder) {
	h.mu.Lock()
	h.names = append(h.names, cmd.Name())
	h.mu.Unlock()
}

// seen returns the command names issued since the last measure.
func (h *cmdCounter) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.names...)
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		h.record(cmd)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.commands.Add(int64(len(cmds)))
		for _, cmd := range cmds {
			h.record(cmd)
		}
		return next(ctx, cmds)
	}
}

// measure runs op and returns the number of Redis commands it issued.
func (h *cmdCounter) measure(op func()) int64 {
	h.commands.Store(0)
	h.mu.Lock()
	h.names = nil
	h.mu.Unlock()
	op()
	return h.commands.Load()
}

func newCountedEngine(t *testing.T, cfg Config) (*testEngine, *cmdCounter) {
	t.Helper()
	te := newTestEngine(t, cfg)
	if err := te.rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	te.rdb.AddHook(counter)
	return te, counter
}

func TestRedisCommandBudget(t *testing.T) {
	te, counter := newCountedEngine(t, testConfig())
	ctx := context.Background()

	var res *LoginResult
	// GET throttle counter, SET refresh entry, DEL throttle counter.
	if n := counter.measure(func() { res = te.login(t) }); n != 3 {
		t.Fatalf("login used %d commands, expected 3", n)
	}

	if n := counter.measure(func() {
		if _, err := te.Authenticate(ctx, res.AccessToken); err != nil {
			t.Fatalf("authenticate: %v", err)
		}
	}); n != 0 {
		t.Fatalf("authenticate used %d commands, expected 0", n)
	}

	if n := counter.measure(func() {
		if _, err := te.Renew(ctx, res.AccessToken); err != nil {
			t.Fatalf("renew still valid: %v", err)
		}
	}); n != 0 {
		t.Fatalf("still-valid renew used %d commands, expected 0", n)
	}

	te.advance(6 * time.Minute)
	if n := counter.measure(func() {
		if _, err := te.Renew(ctx, res.AccessToken); err != nil {
			t.Fatalf("renew: %v", err)
		}
	}); n != 1 {
		t.Fatalf("renew used %d commands, expected 1", n)
	}

	if n := counter.measure(func() {
		if err := te.Logout(ctx, res.AccessToken); err != nil {
			t.Fatalf("logout: %v", err)
		}
	}); n != 1 {
		t.Fatalf("logout used %d commands, expected 1", n)
	}
}

func TestConcurrentRenewsAllSucceed(t *testing.T) {
	te := newTestEngine(t, testConfig())
	res := te.login(t)
	te.advance(6 * time.Minute)

	const workers = 16
	start := make(chan struct{})
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out, err := te.Renew(context.Background(), res.AccessToken)
			if err == nil && out.Outcome != RenewRenewed {
				err = ErrInternal
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent renew failed: %v", err)
		}
	}
	if !te.mr.Exists(te.Store().Key(testIdentifier)) {
		t.Fatal("renewal must not consume the refresh entry")
	}
}

func TestConcurrentLoginsLeaveOneEntry(t *testing.T) {
	te := newTestEngine(t, testConfig())

	const workers = 8
	tokens := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := te.Login(context.Background(), testIdentifier, testSecret)
			if err != nil {
				t.Errorf("login: %v", err)
				return
			}
			tokens <- res.RefreshToken
		}()
	}
	wg.Wait()
	close(tokens)

	if keys := te.mr.Keys(); len(keys) != 1 {
		t.Fatalf("expected exactly one key, got %v", keys)
	}
	entry, err := te.Store().Get(context.Background(), testIdentifier)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	found := false
	for tok := range tokens {
		if tok == entry.Token {
			found = true
		}
	}
	if !found {
		t.Fatal("stored refresh token must belong to one of the logins")
	}
}
