package tokenguard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testIdentifier = "a@b.com"
	testSecret     = "correct-horse-battery"
)

var testT0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// testClock is a settable clock shared by the engine under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testT0}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// plainVerifier treats the stored hash as "plain:" + secret so engine tests
// skip argon2.
type plainVerifier struct{}

func (plainVerifier) Verify(secret, encodedHash string) (bool, error) {
	return encodedHash == "plain:"+secret, nil
}

// mockUsers implements UserLookup; wrap it in mockRegistrar to enable
// Signup.
type mockUsers struct {
	mu      sync.Mutex
	users   map[string]UserRecord
	lookups int
	fail    error
}

func newMockUsers() *mockUsers {
	return &mockUsers{
		users: map[string]UserRecord{
			testIdentifier: {
				Principal: Principal{
					ID:         "u1",
					Identifier: testIdentifier,
					Name:       "Alice",
					Role:       RoleUser,
				},
				PasswordHash: "plain:" + testSecret,
			},
		},
	}
}

func (m *mockUsers) LookupByIdentifier(_ context.Context, identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookups++
	if m.fail != nil {
		return UserRecord{}, m.fail
	}
	u, ok := m.users[strings.ToLower(identifier)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUsers) CanonicalIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (m *mockUsers) setRole(identifier string, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[identifier]
	u.Role = role
	m.users[identifier] = u
}

func (m *mockUsers) remove(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, identifier)
}

func (m *mockUsers) lookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

type mockRegistrar struct {
	*mockUsers
}

func (m mockRegistrar) CreateUser(_ context.Context, in CreateUserInput) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(in.Identifier)
	if _, ok := m.users[key]; ok {
		return Principal{}, ErrUserExists
	}
	p := Principal{ID: "u" + key, Identifier: key, Name: in.Name, Role: in.Role}
	m.users[key] = UserRecord{Principal: p, PasswordHash: in.PasswordHash}
	return p, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessKey = []byte("access-key-access-key-access-key-0123")
	cfg.JWT.RefreshKey = []byte("refresh-key-refresh-key-refresh-key-01")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEngine struct {
	*Engine
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	clock *testClock
	users *mockUsers
}

func newTestEngine(t *testing.T, cfg Config, opts ...func(*Builder, *mockUsers)) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	clock := newTestClock()
	users := newMockUsers()

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserLookup(users).
		WithPasswordVerifier(plainVerifier{}).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b, users)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, mr: mr, rdb: rdb, clock: clock, users: users}
}

// advance moves both the engine clock and Redis TTLs forward.
func (te *testEngine) advance(d time.Duration) {
	te.clock.Advance(d)
	te.mr.FastForward(d)
}

func withSignup(b *Builder, users *mockUsers) {
	b.WithUserLookup(mockRegistrar{users})
}

func (te *testEngine) login(t *testing.T) *LoginResult {
	t.Helper()

	res, err := te.Login(context.Background(), testIdentifier, testSecret)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return res
}
