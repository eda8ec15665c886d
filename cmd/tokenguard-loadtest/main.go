// Command tokenguard-loadtest drives the engine's login, authenticate and
// renew paths concurrently and prints latency percentiles per phase.
//
// Without -redis-addr (or REDIS_ADDR) it runs against an in-process
// miniredis.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/userdir"
	"github.com/MrEthical07/tokenguard/password"
)

const loadSecret = "load-test-secret"

// fastVerifier keeps the password cost out of the measurement unless -argon
// is set.
type fastVerifier struct{}

func (fastVerifier) Verify(secret, encodedHash string) (bool, error) {
	return encodedHash == "fast:"+secret, nil
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of principals to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per authenticate and renew phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "RT:load:", "refresh store key prefix")
		useArgon    = flag.Bool("argon", false, "verify secrets with argon2id at minimum cost")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := tokenguard.DefaultConfig()
	cfg.JWT.AccessKey = []byte("loadtest-access-key-loadtest-access-key")
	cfg.JWT.RefreshKey = []byte("loadtest-refresh-key-loadtest-refresh-k")
	cfg.Store.KeyPrefix = *prefix
	cfg.Security.EnableLoginThrottle = false
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true

	// Shifting the clock past the access TTL makes every renew mint.
	var clockOffset atomic.Int64
	now := func() time.Time { return time.Now().Add(time.Duration(clockOffset.Load())) }

	hash := "fast:" + loadSecret
	var verifier tokenguard.PasswordVerifier = fastVerifier{}
	if *useArgon {
		argon, err := password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  16,
			KeyLength:   32,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "argon2: %v\n", err)
			os.Exit(1)
		}
		if hash, err = argon.Hash(loadSecret); err != nil {
			fmt.Fprintf(os.Stderr, "hash: %v\n", err)
			os.Exit(1)
		}
		verifier = argon
	}

	dir := userdir.New()
	identifiers := make([]string, *users)
	for i := range identifiers {
		identifiers[i] = fmt.Sprintf("user-%d@load.test", i)
		dir.Put(tokenguard.UserRecord{
			Principal: tokenguard.Principal{
				ID:         fmt.Sprintf("u-%d", i),
				Identifier: identifiers[i],
				Role:       tokenguard.RoleUser,
			},
			PasswordHash: hash,
		})
	}

	engine, err := tokenguard.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserLookup(dir).
		WithPasswordVerifier(verifier).
		WithClock(now).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	tokens := make([]string, *users)
	loginStats := runPhase(*users, *concurrency, func(i int, _ *rand.Rand) error {
		res, err := engine.Login(ctx, identifiers[i], loadSecret)
		if err != nil {
			return err
		}
		tokens[i] = res.AccessToken
		return nil
	})

	authStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) error {
		_, err := engine.Authenticate(ctx, tokens[r.Intn(len(tokens))])
		return err
	})

	clockOffset.Store(int64(cfg.JWT.AccessTTL + time.Minute))
	renewStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) error {
		res, err := engine.Renew(ctx, tokens[r.Intn(len(tokens))])
		if err == nil && res.Outcome != tokenguard.RenewRenewed {
			return fmt.Errorf("unexpected outcome %v", res.Outcome)
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("authenticate", authStats)
	printStats("renew", renewStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: login_success=%d authenticate_success=%d renew_success=%d store_unavailable=%d\n",
		snap.Counters[tokenguard.MetricLoginSuccess],
		snap.Counters[tokenguard.MetricAuthenticateSuccess],
		snap.Counters[tokenguard.MetricRenewSuccess],
		snap.Counters[tokenguard.MetricStoreUnavailable],
	)
}

// runPhase executes op for indexes [0, ops) across concurrency workers.
func runPhase(ops, concurrency int, op func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
