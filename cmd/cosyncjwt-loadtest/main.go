package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cosync/cosyncjwt"
	"github.com/cosync/cosyncjwt/auditredis"
	"github.com/cosync/cosyncjwt/internal/stubserver"
)

const (
	appToken     = "loadtest-app-token"
	userPassword = "Loadtest1!"
)

func main() {
	var (
		users       = flag.Int("users", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (login + getUser)")
		redisAddr   = flag.String("redis-addr", "", "redis address for the audit stream; if empty, REDIS_ADDR env or miniredis is used")
		stream      = flag.String("stream", auditredis.DefaultStream, "audit stream key")
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
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	backend := stubserver.New(appToken, stubserver.DefaultApp())
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()
	fmt.Printf("stub backend at %s\n", srv.URL)

	handles := make([]string, *users)
	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	for i := range handles {
		handles[i] = fmt.Sprintf("user-%d@loadtest.example", i)
		backend.AddUser(handles[i], userPassword)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	sink := auditredis.NewStreamSink(rdb, auditredis.WithStream(*stream))
	clients, err := buildClients(*concurrency, srv.URL, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client failed: %v\n", err)
		os.Exit(1)
	}

	loginStats := runLoginPhase(ctx, clients, handles, *ops)
	getUserStats := runGetUserPhase(ctx, clients, *ops)

	var delivered, dropped uint64
	var snapshots []cosyncjwt.MetricsSnapshot
	for _, c := range clients {
		snapshots = append(snapshots, c.MetricsSnapshot())
		c.Close()
		stats := c.AuditStats()
		delivered += stats.Delivered
		dropped += stats.Dropped
	}

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("getUser", getUserStats)

	streamLen, err := rdb.XLen(ctx, *stream).Result()
	if err != nil {
		fmt.Fprintf(os.Stderr, "xlen failed: %v\n", err)
	}
	fmt.Printf("audit: stream=%s entries=%d delivered=%d sink_failures=%d dropped=%d\n",
		*stream, streamLen, delivered, sink.Failures(), dropped)
	printLatency(mergeLatency(snapshots))
}

// buildClients returns one Client per worker; a Client holds a single Session.
func buildClients(n int, restAddress string, sink cosyncjwt.AuditSink) ([]*cosyncjwt.Client, error) {
	cfg := cosyncjwt.DefaultConfig()
	cfg.AppToken = appToken
	cfg.RestAddress = restAddress
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 4096
	cfg.Audit.DropIfFull = true

	clients := make([]*cosyncjwt.Client, n)
	for i := range clients {
		c, err := cosyncjwt.New().WithConfig(cfg).WithAuditSink(sink).Build()
		if err != nil {
			return nil, err
		}
		clients[i] = c
	}
	return clients, nil
}

func runLoginPhase(ctx context.Context, clients []*cosyncjwt.Client, handles []string, ops int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w, client := range clients {
		wg.Add(1)
		go func(worker int, client *cosyncjwt.Client) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				handle := handles[r.Intn(len(handles))]
				t0 := time.Now()
				_, err := client.Login(ctx, handle, userPassword)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w, client)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runGetUserPhase(ctx context.Context, clients []*cosyncjwt.Client, ops int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for _, client := range clients {
		wg.Add(1)
		go func(client *cosyncjwt.Client) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := client.GetUser(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(client)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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

func mergeLatency(snapshots []cosyncjwt.MetricsSnapshot) []uint64 {
	var merged []uint64
	for _, s := range snapshots {
		buckets := s.Histograms[cosyncjwt.MetricRequestLatency]
		if merged == nil {
			merged = make([]uint64, len(buckets))
		}
		for i := 0; i < len(buckets) && i < len(merged); i++ {
			merged[i] += buckets[i]
		}
	}
	return merged
}

func printLatency(buckets []uint64) {
	bounds := []string{"50ms", "100ms", "250ms", "500ms", "1s", "2.5s", "5s", "+Inf"}
	fmt.Print("client latency histogram:")
	for i, n := range buckets {
		if i < len(bounds) {
			fmt.Printf(" <=%s:%d", bounds[i], n)
		}
	}
	fmt.Println()
}
