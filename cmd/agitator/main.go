// Package main - agitator
// Load generator for the status server: logs in N roles, holds a websocket
// per role and spams attach/detach requests through the admin API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
	"github.com/MRamiBalles/worldstatus/internal/network"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

// Config for the agitator
type Config struct {
	BaseURL        string
	NumClients     int
	FirstRoleID    uint32
	ActionInterval time.Duration
	TestDuration   time.Duration
}

// Stats tracks performance metrics
type Stats struct {
	RequestsSent     int64
	Rejected         int64
	MessagesReceived int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

// Statuses the agitator cycles through. Countdown kinds get occurrences.
var churn = []struct {
	id    status.ID
	times int
}{
	{status.Shield, 0},
	{status.Fly, 0},
	{status.Accelerated, 0},
	{status.Decelerated, 0},
	{status.Poisoned, 5},
	{status.ToxicFog, 5},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Status server base URL")
	numClients := flag.Int("clients", 50, "Number of concurrent roles")
	firstRole := flag.Uint("first-role", 100000, "First role id to log in")
	interval := flag.Duration("interval", 100*time.Millisecond, "Request interval per role")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	flag.Parse()

	config := Config{
		BaseURL:        *baseURL,
		NumClients:     *numClients,
		FirstRoleID:    uint32(*firstRole),
		ActionInterval: *interval,
		TestDuration:   *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("🔥 AGITATOR - Status Server Stress Test")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.BaseURL)
	fmt.Printf("Roles:    %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️ Interrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	var wg sync.WaitGroup

	fmt.Println("\n🚀 Starting roles...")

	for i := 0; i < config.NumClients; i++ {
		roleID := config.FirstRoleID + uint32(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runClient(ctx, roleID, config, httpClient, stats)
		}()

		// Stagger logins to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("✅ All %d roles started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.RequestsSent)
				recv := atomic.LoadInt64(&stats.MessagesReceived)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("📊 Progress: Sent=%d Recv=%d Errors=%d\n", sent, recv, errs)
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, roleID uint32, config Config, httpClient *http.Client, stats *Stats) {
	login := network.RoleLogin{
		RoleID:  roleID,
		Name:    "agitator-" + strconv.FormatUint(uint64(roleID), 10),
		Kind:    "Monster",
		MaxLife: 1_000_000,
		X:       rand.Intn(64),
		Y:       rand.Intn(64),
	}
	if code, err := post(ctx, httpClient, config.BaseURL+"/api/roles/login", login); err != nil || code >= 300 {
		log.Printf("Role %d: login failed: code=%d err=%v", roleID, code, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = post(logoutCtx, httpClient, config.BaseURL+"/api/roles/logout?role="+strconv.FormatUint(uint64(roleID), 10), nil)
	}()

	wsURL, err := websocketURL(config.BaseURL, roleID)
	if err != nil {
		log.Printf("Role %d: URL parse error: %v", roleID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		log.Printf("Role %d: Connection failed: %v", roleID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path, req := randomRequest(roleID)
			start := time.Now()

			code, err := post(ctx, httpClient, config.BaseURL+path, req)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				atomic.AddInt64(&stats.Errors, 1)
				continue
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.RequestsSent, 1)
			switch {
			case code >= 500:
				atomic.AddInt64(&stats.Errors, 1)
			case code >= 400:
				// duplicate attach or detach of an absent status
				atomic.AddInt64(&stats.Rejected, 1)
			}

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func randomRequest(roleID uint32) (string, protocol.StatusRequest) {
	pick := churn[rand.Intn(len(churn))]
	req := protocol.StatusRequest{RoleID: roleID, Status: int(pick.id)}
	if rand.Intn(3) == 0 {
		return "/api/status/detach", req
	}
	req.Power = int32(1 + rand.Intn(20))
	req.Seconds = 1 + rand.Intn(5)
	req.Times = pick.times
	return "/api/status/attach", req
}

func websocketURL(base string, roleID uint32) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("role", strconv.FormatUint(uint64(roleID), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func post(ctx context.Context, c *http.Client, target string, body interface{}) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("📊 STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.RequestsSent)
	rejected := atomic.LoadInt64(&stats.Rejected)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Requests Sent:     %d\n", sent)
	fmt.Printf("Rejected:          %d\n", rejected)
	fmt.Printf("Flag Messages:     %d\n", recv)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f req/sec\n", throughput)

	if len(stats.Latencies) > 0 {
		var total time.Duration
		lo, hi := stats.Latencies[0], stats.Latencies[0]
		for _, l := range stats.Latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}
		avg := total / time.Duration(len(stats.Latencies))

		fmt.Printf("\nLatency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  Max: %v\n", hi)
	}

	fmt.Println("\n-----------------------------------------")
	if errs == 0 && sent > 0 {
		fmt.Println("✅ TEST PASSED: System handled the load")
	} else if float64(errs)/float64(sent+1) < 0.05 {
		fmt.Println("⚠️ TEST WARNING: Some errors detected")
	} else {
		fmt.Println("❌ TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"requests_sent":      sent,
		"rejected":           rejected,
		"messages_received":  recv,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile("stress_test_results.json", jsonData, 0o644); err != nil {
		log.Printf("write results: %v", err)
		return
	}
	fmt.Println("\n📁 Results saved to stress_test_results.json")
}
