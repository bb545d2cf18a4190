package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	flag "github.com/spf13/pflag"
	"go.uber.org/atomic"
)

var (
	baseURL    = flag.String("url", "http://127.0.0.1:5000", "daemon base URL")
	numWorkers = flag.Int("workers", 50, "concurrent workers")
	phaseLen   = flag.Duration("duration", 10*time.Second, "length of each phase")
	numSources = flag.Int("sources", 20, "distinct source ids")
	unsafeRate = flag.Float64("unsafe", 0.1, "share of readings outside the safe range")
)

var pins = []string{"v1", "v2", "v3", "v4", "v5"}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	latency  time.Duration
	failed   bool
}

type endpointStats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type healthSnapshot struct {
	Ingested uint64 `json:"ingested"`
	Rejected uint64 `json:"rejected"`
	Notified uint64 `json:"notified"`
}

func main() {
	flag.Parse()

	fmt.Println("=== WQD Load Test ===")
	fmt.Printf("Workers: %d | Phase: %s | Sources: %d | Unsafe: %.0f%%\n\n", *numWorkers, *phaseLen, *numSources, *unsafeRate*100)

	fmt.Print("Waiting for daemon... ")
	if !waitReady(30) {
		fmt.Println("FAILED: daemon not responding")
		os.Exit(1)
	}
	fmt.Println("OK")

	before, _ := health()

	fmt.Println("\n--- Phase 1: Seeding (POST /api/ingest, vector payloads) ---")
	runPhase(func(rng *rand.Rand) result { return postVector(rng) })

	fmt.Println("\n--- Phase 2: Mixed load (60% ingest, 40% reads) ---")
	runPhase(func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.40:
			return postVector(rng)
		case r < 0.60:
			return postPin(rng)
		case r < 0.75:
			return getLatest(rng)
		case r < 0.90:
			return getField(rng)
		default:
			return getHistory(rng)
		}
	})

	fmt.Println("\n--- Phase 3: Alert storm (identical unsafe readings, one source) ---")
	storm := fmt.Sprintf(`{"source_id":"storm-%d","ph":10.5}`, time.Now().Unix())
	runPhase(func(_ *rand.Rand) result { return post("POST storm", []byte(storm)) })

	after, err := health()
	if err != nil {
		fmt.Printf("\nhealth unavailable: %s\n", err)
		return
	}
	fmt.Printf("\nIngested: +%d | Rejected: +%d | Notified: +%d\n",
		after.Ingested-before.Ingested, after.Rejected-before.Rejected, after.Notified-before.Notified)
}

func waitReady(attempts int) bool {
	for range attempts {
		if _, err := health(); err == nil {
			return true
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func health() (healthSnapshot, error) {
	var h healthSnapshot
	resp, err := httpClient.Get(*baseURL + "/health")
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(&h)
	return h, err
}

func runPhase(work func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := range *numWorkers {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					results <- work(rng)
					totalOps.Inc()
				}
			}
		}(rand.Int63() + int64(i))
	}

	all := make(map[string]*endpointStats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := all[r.endpoint]
			if !ok {
				s = &endpointStats{}
				all[r.endpoint] = s
			}
			s.count++
			if r.failed {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(*phaseLen)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(all, totalOps.Load())
}

func printResults(all map[string]*endpointStats, totalOps int64) {
	var totalErrors int64

	endpoints := make([]string, 0, len(all))
	for ep := range all {
		endpoints = append(endpoints, ep)
	}
	slices.Sort(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n", "Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := all[ep]
		totalErrors += s.errors
		slices.Sort(s.latencies)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n", ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	fmt.Println("  " + strings.Repeat("-", 88))
	if totalOps == 0 {
		return
	}
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, float64(totalOps)/phaseLen.Seconds())
}

func source(rng *rand.Rand) string {
	return fmt.Sprintf("tank-%d", rng.Intn(*numSources))
}

func ph(rng *rand.Rand) float64 {
	if rng.Float64() < *unsafeRate {
		return 9 + rng.Float64()*2
	}
	return 6.5 + rng.Float64()*2
}

func postVector(rng *rand.Rand) result {
	data, _ := json.Marshal(map[string]any{
		"source_id":     source(rng),
		"ph":            ph(rng),
		"temperature_c": 10 + rng.Float64()*15,
		"turbidity_ntu": rng.Float64() * 4,
		"tds_ppm":       100 + rng.Float64()*300,
	})
	return post("POST vector", data)
}

func postPin(rng *rand.Rand) result {
	pin := pins[rng.Intn(len(pins))]
	value := rng.Float64() * 10
	if pin == "v1" {
		value = ph(rng)
	}
	data, _ := json.Marshal(map[string]any{"pin": pin, "value": value})
	return postTo("POST pin", *baseURL+"/api/ingest?user="+source(rng), data)
}

func post(endpoint string, data []byte) result {
	return postTo(endpoint, *baseURL+"/api/ingest", data)
}

func postTo(endpoint, url string, data []byte) result {
	start := time.Now()
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, lat, true}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, lat, resp.StatusCode != http.StatusCreated}
}

func get(endpoint, url string) result {
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, lat, true}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	// 404 is expected for sources that have not reported yet
	return result{endpoint, lat, resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound}
}

func getLatest(rng *rand.Rand) result {
	return get("GET latest", fmt.Sprintf("%s/api/latest?source=%s", *baseURL, source(rng)))
}

func getField(rng *rand.Rand) result {
	return get("GET latest/{pin}", fmt.Sprintf("%s/api/latest/%s?source=%s", *baseURL, pins[rng.Intn(len(pins))], source(rng)))
}

func getHistory(rng *rand.Rand) result {
	return get("GET history", fmt.Sprintf("%s/api/history?source=%s&limit=%d", *baseURL, source(rng), rng.Intn(100)+1))
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	return d[min(int(float64(len(d))*p), len(d)-1)]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
