package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	students    int
	password    string
	year        string
)

var (
	totalRequests uint64
	success201    uint64 // admitted as pending
	fail409       uint64 // duplicate active tranche
	fail4xx       uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "contention", "Workload type: contention | uniform")
	flag.IntVar(&students, "students", 1000, "Number of seeded students (STU00001..)")
	flag.StringVar(&password, "password", "password", "Credential of the seeded students")
	flag.StringVar(&year, "year", "", "Academic year to submit for; empty makes one up per run")
}

func main() {
	flag.Parse()
	if year == "" {
		// A fresh year per run so the contention workload always starts from an empty ledger key.
		start := 3000 + rand.Intn(5000)
		year = fmt.Sprintf("%d-%d", start, start+1)
	}
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s | Year: %s", workload, concurrency, duration, year)

	tokens := &tokenCache{tokens: make(map[int]string)}
	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, tokens)
	}
	wg.Wait()
	printResults(time.Since(start))
}

type tokenCache struct {
	mu     sync.Mutex
	tokens map[int]string
}

func (c *tokenCache) get(client *http.Client, student int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok, ok := c.tokens[student]; ok {
		return tok, nil
	}
	body, _ := json.Marshal(map[string]string{
		"matricule": fmt.Sprintf("STU%05d", student),
		"password":  password,
	})
	resp, err := client.Post(targetURL+"/api/v1/auth/student/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login STU%05d: status %d", student, resp.StatusCode)
	}
	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	c.tokens[student] = out.Data.Token
	return out.Data.Token, nil
}

func worker(wg *sync.WaitGroup, start time.Time, tokens *tokenCache) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		student, tranche := pickTarget()
		token, err := tokens.get(client, student)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		body, _ := json.Marshal(map[string]interface{}{
			"amount":        25000,
			"tranche":       tranche,
			"academic_year": year,
		})
		req, _ := http.NewRequest(http.MethodPost, targetURL+"/api/v1/payments", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch {
		case resp.StatusCode == http.StatusCreated:
			atomic.AddUint64(&success201, 1)
		case resp.StatusCode == http.StatusConflict:
			atomic.AddUint64(&fail409, 1)
		case resp.StatusCode < 500:
			atomic.AddUint64(&fail4xx, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

// pickTarget returns the student and tranche for the next submission. The
// contention workload always hits student 1, tranche 1.
func pickTarget() (int, int) {
	if workload == "contention" {
		return 1, 1
	}
	return rand.Intn(students) + 1, rand.Intn(2) + 1
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	f409 := atomic.LoadUint64(&fail409)
	f4xx := atomic.LoadUint64(&fail4xx)
	fErr := atomic.LoadUint64(&failOther)

	var conflictRate float64
	if total > 0 {
		conflictRate = float64(f409) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":          workload,
		"academic_year":     year,
		"duration_sec":      d.Seconds(),
		"total_requests":    total,
		"throughput_tps":    float64(total) / d.Seconds(),
		"created":           s201,
		"conflicts":         f409,
		"conflict_rate_pct": conflictRate,
		"client_errors":     f4xx,
		"errors":            fErr,
	}
	if workload == "contention" && s201 > 1 {
		results["violation"] = fmt.Sprintf("%d submissions admitted for one tranche", s201)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.Printf("could not save results: %v", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
