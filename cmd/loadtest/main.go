// Command loadtest drives a running AeroPerk MCP server with fake traffic and
// writes a latency report.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Result is one scenario's outcome
type Result struct {
	Name        string        `json:"name"`
	Operations  int           `json:"operations"`
	TotalTime   time.Duration `json:"total_time"`
	AverageTime time.Duration `json:"average_time"`
	MinTime     time.Duration `json:"min_time"`
	MaxTime     time.Duration `json:"max_time"`
	SuccessRate float64       `json:"success_rate"`
}

// Suite is the full report
type Suite struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Target      string    `json:"target"`
	Concurrency int       `json:"concurrency"`
	Results     []Result  `json:"results"`
}

// rpcClient posts JSON-RPC requests to the server
type rpcClient struct {
	url   string
	token string
	http  *http.Client
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *rpcClient) call(id int, method string, params interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var out rpcResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}
	return nil
}

func callTool(name string, args map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"name": name, "arguments": args}
}

func fakeSearchArgs() map[string]interface{} {
	args := map[string]interface{}{
		"originCity":      gofakeit.City(),
		"destinationCity": gofakeit.City(),
		"limit":           gofakeit.Number(1, 50),
	}
	if gofakeit.Bool() {
		args["vehicleType"] = gofakeit.RandomString([]string{"car", "van", "truck", "suv", "motorcycle", "air", "train", "bus"})
	}
	if gofakeit.Bool() {
		from := gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 1, 0))
		args["dateFrom"] = from.Format("2006-01-02")
		args["dateTo"] = from.AddDate(0, 0, gofakeit.Number(1, 14)).Format("2006-01-02")
	}
	return args
}

func fakeCreateArgs() map[string]interface{} {
	return map[string]interface{}{
		"title":            fmt.Sprintf("%s delivery to %s", gofakeit.ProductName(), gofakeit.City()),
		"pickupAddress":    fmt.Sprintf("%s, %s", gofakeit.City(), gofakeit.Country()),
		"dropoffAddress":   fmt.Sprintf("%s, %s", gofakeit.City(), gofakeit.Country()),
		"reward":           gofakeit.Number(10, 500),
		"shortDescription": gofakeit.Sentence(8),
		"deadline":         gofakeit.DateRange(time.Now().AddDate(0, 0, 7), time.Now().AddDate(0, 2, 0)).UTC().Format(time.RFC3339),
	}
}

// run executes op count times across concurrency workers
func run(name string, count, concurrency int, op func(i int) error) Result {
	result := Result{Name: name, Operations: count, MinTime: time.Hour}
	bar := progressbar.Default(int64(count), name)

	var (
		mu           sync.Mutex
		wg           sync.WaitGroup
		successCount int
		totalTime    time.Duration
	)
	jobs := make(chan int)
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				start := time.Now()
				err := op(i)
				elapsed := time.Since(start)

				mu.Lock()
				totalTime += elapsed
				if elapsed < result.MinTime {
					result.MinTime = elapsed
				}
				if elapsed > result.MaxTime {
					result.MaxTime = elapsed
				}
				if err == nil {
					successCount++
				}
				mu.Unlock()
				_ = bar.Add(1)
			}
		}()
	}
	for i := 0; i < count; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	result.TotalTime = totalTime
	if count > 0 {
		result.AverageTime = totalTime / time.Duration(count)
		result.SuccessRate = float64(successCount) / float64(count) * 100
	}
	return result
}

func writeReport(suite Suite, path string) error {
	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func main() {
	target := flag.String("url", "http://localhost:3000/mcp", "MCP endpoint")
	token := flag.String("token", os.Getenv("AEROPERK_ACCESS_TOKEN"), "bearer token; create requests are skipped without one")
	count := flag.Int("n", 100, "operations per scenario")
	concurrency := flag.Int("c", 10, "concurrent workers")
	reportDir := flag.String("report", "report", "report directory")
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())
	client := &rpcClient{url: *target, token: *token, http: &http.Client{Timeout: 30 * time.Second}}

	suite := Suite{StartTime: time.Now(), Target: *target, Concurrency: *concurrency}
	fmt.Printf("Load testing %s with %d operations per scenario\n\n", *target, *count)

	suite.Results = append(suite.Results,
		run("ping", *count, *concurrency, func(i int) error {
			return client.call(i, "ping", nil)
		}),
		run("tools/list", *count, *concurrency, func(i int) error {
			return client.call(i, "tools/list", nil)
		}),
		run("search_driver_routes", *count, *concurrency, func(i int) error {
			return client.call(i, "tools/call", callTool("search_driver_routes", fakeSearchArgs()))
		}),
	)
	if *token != "" {
		suite.Results = append(suite.Results,
			run("create_delivery_request", *count, *concurrency, func(i int) error {
				return client.call(i, "tools/call", callTool("create_delivery_request", fakeCreateArgs()))
			}),
		)
	}
	suite.EndTime = time.Now()

	if err := os.MkdirAll(*reportDir, 0755); err != nil {
		logrus.Fatalf("create report dir: %v", err)
	}
	reportPath := filepath.Join(*reportDir, fmt.Sprintf("loadtest-%s.json", time.Now().Format("20060102-150405")))
	if err := writeReport(suite, reportPath); err != nil {
		logrus.Fatalf("write report: %v", err)
	}

	fmt.Printf("\nDone:\n\n")
	for _, r := range suite.Results {
		fmt.Printf("%-25s: avg %8s, success %.2f%%\n", r.Name, r.AverageTime.Round(time.Millisecond), r.SuccessRate)
	}
	fmt.Printf("\nReport saved to %s\n", reportPath)
}
