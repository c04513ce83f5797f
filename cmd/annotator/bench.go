package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type benchConfig struct {
	BaseURL     string
	Sessions    int
	Uploads     int
	Concurrency int
}

type benchStats struct {
	Success     uint64
	Failed      uint64
	Latencies   []time.Duration
	StatusCodes map[int]int
	mu          sync.Mutex
}

func (s *benchStats) record(code int, d time.Duration) {
	s.mu.Lock()
	s.Latencies = append(s.Latencies, d)
	s.StatusCodes[code]++
	s.mu.Unlock()

	if code >= 200 && code < 300 {
		atomic.AddUint64(&s.Success, 1)
	} else {
		atomic.AddUint64(&s.Failed, 1)
	}
}

// Reduce GC pressure by reusing upload buffers.
var bufferPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

func newBenchCmd() *cobra.Command {
	cfg := benchConfig{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test a running server with concurrent guest sessions",
		Long: `Each simulated guest logs in, creates a dataset, uploads images,
draws a shape on each, fetches thumbnails and logs out again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
			if cfg.Sessions <= 0 || cfg.Concurrency <= 0 {
				return errors.New("--sessions and --concurrency must be positive")
			}
			return runBench(cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://127.0.0.1:8000", "server base URL")
	f.IntVar(&cfg.Sessions, "sessions", 50, "number of guest sessions to simulate")
	f.IntVar(&cfg.Uploads, "uploads", 5, "images uploaded per session")
	f.IntVar(&cfg.Concurrency, "concurrency", 10, "sessions running at once")
	return cmd
}

func runBench(cfg benchConfig) error {
	pterm.DefaultHeader.WithFullWidth().WithBackgroundStyle(pterm.NewStyle(pterm.BgLightMagenta)).WithTextStyle(pterm.NewStyle(pterm.FgBlack)).Println("GUEST SESSION BENCH")
	pterm.Println()

	data := pterm.TableData{
		{"Target Server", color.New(color.FgCyan).Sprint(cfg.BaseURL)},
		{"Sessions", color.New(color.FgYellow).Sprintf("%d guests", cfg.Sessions)},
		{"Uploads", color.New(color.FgYellow).Sprintf("%d images per guest", cfg.Uploads)},
		{"Concurrency", color.New(color.FgYellow).Sprintf("%d workers", cfg.Concurrency)},
	}
	_ = pterm.DefaultTable.WithBoxed().WithData(data).Render()
	pterm.Println()

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        1000,
			MaxIdleConnsPerHost: cfg.Concurrency + 50,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if !checkServerHealth(client, cfg.BaseURL) {
		return errors.New("server is not reachable")
	}

	img := createDummyImage()
	stats := &benchStats{StatusCodes: make(map[int]int)}

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(cfg.Sessions).
		WithTitle("Simulating guests...").
		WithShowCount(true).
		WithShowElapsedTime(true).
		Start()

	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.Concurrency)
	start := time.Now()

	for i := 0; i < cfg.Sessions; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			g := &benchGuest{client: client, base: cfg.BaseURL, stats: stats}
			g.run(cfg.Uploads, img)
			bar.Increment()
		}()
	}

	wg.Wait()
	bar.Stop()
	printReport(stats, time.Since(start))
	return nil
}

// benchGuest drives one guest session through the API.
type benchGuest struct {
	client *http.Client
	base   string
	token  string
	stats  *benchStats
}

func (g *benchGuest) run(uploads int, img []byte) {
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if g.call("POST", "/auth/guest-login", nil, "", &login) != http.StatusOK {
		return
	}
	g.token = login.AccessToken

	var ds struct {
		ID string `json:"id"`
	}
	body, _ := json.Marshal(map[string]string{"name": "bench-" + uuid.NewString()[:8]})
	if g.call("POST", "/datasets", bytes.NewReader(body), "application/json", &ds) != http.StatusCreated {
		return
	}

	for i := 0; i < uploads; i++ {
		var images []struct {
			ID string `json:"id"`
		}
		if g.upload(ds.ID, img, &images) != http.StatusCreated || len(images) == 0 {
			continue
		}
		id := images[0].ID

		shape, _ := json.Marshal(map[string]any{
			"type":     "bbox",
			"geometry": map[string]float64{"x": 1, "y": 1, "width": 10, "height": 10},
		})
		g.call("POST", "/images/"+id+"/annotations/shapes", bytes.NewReader(shape), "application/json", nil)
		g.call("GET", "/images/"+id+"/thumbnail?size=128", nil, "", nil)
	}

	g.call("GET", "/annotations", nil, "", nil)
	g.call("POST", "/auth/logout", nil, "", nil)
}

func (g *benchGuest) upload(datasetID string, img []byte, out any) int {
	body := bufferPool.Get().(*bytes.Buffer)
	body.Reset()
	defer bufferPool.Put(body)

	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("files", "bench-"+uuid.NewString()+".jpg")
	part.Write(img)
	writer.Close()

	return g.call("POST", "/datasets/"+datasetID+"/images", body, writer.FormDataContentType(), out)
}

// call performs one request, records its latency and decodes a JSON reply
// into out when given.
func (g *benchGuest) call(method, path string, body io.Reader, contentType string, out any) int {
	req, err := http.NewRequest(method, g.base+path, body)
	if err != nil {
		g.stats.record(0, 0)
		return 0
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	t0 := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.stats.record(0, time.Since(t0))
		return 0
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		json.NewDecoder(resp.Body).Decode(out)
	}
	// Drain so the connection can be reused.
	io.Copy(io.Discard, resp.Body)
	g.stats.record(resp.StatusCode, time.Since(t0))
	return resp.StatusCode
}

func createDummyImage() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rand.Intn(255))
		img.Pix[i+3] = 255
	}
	buf := new(bytes.Buffer)
	jpeg.Encode(buf, img, nil)
	return buf.Bytes()
}

func checkServerHealth(client *http.Client, baseURL string) bool {
	spinner, _ := pterm.DefaultSpinner.Start("Checking server...")
	resp, err := client.Get(baseURL + "/healthz")
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			spinner.Success("Server is UP! (" + baseURL + ")")
			return true
		}
	}
	spinner.Fail("Server is DOWN! (" + baseURL + ")")
	return false
}

func printReport(s *benchStats, totalTime time.Duration) {
	if len(s.Latencies) == 0 {
		return
	}

	sort.Slice(s.Latencies, func(i, j int) bool { return s.Latencies[i] < s.Latencies[j] })
	count := len(s.Latencies)

	data := [][]string{
		{"Metric", "Value"},
		{"Requests", fmt.Sprintf("%d", count)},
		{"Throughput", fmt.Sprintf("%.2f Req/sec", float64(count)/totalTime.Seconds())},
		{"Success Rate", fmt.Sprintf("%.2f%%", float64(atomic.LoadUint64(&s.Success))/float64(count)*100)},
		{"P50 Latency", fmt.Sprintf("%v", s.Latencies[count/2])},
		{"P95 Latency", fmt.Sprintf("%v", s.Latencies[int(float64(count)*0.95)])},
		{"P99 Latency", fmt.Sprintf("%v", s.Latencies[int(float64(count)*0.99)])},
	}

	pterm.Println()
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	if atomic.LoadUint64(&s.Failed) > 0 {
		pterm.Warning.Println("Status Code Breakdown (Errors):")
		for code, cnt := range s.StatusCodes {
			if code >= 400 || code == 0 {
				fmt.Printf(" • HTTP %s: %d\n", color.RedString("%d", code), cnt)
			}
		}
	}
}
