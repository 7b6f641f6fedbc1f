package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/earthpixel/internal/logger"
)

type Config struct {
	BaseURL         string
	Endpoint        string
	Concurrency     int
	Duration        time.Duration
	ZipfS           float64
	ZipfV           float64
	PointCount      int
	OutputPrefix    string
	RequestTimeout  time.Duration
	AppendTimestamp bool
	TimestampFormat string
	PointsFile      string
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:8090", "earthpixel-server base URL")
	flag.StringVar(&cfg.Endpoint, "endpoint", "pixel", "Endpoint to drive: pixel|key|center|locate")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.PointCount, "points", 512, "Distinct locations in pool")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/pixel", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 5*time.Second, "Per-request timeout")
	flag.BoolVar(&cfg.AppendTimestamp, "append-ts", true, "Append timestamp to output prefix")
	flag.StringVar(&cfg.TimestampFormat, "ts-format", "iso", "Timestamp format: iso|unix|none")
	flag.StringVar(&cfg.PointsFile, "points-file", "", "Optional CSV file (id,lon,lat) to drive the pool")
	flag.Parse()
	return cfg
}

type Point struct {
	Lat, Lon float64
}

func (p Point) Query() url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', 6, 64))
	return q
}

var endpoints = map[string]string{
	"pixel":  "/v1/pixel",
	"key":    "/v1/pixel/key",
	"center": "/v1/pixel/center",
	"locate": "/v1/pixel/locate",
}

func endpointURL(base, name string) (string, error) {
	path, ok := endpoints[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown endpoint %q", name)
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return "", fmt.Errorf("bad target URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	return u.String(), nil
}

// makePoints builds a pool where the first quarter clusters around a few
// cities (hot) and the rest is spread over the globe (cold).
func makePoints(count int, r *rand.Rand) []Point {
	centers := []Point{
		{59.3293, 18.0686},  // Stockholm
		{40.7128, -74.0060}, // New York
		{-33.8688, 151.2093},
		{35.6762, 139.6503},
	}
	pts := make([]Point, 0, count)
	hot := max(8, count/4)
	for i := 0; i < hot && len(pts) < count; i++ {
		c := centers[i%len(centers)]
		pts = append(pts, Point{
			Lat: c.Lat + (r.Float64()-0.5)*0.05,
			Lon: c.Lon + (r.Float64()-0.5)*0.05,
		})
	}
	for len(pts) < count {
		// uniform on the sphere so cold traffic is spread by area
		lat := math.Asin(2*r.Float64()-1) * 180 / math.Pi
		lon := -180 + r.Float64()*360
		pts = append(pts, Point{Lat: lat, Lon: lon})
	}
	return pts
}

func loadPointsCSV(path string) ([]Point, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open points: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readPoints(f)
}

func readPoints(in io.Reader) ([]Point, error) {
	r := csv.NewReader(in)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	lonIdx, okLon := col["lon"]
	latIdx, okLat := col["lat"]
	if !okLon || !okLat {
		return nil, fmt.Errorf("points csv: expected columns lon,lat; got %v", header)
	}

	var out []Point
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		lonStr, latStr := strings.TrimSpace(rec[lonIdx]), strings.TrimSpace(rec[latIdx])
		if lonStr == "" || latStr == "" {
			continue
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon %q: %w", lonStr, err)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat %q: %w", latStr, err)
		}
		out = append(out, Point{Lat: lat, Lon: lon})
	}
	return out, nil
}

type sample struct {
	Timestamp  time.Time
	Latency    time.Duration
	Status     int
	ErrorMsg   string
	PointIndex int
}

type summary struct {
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	ZipfS         float64   `json:"zipf_s"`
	ZipfV         float64   `json:"zipf_v"`
	Points        int       `json:"points"`
	Target        string    `json:"target"`
}

type aggregate struct {
	total   int64
	success int64
	errors  int64
	latMs   []float64
}

func (a *aggregate) add(s sample) {
	a.total++
	if s.ErrorMsg == "" && s.Status >= 200 && s.Status < 300 {
		a.success++
		a.latMs = append(a.latMs, float64(s.Latency.Microseconds())/1000.0)
		return
	}
	a.errors++
}

func outputPrefix(cfg Config, now time.Time) string {
	if !cfg.AppendTimestamp {
		return cfg.OutputPrefix
	}
	switch strings.ToLower(cfg.TimestampFormat) {
	case "none":
		return cfg.OutputPrefix
	case "unix":
		return fmt.Sprintf("%s_%d", cfg.OutputPrefix, now.Unix())
	default:
		return fmt.Sprintf("%s_%s", cfg.OutputPrefix, now.UTC().Format("20060102_150405Z"))
	}
}

func main() {
	cfg := loadConfig()
	log := logger.Build(logger.Config{Level: "info", Console: true, Component: "loadgen"}, os.Stderr)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("loadgen failed")
	}
}

func run(cfg Config, log zerolog.Logger) error {
	target, err := endpointURL(cfg.BaseURL, cfg.Endpoint)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		return fmt.Errorf("mkdir results: %w", err)
	}
	prefix := outputPrefix(cfg, time.Now())

	seed := time.Now().UnixNano()
	r := rand.New(rand.NewSource(seed))

	var points []Point
	if strings.TrimSpace(cfg.PointsFile) != "" {
		points, err = loadPointsCSV(cfg.PointsFile)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.PointsFile).Msg("falling back to synthetic points")
		} else if len(points) > cfg.PointCount {
			points = points[:cfg.PointCount]
		}
	}
	if len(points) == 0 {
		points = makePoints(cfg.PointCount, r)
	}
	if len(points) == 0 {
		return errors.New("no points generated")
	}
	imax := uint64(len(points)) - 1

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          1024,
			MaxIdleConnsPerHost:   256,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = csvFile.Close() }()
	csvWriter := csv.NewWriter(csvFile)

	samples := make(chan sample, 4096)
	results := make(chan aggregate, 1)
	go func() {
		_ = csvWriter.Write([]string{"timestamp", "latency_ms", "status", "error", "point_idx"})
		agg := aggregate{latMs: make([]float64, 0, 1<<16)}
		for s := range samples {
			agg.add(s)
			_ = csvWriter.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				fmt.Sprintf("%.3f", float64(s.Latency.Microseconds())/1000.0),
				strconv.Itoa(s.Status),
				s.ErrorMsg,
				strconv.Itoa(s.PointIndex),
			})
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Error().Err(err).Msg("csv flush")
		}
		results <- agg
	}()

	start := time.Now()
	log.Info().Str("target", target).Dur("duration", cfg.Duration).Int("concurrency", cfg.Concurrency).
		Float64("zipf_s", cfg.ZipfS).Float64("zipf_v", cfg.ZipfV).Int("points", len(points)).Msg("loadgen start")

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for id := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()
			zipf := rand.NewZipf(rand.New(rand.NewSource(seed+int64(id)+1)), cfg.ZipfS, cfg.ZipfV, imax)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				v := zipf.Uint64()
				if v >= uint64(len(points)) {
					continue
				}
				idx := int(v)
				s := fire(ctx, httpClient, target, points[idx])
				s.PointIndex = idx
				select {
				case samples <- s:
				case <-ctx.Done():
					return
				}
			}
		}(id)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samples)
	}()

	agg := <-results
	end := time.Now()
	elapsed := end.Sub(start).Seconds()

	sort.Float64s(agg.latMs)
	sum := summary{
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Concurrency:   cfg.Concurrency,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		Points:        len(points),
		Target:        target,
	}
	if f, err := os.Create(filepath.Clean(jsonPath)); err == nil {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sum)
		_ = f.Close()
	}

	log.Info().Int64("total", sum.TotalRequests).Int64("success", sum.SuccessCount).Int64("errors", sum.ErrorCount).
		Float64("rps", sum.ThroughputRPS).Float64("p50_ms", sum.P50Ms).Float64("p95_ms", sum.P95Ms).
		Float64("p99_ms", sum.P99Ms).Str("summary", jsonPath).Str("samples", csvPath).Msg("done")
	return nil
}

func fire(ctx context.Context, c *http.Client, target string, p Point) sample {
	s := sample{Timestamp: time.Now()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+p.Query().Encode(), nil)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	s.Latency = time.Since(s.Timestamp)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	s.Status = resp.StatusCode
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
	}
	return s
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	k := (p / 100.0) * float64(len(sorted)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	d := k - f
	return sorted[i]*(1-d) + sorted[i+1]*d
}
