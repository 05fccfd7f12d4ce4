package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	// UniqueIDs are submitted as manual entries; unknown ids are generated
	// when empty.
	UniqueIDs []string
	Client    *http.Client
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status429     int64
	Status5xx     int64
}

// Details renders the counters as key=value lines for the CLI result view.
func (r Result) Details() []string {
	return []string{
		fmt.Sprintf("total_requests=%d", r.TotalRequests),
		fmt.Sprintf("failures=%d", r.Failures),
		fmt.Sprintf("status_2xx=%d", r.Status2xx),
		fmt.Sprintf("status_4xx=%d", r.Status4xx),
		fmt.Sprintf("status_429=%d", r.Status429),
		fmt.Sprintf("status_5xx=%d", r.Status5xx),
	}
}

// Profiles lists the traffic shapes Run understands.
var Profiles = []string{"verify", "mixed", "error-heavy"}

type step struct {
	method string
	path   string
	body   any
}

// Run drives verification traffic: every worker opens its own session and
// replays the profile's steps against it until the duration elapses.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 5 * time.Second}
	}
	steps := stepsForProfile(cfg.Profile, cfg.UniqueIDs)
	if len(steps) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var res counters
	ticks := make(chan struct{}, cfg.Concurrency*2)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			w := worker{cfg: cfg, res: &res}
			n := 0
			for range ticks {
				if w.session == "" {
					w.openSession(gctx)
					continue
				}
				w.do(gctx, steps[n%len(steps)])
				n++
			}
			if w.session != "" {
				w.send(context.Background(), step{method: http.MethodDelete, path: "/api/v1/verify/sessions/{session}"})
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			select {
			case ticks <- struct{}{}:
			default:
			}
		}
	}
	close(ticks)
	_ = g.Wait()
	return res.snapshot(), nil
}

func stepsForProfile(profile string, ids []string) []step {
	if len(ids) == 0 {
		ids = []string{"UID-0-loadgen"}
	}
	manual := make([]step, 0, len(ids))
	for _, id := range ids {
		manual = append(manual, step{method: http.MethodPost, path: "/api/v1/verify/sessions/{session}/manual", body: map[string]string{"text": id}})
	}
	dismiss := step{method: http.MethodPost, path: "/api/v1/verify/sessions/{session}/dismiss"}
	switch strings.ToLower(profile) {
	case "", "verify":
		out := make([]step, 0, len(manual)*2)
		for _, m := range manual {
			out = append(out, m, dismiss)
		}
		return out
	case "mixed":
		out := []step{{method: http.MethodGet, path: "/health/ready"}, {method: http.MethodGet, path: "/api/v1/verify/sessions/{session}"}}
		for _, m := range manual {
			out = append(out, m, dismiss)
		}
		return out
	case "error-heavy":
		return []step{
			{method: http.MethodPost, path: "/api/v1/verify/sessions/{session}/manual", body: map[string]string{"text": " "}},
			{method: http.MethodPost, path: "/api/v1/verify/sessions/{session}/scan", body: map[string]string{"token": "UID-0-missing"}},
			{method: http.MethodGet, path: "/api/v1/credentials"},
			{method: http.MethodGet, path: "/api/v1/verify/sessions/unknown-session"},
		}
	default:
		return nil
	}
}

type counters struct {
	total, failures, s2xx, s4xx, s429, s5xx atomic.Int64
}

func (c *counters) record(code int) {
	c.total.Add(1)
	switch {
	case code >= 200 && code < 300:
		c.s2xx.Add(1)
	case code == http.StatusTooManyRequests:
		c.s429.Add(1)
		c.s4xx.Add(1)
	case code >= 400 && code < 500:
		c.s4xx.Add(1)
	case code >= 500:
		c.s5xx.Add(1)
	}
}

func (c *counters) snapshot() Result {
	return Result{
		TotalRequests: c.total.Load(),
		Failures:      c.failures.Load(),
		Status2xx:     c.s2xx.Load(),
		Status4xx:     c.s4xx.Load(),
		Status429:     c.s429.Load(),
		Status5xx:     c.s5xx.Load(),
	}
}

type worker struct {
	cfg     Config
	res     *counters
	session string
}

func (w *worker) openSession(ctx context.Context) {
	body, code, ok := w.send(ctx, step{method: http.MethodPost, path: "/api/v1/verify/sessions"})
	if !ok || code != http.StatusCreated {
		return
	}
	var env struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		w.session = env.Data.SessionID
	}
}

func (w *worker) do(ctx context.Context, s step) {
	_, code, ok := w.send(ctx, s)
	if ok && code == http.StatusNotFound && strings.Contains(s.path, "{session}") {
		// expired or swept; open a fresh one on the next tick
		w.session = ""
	}
}

func (w *worker) send(ctx context.Context, s step) ([]byte, int, bool) {
	var reader io.Reader
	if s.body != nil {
		raw, err := json.Marshal(s.body)
		if err != nil {
			w.res.failures.Add(1)
			return nil, 0, false
		}
		reader = bytes.NewReader(raw)
	}
	path := strings.ReplaceAll(s.path, "{session}", w.session)
	req, err := http.NewRequestWithContext(ctx, s.method, w.cfg.BaseURL+path, reader)
	if err != nil {
		w.res.failures.Add(1)
		return nil, 0, false
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := w.cfg.Client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			w.res.failures.Add(1)
		}
		return nil, 0, false
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	w.res.record(resp.StatusCode)
	return body, resp.StatusCode, true
}
