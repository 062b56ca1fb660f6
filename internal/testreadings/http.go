package testreadings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/airq/pkg/logger"
)

// HTTPClient wraps http.Client with a request timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.Unmarshal(body, v)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// fetchProfile reads the profile description the generator draws bounds from.
func fetchProfile(ctx context.Context, client *HTTPClient, baseURL, name string) (*Profile, error) {
	if name == "" {
		var list []struct {
			Profile
			Default bool `json:"default"`
		}
		if err := client.getJSON(ctx, baseURL+"/profiles", &list); err != nil {
			return nil, err
		}
		for _, p := range list {
			if p.Default {
				profile := p.Profile
				return &profile, nil
			}
		}
		return nil, fmt.Errorf("service reports no default profile")
	}
	var p Profile
	if err := client.getJSON(ctx, baseURL+"/profiles/"+url.PathEscape(name), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// outcome is the result of sending one reading.
type outcome struct {
	status int
	result *Classification
	dup    bool
	err    error
}

// sendReadings posts readings concurrently using a worker pool and collects
// the classifications returned in classify mode.
func sendReadings(ctx context.Context, config *Config, readings []Reading, stats *Stats) []Classification {
	logger.Get().Info(ctx, "sending readings",
		logger.String("mode", config.Mode),
		logger.Int("count", len(readings)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	endpoint := config.BaseURL + "/classify"
	if config.Mode == ModeSubmit {
		endpoint = config.BaseURL + "/readings"
	}

	var (
		sent    int64
		failed  int64
		mu      sync.Mutex
		results []Classification
	)

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	readingChan := make(chan Reading, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range readingChan {
				o := sendSingleReading(ctx, client, config.Mode, endpoint, r)
				n := atomic.AddInt64(&sent, 1)
				if o.err != nil {
					atomic.AddInt64(&failed, 1)
					logger.Get().Debug(ctx, "reading failed", logger.String("id", r.ID), logger.Error(o.err))
				}

				mu.Lock()
				recordOutcome(stats, o)
				if o.result != nil {
					results = append(results, *o.result)
				}
				mu.Unlock()

				if config.Verbose && n%100 == 0 {
					logger.Get().Debug(ctx, "progress",
						logger.Int64("sent", n),
						logger.Int64("failed", atomic.LoadInt64(&failed)))
				}
			}
		}()
	}

	go func() {
		defer close(readingChan)
		for _, r := range readings {
			select {
			case <-ctx.Done():
				return
			case readingChan <- r:
			}
		}
	}()

	wg.Wait()
	stats.ReadingsSent = int(atomic.LoadInt64(&sent))

	logger.Get().Info(ctx, "sending completed",
		logger.Int("sent", stats.ReadingsSent),
		logger.Int("classified", stats.Classified),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))
	return results
}

// recordOutcome folds one outcome into stats. Callers hold the stats lock.
func recordOutcome(stats *Stats, o outcome) {
	if o.status != 0 {
		stats.Statuses[o.status]++
	}
	switch {
	case o.status >= http.StatusBadRequest && o.status < http.StatusInternalServerError:
		stats.Rejected++
	case o.err != nil:
		stats.Failed++
	case o.result != nil:
		stats.Classified++
		if o.result.Category == nil {
			stats.Unclassified++
			stats.Categories[unclassifiedLabel]++
		} else {
			stats.Categories[*o.result.Category]++
		}
	case o.dup:
		stats.Duplicates++
	default:
		stats.Accepted++
	}
}

// sendSingleReading sends one reading and interprets the response.
func sendSingleReading(ctx context.Context, client *HTTPClient, mode, endpoint string, r Reading) outcome {
	var payload any = r
	if mode != ModeSubmit {
		payload = struct {
			Profile string             `json:"profile"`
			Values  map[string]float64 `json:"values"`
		}{r.Profile, r.Values}
	}

	resp, err := client.Post(ctx, endpoint, payload)
	if err != nil {
		return outcome{err: err}
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return outcome{status: resp.StatusCode, err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK && mode != ModeSubmit:
		var c Classification
		if err := json.Unmarshal(body, &c); err != nil {
			return outcome{status: resp.StatusCode, err: fmt.Errorf("decode classification: %w", err)}
		}
		return outcome{status: resp.StatusCode, result: &c}
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusAccepted:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err != nil {
			return outcome{status: resp.StatusCode, err: fmt.Errorf("decode ack: %w", err)}
		}
		return outcome{status: resp.StatusCode, dup: ack.Duplicate}
	default:
		return outcome{
			status: resp.StatusCode,
			err:    fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}
}
