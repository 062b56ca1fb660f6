package testreadings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/okian/airq/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes a complete load run and returns the collected statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := newStats()
	if config.Mode == "" {
		config.Mode = ModeClassify
	}
	if config.Mode != ModeClassify && config.Mode != ModeSubmit {
		return nil, fmt.Errorf("unknown mode %q", config.Mode)
	}

	logger.Get().Info(ctx, "starting airq reading load run",
		logger.String("baseURL", config.BaseURL),
		logger.String("profile", config.Profile),
		logger.String("mode", config.Mode),
		logger.Int("readings", config.NumReadings),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Float64("invalidRatio", config.InvalidRatio))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service readiness
	if err := checkServiceReady(ctx, client, config.BaseURL); err != nil {
		return nil, fmt.Errorf("service readiness check failed: %w", err)
	}

	// Step 2: Fetch the profile description
	profile, err := fetchProfile(ctx, client, config.BaseURL, config.Profile)
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}

	// Step 3: Generate readings
	readings, err := generateReadings(ctx, config, profile, stats)
	if err != nil {
		return nil, fmt.Errorf("reading generation failed: %w", err)
	}

	// Step 4: Send readings concurrently
	results := sendReadings(ctx, config, readings, stats)

	// Step 5: In submit mode, read results back once the workers settle
	if config.Mode == ModeSubmit {
		delay := config.SettleDelay
		if delay <= 0 {
			delay = DefaultSettleDelay
		}
		logger.Get().Info(ctx, "waiting for readings to be processed", logger.String("delay", delay.String()))
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(delay):
		}
		results, err = retrieveLatest(ctx, client, config.BaseURL, readings, stats)
		if err != nil {
			return stats, fmt.Errorf("result retrieval failed: %w", err)
		}
	}

	// Step 6: Verify results against the profile tables
	verifyErr := verifyResults(ctx, profile, results, stats)

	// Step 7: Save readings to file
	if config.OutputFile != "" {
		if err := saveReadingsToFile(ctx, config.OutputFile, readings); err != nil {
			logger.Get().Warn(ctx, "failed to save readings to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	logger.Get().Info(ctx, "load run completed successfully")
	return stats, nil
}

// checkServiceReady verifies the service accepts work.
func checkServiceReady(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/readyz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	logger.Get().Info(ctx, "service is ready")
	return nil
}

// retrieveLatest fetches the latest evaluation of every station that
// received a reading and tallies categories from the service history.
func retrieveLatest(ctx context.Context, client *HTTPClient, baseURL string, readings []Reading, stats *Stats) ([]Classification, error) {
	seen := make(map[string]struct{})
	var results []Classification
	for _, r := range readings {
		if _, ok := seen[r.StationID]; ok || r.StationID == "" {
			continue
		}
		seen[r.StationID] = struct{}{}

		var c Classification
		err := client.getJSON(ctx, baseURL+"/stations/"+url.PathEscape(r.StationID)+"/latest", &c)
		if err != nil {
			logger.Get().Warn(ctx, "no latest evaluation", logger.String("station", r.StationID), logger.Error(err))
			continue
		}
		results = append(results, c)
	}

	var serviceStats struct {
		Categories map[string]int `json:"categories"`
	}
	if err := client.getJSON(ctx, baseURL+"/stats", &serviceStats); err != nil {
		return results, err
	}
	for label, n := range serviceStats.Categories {
		if label == "" {
			label = unclassifiedLabel
			stats.Unclassified += n
		}
		stats.Categories[label] += n
		stats.Classified += n
	}
	return results, nil
}

// saveReadingsToFile writes the generated readings as a JSON array.
func saveReadingsToFile(ctx context.Context, filename string, readings []Reading) error {
	if len(readings) == 0 {
		return fmt.Errorf("no readings to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal readings: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "readings saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics and category distribution.
func displayFinalStats(stats *Stats) {
	var successRate, readingsPerSecond float64
	if stats.ReadingsSent > 0 {
		ok := stats.ReadingsSent - stats.Rejected - stats.Failed
		successRate = float64(ok) / float64(stats.ReadingsSent) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		readingsPerSecond = float64(stats.ReadingsSent) / stats.Duration.Seconds()
	}

	ctx := context.Background()
	logger.Get().Info(ctx, "final statistics",
		logger.Int("readingsGenerated", stats.ReadingsGenerated),
		logger.Int("readingsSent", stats.ReadingsSent),
		logger.Int("classified", stats.Classified),
		logger.Int("unclassified", stats.Unclassified),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatches", stats.Mismatches),
		logger.Float64("successRate", successRate),
		logger.Float64("readingsPerSecond", readingsPerSecond),
		logger.String("duration", stats.Duration.String()))

	labels := make([]string, 0, len(stats.Categories))
	for label := range stats.Categories {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return stats.Categories[labels[i]] > stats.Categories[labels[j]] })
	for _, label := range labels {
		var share float64
		if stats.Classified > 0 {
			share = float64(stats.Categories[label]) / float64(stats.Classified) * PercentageMultiplier
		}
		logger.Get().Info(ctx, "category",
			logger.String("label", label),
			logger.Int("count", stats.Categories[label]),
			logger.Float64("percent", share))
	}
	for status, n := range stats.Statuses {
		logger.Get().Debug(ctx, "status", logger.Int("code", status), logger.Int("count", n))
	}
}
