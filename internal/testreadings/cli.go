package testreadings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/okian/airq/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging routes the structured logger to both stdout and a log file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "readings_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		logger.SetLevel(slog.LevelDebug)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`airq Reading Load Tool
======================

Generates random sensor readings inside a profile's field bounds, sends
them to the classifier concurrently and reports the category distribution.

Usage:
  go run cmd/test-readings/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -readings int
        Number of readings to generate and send (default 1000)
  -profile string
        Profile to generate readings for (default: service default)
  -mode string
        "classify" posts to /classify, "submit" posts to /readings (default "classify")
  -invalid float
        Share of readings generated outside field bounds, 0..1 (default 0)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated readings (default: generated_readings_TIMESTAMP.json)
  -log string
        Log file for test output (default: readings_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Classify 1000 readings with the default profile
  go run cmd/test-readings/main.go

  # Submit asynchronously against the severe profile
  go run cmd/test-readings/main.go -profile severe -mode submit -readings 5000

  # Mix in 10% out-of-range readings
  go run cmd/test-readings/main.go -invalid 0.1 -verbose
`)
}
