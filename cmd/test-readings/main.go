package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/airq/internal/testreadings"
	"github.com/okian/airq/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumReadings = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numReadings = flag.Int("readings", defaultNumReadings, "Number of readings to generate and send")
		profile     = flag.String("profile", "", "Profile to generate readings for (default: service default)")
		mode        = flag.String("mode", testreadings.ModeClassify, `"classify" or "submit"`)
		invalid     = flag.Float64("invalid", 0, "Share of readings generated outside field bounds")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated readings")
		logFile     = flag.String("log", "", "Log file for test output (default: readings_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testreadings.ShowHelp()
		return
	}

	closer, err := testreadings.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testreadings.Config{
		BaseURL:      *baseURL,
		Profile:      *profile,
		NumReadings:  *numReadings,
		Workers:      *workers,
		Timeout:      *timeout,
		Mode:         *mode,
		InvalidRatio: *invalid,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}

	if _, err := testreadings.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		cancel()
		_ = closer.Close()
		os.Exit(1)
	}
}
