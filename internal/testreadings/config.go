package testreadings

import "time"

// Load generator modes.
const (
	ModeClassify = "classify" // POST /classify, synchronous results
	ModeSubmit   = "submit"   // POST /readings, results read back from history
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Profile      string        // Profile to generate readings for; empty uses the default
	NumReadings  int           // Number of readings to generate
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	Mode         string        // ModeClassify or ModeSubmit
	InvalidRatio float64       // Share of readings generated outside field bounds
	SettleDelay  time.Duration // Wait before reading back results in submit mode
	OutputFile   string        // Output file for generated readings
	Verbose      bool          // Enable verbose logging
}

// Field mirrors a profile input field.
type Field struct {
	Key     string  `json:"key"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Profile is the subset of GET /profiles/{name} the generator needs.
type Profile struct {
	Name       string            `json:"name"`
	Fields     []Field           `json:"fields"`
	Edges      []float64         `json:"edges"`
	Labels     []string          `json:"labels"`
	Advisories map[string]string `json:"advisories"`
	Colors     map[string]string `json:"colors"`
	Defaults   map[string]string `json:"defaults"`
	Pollutants []string          `json:"pollutants"`
}

// Reading is one generated request body.
type Reading struct {
	ID        string             `json:"id,omitempty"`
	StationID string             `json:"station_id,omitempty"`
	Profile   string             `json:"profile"`
	Values    map[string]float64 `json:"values"`
	Invalid   bool               `json:"-"`
}

// Classification is the subset of the classification view checked by the run.
type Classification struct {
	AQI               float64 `json:"aqi"`
	Category          *string `json:"category"`
	Advisory          string  `json:"advisory"`
	Color             string  `json:"color"`
	DominantPollutant *string `json:"dominant_pollutant"`
}

// AckResponse represents the response from reading submission.
type AckResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	ReadingsGenerated int
	ReadingsSent      int
	Classified        int
	Unclassified      int
	Accepted          int
	Duplicates        int
	Rejected          int // 4xx responses
	Failed            int // transport errors and 5xx responses
	Mismatches        int // responses inconsistent with the profile tables
	Categories        map[string]int
	Statuses          map[int]int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

func newStats() *Stats {
	return &Stats{
		Categories: map[string]int{},
		Statuses:   map[int]int{},
		StartTime:  time.Now(),
	}
}
