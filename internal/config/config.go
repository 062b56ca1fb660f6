// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New returns a Config populated with defaults.
//   - Load layers .env, an optional YAML file and AQI_* env vars on top.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/airq/internal/domain/aqi"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DefaultProfile is used when a request names no profile.
	DefaultProfile string `koanf:"default_profile"`

	// ModelPaths maps profile names to model artifact files.
	ModelPaths map[string]string `koanf:"model_paths"`

	// QueueSize bounds the in-memory reading queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of classification workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the reading id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// HistorySize bounds the number of retained evaluations.
	HistorySize int `koanf:"history_size"`

	// MaxRecentLimit caps GET /readings/recent?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`

	// InferenceTimeoutMS bounds a single model call. Zero disables the timeout.
	InferenceTimeoutMS int `koanf:"inference_timeout_ms"`

	// CORSOrigins lists allowed browser origins for the HTTP API.
	CORSOrigins []string `koanf:"cors_origins"`

	// MQTT ingestion. Disabled when MQTTBroker is empty.
	MQTTBroker       string `koanf:"mqtt_broker"`
	MQTTClientID     string `koanf:"mqtt_client_id"`
	MQTTUsername     string `koanf:"mqtt_username"`
	MQTTPassword     string `koanf:"mqtt_password"`
	MQTTReadingTopic string `koanf:"mqtt_reading_topic"`
	MQTTResultTopic  string `koanf:"mqtt_result_topic"`

	// Kafka result stream. Disabled when KafkaBrokers is empty.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`

	// Profiles adds or replaces classification profiles by name.
	Profiles []ProfileConfig `koanf:"profiles"`
}

// ProfileConfig describes a classification profile in configuration files.
type ProfileConfig struct {
	Name            string           `koanf:"name"`
	Title           string           `koanf:"title"`
	Fields          []FieldConfig    `koanf:"fields"`
	Edges           []float64        `koanf:"edges"`
	Categories      []CategoryConfig `koanf:"categories"`
	DefaultAdvisory string           `koanf:"default_advisory"`
	DefaultColor    string           `koanf:"default_color"`
	Pollutants      []string         `koanf:"pollutants"`
	Gauge           *GaugeConfig     `koanf:"gauge"`
}

// FieldConfig is one model input with its accepted range.
type FieldConfig struct {
	Key     string  `koanf:"key"`
	Label   string  `koanf:"label"`
	Unit    string  `koanf:"unit"`
	Min     float64 `koanf:"min"`
	Max     float64 `koanf:"max"`
	Default float64 `koanf:"default"`
}

// CategoryConfig names one bucket with its advisory and colour. Categories
// are listed in edge order.
type CategoryConfig struct {
	Label    string `koanf:"label"`
	Advisory string `koanf:"advisory"`
	Color    string `koanf:"color"`
}

// GaugeConfig describes the optional gauge rendering.
type GaugeConfig struct {
	AxisMin float64      `koanf:"axis_min"`
	AxisMax float64      `koanf:"axis_max"`
	Bands   []BandConfig `koanf:"bands"`
}

// BandConfig is one coloured gauge range.
type BandConfig struct {
	Start float64 `koanf:"start"`
	End   float64 `koanf:"end"`
	Color string  `koanf:"color"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		DefaultProfile: aqi.ProfileFull,
		ModelPaths: map[string]string{
			aqi.ProfileFull:   "models/full.yaml",
			aqi.ProfileSevere: "models/severe.yaml",
		},
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         50_000,
		HistorySize:        1_000,
		MaxRecentLimit:     100,
		InferenceTimeoutMS: 250,
		CORSOrigins:        []string{"*"},
		MQTTClientID:       "airq-classifier",
		MQTTReadingTopic:   "aqi/+/reading",
		MQTTResultTopic:    "aqi/{station}/result",
		KafkaTopic:         "aqi.evaluations",
	}
}

// InferenceTimeout returns the model call deadline.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutMS) * time.Millisecond
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool { return strings.TrimSpace(c.MQTTBroker) != "" }

// KafkaEnabled reports whether brokers are configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Validate checks the scalar settings. Profile tables are checked by
// BuildProfiles.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.HistorySize <= 0:
		return fmt.Errorf("%w: history_size must be positive", ErrInvalidConfig)
	case c.MaxRecentLimit <= 0:
		return fmt.Errorf("%w: max_recent_limit must be positive", ErrInvalidConfig)
	case c.InferenceTimeoutMS < 0:
		return fmt.Errorf("%w: inference_timeout_ms must not be negative", ErrInvalidConfig)
	case strings.TrimSpace(c.DefaultProfile) == "":
		return fmt.Errorf("%w: default_profile must not be empty", ErrInvalidConfig)
	}
	if c.MQTTEnabled() && (c.MQTTReadingTopic == "" || c.MQTTResultTopic == "") {
		return fmt.Errorf("%w: mqtt topics must be set when mqtt_broker is", ErrInvalidConfig)
	}
	if c.KafkaEnabled() && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("%w: kafka_topic must be set when kafka_brokers is", ErrInvalidConfig)
	}
	return nil
}

// BuildProfiles returns the built-in profiles overlaid with the configured
// ones. Every profile is validated and the default profile must exist.
func (c *Config) BuildProfiles() (map[string]*aqi.Profile, error) {
	out := aqi.Builtins()
	for i, pc := range c.Profiles {
		p, err := pc.Build()
		if err != nil {
			return nil, fmt.Errorf("%w: profiles[%d]: %w", ErrInvalidConfig, i, err)
		}
		out[p.Name] = p
	}
	if _, ok := out[c.DefaultProfile]; !ok {
		return nil, fmt.Errorf("%w: default_profile %q is not defined", ErrInvalidConfig, c.DefaultProfile)
	}
	return out, nil
}

// Build converts the configuration into a validated profile.
func (pc ProfileConfig) Build() (*aqi.Profile, error) {
	if strings.TrimSpace(pc.Name) == "" {
		return nil, fmt.Errorf("profile name must not be empty")
	}
	labels := make([]string, len(pc.Categories))
	advisories := make(map[string]string, len(pc.Categories))
	colors := make(map[string]string, len(pc.Categories))
	for i, cat := range pc.Categories {
		labels[i] = cat.Label
		if cat.Advisory != "" {
			advisories[cat.Label] = cat.Advisory
		}
		if cat.Color != "" {
			colors[cat.Label] = cat.Color
		}
	}
	table, err := aqi.NewCategoryTable(pc.Edges, labels)
	if err != nil {
		return nil, err
	}
	adv, err := aqi.NewLabelTable(advisories, orDefault(pc.DefaultAdvisory, aqi.DefaultAdvisory))
	if err != nil {
		return nil, err
	}
	col, err := aqi.NewLabelTable(colors, orDefault(pc.DefaultColor, aqi.DefaultColor))
	if err != nil {
		return nil, err
	}

	fields := make(aqi.Fields, len(pc.Fields))
	for i, f := range pc.Fields {
		fields[i] = aqi.Field{Key: f.Key, Label: orDefault(f.Label, f.Key), Unit: f.Unit, Min: f.Min, Max: f.Max, Default: f.Default}
	}

	p := &aqi.Profile{
		Name:       pc.Name,
		Title:      orDefault(pc.Title, pc.Name),
		Fields:     fields,
		Table:      table,
		Advisories: adv,
		Colors:     col,
		Pollutants: append([]string(nil), pc.Pollutants...),
	}
	if pc.Gauge != nil {
		layout := &aqi.GaugeLayout{AxisMin: pc.Gauge.AxisMin, AxisMax: pc.Gauge.AxisMax}
		for _, b := range pc.Gauge.Bands {
			layout.Bands = append(layout.Bands, aqi.Band{Start: b.Start, End: b.End, Color: b.Color})
		}
		p.Gauge = layout
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
