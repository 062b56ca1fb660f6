package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/airq/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DefaultProfile, convey.ShouldEqual, "full")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.ModelPaths["severe"], convey.ShouldEqual, "models/severe.yaml")
				convey.So(cfg.MQTTEnabled(), convey.ShouldBeFalse)
				convey.So(cfg.KafkaEnabled(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			setEnv(map[string]string{
				"AQI_ADDR":                 ":8080",
				"AQI_QUEUE_SIZE":           "500",
				"AQI_WORKER_COUNT":         "16",
				"AQI_INFERENCE_TIMEOUT_MS": "40",
				"AQI_KAFKA_BROKERS":        "k1:9092, k2:9092",
				"AQI_MODEL_PATHS__FULL":    "/srv/models/full.yaml",
				"AQI_LOG_FORMAT":           "json",
			})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.InferenceTimeout().Milliseconds(), convey.ShouldEqual, 40)
				convey.So(cfg.KafkaBrokers, convey.ShouldResemble, []string{"k1:9092", "k2:9092"})
				convey.So(cfg.KafkaEnabled(), convey.ShouldBeTrue)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})

			convey.Convey("Then a double underscore addresses a map entry", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ModelPaths["full"], convey.ShouldEqual, "/srv/models/full.yaml")
				convey.So(cfg.ModelPaths["severe"], convey.ShouldEqual, "models/severe.yaml")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
queue_size: 300
worker_count: 24
mqtt_broker: "tcp://localhost:1883"
`)
			setEnv(map[string]string{
				config.EnvConfig:   path,
				"AQI_WORKER_COUNT": "32",
			})

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.MQTTEnabled(), convey.ShouldBeTrue)
				convey.So(cfg.MQTTReadingTopic, convey.ShouldEqual, "aqi/+/reading")
			})
		})

		convey.Convey("When a .env file is present", func() {
			dir := t.TempDir()
			dot := filepath.Join(dir, "test.env")
			convey.So(os.WriteFile(dot, []byte("AQI_DEDUPE_SIZE=77\nAQI_HISTORY_SIZE=12\n"), 0o600), convey.ShouldBeNil)
			setEnv(map[string]string{config.EnvDotFile: dot, "AQI_HISTORY_SIZE": "99"})

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values feed the environment without overriding it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 77)
				convey.So(cfg.HistorySize, convey.ShouldEqual, 99)
			})
		})

		convey.Convey("When the named .env file is missing", func() {
			setEnv(map[string]string{config.EnvDotFile: "/non/existent/.env"})

			_, err := config.Load(ctx)

			convey.Convey("Then it is a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			setEnv(map[string]string{config.EnvConfig: createTempConfigFile(t, `invalid: yaml: content: [`)})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			setEnv(map[string]string{config.EnvConfig: "/non/existent/file.yaml"})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			setEnv(map[string]string{"AQI_ADDR": ""})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with zero workers", func() {
			setEnv(map[string]string{"AQI_WORKER_COUNT": "0"})

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			setEnv(map[string]string{"AQI_QUEUE_SIZE": "invalid"})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file defines a custom profile", func() {
			path := createTempConfigFile(t, `
default_profile: indoor
profiles:
  - name: indoor
    title: Indoor monitor
    fields:
      - {key: "PM2.5", min: 0, max: 500, default: 12}
      - {key: "CO2 ppm", min: 0, max: 5000, default: 600}
    edges: [0, 35, 75, 500]
    categories:
      - {label: Fresh, advisory: "Nothing to do.", color: green}
      - {label: Stale, color: yellow}
      - {label: Poor, advisory: "Ventilate now.", color: red}
    pollutants: ["PM2.5", "CO2 ppm"]
`)
			setEnv(map[string]string{config.EnvConfig: path})

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			profiles, err := cfg.BuildProfiles()

			convey.Convey("Then it is built next to the built-ins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(profiles, convey.ShouldContainKey, "full")
				convey.So(profiles, convey.ShouldContainKey, "severe")
				indoor := profiles["indoor"]
				convey.So(indoor.FeatureKeys(), convey.ShouldResemble, []string{"PM2.5", "CO2 ppm"})
				convey.So(indoor.Advisories.Lookup("Stale"), convey.ShouldEqual, "Be careful!")
				convey.So(indoor.Colors.Lookup("Poor"), convey.ShouldEqual, "red")
				convey.So(indoor.Fields[1].Label, convey.ShouldEqual, "CO2 ppm")
			})
		})
	})
}

func TestBuildProfiles(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the default profile is unknown", func() {
			cfg.DefaultProfile = "missing"
			_, err := cfg.BuildProfiles()

			convey.Convey("Then it is invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a profile has unsorted edges", func() {
			cfg.Profiles = []config.ProfileConfig{{
				Name:       "bad",
				Fields:     []config.FieldConfig{{Key: "x", Max: 1}},
				Edges:      []float64{10, 5},
				Categories: []config.CategoryConfig{{Label: "A"}},
				Pollutants: []string{"x"},
			}}
			_, err := cfg.BuildProfiles()

			convey.Convey("Then it is invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a profile names a pollutant that is not a field", func() {
			cfg.Profiles = []config.ProfileConfig{{
				Name:       "bad",
				Fields:     []config.FieldConfig{{Key: "x", Max: 1}},
				Edges:      []float64{0, 5},
				Categories: []config.CategoryConfig{{Label: "A"}},
				Pollutants: []string{"y"},
			}}
			_, err := cfg.BuildProfiles()

			convey.Convey("Then it is invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

var configEnvVars = []string{
	config.EnvConfig,
	config.EnvDotFile,
	"AQI_ADDR",
	"AQI_QUEUE_SIZE",
	"AQI_WORKER_COUNT",
	"AQI_DEDUPE_SIZE",
	"AQI_HISTORY_SIZE",
	"AQI_INFERENCE_TIMEOUT_MS",
	"AQI_KAFKA_BROKERS",
	"AQI_MODEL_PATHS__FULL",
	"AQI_LOG_FORMAT",
}

func setEnv(vars map[string]string) {
	for k, v := range vars {
		_ = os.Setenv(k, v)
	}
}

func clearConfigEnvVars() {
	for _, envVar := range configEnvVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "airq-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
