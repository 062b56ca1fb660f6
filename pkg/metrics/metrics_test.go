package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("aqi"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithInferenceBuckets([]float64{0.1, 1}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.RecordClassification("full", "Good")
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "test_aqi_"), ShouldBeTrue)
				}
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then registering again panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestManagerRecorders(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording a classified result", func() {
			m.RecordClassification("full", "Moderate")
			m.RecordClassification("full", "Moderate")

			Convey("Then the profile/category counter increments", func() {
				So(testutil.ToFloat64(m.classifications.WithLabelValues("full", "Moderate")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.unclassified.WithLabelValues("full")), ShouldEqual, 0)
			})
		})

		Convey("When recording an unclassified result", func() {
			m.RecordClassification("severe", "")

			Convey("Then both the unclassified and labelled counters increment", func() {
				So(testutil.ToFloat64(m.unclassified.WithLabelValues("severe")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.classifications.WithLabelValues("severe", "unclassified")), ShouldEqual, 1)
			})
		})

		Convey("When recording publishes", func() {
			m.RecordPublish("mqtt", nil)
			m.RecordPublish("kafka", errors.New("broker down"))

			Convey("Then successes and failures are split by sink", func() {
				So(testutil.ToFloat64(m.publishedResults.WithLabelValues("mqtt")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.publishErrors.WithLabelValues("kafka")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.publishErrors.WithLabelValues("mqtt")), ShouldEqual, 0)
			})
		})

		Convey("When recording inference errors and latency", func() {
			m.RecordInferenceError("full", "invalid_input")
			m.RecordInferenceLatency("full", 0.4)

			Convey("Then they are observed", func() {
				So(testutil.ToFloat64(m.inferenceErrors.WithLabelValues("full", "invalid_input")), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.inferenceLatency), ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When calling the package-level recorders", func() {
			So(func() {
				RecordClassification("full", "Good")
				RecordInferenceLatency("full", 1.2)
				RecordInferenceError("full", "inference_failure")
				RecordReadingSubmitted()
				RecordReadingDuplicate()
				RecordReadingRejected("mqtt", "decode")
				UpdateHistoryRecords(3)
				RecordPublish("kafka", nil)
				UpdateModelsLoaded(2)
				UpdateProfilesConfigured(2)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordHTTPRequest("/classify", "POST", "200")
				RecordHTTPRequestDuration("/classify", "POST", "200", 3)
				RecordErrorByComponent("worker", "inference_failure")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("/classify", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then the custom registry exposes them", func() {
				count, err := testutil.GatherAndCount(GetRegistry(), "airq_classifier_readings_submitted_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})
}
