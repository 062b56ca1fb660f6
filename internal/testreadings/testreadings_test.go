package testreadings

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/airq/internal/adapters/http/api"
	service "github.com/okian/airq/internal/app"
	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/inference"
	"github.com/okian/airq/internal/domain/types"
	"github.com/okian/airq/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// newTestServer serves the real API over the shipped models.
func newTestServer(ctx context.Context) (*httptest.Server, func()) {
	preds := map[string]inference.Predictor{}
	for _, name := range []string{aqi.ProfileFull, aqi.ProfileSevere} {
		p, err := inference.Load(ctx, filepath.Join("..", "..", "models", name+".yaml"))
		So(err, ShouldBeNil)
		preds[name] = p
	}
	svc := service.New(
		service.WithPredictors(preds),
		service.WithWorkerCount(2),
		service.WithInferenceTimeout(0),
	)
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, 100).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		_ = svc.Stop(ctx)
	}
}

func wireProfile(p *aqi.Profile) *Profile {
	b, err := json.Marshal(types.FromProfile(p))
	So(err, ShouldBeNil)
	var out Profile
	So(json.Unmarshal(b, &out), ShouldBeNil)
	return &out
}

func TestGenerateReadings(t *testing.T) {
	Convey("Given the severe profile", t, func() {
		ctx := context.Background()
		profile := wireProfile(aqi.SevereRange())

		Convey("When generating valid readings", func() {
			stats := newStats()
			readings, err := generateReadings(ctx, &Config{NumReadings: 200}, profile, stats)

			Convey("Then every value is inside its field bounds", func() {
				So(err, ShouldBeNil)
				So(readings, ShouldHaveLength, 200)
				So(stats.ReadingsGenerated, ShouldEqual, 200)
				for _, r := range readings {
					So(r.ID, ShouldNotBeEmpty)
					So(r.StationID, ShouldNotBeEmpty)
					So(r.Invalid, ShouldBeFalse)
					So(r.Values, ShouldHaveLength, len(profile.Fields))
					for _, f := range profile.Fields {
						So(r.Values[f.Key], ShouldBeBetweenOrEqual, f.Min, f.Max)
					}
				}
			})
		})

		Convey("When every reading must be invalid", func() {
			readings, err := generateReadings(ctx, &Config{NumReadings: 50, InvalidRatio: 1}, profile, newStats())

			Convey("Then each reading has a value outside its bounds", func() {
				So(err, ShouldBeNil)
				for _, r := range readings {
					So(r.Invalid, ShouldBeTrue)
					outside := 0
					for _, f := range profile.Fields {
						if v := r.Values[f.Key]; v < f.Min || v > f.Max {
							outside++
						}
					}
					So(outside, ShouldEqual, 1)
				}
			})
		})

		Convey("When the count is not positive", func() {
			_, err := generateReadings(ctx, &Config{NumReadings: 0}, profile, newStats())

			Convey("Then generation fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestVerifyClassification(t *testing.T) {
	Convey("Given the full profile tables", t, func() {
		profile := wireProfile(aqi.FullRange())
		table := aqi.CategoryTable{Edges: profile.Edges, Labels: profile.Labels}
		moderate := "Moderate"
		pm25 := aqi.KeyPM25

		Convey("Then a consistent classification passes", func() {
			c := Classification{AQI: 75, Category: &moderate, Advisory: profile.Advisories[moderate], Color: profile.Colors[moderate], DominantPollutant: &pm25}
			So(verifyClassification(table, profile, c), ShouldBeNil)
		})

		Convey("Then a wrong category is reported", func() {
			c := Classification{AQI: 20, Category: &moderate, Advisory: profile.Advisories[moderate], Color: profile.Colors[moderate]}
			So(verifyClassification(table, profile, c), ShouldNotBeNil)
		})

		Convey("Then an unclassified score must carry the defaults", func() {
			c := Classification{AQI: 1000, Advisory: aqi.DefaultAdvisory, Color: aqi.DefaultColor}
			So(verifyClassification(table, profile, c), ShouldBeNil)
			c.Color = "red"
			So(verifyClassification(table, profile, c), ShouldNotBeNil)
		})

		Convey("Then an unknown dominant pollutant is reported", func() {
			temp := aqi.KeyTemp
			c := Classification{AQI: 75, Category: &moderate, Advisory: profile.Advisories[moderate], Color: profile.Colors[moderate], DominantPollutant: &temp}
			So(verifyClassification(table, profile, c), ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running classifier", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv, stop := newTestServer(ctx)
		defer stop()

		config := &Config{
			BaseURL:     srv.URL,
			NumReadings: 100,
			Workers:     4,
			Timeout:     5 * time.Second,
		}

		Convey("When classifying with the default profile", func() {
			stats, err := Run(ctx, config)

			Convey("Then every reading is classified consistently", func() {
				So(err, ShouldBeNil)
				So(stats.ReadingsSent, ShouldEqual, 100)
				So(stats.Classified, ShouldEqual, 100)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Mismatches, ShouldEqual, 0)
				total := 0
				for _, n := range stats.Categories {
					total += n
				}
				So(total, ShouldEqual, 100)
			})
		})

		Convey("When every reading is out of range", func() {
			config.Profile = aqi.ProfileSevere
			config.InvalidRatio = 1
			stats, err := Run(ctx, config)

			Convey("Then the service rejects them all", func() {
				So(err, ShouldBeNil)
				So(stats.Rejected, ShouldEqual, 100)
				So(stats.Statuses[http.StatusBadRequest], ShouldEqual, 100)
				So(stats.Classified, ShouldEqual, 0)
			})
		})

		Convey("When submitting asynchronously", func() {
			config.Mode = ModeSubmit
			config.SettleDelay = time.Second
			config.OutputFile = filepath.Join(t.TempDir(), "out", "readings.json")
			stats, err := Run(ctx, config)

			Convey("Then readings are accepted and read back", func() {
				So(err, ShouldBeNil)
				So(stats.Accepted, ShouldEqual, 100)
				So(stats.Classified, ShouldEqual, 100)
				So(stats.Mismatches, ShouldEqual, 0)

				data, err := os.ReadFile(config.OutputFile)
				So(err, ShouldBeNil)
				var saved []Reading
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(saved, ShouldHaveLength, 100)
			})
		})

		Convey("When the profile is unknown", func() {
			config.Profile = "nope"
			_, err := Run(ctx, config)

			Convey("Then the run fails before sending", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "profile lookup failed")
			})
		})

		Convey("When the mode is unknown", func() {
			config.Mode = "stream"
			_, err := Run(ctx, config)

			Convey("Then the run fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
