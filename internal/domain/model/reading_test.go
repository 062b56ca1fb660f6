package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/airq/internal/domain/aqi"
	model "github.com/okian/airq/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvaluation(t *testing.T) {
	convey.Convey("Given an evaluation for an out-of-range score", t, func() {
		ev := model.Evaluation{
			ID:      "ev-1",
			Profile: aqi.ProfileFull,
			Result:  aqi.Result{Score: 1200, Index: aqi.Unclassified, Advisory: aqi.DefaultAdvisory, Color: aqi.DefaultColor},
		}

		convey.Convey("Then it carries an unclassified result without a gauge", func() {
			convey.So(ev.Result.Classified(), convey.ShouldBeFalse)
			convey.So(ev.Gauge, convey.ShouldBeNil)
			convey.So(ev.StationID, convey.ShouldEqual, "")
		})
	})
}

func TestRawValuesDecode(t *testing.T) {
	convey.Convey("Given JSON-decoded sensor values", t, func() {
		decode := func(body string) (map[string]float64, error) {
			var v model.RawValues
			convey.So(json.Unmarshal([]byte(body), &v), convey.ShouldBeNil)
			return v.Decode()
		}

		convey.Convey("Then zero readings are kept as values", func() {
			values, err := decode(`{"PM2.5":0,"PM10":240}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(values, convey.ShouldResemble, map[string]float64{"PM2.5": 0, "PM10": 240})
		})

		convey.Convey("Then a null reading is invalid input", func() {
			_, err := decode(`{"PM2.5":null,"PM10":240}`)
			convey.So(errors.Is(err, aqi.ErrInvalidInput), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "PM2.5")
		})

		convey.Convey("Then an empty value set is invalid input", func() {
			_, err := decode(`{}`)
			convey.So(errors.Is(err, aqi.ErrInvalidInput), convey.ShouldBeTrue)
		})
	})
}
