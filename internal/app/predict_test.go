package service

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAwaitPrediction(t *testing.T) {
	Convey("Given an expired inference deadline", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("When the model already delivered its score", func() {
			done := make(chan prediction, 1)
			done <- prediction{score: 42}

			Convey("Then the score is used every time", func() {
				for i := 0; i < 1000; i++ {
					if i > 0 {
						done <- prediction{score: 42}
					}
					res, ok := awaitPrediction(ctx, done)
					So(ok, ShouldBeTrue)
					So(res.score, ShouldEqual, 42)
				}
			})
		})

		Convey("When the model delivered an error", func() {
			done := make(chan prediction, 1)
			done <- prediction{err: errors.New("tree walk failed")}

			Convey("Then the model's error is reported", func() {
				res, ok := awaitPrediction(ctx, done)
				So(ok, ShouldBeTrue)
				So(res.err, ShouldNotBeNil)
			})
		})

		Convey("When the model is still running", func() {
			res, ok := awaitPrediction(ctx, make(chan prediction, 1))

			Convey("Then the wait gives up", func() {
				So(ok, ShouldBeFalse)
				So(res, ShouldResemble, prediction{})
			})
		})
	})

	Convey("Given a live context", t, func() {
		done := make(chan prediction, 1)
		go func() { done <- prediction{score: 7} }()

		Convey("Then the wait returns the model's score", func() {
			res, ok := awaitPrediction(context.Background(), done)
			So(ok, ShouldBeTrue)
			So(res.score, ShouldEqual, 7)
		})
	})
}
