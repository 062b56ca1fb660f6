package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/airq/internal/adapters/mq/queue"
	"github.com/okian/airq/internal/adapters/mq/worker"
	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/model"
	logging "github.com/okian/airq/pkg/logger"
)

type mockQueue struct {
	ch chan model.Reading
}

func newMockQueue() *mockQueue { return &mockQueue{ch: make(chan model.Reading, 10)} }

func (q *mockQueue) Dequeue(ctx context.Context) <-chan model.Reading { return q.ch }

func (q *mockQueue) Close() error {
	close(q.ch)
	return nil
}

type mockEvaluator struct {
	mu     sync.Mutex
	seen   []string
	errs   map[string]error
	panics map[string]bool
}

func newMockEvaluator() *mockEvaluator {
	return &mockEvaluator{errs: map[string]error{}, panics: map[string]bool{}}
}

func (m *mockEvaluator) Evaluate(ctx context.Context, r model.Reading) (model.Evaluation, error) {
	m.mu.Lock()
	m.seen = append(m.seen, r.ID)
	err := m.errs[r.ID]
	boom := m.panics[r.ID]
	m.mu.Unlock()
	if boom {
		panic("model exploded")
	}
	if err != nil {
		return model.Evaluation{}, err
	}
	return model.Evaluation{ID: r.ID, StationID: r.StationID, Result: aqi.Result{Score: 10, Category: "Good"}}, nil
}

func (m *mockEvaluator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker on a mock queue", t, func() {
		_ = logging.Init()
		q := newMockQueue()
		ev := newMockEvaluator()
		w := worker.NewInMemoryWorker(q, ev, worker.WithName("test-worker"))

		convey.Convey("When readings succeed, fail and panic", func() {
			ev.errs["bad"] = fmt.Errorf("predict: %w", aqi.ErrInferenceFailure)
			ev.panics["boom"] = true
			for _, id := range []string{"ok-1", "bad", "boom", "ok-2"} {
				q.ch <- model.Reading{ID: id}
			}
			_ = q.Close()
			w.Run(context.Background())

			convey.Convey("Then every reading is handled and the loop survives", func() {
				convey.So(ev.count(), convey.ShouldEqual, 4)
				convey.So(w.Processed(), convey.ShouldEqual, 2)
				convey.So(w.Failed(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When shut down while idle", func() {
			go w.Run(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then it stops promptly and tolerates a second call", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(done)
			}()
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("worker did not stop on cancel")
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		ev := newMockEvaluator()
		p := worker.NewPool(4, q, ev)
		p.Start(context.Background())

		convey.So(p.Size(), convey.ShouldEqual, 4)

		convey.Convey("When readings are enqueued and the pool shuts down", func() {
			for i := 0; i < 50; i++ {
				convey.So(q.Enqueue(context.Background(), model.Reading{ID: fmt.Sprintf("r%d", i)}), convey.ShouldBeNil)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := p.Shutdown(ctx)

			convey.Convey("Then the queue is drained before workers exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ev.count(), convey.ShouldEqual, 50)
				convey.So(p.Processed(), convey.ShouldEqual, 50)
				convey.So(p.Failed(), convey.ShouldEqual, 0)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(errors.Is(q.Enqueue(context.Background(), model.Reading{ID: "late"}), queue.ErrClosed), convey.ShouldBeTrue)
			})
		})
	})
}
