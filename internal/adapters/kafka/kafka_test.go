package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/model"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleEvaluation() model.Evaluation {
	return model.Evaluation{
		ID:          "ev-1",
		StationID:   "st-1",
		Profile:     aqi.ProfileSevere,
		Features:    aqi.FeatureVector{{Key: aqi.KeyPM25, Value: 180}},
		Result:      aqi.Result{Score: 250, Category: "Very Unhealthy", Index: 1, Advisory: "Stay indoors, limit outdoor exertion.", Color: "purple", DominantPollutant: aqi.KeyPM25},
		EvaluatedAt: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	ev := sampleEvaluation()

	msg, err := serializeToMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte("st-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"category":"Very Unhealthy"`)
	assert.Contains(t, string(msg.Value), `"dominant_pollutant":"PM2.5"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "profile", msg.Headers[0].Key)
	assert.Equal(t, []byte("severe"), msg.Headers[0].Value)
	assert.Equal(t, "category", msg.Headers[1].Key)
	assert.Equal(t, "evaluated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(ev.EvaluatedAt.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeUnclassified(t *testing.T) {
	ev := sampleEvaluation()
	ev.StationID = ""
	ev.Result = aqi.Result{Score: 900, Index: aqi.Unclassified, Advisory: aqi.DefaultAdvisory, Color: aqi.DefaultColor}

	msg, err := serializeToMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte("ev-1"), msg.Key, "falls back to the evaluation id")
	assert.Contains(t, string(msg.Value), `"category":null`)
	assert.Equal(t, "category", msg.Headers[1].Key)
	assert.Equal(t, []byte("unclassified"), msg.Headers[1].Value)
}

func TestWriterPublish(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, topic: "aqi.evaluations"}
	assert.Equal(t, "kafka", w.Name())

	require.NoError(t, w.Publish(context.Background(), sampleEvaluation()))
	require.Len(t, fw.msgs, 1)

	fw.err = errors.New("leader not available")
	err := w.Publish(context.Background(), sampleEvaluation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aqi.evaluations")

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}
