package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/model"
	logging "github.com/okian/airq/pkg/logger"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient implements the paho calls the adapters make.
type fakeClient struct {
	paho.Client
	published  []published
	subscribed map[string]paho.MessageHandler
	pubErr     error
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	c.published = append(c.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newToken(c.pubErr)
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	if c.subscribed == nil {
		c.subscribed = map[string]paho.MessageHandler{}
	}
	c.subscribed[topic] = cb
	return newToken(nil)
}

type fakeMessage struct {
	paho.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

type fakeSubmitter struct {
	got       []model.Reading
	duplicate bool
	err       error
}

func (s *fakeSubmitter) Submit(_ context.Context, r model.Reading) (bool, error) {
	s.got = append(s.got, r)
	return s.duplicate, s.err
}

func TestStationFromTopic(t *testing.T) {
	station, err := StationFromTopic("aqi/+/reading", "aqi/roof-7/reading")
	require.NoError(t, err)
	assert.Equal(t, "roof-7", station)

	for _, topic := range []string{"aqi/roof-7/result", "aqi/reading", "aqi//reading", "other/roof-7/reading"} {
		_, err := StationFromTopic("aqi/+/reading", topic)
		assert.ErrorIs(t, err, ErrBadTopic, topic)
	}

	_, err = StationFromTopic("aqi/#", "aqi/x")
	assert.ErrorIs(t, err, ErrBadTopic)
}

func TestDecodeReading(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	r, err := DecodeReading("aqi/+/reading", "aqi/st-1/reading",
		[]byte(`{"id":"r-1","profile":"severe","values":{"PM2.5":180,"PM10":240}}`), now)
	require.NoError(t, err)
	assert.Equal(t, "r-1", r.ID)
	assert.Equal(t, "st-1", r.StationID)
	assert.Equal(t, "severe", r.Profile)
	assert.Equal(t, 180.0, r.Values["PM2.5"])
	assert.Equal(t, now, r.ReceivedAt)

	r, err = DecodeReading("aqi/+/reading", "aqi/st-1/reading", []byte(`{"values":{"PM2.5":1}}`), now)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Empty(t, r.Profile)

	_, err = DecodeReading("aqi/+/reading", "aqi/st-1/reading", []byte(`not json`), now)
	assert.Error(t, err)

	_, err = DecodeReading("aqi/+/reading", "aqi/st-1/reading", []byte(`{"id":"x"}`), now)
	assert.Error(t, err)

	_, err = DecodeReading("aqi/+/reading", "aqi/st-1/reading",
		[]byte(`{"id":"r-1","values":{"PM2.5":null,"PM10":240}}`), now)
	require.Error(t, err)
	assert.ErrorIs(t, err, aqi.ErrInvalidInput)
	assert.Contains(t, err.Error(), "PM2.5")
}

func TestSubscriberHandle(t *testing.T) {
	require.NoError(t, logging.Init())
	client := &fakeClient{}
	sub := &fakeSubmitter{}

	_, err := NewSubscriber(client, "aqi/readings", sub)
	require.ErrorIs(t, err, ErrBadTopic)

	s, err := NewSubscriber(client, "aqi/+/reading", sub)
	require.NoError(t, err)
	require.NoError(t, s.Subscribe(context.Background()))
	handler, ok := client.subscribed["aqi/+/reading"]
	require.True(t, ok)

	handler(client, fakeMessage{topic: "aqi/st-9/reading", payload: []byte(`{"id":"a","values":{"PM2.5":3}}`)})
	handler(client, fakeMessage{topic: "aqi/st-9/reading", payload: []byte(`garbage`)})
	sub.err = errors.New("queue full")
	handler(client, fakeMessage{topic: "aqi/st-9/reading", payload: []byte(`{"id":"b","values":{"PM2.5":3}}`)})

	require.Len(t, sub.got, 2)
	assert.Equal(t, "a", sub.got[0].ID)
	assert.Equal(t, "st-9", sub.got[0].StationID)
	assert.Equal(t, "b", sub.got[1].ID)
}

func TestPublisher(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "aqi/{station}/result")
	assert.Equal(t, "mqtt", p.Name())

	ev := model.Evaluation{
		ID:          "e-1",
		StationID:   "st-3",
		Profile:     aqi.ProfileFull,
		Result:      aqi.Result{Score: 75, Category: "Moderate", Index: 1, Advisory: "ok", Color: "yellow", DominantPollutant: "PM10"},
		EvaluatedAt: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, client.published, 1)
	assert.Equal(t, "aqi/st-3/result", client.published[0].topic)
	assert.Equal(t, byte(1), client.published[0].qos)

	var body map[string]any
	require.NoError(t, json.Unmarshal(client.published[0].payload, &body))
	assert.Equal(t, "Moderate", body["category"])
	assert.Equal(t, "st-3", body["station_id"])

	ev.StationID = ""
	require.NoError(t, p.Publish(context.Background(), ev))
	assert.Len(t, client.published, 1, "station-less evaluations are not published")

	client.pubErr = errors.New("not connected")
	ev.StationID = "st-3"
	assert.Error(t, p.Publish(context.Background(), ev))
}

func TestFormatTopic(t *testing.T) {
	assert.Equal(t, "aqi/x/result", FormatTopic("aqi/{station}/result", "x"))
	assert.Equal(t, "static", FormatTopic("static", "x"))
}
