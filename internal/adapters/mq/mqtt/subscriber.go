package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/pkg/logger"
	"github.com/okian/airq/pkg/metrics"
)

// ErrBadTopic is returned when a topic does not carry a station id.
var ErrBadTopic = errors.New("topic does not match reading pattern")

// Submitter accepts readings for asynchronous evaluation.
type Submitter interface {
	Submit(ctx context.Context, r model.Reading) (duplicate bool, err error)
}

// readingPayload is the JSON body stations publish.
type readingPayload struct {
	ID      string             `json:"id"`
	Profile string             `json:"profile"`
	Values  model.RawValues `json:"values"`
}

// Subscriber turns broker messages into submitted readings.
type Subscriber struct {
	client    paho.Client
	topic     string // e.g. "aqi/+/reading"
	submitter Submitter
	now       func() time.Time
	logger    logger.Logger
}

// NewSubscriber creates a subscriber for the topic pattern. The pattern must
// contain exactly one single-level wildcard, which matches the station id.
func NewSubscriber(client paho.Client, topic string, s Submitter) (*Subscriber, error) {
	if wildcardIndex(topic) < 0 {
		return nil, fmt.Errorf("%w: %q needs one '+' segment for the station id", ErrBadTopic, topic)
	}
	return &Subscriber{
		client:    client,
		topic:     topic,
		submitter: s,
		now:       time.Now,
		logger:    logger.Get().Named("mqtt-subscriber"),
	}, nil
}

// Subscribe registers the message handler with QoS 1.
func (s *Subscriber) Subscribe(ctx context.Context) error {
	if err := wait(ctx, s.client.Subscribe(s.topic, qosAtLeastOnce, s.handle)); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	s.logger.Info(ctx, "subscribed to readings", logger.String("topic", s.topic))
	return nil
}

// Unsubscribe removes the subscription.
func (s *Subscriber) Unsubscribe(ctx context.Context) error {
	return wait(ctx, s.client.Unsubscribe(s.topic))
}

func (s *Subscriber) handle(_ paho.Client, msg paho.Message) {
	ctx := context.Background()
	r, err := DecodeReading(s.topic, msg.Topic(), msg.Payload(), s.now())
	if err != nil {
		metrics.RecordReadingRejected("mqtt", "decode")
		s.logger.Warn(ctx, "dropping undecodable reading", logger.String("topic", msg.Topic()), logger.Error(err))
		return
	}
	duplicate, err := s.submitter.Submit(ctx, r)
	switch {
	case err != nil:
		metrics.RecordReadingRejected("mqtt", "submit")
		s.logger.Warn(ctx, "reading not accepted",
			logger.String("readingID", r.ID), logger.String("station", r.StationID), logger.Error(err))
	case duplicate:
		s.logger.Debug(ctx, "duplicate reading ignored", logger.String("readingID", r.ID))
	}
}

// DecodeReading builds a Reading from a message on topic matching pattern.
// The station id is the topic segment under the pattern's '+'. A payload
// without id gets a generated one.
func DecodeReading(pattern, topic string, payload []byte, receivedAt time.Time) (model.Reading, error) {
	station, err := StationFromTopic(pattern, topic)
	if err != nil {
		return model.Reading{}, err
	}
	var p readingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return model.Reading{}, fmt.Errorf("decode reading payload: %w", err)
	}
	values, err := p.Values.Decode()
	if err != nil {
		return model.Reading{}, fmt.Errorf("reading payload: %w", err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return model.Reading{
		ID:         p.ID,
		StationID:  station,
		Profile:    p.Profile,
		Values:     values,
		ReceivedAt: receivedAt.UTC(),
	}, nil
}

// StationFromTopic extracts the station id from topic given pattern.
func StationFromTopic(pattern, topic string) (string, error) {
	idx := wildcardIndex(pattern)
	ps := strings.Split(pattern, "/")
	ts := strings.Split(topic, "/")
	if idx < 0 || len(ps) != len(ts) {
		return "", fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}
	for i := range ps {
		if i != idx && ps[i] != ts[i] {
			return "", fmt.Errorf("%w: %q", ErrBadTopic, topic)
		}
	}
	if ts[idx] == "" {
		return "", fmt.Errorf("%w: empty station in %q", ErrBadTopic, topic)
	}
	return ts[idx], nil
}

func wildcardIndex(pattern string) int {
	idx := -1
	for i, seg := range strings.Split(pattern, "/") {
		switch seg {
		case "+":
			if idx >= 0 {
				return -1
			}
			idx = i
		case "#":
			return -1
		}
	}
	return idx
}
