package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/internal/domain/types"
)

// StationPlaceholder is replaced by the station id in result topics.
const StationPlaceholder = "{station}"

// Publisher sends evaluations to the station's result topic.
type Publisher struct {
	client paho.Client
	topic  string // e.g. "aqi/{station}/result"
}

// NewPublisher creates a publisher for the topic template.
func NewPublisher(client paho.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Name identifies the sink in logs and metrics.
func (p *Publisher) Name() string { return "mqtt" }

// Publish sends ev as JSON. Evaluations without a station are not published.
func (p *Publisher) Publish(ctx context.Context, ev model.Evaluation) error {
	if ev.StationID == "" {
		return nil
	}
	payload, err := json.Marshal(types.FromEvaluation(ev))
	if err != nil {
		return fmt.Errorf("marshal evaluation %s: %w", ev.ID, err)
	}
	topic := FormatTopic(p.topic, ev.StationID)
	if err := wait(ctx, p.client.Publish(topic, qosAtLeastOnce, false, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// FormatTopic substitutes the station id into template.
func FormatTopic(template, station string) string {
	return strings.ReplaceAll(template, StationPlaceholder, station)
}
