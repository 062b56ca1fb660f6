// Package types contains the JSON shapes exchanged over the API.
package types

import (
	"time"

	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/model"
)

// Classification is the wire form of an evaluation. Category is null when
// the score is outside the profile's table.
type Classification struct {
	ID                string             `json:"id"`
	StationID         string             `json:"station_id,omitempty"`
	Profile           string             `json:"profile"`
	AQI               float64            `json:"aqi"`
	Category          *string            `json:"category"`
	Advisory          string             `json:"advisory"`
	Color             string             `json:"color"`
	DominantPollutant *string            `json:"dominant_pollutant"`
	Gauge             *aqi.Gauge         `json:"gauge,omitempty"`
	Features          map[string]float64 `json:"features"`
	EvaluatedAt       time.Time          `json:"evaluated_at"`
}

// Profile is the wire form of a classification profile.
type Profile struct {
	Name       string            `json:"name"`
	Title      string            `json:"title"`
	Fields     []aqi.Field       `json:"fields"`
	Edges      []float64         `json:"edges"`
	Labels     []string          `json:"labels"`
	Advisories map[string]string `json:"advisories"`
	Colors     map[string]string `json:"colors"`
	Defaults   map[string]string `json:"defaults"`
	Pollutants []string          `json:"pollutants"`
	Gauge      *aqi.GaugeLayout  `json:"gauge,omitempty"`
}

// FromEvaluation converts an evaluation to its wire form.
func FromEvaluation(ev model.Evaluation) Classification {
	c := Classification{
		ID:          ev.ID,
		StationID:   ev.StationID,
		Profile:     ev.Profile,
		AQI:         ev.Result.Score,
		Advisory:    ev.Result.Advisory,
		Color:       ev.Result.Color,
		Gauge:       ev.Gauge,
		Features:    ev.Features.Map(),
		EvaluatedAt: ev.EvaluatedAt,
	}
	if ev.Result.Classified() {
		category := ev.Result.Category
		c.Category = &category
	}
	if ev.Result.DominantPollutant != "" {
		dominant := ev.Result.DominantPollutant
		c.DominantPollutant = &dominant
	}
	return c
}

// FromEvaluations converts a slice of evaluations.
func FromEvaluations(evs []model.Evaluation) []Classification {
	out := make([]Classification, len(evs))
	for i, ev := range evs {
		out[i] = FromEvaluation(ev)
	}
	return out
}

// FromProfile converts a profile to its wire form.
func FromProfile(p *aqi.Profile) Profile {
	return Profile{
		Name:       p.Name,
		Title:      p.Title,
		Fields:     append([]aqi.Field(nil), p.Fields...),
		Edges:      append([]float64(nil), p.Table.Edges...),
		Labels:     append([]string(nil), p.Table.Labels...),
		Advisories: p.Advisories.Entries(),
		Colors:     p.Colors.Entries(),
		Defaults: map[string]string{
			"advisory": p.Advisories.Fallback(),
			"color":    p.Colors.Fallback(),
		},
		Pollutants: append([]string(nil), p.Pollutants...),
		Gauge:      p.Gauge,
	}
}
