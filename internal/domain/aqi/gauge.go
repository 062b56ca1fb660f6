package aqi

import (
	"fmt"
	"math"
)

// Band is one colored step of a gauge axis, covering [Start, End).
type Band struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Color string  `json:"color"`
}

// GaugeLayout is the static part of a gauge: axis range and colored bands.
type GaugeLayout struct {
	AxisMin float64 `json:"axis_min"`
	AxisMax float64 `json:"axis_max"`
	Bands   []Band  `json:"bands"`
}

// Gauge is the complete description a chart widget needs to render one
// classification.
type Gauge struct {
	Value   float64 `json:"value"`
	AxisMin float64 `json:"axis_min"`
	AxisMax float64 `json:"axis_max"`
	Bands   []Band  `json:"bands"`
	Title   string  `json:"title"`
}

// Validate checks the axis and that bands are ordered, non-overlapping and
// inside the axis.
func (g GaugeLayout) Validate() error {
	const op = "aqi.validate_gauge"
	if math.IsNaN(g.AxisMin) || math.IsNaN(g.AxisMax) || !(g.AxisMin < g.AxisMax) {
		return Errorf(op, ErrConfig, "axis [%g, %g] is empty", g.AxisMin, g.AxisMax)
	}
	prevEnd := g.AxisMin
	for i, b := range g.Bands {
		if !(b.Start < b.End) {
			return Errorf(op, ErrConfig, "band %d [%g, %g) is empty", i, b.Start, b.End)
		}
		if b.Start < prevEnd || b.End > g.AxisMax {
			return Errorf(op, ErrConfig, "band %d [%g, %g) overlaps or leaves the axis", i, b.Start, b.End)
		}
		if b.Color == "" {
			return Errorf(op, ErrConfig, "band %d has no color", i)
		}
		prevEnd = b.End
	}
	return nil
}

// Describe fills the layout with the value and title for r. The needle value
// is clamped to the axis; r.Score keeps the unclamped AQI.
func (g GaugeLayout) Describe(r Result) Gauge {
	return Gauge{
		Value:   math.Min(math.Max(r.Score, g.AxisMin), g.AxisMax),
		AxisMin: g.AxisMin,
		AxisMax: g.AxisMax,
		Bands:   append([]Band(nil), g.Bands...),
		Title:   GaugeTitle(r),
	}
}

// GaugeTitle names the dominant pollutant and the category of r.
func GaugeTitle(r Result) string {
	category := r.Category
	if !r.Classified() {
		category = "Unclassified"
	}
	pollutant := r.DominantPollutant
	if pollutant == "" {
		pollutant = "n/a"
	}
	return fmt.Sprintf("Main pollutant: %s | AQI category: %s", pollutant, category)
}
