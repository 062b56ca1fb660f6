package aqi

// Names of the built-in profiles.
const (
	ProfileFull   = "full"
	ProfileSevere = "severe"
)

// Profile bundles everything a deployment needs to classify readings: the
// input fields (and thus the feature order), the category table, advisory
// and color tables, the pollutants considered for the dominant pollutant and
// an optional gauge layout.
type Profile struct {
	Name       string
	Title      string
	Fields     Fields
	Table      CategoryTable
	Advisories LabelTable
	Colors     LabelTable
	Pollutants []string
	Gauge      *GaugeLayout
}

// FeatureKeys returns the ordered feature keys of the profile.
func (p *Profile) FeatureKeys() []string { return p.Fields.Keys() }

// Validate checks every table of the profile and that the pollutant keys are
// a non-empty subset of the feature keys.
func (p *Profile) Validate() error {
	const op = "aqi.validate_profile"
	if p.Name == "" {
		return Errorf(op, ErrConfig, "profile has no name")
	}
	if err := p.Fields.validate(); err != nil {
		return Wrap(op+"."+p.Name, ErrConfig, err)
	}
	if err := p.Table.Validate(); err != nil {
		return Wrap(op+"."+p.Name, ErrConfig, err)
	}
	if err := p.Advisories.validate("advisory"); err != nil {
		return Wrap(op+"."+p.Name, ErrConfig, err)
	}
	if err := p.Colors.validate("color"); err != nil {
		return Wrap(op+"."+p.Name, ErrConfig, err)
	}
	if err := checkPollutants(p.Fields.Defaults(), p.Pollutants); err != nil {
		return Wrap(op+"."+p.Name, ErrConfig, err)
	}
	if p.Gauge != nil {
		if err := p.Gauge.Validate(); err != nil {
			return Wrap(op+"."+p.Name, ErrConfig, err)
		}
	}
	return nil
}

// Features orders values by the profile schema and checks field bounds.
func (p *Profile) Features(values map[string]float64) (FeatureVector, error) {
	fv, err := NewFeatureVector(p.FeatureKeys(), values)
	if err != nil {
		return nil, err
	}
	if err := p.Fields.Check(fv); err != nil {
		return nil, err
	}
	return fv, nil
}

// Classify classifies score for fv with the profile tables.
func (p *Profile) Classify(fv FeatureVector, score float64) (Result, error) {
	return Classify(fv, score, p.Table, p.Advisories, p.Colors, p.Pollutants)
}

// Describe returns the gauge for r, or nil when the profile has no gauge.
func (p *Profile) Describe(r Result) *Gauge {
	if p.Gauge == nil {
		return nil
	}
	g := p.Gauge.Describe(r)
	return &g
}

var commonFields = Fields{
	{Key: KeyTemp, Label: "Temperature", Unit: "°C", Min: -10, Max: 50, Default: 25},
	{Key: KeyHumidity, Label: "Humidity", Unit: "%", Min: 0, Max: 100, Default: 60},
	{Key: KeyPM25, Label: "PM2.5", Unit: "µg/m³", Min: 0, Max: 500, Default: 50},
	{Key: KeyPM10, Label: "PM10", Unit: "µg/m³", Min: 0, Max: 500, Default: 80},
	{Key: KeyNO2, Label: "NO2", Unit: "ppb", Min: 0, Max: 1000, Default: 40},
	{Key: KeyO3, Label: "O3", Unit: "ppb", Min: 0, Max: 500, Default: 30},
	{Key: KeyCO, Label: "CO", Unit: "ppm", Min: 0, Max: 50, Default: 1},
}

var categoryColors = map[string]string{
	"Good":           "green",
	"Moderate":       "yellow",
	"Unhealthy SG":   "orange",
	"Unhealthy":      "red",
	"Very Unhealthy": "purple",
	"Hazardous":      "maroon",
}

// FullRange is the eight-feature profile covering the whole AQI scale with
// six categories.
func FullRange() *Profile {
	fields := append(append(Fields(nil), commonFields...),
		Field{Key: KeySO2, Label: "SO2", Unit: "ppb", Min: 0, Max: 500, Default: 5})
	return &Profile{
		Name:   ProfileFull,
		Title:  "Air Quality Index (AQI) Predictor",
		Fields: fields,
		Table: MustCategoryTable(
			[]float64{0, 50, 100, 150, 200, 300, 1000},
			[]string{"Good", "Moderate", "Unhealthy SG", "Unhealthy", "Very Unhealthy", "Hazardous"},
		),
		Advisories: mustTable(NewAdvisoryTable(map[string]string{
			"Good":           "Air quality is satisfactory. Enjoy outdoor activities.",
			"Moderate":       "Unusually sensitive people should reduce prolonged outdoor exertion.",
			"Unhealthy SG":   "Sensitive groups should limit prolonged outdoor exertion.",
			"Unhealthy":      "Wear a mask outdoors and reduce prolonged exertion.",
			"Very Unhealthy": "Stay indoors, limit outdoor exertion.",
			"Hazardous":      "Avoid all outdoor activity and keep windows closed.",
		})),
		Colors:     mustTable(NewColorTable(categoryColors)),
		Pollutants: []string{KeyPM25, KeyPM10, KeyNO2, KeyO3, KeyCO, KeySO2},
	}
}

// SevereRange is the seven-feature profile that only distinguishes the top
// three categories and renders as a gauge over [150, 500].
func SevereRange() *Profile {
	return &Profile{
		Name:   ProfileSevere,
		Title:  "Severe Air Quality Monitor",
		Fields: append(Fields(nil), commonFields...),
		Table: MustCategoryTable(
			[]float64{150, 200, 300, 500},
			[]string{"Unhealthy", "Very Unhealthy", "Hazardous"},
		),
		Advisories: mustTable(NewAdvisoryTable(map[string]string{
			"Unhealthy":      "Wear a mask outdoors, sensitive groups should stay inside.",
			"Very Unhealthy": "Stay indoors, limit outdoor exertion.",
			"Hazardous":      "Health alert: avoid going outside and keep windows closed.",
		})),
		Colors: mustTable(NewColorTable(map[string]string{
			"Unhealthy":      "orange",
			"Very Unhealthy": "purple",
			"Hazardous":      "maroon",
		})),
		Pollutants: []string{KeyPM25, KeyPM10, KeyNO2, KeyO3, KeyCO},
		Gauge: &GaugeLayout{
			AxisMin: 150,
			AxisMax: 500,
			Bands: []Band{
				{Start: 150, End: 200, Color: "orange"},
				{Start: 200, End: 300, Color: "purple"},
				{Start: 300, End: 500, Color: "maroon"},
			},
		},
	}
}

// Builtins returns fresh copies of the built-in profiles keyed by name.
func Builtins() map[string]*Profile {
	return map[string]*Profile{
		ProfileFull:   FullRange(),
		ProfileSevere: SevereRange(),
	}
}
