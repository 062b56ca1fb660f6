package aqi

// Fallbacks returned for labels missing from a table, including the
// unclassified (empty) label.
const (
	DefaultAdvisory = "Be careful!"
	DefaultColor    = "black"
)

// LabelTable is a total lookup from category label to text. Labels absent
// from the table resolve to the fallback.
type LabelTable struct {
	entries  map[string]string
	fallback string
}

// NewLabelTable copies entries. Empty keys or values are rejected.
func NewLabelTable(entries map[string]string, fallback string) (LabelTable, error) {
	const op = "aqi.new_label_table"
	if fallback == "" {
		return LabelTable{}, Errorf(op, ErrConfig, "empty fallback")
	}
	t := LabelTable{entries: make(map[string]string, len(entries)), fallback: fallback}
	for k, v := range entries {
		if k == "" {
			return LabelTable{}, Errorf(op, ErrConfig, "empty label key")
		}
		if v == "" {
			return LabelTable{}, Errorf(op, ErrConfig, "empty value for %q", k)
		}
		t.entries[k] = v
	}
	return t, nil
}

// NewAdvisoryTable builds an advisory table falling back to DefaultAdvisory.
func NewAdvisoryTable(entries map[string]string) (LabelTable, error) {
	return NewLabelTable(entries, DefaultAdvisory)
}

// NewColorTable builds a color table falling back to DefaultColor.
func NewColorTable(entries map[string]string) (LabelTable, error) {
	return NewLabelTable(entries, DefaultColor)
}

func mustTable(t LabelTable, err error) LabelTable {
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the entry for label, or the fallback.
func (t LabelTable) Lookup(label string) string {
	if v, ok := t.entries[label]; ok && label != "" {
		return v
	}
	return t.Fallback()
}

// Fallback returns the default value. A zero LabelTable has no fallback
// configured and yields "".
func (t LabelTable) Fallback() string {
	return t.fallback
}

// Entries returns a copy of the configured entries.
func (t LabelTable) Entries() map[string]string {
	out := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

func (t LabelTable) validate(name string) error {
	if t.fallback == "" {
		return Errorf("aqi.validate_"+name, ErrConfig, "%s table not initialised", name)
	}
	return nil
}
