package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/airq/internal/domain/aqi"
)

// Supported artifact kinds.
const (
	KindLinear       = "linear"
	KindTreeEnsemble = "tree_ensemble"
)

// Artifact is the serialized form of a trained model. It is read from YAML
// (or JSON, which the YAML parser accepts).
type Artifact struct {
	Kind     string   `koanf:"kind"`
	Version  string   `koanf:"version"`
	Features []string `koanf:"features"`

	// linear
	Intercept float64   `koanf:"intercept"`
	Weights   []float64 `koanf:"weights"`

	// tree_ensemble
	BaseScore float64 `koanf:"base_score"`
	Trees     []Tree  `koanf:"trees"`
}

// Tree is a flat node list; node 0 is the root.
type Tree struct {
	Nodes []Node `koanf:"nodes"`
}

// Load reads and compiles the artifact at path.
func Load(ctx context.Context, path string) (Predictor, error) {
	const op = "inference.load"
	if err := ctx.Err(); err != nil {
		return nil, aqi.Wrap(op, ErrLoadModel, err)
	}
	if strings.TrimSpace(path) == "" {
		return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("empty model path"))
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("read %s: %w", path, err))
	}
	var a Artifact
	if err := k.UnmarshalWithConf("", &a, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("decode %s: %w", path, err))
	}
	p, err := a.Compile()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Compile turns the artifact into a Predictor.
func (a Artifact) Compile() (Predictor, error) {
	switch strings.ToLower(strings.TrimSpace(a.Kind)) {
	case KindLinear:
		return NewLinear(a.Version, a.Features, a.Intercept, a.Weights)
	case KindTreeEnsemble:
		trees := make([][]Node, len(a.Trees))
		for i, t := range a.Trees {
			trees[i] = t.Nodes
		}
		return NewTreeEnsemble(a.Version, a.Features, a.BaseScore, trees)
	default:
		return nil, aqi.Wrap("inference.compile", ErrLoadModel, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind))
	}
}
