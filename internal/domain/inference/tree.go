package inference

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/airq/internal/domain/aqi"
)

// Node is one node of a regression tree. A node with an empty Feature is a
// leaf; otherwise x[Feature] <= Threshold descends to Left, else Right.
type Node struct {
	Feature   string  `koanf:"feature" json:"feature,omitempty"`
	Threshold float64 `koanf:"threshold" json:"threshold,omitempty"`
	Left      int     `koanf:"left" json:"left,omitempty"`
	Right     int     `koanf:"right" json:"right,omitempty"`
	Leaf      float64 `koanf:"leaf" json:"leaf,omitempty"`
}

type compiledNode struct {
	feature   int // -1 for leaves
	threshold float64
	left      int
	right     int
	leaf      float64
}

// TreeEnsemble is a boosted sum of regression trees, as exported from a
// gradient boosting library: score = base + sum(tree_i(x)).
type TreeEnsemble struct {
	version  string
	features []string
	base     float64
	trees    [][]compiledNode
}

// NewTreeEnsemble validates the trees and resolves feature names to indices.
// Child indices must point forward so every walk terminates.
func NewTreeEnsemble(version string, features []string, base float64, trees [][]Node) (*TreeEnsemble, error) {
	const op = "inference.new_tree_ensemble"
	if err := checkFeatures(features); err != nil {
		return nil, aqi.Wrap(op, ErrLoadModel, err)
	}
	if len(trees) == 0 {
		return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("ensemble has no trees"))
	}
	if math.IsNaN(base) || math.IsInf(base, 0) {
		return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("base score is not finite"))
	}
	index := make(map[string]int, len(features))
	for i, f := range features {
		index[f] = i
	}

	compiled := make([][]compiledNode, len(trees))
	for t, nodes := range trees {
		if len(nodes) == 0 {
			return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("tree %d is empty", t))
		}
		out := make([]compiledNode, len(nodes))
		for i, n := range nodes {
			if n.Feature == "" {
				if math.IsNaN(n.Leaf) || math.IsInf(n.Leaf, 0) {
					return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("tree %d node %d: leaf is not finite", t, i))
				}
				out[i] = compiledNode{feature: -1, leaf: n.Leaf}
				continue
			}
			fi, ok := index[n.Feature]
			if !ok {
				return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("tree %d node %d: unknown feature %q", t, i, n.Feature))
			}
			if n.Left <= i || n.Right <= i || n.Left >= len(nodes) || n.Right >= len(nodes) {
				return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("tree %d node %d: children %d/%d out of order", t, i, n.Left, n.Right))
			}
			if math.IsNaN(n.Threshold) {
				return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("tree %d node %d: threshold is NaN", t, i))
			}
			out[i] = compiledNode{feature: fi, threshold: n.Threshold, left: n.Left, right: n.Right}
		}
		compiled[t] = out
	}

	return &TreeEnsemble{
		version:  version,
		features: append([]string(nil), features...),
		base:     base,
		trees:    compiled,
	}, nil
}

// Schema implements Predictor.
func (m *TreeEnsemble) Schema() []string { return append([]string(nil), m.features...) }

// Version returns the artifact version.
func (m *TreeEnsemble) Version() string { return m.version }

// Predict implements Predictor.
func (m *TreeEnsemble) Predict(ctx context.Context, fv aqi.FeatureVector) (float64, error) {
	x, err := prepare(ctx, m, fv)
	if err != nil {
		return 0, err
	}
	score := m.base
	for _, tree := range m.trees {
		score += walk(tree, x)
	}
	return finish(score)
}

func walk(tree []compiledNode, x []float64) float64 {
	i := 0
	for {
		n := tree[i]
		if n.feature < 0 {
			return n.leaf
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}
