package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// FeatureNames is the feature order the regressor was trained with.
// Feeding features in any other order silently produces wrong estimates,
// so artifacts declaring a different order are rejected.
var FeatureNames = []string{"lag_1", "month", "district"}

// Tree is one regression tree in sklearn's flattened tree_ layout.
// Node i is a leaf when ChildrenLeft[i] == -1.
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
	Impurity      []float64 `json:"impurity,omitempty"`
	NodeSamples   []float64 `json:"n_node_samples,omitempty"`
}

const leaf = -1

// Predict walks the tree for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

func (t *Tree) validate(nFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays differ in length")
	}
	if len(t.Impurity) != 0 && len(t.Impurity) != n {
		return fmt.Errorf("impurity length %d, want %d", len(t.Impurity), n)
	}
	if len(t.NodeSamples) != 0 && len(t.NodeSamples) != n {
		return fmt.Errorf("n_node_samples length %d, want %d", len(t.NodeSamples), n)
	}

	// Every node must be reached at most once from the root; this rejects cycles
	// and shared children that would make Predict loop.
	visited := make([]bool, n)
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			return fmt.Errorf("node %d reached twice", i)
		}
		visited[i] = true

		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf {
			continue
		}
		if l < 0 || l >= n || r < 0 || r >= n {
			return fmt.Errorf("node %d has out of range children (%d, %d)", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || f >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d", i, f)
		}
		stack = append(stack, l, r)
	}
	return nil
}

// Forest is a random-forest regressor: the mean of its trees.
type Forest struct {
	FeatureNames []string `json:"feature_names,omitempty"`
	NFeatures    int      `json:"n_features,omitempty"`
	Trees        []Tree   `json:"trees"`
}

// NewForest validates trees against the lag_1, month, district feature layout.
func NewForest(trees []Tree) (*Forest, error) {
	f := &Forest{FeatureNames: slices.Clone(FeatureNames), NFeatures: len(FeatureNames), Trees: trees}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Forest) validate() error {
	if len(f.FeatureNames) > 0 {
		if !slices.Equal(f.FeatureNames, FeatureNames) {
			return fmt.Errorf("%w: feature order %v, want %v", ErrArtifact, f.FeatureNames, FeatureNames)
		}
	} else if f.NFeatures != len(FeatureNames) {
		return fmt.Errorf("%w: n_features %d, want %d", ErrArtifact, f.NFeatures, len(FeatureNames))
	}
	f.NFeatures = len(FeatureNames)

	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrArtifact)
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NFeatures); err != nil {
			return fmt.Errorf("%w: tree %d: %v", ErrArtifact, i, err)
		}
	}
	return nil
}

// ReadForest decodes and validates a forest artifact.
func ReadForest(r io.Reader) (*Forest, error) {
	var f Forest
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: forest: %v", ErrArtifact, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadForest reads a forest artifact from disk.
func LoadForest(path string) (*Forest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	defer func() { _ = file.Close() }()
	return ReadForest(file)
}

// Predict averages the tree predictions for x.
func (f *Forest) Predict(x []float64) float64 {
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// FeatureImportances returns impurity-based importances, normalized per tree
// and averaged. ok is false when the artifact carries no impurity statistics.
func (f *Forest) FeatureImportances() (importances []float64, ok bool) {
	total := make([]float64, f.NFeatures)
	used := 0

	for ti := range f.Trees {
		t := &f.Trees[ti]
		if len(t.Impurity) == 0 || len(t.NodeSamples) == 0 {
			return nil, false
		}

		tree := make([]float64, f.NFeatures)
		for i, l := range t.ChildrenLeft {
			if l == leaf {
				continue
			}
			r := t.ChildrenRight[i]
			gain := t.NodeSamples[i]*t.Impurity[i] -
				t.NodeSamples[l]*t.Impurity[l] -
				t.NodeSamples[r]*t.Impurity[r]
			tree[t.Feature[i]] += gain
		}

		sum := 0.0
		for _, g := range tree {
			sum += g
		}
		if sum <= 0 {
			// single-leaf trees carry no split information
			continue
		}
		for i := range tree {
			total[i] += tree[i] / sum
		}
		used++
	}

	if used == 0 {
		return make([]float64, f.NFeatures), true
	}
	for i := range total {
		total[i] /= float64(used)
	}
	return total, true
}
