package model

import (
	"errors"
	"fmt"
)

// ErrInvalidMonth is returned for a month outside 1..12.
var ErrInvalidMonth = errors.New("month must be in 1..12")

// FeatureImportance is one feature's share of the model's split gain.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Importances is the feature importance breakdown with its provenance.
type Importances struct {
	// Source is "model" when computed from the forest, "illustrative" otherwise.
	Source   string              `json:"source"`
	Features []FeatureImportance `json:"features"`
}

// illustrativeImportances are presentation constants shown when the forest
// artifact lacks impurity statistics. They are not derived from the model.
var illustrativeImportances = []FeatureImportance{
	{Feature: "lag_1", Importance: 0.86},
	{Feature: "month", Importance: 0.13},
	{Feature: "district", Importance: 0.01},
}

// Adapter pairs the encoder with the regressor.
type Adapter struct {
	encoder *Encoder
	forest  *Forest
}

// NewAdapter wraps an encoder and a forest.
func NewAdapter(encoder *Encoder, forest *Forest) (*Adapter, error) {
	if encoder == nil || forest == nil {
		return nil, fmt.Errorf("%w: encoder and forest are required", ErrArtifact)
	}
	return &Adapter{encoder: encoder, forest: forest}, nil
}

// LoadAdapter loads both artifacts from disk.
func LoadAdapter(forestPath, encoderPath string) (*Adapter, error) {
	encoder, err := LoadEncoder(encoderPath)
	if err != nil {
		return nil, fmt.Errorf("load encoder %s: %w", encoderPath, err)
	}
	forest, err := LoadForest(forestPath)
	if err != nil {
		return nil, fmt.Errorf("load forest %s: %w", forestPath, err)
	}
	return NewAdapter(encoder, forest)
}

// Encoder exposes the district vocabulary.
func (a *Adapter) Encoder() *Encoder {
	return a.encoder
}

// Encode returns the training code of a district.
func (a *Adapter) Encode(district string) (int, error) {
	return a.encoder.Encode(district)
}

// Predict estimates the next enrollment from the previous period's value,
// the month and the district code.
func (a *Adapter) Predict(lag1 float64, month int, districtCode int) (float64, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidMonth, month)
	}
	if _, err := a.encoder.Decode(districtCode); err != nil {
		return 0, err
	}
	// order must match FeatureNames
	x := []float64{lag1, float64(month), float64(districtCode)}
	return a.forest.Predict(x), nil
}

// FeatureImportances reports the model's importances, or the illustrative
// constants when they cannot be computed.
func (a *Adapter) FeatureImportances() Importances {
	values, ok := a.forest.FeatureImportances()
	if !ok {
		return Importances{
			Source:   "illustrative",
			Features: append([]FeatureImportance(nil), illustrativeImportances...),
		}
	}

	out := Importances{Source: "model", Features: make([]FeatureImportance, len(values))}
	for i, v := range values {
		out.Features[i] = FeatureImportance{Feature: FeatureNames[i], Importance: v}
	}
	return out
}
