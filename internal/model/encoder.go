// Package model wraps the pre-fitted district label encoder and random-forest
// regressor exported from training. Artifacts are loaded once and never mutated.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrArtifact wraps failures to read or validate a model artifact.
var ErrArtifact = errors.New("invalid model artifact")

// UnknownDistrictError is returned for district names or codes outside the
// training vocabulary.
type UnknownDistrictError struct {
	District string
	Code     int
	ByCode   bool
}

func (e *UnknownDistrictError) Error() string {
	if e.ByCode {
		return fmt.Sprintf("unknown district code: %d", e.Code)
	}
	return fmt.Sprintf("unknown district: %q", e.District)
}

// Encoder maps district names to the integer codes fixed at training time.
type Encoder struct {
	classes []string
	index   map[string]int
}

type encoderArtifact struct {
	Classes []string `json:"classes"`
}

// NewEncoder builds an encoder where each class's code is its position.
func NewEncoder(classes []string) (*Encoder, error) {
	e := &Encoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range e.classes {
		if c == "" {
			return nil, fmt.Errorf("%w: empty class at position %d", ErrArtifact, i)
		}
		if _, dup := e.index[c]; dup {
			return nil, fmt.Errorf("%w: duplicate class %q", ErrArtifact, c)
		}
		e.index[c] = i
	}
	return e, nil
}

// ReadEncoder decodes an encoder artifact: {"classes": [...]}.
func ReadEncoder(r io.Reader) (*Encoder, error) {
	var art encoderArtifact
	if err := json.NewDecoder(r).Decode(&art); err != nil {
		return nil, fmt.Errorf("%w: encoder: %v", ErrArtifact, err)
	}
	if len(art.Classes) == 0 {
		return nil, fmt.Errorf("%w: encoder has no classes", ErrArtifact)
	}
	return NewEncoder(art.Classes)
}

// LoadEncoder reads an encoder artifact from disk.
func LoadEncoder(path string) (*Encoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	defer func() { _ = f.Close() }()
	return ReadEncoder(f)
}

// Encode returns the code of a district.
func (e *Encoder) Encode(district string) (int, error) {
	code, ok := e.index[district]
	if !ok {
		return 0, &UnknownDistrictError{District: district}
	}
	return code, nil
}

// Decode returns the district name of a code.
func (e *Encoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", &UnknownDistrictError{Code: code, ByCode: true}
	}
	return e.classes[code], nil
}

// Classes returns the training vocabulary in code order.
func (e *Encoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Len returns the vocabulary size.
func (e *Encoder) Len() int {
	return len(e.classes)
}
