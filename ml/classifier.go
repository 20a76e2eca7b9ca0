package ml

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Predictor is what the evaluation engine needs from a classifier.
type Predictor interface {
	Predict(batch Batch) ([]Label, error)
}

// Classifier wraps a loaded model for the lifetime of the process. A
// Classifier built by Unavailable (or a failed LoadClassifier) keeps the
// reason and fails every Predict with ErrModelUnavailable.
type Classifier struct {
	model    Model
	features []string
	reason   error
	cache    *lru.Cache[string, Label]
}

// NewClassifier wraps model. cacheSize > 0 enables an LRU cache of
// predictions keyed by row values.
func NewClassifier(model Model, cacheSize int) *Classifier {
	if model == nil {
		return Unavailable(errors.New("no model"))
	}
	c := &Classifier{
		model:    model,
		features: model.Features(),
	}
	if len(c.features) == 0 {
		return Unavailable(errors.New("model lists no features"))
	}
	if cacheSize > 0 {
		// only fails for a non-positive size
		c.cache, _ = lru.New[string, Label](cacheSize)
	}
	return c
}

func Unavailable(reason error) *Classifier {
	if reason == nil {
		reason = errors.New("no model loaded")
	}
	return &Classifier{reason: reason}
}

// LoadClassifier loads the artifact at path. It never returns nil; a missing
// or incompatible artifact gives an unavailable Classifier.
func LoadClassifier(modelType, path string, cacheSize int) *Classifier {
	if path == "" {
		return Unavailable(errors.New("model path not configured"))
	}
	model, err := LoadModel(modelType, path)
	if err != nil {
		return Unavailable(fmt.Errorf("load %s model from %s: %w", modelType, path, err))
	}
	return NewClassifier(model, cacheSize)
}

func (c *Classifier) Available() bool {
	return c != nil && c.model != nil
}

// Reason explains why the classifier is unavailable; nil when it is usable.
func (c *Classifier) Reason() error {
	if c == nil {
		return errors.New("no model loaded")
	}
	return c.reason
}

func (c *Classifier) Features() []string {
	if !c.Available() {
		return nil
	}
	return append([]string(nil), c.features...)
}

// Predict returns one label per row in input order. Any failure discards
// the whole batch.
func (c *Classifier) Predict(batch Batch) ([]Label, error) {
	if !c.Available() {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, c.Reason())
	}
	if !batch.Schema.Equal(c.features) {
		return nil, fmt.Errorf("%w: batch columns %v, model expects %v", ErrSchemaMismatch, batch.Schema.Columns, c.features)
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if batch.Len() == 0 {
		return []Label{}, nil
	}

	labels := make([]Label, batch.Len())
	for i, row := range batch.Rows {
		label, err := c.predictRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		labels[i] = label
	}
	return labels, nil
}

func (c *Classifier) predictRow(row []float64) (Label, error) {
	var key string
	if c.cache != nil {
		key = rowKey(row)
		if label, ok := c.cache.Get(key); ok {
			return label, nil
		}
	}
	label, err := c.model.Predict(row)
	if err != nil {
		if errors.Is(err, ErrSchemaMismatch) || errors.Is(err, ErrModelUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if !label.Valid() {
		return 0, fmt.Errorf("%w: model returned non-binary label %d", ErrModelUnavailable, label)
	}
	if c.cache != nil {
		c.cache.Add(key, label)
	}
	return label, nil
}

func rowKey(row []float64) string {
	buf := make([]byte, 8*len(row))
	for i, v := range row {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return string(buf)
}
