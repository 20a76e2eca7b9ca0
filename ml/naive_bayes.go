package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// varSmoothing is added to every variance, scaled by the largest feature
// variance, so constant columns do not divide by zero.
const varSmoothing = 1e-9

// NaiveBayes is a two-class Gaussian naive Bayes classifier.
type NaiveBayes struct {
	features  []string
	priors    [2]float64
	means     [2][]float64
	variances [2][]float64
}

type naiveBayesArtifact struct {
	Type      string       `json:"type"`
	Features  []string     `json:"features"`
	Priors    [2]float64   `json:"priors"`
	Means     [2][]float64 `json:"means"`
	Variances [2][]float64 `json:"variances"`
}

func NewNaiveBayes(features []string) *NaiveBayes {
	return &NaiveBayes{features: append([]string(nil), features...)}
}

func (nb *NaiveBayes) Features() []string {
	return append([]string(nil), nb.features...)
}

func (nb *NaiveBayes) Train(features [][]float64, labels []Label) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(nb.features)
	var byClass [2][]float64
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d fields, want %d", ErrSchemaMismatch, i, len(row), width)
		}
		label := labels[i]
		if !label.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidLabel, label)
		}
		byClass[label] = append(byClass[label], row...)
	}

	maxVariance := 0.0
	column := make([]float64, 0, len(features))
	for c := range byClass {
		n := len(byClass[c]) / width
		nb.priors[c] = float64(n) / float64(len(labels))
		nb.means[c] = make([]float64, width)
		nb.variances[c] = make([]float64, width)
		if n == 0 {
			continue
		}
		rows := mat.NewDense(n, width, byClass[c])
		for j := 0; j < width; j++ {
			column = mat.Col(column[:n], j, rows)
			mean, variance := stat.PopMeanVariance(column, nil)
			nb.means[c][j] = mean
			nb.variances[c][j] = variance
			maxVariance = math.Max(maxVariance, variance)
		}
	}
	epsilon := varSmoothing * math.Max(maxVariance, 1)
	for c := range nb.variances {
		for j := range nb.variances[c] {
			nb.variances[c][j] += epsilon
		}
	}
	return nil
}

func (nb *NaiveBayes) Predict(features []float64) (Label, error) {
	if nb.means[0] == nil || nb.means[1] == nil {
		return 0, fmt.Errorf("%w: model not trained", ErrModelUnavailable)
	}
	if len(features) != len(nb.features) {
		return 0, fmt.Errorf("%w: model expects %d fields, got %d", ErrSchemaMismatch, len(nb.features), len(features))
	}
	best := Rejected
	bestScore := math.Inf(-1)
	for _, class := range []Label{Rejected, Approved} {
		if nb.priors[class] == 0 {
			continue
		}
		score := math.Log(nb.priors[class])
		for j, x := range features {
			variance := nb.variances[class][j]
			diff := x - nb.means[class][j]
			score -= 0.5*math.Log(2*math.Pi*variance) + diff*diff/(2*variance)
		}
		if score > bestScore {
			bestScore = score
			best = class
		}
	}
	return best, nil
}

func (nb *NaiveBayes) Save(path string) error {
	if nb.means[0] == nil {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(naiveBayesArtifact{
		Type:      ModelNaiveBayes,
		Features:  nb.features,
		Priors:    nb.priors,
		Means:     nb.means,
		Variances: nb.variances,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (nb *NaiveBayes) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact naiveBayesArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return fmt.Errorf("decode naive bayes: %w", err)
	}
	if artifact.Type != ModelNaiveBayes {
		return fmt.Errorf("artifact type %q is not %s", artifact.Type, ModelNaiveBayes)
	}
	width := len(artifact.Features)
	if width == 0 {
		return errors.New("artifact lists no features")
	}
	for c := range artifact.Means {
		if len(artifact.Means[c]) != width || len(artifact.Variances[c]) != width {
			return fmt.Errorf("class %d: parameters do not match %d features", c, width)
		}
		if artifact.Priors[c] < 0 || artifact.Priors[c] > 1 {
			return fmt.Errorf("class %d: prior %v out of range", c, artifact.Priors[c])
		}
		for _, v := range artifact.Variances[c] {
			if artifact.Priors[c] > 0 && v <= 0 {
				return fmt.Errorf("class %d: non-positive variance", c)
			}
		}
	}
	nb.features = artifact.Features
	nb.priors = artifact.Priors
	nb.means = artifact.Means
	nb.variances = artifact.Variances
	return nil
}
