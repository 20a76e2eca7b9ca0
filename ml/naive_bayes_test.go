package ml

import (
	"math"
	"path/filepath"
	"testing"
)

func TestNaiveBayesTrainSaveLoad(t *testing.T) {
	features := [][]float64{
		{300, 8000},
		{350, 9000},
		{320, 8500},
		{800, 1000},
		{780, 1500},
		{820, 1200},
	}
	labels := []Label{Rejected, Rejected, Rejected, Approved, Approved, Approved}

	model := NewNaiveBayes([]string{"cibil_score", "loan_amount"})
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "nb.json")
	if err := model.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := LoadModel(ModelNaiveBayes, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		row  []float64
		want Label
	}{
		{row: []float64{310, 8700}, want: Rejected},
		{row: []float64{790, 1300}, want: Approved},
	}
	for _, tt := range tests {
		got, err := loaded.Predict(tt.row)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("Predict(%v) = %v, want %v", tt.row, got, tt.want)
		}
	}
}

func TestNaiveBayesSingleClass(t *testing.T) {
	model := NewNaiveBayes([]string{"a"})
	if err := model.Train([][]float64{{1}, {2}}, []Label{Approved, Approved}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := model.Predict([]float64{100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Approved {
		t.Fatalf("expected the only seen class, got %v", got)
	}
}

func TestNaiveBayesFitsClassMoments(t *testing.T) {
	features := [][]float64{
		{1, 10},
		{3, 10},
		{4, 2},
		{8, 6},
		{6, 4},
	}
	labels := []Label{Rejected, Rejected, Approved, Approved, Approved}

	model := NewNaiveBayes([]string{"a", "b"})
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// largest population variance is 8/3 on column a of the approved class
	epsilon := varSmoothing * (8.0 / 3.0)
	tests := []struct {
		class    Label
		prior    float64
		means    []float64
		variance []float64
	}{
		{class: Rejected, prior: 0.4, means: []float64{2, 10}, variance: []float64{1, 0}},
		{class: Approved, prior: 0.6, means: []float64{6, 4}, variance: []float64{8.0 / 3.0, 8.0 / 3.0}},
	}
	for _, tt := range tests {
		if math.Abs(model.priors[tt.class]-tt.prior) > 1e-12 {
			t.Errorf("class %d: prior = %v, want %v", tt.class, model.priors[tt.class], tt.prior)
		}
		for j := range tt.means {
			if math.Abs(model.means[tt.class][j]-tt.means[j]) > 1e-12 {
				t.Errorf("class %d column %d: mean = %v, want %v", tt.class, j, model.means[tt.class][j], tt.means[j])
			}
			want := tt.variance[j] + epsilon
			if math.Abs(model.variances[tt.class][j]-want) > 1e-12 {
				t.Errorf("class %d column %d: variance = %v, want %v", tt.class, j, model.variances[tt.class][j], want)
			}
		}
	}
}
