package ml

import (
	"errors"
	"path/filepath"
	"testing"
)

// lookupModel predicts the label stored for the row's first value.
type lookupModel struct {
	features []string
	labels   map[float64]Label
	calls    int
	err      error
}

func (m *lookupModel) Features() []string { return m.features }

func (m *lookupModel) Predict(features []float64) (Label, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.labels[features[0]], nil
}

func TestClassifierPredictPreservesOrder(t *testing.T) {
	model := &lookupModel{
		features: IncomeLoanSchema.Columns,
		labels:   map[float64]Label{1: Approved, 2: Rejected, 3: Approved},
	}
	classifier := NewClassifier(model, 0)

	got, err := classifier.Predict(Batch{
		Schema: IncomeLoanSchema,
		Rows:   []FeatureRow{{3, 0}, {2, 0}, {1, 0}, {2, 0}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Label{Approved, Rejected, Approved, Rejected}
	if len(got) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestClassifierUnavailable(t *testing.T) {
	tests := []struct {
		name       string
		classifier *Classifier
	}{
		{name: "explicit", classifier: Unavailable(errors.New("not loaded"))},
		{name: "nil", classifier: nil},
		{name: "missing artifact", classifier: LoadClassifier(ModelDecisionTree, filepath.Join(t.TempDir(), "missing.json"), 16)},
		{name: "unknown type", classifier: LoadClassifier("svm", "model.json", 16)},
		{name: "no path", classifier: LoadClassifier(ModelDecisionTree, "", 16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.classifier.Available() {
				t.Fatal("expected classifier to be unavailable")
			}
			labels, err := tt.classifier.Predict(Batch{Schema: ApplicantSchema, Rows: []FeatureRow{make(FeatureRow, 11)}})
			if !errors.Is(err, ErrModelUnavailable) {
				t.Fatalf("expected ErrModelUnavailable, got %v", err)
			}
			if labels != nil {
				t.Fatalf("expected no output, got %v", labels)
			}
		})
	}
}

func TestClassifierSchemaMismatch(t *testing.T) {
	model := &lookupModel{features: ApplicantSchema.Columns}
	classifier := NewClassifier(model, 0)

	tests := []struct {
		name  string
		batch Batch
	}{
		{name: "other schema", batch: Batch{Schema: IncomeLoanSchema, Rows: []FeatureRow{{1, 2}}}},
		{name: "reordered columns", batch: Batch{
			Schema: Schema{Name: "shuffled", Columns: append([]string{"education", "no_of_dependents"}, ApplicantSchema.Columns[2:]...)},
			Rows:   []FeatureRow{make(FeatureRow, 11)},
		}},
		{name: "short row", batch: Batch{Schema: ApplicantSchema, Rows: []FeatureRow{make(FeatureRow, 11), {1, 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, err := classifier.Predict(tt.batch)
			if !errors.Is(err, ErrSchemaMismatch) {
				t.Fatalf("expected ErrSchemaMismatch, got %v", err)
			}
			if labels != nil {
				t.Fatalf("expected no partial output, got %v", labels)
			}
		})
	}
	if model.calls != 0 {
		t.Fatalf("model should not be called on a rejected batch, got %d calls", model.calls)
	}
}

func TestClassifierWrapsModelErrors(t *testing.T) {
	classifier := NewClassifier(&lookupModel{features: []string{"a"}, err: errors.New("boom")}, 0)
	_, err := classifier.Predict(Batch{Schema: Schema{Name: "a", Columns: []string{"a"}}, Rows: []FeatureRow{{1}}})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestClassifierCache(t *testing.T) {
	model := &lookupModel{features: []string{"a"}, labels: map[float64]Label{7: Approved}}
	classifier := NewClassifier(model, 8)
	batch := Batch{Schema: Schema{Name: "a", Columns: []string{"a"}}, Rows: []FeatureRow{{7}, {7}, {7}}}
	if _, err := classifier.Predict(batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", model.calls)
	}
}

func TestLoadClassifierFromArtifact(t *testing.T) {
	tree := NewDecisionTree(IncomeLoanSchema.Columns, 2)
	if err := tree.Train([][]float64{{1, 9}, {9, 1}}, []Label{Rejected, Approved}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "dt.json")
	if err := tree.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	classifier := LoadClassifier(ModelDecisionTree, path, 0)
	if !classifier.Available() {
		t.Fatalf("expected classifier, got reason %v", classifier.Reason())
	}
	labels, err := classifier.Predict(Batch{Schema: IncomeLoanSchema, Rows: []FeatureRow{{9, 1}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != Approved {
		t.Fatalf("expected Approved, got %v", labels[0])
	}
}
