package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []Label{Rejected, Rejected, Approved, Approved}

	model := NewDecisionTree([]string{"income_annum", "loan_amount"}, 2)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, err := model.Predict([]float64{0.15, 0.15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != Rejected {
		t.Fatalf("expected Rejected, got %v", label)
	}
	label, err = model.Predict([]float64{0.95, 0.95})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != Approved {
		t.Fatalf("expected Approved, got %v", label)
	}
}

func TestDecisionTreeDeepSubtreesStayReachable(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
	labels := []Label{Rejected, Approved, Rejected, Approved, Rejected, Approved, Rejected, Approved}

	model := NewDecisionTree([]string{"x"}, 5)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "dt.json")
	if err := model.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded := &DecisionTree{}
	if err := loaded.Load(path); err != nil {
		t.Fatalf("saved tree failed validation: %v", err)
	}
	for i, row := range features {
		got, err := loaded.Predict(row)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != labels[i] {
			t.Errorf("row %v: got %v, want %v", row, got, labels[i])
		}
	}
}

func TestDecisionTreePredictWrongWidth(t *testing.T) {
	model := NewDecisionTree([]string{"a", "b"}, 2)
	if err := model.Train([][]float64{{0, 0}, {1, 1}}, []Label{Rejected, Approved}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := model.Predict([]float64{1}); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestDecisionTreeLoadRejectsBadArtifacts(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "\x80\x04pickle"},
		{name: "wrong type", payload: `{"type":"naive_bayes","features":["a"],"nodes":[{"is_leaf":true}]}`},
		{name: "multiclass leaf", payload: `{"type":"decision_tree","features":["a"],"nodes":[{"is_leaf":true,"class_label":2}]}`},
		{name: "feature out of range", payload: `{"type":"decision_tree","features":["a"],"nodes":[{"feature_idx":3,"left_child":1,"right_child":2},{"is_leaf":true},{"is_leaf":true}]}`},
		{name: "cycle", payload: `{"type":"decision_tree","features":["a"],"nodes":[{"feature_idx":0,"left_child":0,"right_child":1},{"is_leaf":true}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.json")
			if err := os.WriteFile(path, []byte(tt.payload), 0o600); err != nil {
				t.Fatal(err)
			}
			if err := (&DecisionTree{}).Load(path); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}
