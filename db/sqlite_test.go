package db

import (
	"errors"
	"path/filepath"
	"testing"

	"loandesk/ml"
)

func TestEvaluationLog(t *testing.T) {
	if err := InitDB(filepath.Join(t.TempDir(), "audit.db")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer Close()

	first := ml.EvaluationResult{Total: 4, Correct: 3, Incorrect: 1, AccuracyPct: 75, Precision: 1, Recall: 2.0 / 3.0}
	second := ml.EvaluationResult{Total: 2, Correct: 2, AccuracyPct: 100}
	if err := SaveEvaluation("upload", first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := SaveEvaluation("testing", second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logs, err := LoadEvaluationLog(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(logs))
	}
	if logs[0].Source != "testing" || logs[1].AccuracyPct != 75 || logs[1].Incorrect != 1 {
		t.Fatalf("unexpected log order or values: %+v", logs)
	}
	if logs[0].EvaluatedAt.IsZero() {
		t.Fatal("expected evaluation timestamp")
	}
}

func TestPredictionLog(t *testing.T) {
	if err := InitDB(filepath.Join(t.TempDir(), "audit.db")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer Close()

	if err := SavePrediction("quick", ml.IncomeLoanSchema, ml.FeatureRow{100, 200}, ml.Approved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logs, err := LoadPredictions(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 || logs[0].Label != ml.Approved || logs[0].Features["loan_amount"] != 200 {
		t.Fatalf("unexpected predictions: %+v", logs)
	}
}

func TestNotInitialized(t *testing.T) {
	Close()
	if err := SaveEvaluation("x", ml.EvaluationResult{}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := LoadEvaluationLog(1); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
