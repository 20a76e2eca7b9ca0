package ml

import (
	"fmt"
)

type EvaluationResult struct {
	Total       int     `json:"total"`
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	AccuracyPct float64 `json:"accuracy_pct"`

	// Approved is the positive class.
	TruePositive  int     `json:"true_positive"`
	FalsePositive int     `json:"false_positive"`
	TrueNegative  int     `json:"true_negative"`
	FalseNegative int     `json:"false_negative"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
}

// Evaluate predicts batch with p and compares the result element-wise with
// truth. Errors from p are returned unchanged.
func Evaluate(p Predictor, batch Batch, truth []Label) (EvaluationResult, error) {
	if batch.Len() != len(truth) {
		return EvaluationResult{}, fmt.Errorf("%w: %d feature rows, %d labels", ErrLengthMismatch, batch.Len(), len(truth))
	}
	if len(truth) == 0 {
		return EvaluationResult{}, fmt.Errorf("%w: nothing to evaluate", ErrEmptyInput)
	}
	for i, label := range truth {
		if !label.Valid() {
			return EvaluationResult{}, fmt.Errorf("%w: ground truth row %d is %d", ErrInvalidLabel, i, label)
		}
	}

	predicted, err := p.Predict(batch)
	if err != nil {
		return EvaluationResult{}, err
	}
	if len(predicted) != len(truth) {
		return EvaluationResult{}, fmt.Errorf("%w: classifier returned %d labels for %d rows", ErrLengthMismatch, len(predicted), len(truth))
	}
	return Compare(predicted, truth), nil
}

// Compare tallies equally long prediction and ground-truth sequences.
func Compare(predicted, truth []Label) EvaluationResult {
	result := EvaluationResult{Total: len(truth)}
	for i, want := range truth {
		got := predicted[i]
		if got == want {
			result.Correct++
		}
		switch {
		case got == Approved && want == Approved:
			result.TruePositive++
		case got == Approved && want == Rejected:
			result.FalsePositive++
		case got == Rejected && want == Rejected:
			result.TrueNegative++
		default:
			result.FalseNegative++
		}
	}
	result.Incorrect = result.Total - result.Correct
	if result.Total > 0 {
		result.AccuracyPct = 100 * float64(result.Correct) / float64(result.Total)
	}
	if predictedPositive := result.TruePositive + result.FalsePositive; predictedPositive > 0 {
		result.Precision = float64(result.TruePositive) / float64(predictedPositive)
	}
	if actualPositive := result.TruePositive + result.FalseNegative; actualPositive > 0 {
		result.Recall = float64(result.TruePositive) / float64(actualPositive)
	}
	return result
}
