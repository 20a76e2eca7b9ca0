package ml

import (
	"fmt"
)

const (
	ModelDecisionTree = "decision_tree"
	ModelNaiveBayes   = "naive_bayes"
)

// NewModel returns an untrained model of the given type.
func NewModel(modelType string, features []string, maxDepth int) (TrainableModel, error) {
	switch modelType {
	case ModelDecisionTree:
		return NewDecisionTree(features, maxDepth), nil
	case ModelNaiveBayes:
		return NewNaiveBayes(features), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

func LoadModel(modelType, path string) (Model, error) {
	model, err := NewModel(modelType, nil, 0)
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}
