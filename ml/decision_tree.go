package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

const defaultTreeDepth = 3

type DecisionTree struct {
	features []string
	maxDepth int
	nodes    []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel Label   `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeArtifact struct {
	Type     string     `json:"type"`
	Features []string   `json:"features"`
	Nodes    []TreeNode `json:"nodes"`
}

func NewDecisionTree(features []string, maxDepth int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = defaultTreeDepth
	}
	return &DecisionTree{
		features: append([]string(nil), features...),
		maxDepth: maxDepth,
	}
}

func (dt *DecisionTree) Features() []string {
	return append([]string(nil), dt.features...)
}

func (dt *DecisionTree) Train(features [][]float64, labels []Label) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	for i, row := range features {
		if len(row) != len(dt.features) {
			return fmt.Errorf("%w: row %d has %d fields, want %d", ErrSchemaMismatch, i, len(row), len(dt.features))
		}
	}
	for _, label := range labels {
		if !label.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidLabel, label)
		}
	}
	if dt.maxDepth <= 0 {
		dt.maxDepth = defaultTreeDepth
	}

	dt.nodes = dt.buildNode(features, labels, 0)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (Label, error) {
	if len(dt.nodes) == 0 {
		return 0, fmt.Errorf("%w: model not trained", ErrModelUnavailable)
	}
	if len(features) != len(dt.features) {
		return 0, fmt.Errorf("%w: tree expects %d fields, got %d", ErrSchemaMismatch, len(dt.features), len(features))
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(treeArtifact{
		Type:     ModelDecisionTree,
		Features: dt.features,
		Nodes:    dt.nodes,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Load reads an artifact written by Save and rejects anything that could
// make Predict walk outside the tree or return a non-binary label.
func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return fmt.Errorf("decode decision tree: %w", err)
	}
	if artifact.Type != ModelDecisionTree {
		return fmt.Errorf("artifact type %q is not %s", artifact.Type, ModelDecisionTree)
	}
	if err := validateTree(artifact); err != nil {
		return err
	}
	dt.features = artifact.Features
	dt.nodes = artifact.Nodes
	return nil
}

func validateTree(artifact treeArtifact) error {
	if len(artifact.Features) == 0 {
		return errors.New("artifact lists no features")
	}
	if len(artifact.Nodes) == 0 {
		return errors.New("artifact has no nodes")
	}
	for i, node := range artifact.Nodes {
		if node.IsLeaf {
			if !node.ClassLabel.Valid() {
				return fmt.Errorf("node %d: non-binary class label %d", i, node.ClassLabel)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(artifact.Features) {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		// children are always laid out after their parent
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(artifact.Nodes) {
				return fmt.Errorf("node %d: invalid child %d", i, child)
			}
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []Label, depth int) []TreeNode {
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: majorityLabel(labels),
		IsLeaf:     true,
	}}
	if depth >= dt.maxDepth || isPure(labels) {
		return leaf
	}

	bestFeature, threshold, ok := findBestSplit(features, labels)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: leaf[0].ClassLabel,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftNodes(leftNodes, 1)...)
	nodes = append(nodes, shiftNodes(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// shiftNodes rebases child indices of a subtree placed at offset.
func shiftNodes(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

func findBestSplit(features [][]float64, labels []Label) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		_, leftLabels, _, rightLabels := splitData(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, labels []Label, featureIdx int, threshold float64) ([][]float64, []Label, [][]float64, []Label) {
	var leftFeatures, rightFeatures [][]float64
	var leftLabels, rightLabels []Label
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func weightedGini(leftLabels, rightLabels []Label) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []Label) float64 {
	if len(labels) == 0 {
		return 0
	}
	approved := 0
	for _, label := range labels {
		if label == Approved {
			approved++
		}
	}
	p := float64(approved) / float64(len(labels))
	return 1 - p*p - (1-p)*(1-p)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// majorityLabel breaks ties in favour of Rejected.
func majorityLabel(labels []Label) Label {
	approved := 0
	for _, label := range labels {
		if label == Approved {
			approved++
		}
	}
	if approved*2 > len(labels) {
		return Approved
	}
	return Rejected
}

func isPure(labels []Label) bool {
	if len(labels) == 0 {
		return true
	}
	for _, label := range labels[1:] {
		if label != labels[0] {
			return false
		}
	}
	return true
}
