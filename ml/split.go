package ml

import (
	"math"
	"math/rand"
)

// Split shuffles rows with seed and holds out testRatio of them. A ratio
// outside (0, 1) falls back to 0.2.
func Split(features []FeatureRow, labels []Label, testRatio float64, seed int64) (trainX []FeatureRow, trainY []Label, testX []FeatureRow, testY []Label) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	split := int(math.Round(float64(len(features)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}
