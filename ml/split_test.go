package ml

import "testing"

func TestSplitKeepsPairsAligned(t *testing.T) {
	features := make([]FeatureRow, 10)
	labels := make([]Label, 10)
	for i := range features {
		features[i] = FeatureRow{float64(i)}
		labels[i] = Label(i % 2)
	}

	trainX, trainY, testX, testY := Split(features, labels, 0.3, 7)
	if len(trainX) != 7 || len(testX) != 3 {
		t.Fatalf("expected 7/3 split, got %d/%d", len(trainX), len(testX))
	}
	allX := append(append([]FeatureRow{}, trainX...), testX...)
	allY := append(append([]Label{}, trainY...), testY...)
	for i, row := range allX {
		if label := allY[i]; Label(int(row[0])%2) != label {
			t.Fatalf("row %v paired with label %d", row, allY[i])
		}
	}

	again, _, _, _ := Split(features, labels, 0.3, 7)
	for i := range again {
		if again[i][0] != trainX[i][0] {
			t.Fatal("same seed produced a different split")
		}
	}
}
