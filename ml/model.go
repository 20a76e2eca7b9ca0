package ml

// Model is a trained binary classifier artifact. Features lists the columns,
// in order, that Predict expects.
type Model interface {
	Features() []string
	Predict(features []float64) (Label, error)
}

type TrainableModel interface {
	Model
	Train(features [][]float64, labels []Label) error
	Save(path string) error
	Load(path string) error
}
