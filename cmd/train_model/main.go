package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/text/language"

	"loandesk/config"
	"loandesk/dataset"
	"loandesk/ml"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	datasetName := flag.String("dataset", dataset.Training, "dataset to train on")
	modelType := flag.String("model_type", "", "decision_tree or naive_bayes (default from config)")
	modelPath := flag.String("model_path", "", "model output path (default from config)")
	maxDepth := flag.Int("max_depth", 10, "max tree depth")
	testRatio := flag.Float64("test_ratio", 0.2, "share of rows held out for the report")
	folds := flag.Int("folds", 5, "cross-validation folds on the training part; 1 disables")
	seed := flag.Int64("seed", time.Now().UnixNano(), "shuffle seed")
	lang := flag.String("lang", "id", "report language")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *modelType == "" {
		*modelType = cfg.ML.ModelType
	}
	if *modelPath == "" {
		*modelPath = cfg.ML.ModelPath
	}

	ds, err := loadDataset(cfg, *datasetName)
	if err != nil {
		log.Fatalf("failed to load %s dataset: %v", *datasetName, err)
	}
	if ds.Len() < 2 {
		log.Fatalf("dataset %s has %d rows; need at least 2", *datasetName, ds.Len())
	}
	log.Printf("loaded %d rows from %s (%s schema)", ds.Len(), *datasetName, ds.Schema.Name)

	trainX, trainY, testX, testY := ml.Split(ds.Rows, ds.Labels, *testRatio, *seed)

	if *folds > 1 {
		mean, err := crossValidate(*modelType, ds.Schema, *maxDepth, trainX, trainY, *folds)
		if err != nil {
			log.Fatalf("cross-validation failed: %v", err)
		}
		log.Printf("cross-validated accuracy over %d folds: %.2f%%", *folds, mean)
	}

	model, err := train(*modelType, ds.Schema, *maxDepth, trainX, trainY)
	if err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	if len(testX) > 0 {
		result, err := score(model, ds.Schema, testX, testY)
		if err != nil {
			log.Fatalf("failed to score held-out rows: %v", err)
		}
		fmt.Print(ml.FormatReport(result, language.Make(*lang)))
		log.Printf("precision=%.2f recall=%.2f", result.Precision, result.Recall)
	} else {
		log.Printf("no rows held out at test_ratio=%.2f; skipping report", *testRatio)
	}

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := model.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}
	fmt.Printf("model saved to %s\n", *modelPath)
}

func loadDataset(cfg *config.Config, name string) (*dataset.Dataset, error) {
	defs, err := cfg.DatasetDefinitions()
	if err != nil {
		return nil, err
	}
	store, err := dataset.NewStore(defs)
	if err != nil {
		return nil, err
	}
	return store.Load(name)
}

func train(modelType string, schema ml.Schema, maxDepth int, rows []ml.FeatureRow, labels []ml.Label) (ml.TrainableModel, error) {
	model, err := ml.NewModel(modelType, schema.Columns, maxDepth)
	if err != nil {
		return nil, err
	}
	features := make([][]float64, len(rows))
	for i, row := range rows {
		features[i] = row
	}
	if err := model.Train(features, labels); err != nil {
		return nil, err
	}
	return model, nil
}

// score runs the rows through the same Classifier the server uses.
func score(model ml.Model, schema ml.Schema, rows []ml.FeatureRow, truth []ml.Label) (ml.EvaluationResult, error) {
	return ml.Evaluate(ml.NewClassifier(model, 0), ml.Batch{Schema: schema, Rows: rows}, truth)
}

func crossValidate(modelType string, schema ml.Schema, maxDepth int, rows []ml.FeatureRow, labels []ml.Label, folds int) (float64, error) {
	if folds > len(rows) {
		folds = len(rows)
	}
	if folds < 2 {
		return 0, errors.New("not enough rows to cross-validate")
	}
	var total float64
	bar := pb.StartNew(folds)
	for k := 0; k < folds; k++ {
		bar.Increment()
		var trainX, testX []ml.FeatureRow
		var trainY, testY []ml.Label
		for i := range rows {
			if i%folds == k {
				testX = append(testX, rows[i])
				testY = append(testY, labels[i])
			} else {
				trainX = append(trainX, rows[i])
				trainY = append(trainY, labels[i])
			}
		}
		model, err := train(modelType, schema, maxDepth, trainX, trainY)
		if err != nil {
			bar.Finish()
			return 0, fmt.Errorf("fold %d: %w", k+1, err)
		}
		result, err := score(model, schema, testX, testY)
		if err != nil {
			bar.Finish()
			return 0, fmt.Errorf("fold %d: %w", k+1, err)
		}
		total += result.AccuracyPct
	}
	bar.Finish()
	return total / float64(folds), nil
}
