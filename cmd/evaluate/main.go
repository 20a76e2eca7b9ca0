package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/text/language"

	"loandesk/config"
	"loandesk/dataset"
	"loandesk/db"
	"loandesk/ml"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	featuresPath := flag.String("features", "", "feature CSV (defaults to the testing dataset)")
	labelsPath := flag.String("labels", "", "label CSV (defaults to the testing dataset)")
	lang := flag.String("lang", "id", "report language")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	record := flag.Bool("record", false, "append the result to the audit database")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	batch, labels, source, err := loadInputs(cfg, *featuresPath, *labelsPath)
	if err != nil {
		log.Fatal(err)
	}

	classifier := ml.LoadClassifier(cfg.ML.ModelType, cfg.ML.ModelPath, 0)
	result, err := ml.Evaluate(classifier, batch, labels)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}

	if *record {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		if err := db.SaveEvaluation("cli:"+source, result); err != nil {
			log.Printf("failed to record evaluation: %v", err)
		}
	}

	if *asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
		return
	}
	fmt.Print(ml.FormatReport(result, language.Make(*lang)))
}

// loadInputs reads the evaluation rows. With no paths given it loads the
// configured testing dataset through the store, so its encoding applies.
func loadInputs(cfg *config.Config, featuresPath, labelsPath string) (ml.Batch, []ml.Label, string, error) {
	if featuresPath == "" && labelsPath == "" {
		defs, err := cfg.DatasetDefinitions()
		if err != nil {
			return ml.Batch{}, nil, "", err
		}
		store, err := dataset.NewStore(defs)
		if err != nil {
			return ml.Batch{}, nil, "", err
		}
		ds, err := store.Load(dataset.Testing)
		if errors.Is(err, dataset.ErrUnknownDataset) {
			return ml.Batch{}, nil, "", errors.New("-features and -labels are both required when no testing dataset is configured")
		}
		if err != nil {
			return ml.Batch{}, nil, "", fmt.Errorf("failed to load testing dataset: %w", err)
		}
		return ds.Batch(), ds.Labels, dataset.Testing, nil
	}
	if featuresPath == "" || labelsPath == "" {
		return ml.Batch{}, nil, "", errors.New("-features and -labels must be given together")
	}

	batch, err := readBatch(featuresPath)
	if err != nil {
		return ml.Batch{}, nil, "", fmt.Errorf("failed to read features: %w", err)
	}
	labels, err := readLabels(labelsPath)
	if err != nil {
		return ml.Batch{}, nil, "", fmt.Errorf("failed to read labels: %w", err)
	}
	return batch, labels, featuresPath, nil
}

func readBatch(path string) (ml.Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		return ml.Batch{}, err
	}
	defer file.Close()
	return dataset.ReadBatch(file, path)
}

func readLabels(path string) ([]ml.Label, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	_, labels, err := dataset.ReadLabelTable(file)
	return labels, err
}
