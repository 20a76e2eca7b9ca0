package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"loandesk/ml"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, "http:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Http.Port != 9090 {
		t.Errorf("expected port 9090, got %d", config.Http.Port)
	}
	if config.Http.Timeout != 30*time.Second {
		t.Errorf("unexpected timeout %v", config.Http.Timeout)
	}
	if config.ML.ModelType != ml.ModelNaiveBayes {
		t.Errorf("unexpected model type %q", config.ML.ModelType)
	}

	defs, err := config.DatasetDefinitions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	if len(defs) != 2 || defs[0].Name != "testing" || defs[1].Name != "training" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
	if defs[0].Schema.Width() != 2 || defs[1].Schema.Width() != 11 {
		t.Fatalf("unexpected schemas: %d, %d", defs[0].Schema.Width(), defs[1].Schema.Width())
	}
	if defs[1].FeaturesPath != filepath.Join("data", "X_train.csv") {
		t.Fatalf("unexpected path %s", defs[1].FeaturesPath)
	}
}

func TestLoadDatasets(t *testing.T) {
	config, err := Load(writeConfig(t, `
ml:
  model_type: decision_tree
  model_path: /srv/model.json
datasets:
  dir: /srv/data
  watch: true
  sets:
    holdout:
      schema: applicant
      features: holdout_x.csv
      labels: /elsewhere/holdout_y.csv
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defs, err := config.DatasetDefinitions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "holdout" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
	if defs[0].FeaturesPath != filepath.Join("/srv/data", "holdout_x.csv") || defs[0].LabelsPath != "/elsewhere/holdout_y.csv" {
		t.Fatalf("unexpected paths: %+v", defs[0])
	}
	if !config.Datasets.Watch || config.ML.ModelType != ml.ModelDecisionTree {
		t.Fatalf("unexpected config: %+v", config)
	}
}

func TestLoadRejectsUnknownSchema(t *testing.T) {
	_, err := Load(writeConfig(t, `
datasets:
  sets:
    training:
      schema: credit_bureau
      features: x.csv
      labels: y.csv
`))
	if err == nil {
		t.Fatal("expected error for unknown schema")
	}
}
