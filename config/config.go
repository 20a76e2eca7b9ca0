package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"loandesk/dataset"
	"loandesk/ml"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	ML struct {
		ModelType string `yaml:"model_type"`
		ModelPath string `yaml:"model_path"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"ml"`
	Datasets struct {
		Dir           string                   `yaml:"dir"`
		Watch         bool                     `yaml:"watch"`
		CreateMissing bool                     `yaml:"create_missing"`
		Sets          map[string]DatasetConfig `yaml:"sets"`
	} `yaml:"datasets"`
}

type DatasetConfig struct {
	Schema   string `yaml:"schema"`
	Features string `yaml:"features"`
	Labels   string `yaml:"labels"`
	Encoding string `yaml:"encoding"`
}

func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var c Config
	if err := yaml.NewDecoder(file).Decode(&c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "loandesk.db"
	}
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout == 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	if c.Http.MaxUploadBytes == 0 {
		c.Http.MaxUploadBytes = 32 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.ML.ModelType == "" {
		c.ML.ModelType = ml.ModelNaiveBayes
	}
	if c.ML.ModelPath == "" {
		c.ML.ModelPath = "models/loan_model.json"
	}
	if c.ML.CacheSize == 0 {
		c.ML.CacheSize = 1024
	}
	if c.Datasets.Dir == "" {
		c.Datasets.Dir = "data"
	}
	if len(c.Datasets.Sets) == 0 {
		c.Datasets.Sets = map[string]DatasetConfig{
			dataset.Training: {Schema: ml.ApplicantSchema.Name, Features: "X_train.csv", Labels: "y_train.csv"},
			dataset.Testing:  {Schema: ml.IncomeLoanSchema.Name, Features: "X_test.csv", Labels: "y_test.csv"},
		}
	}
}

func (c *Config) Validate() error {
	for name, set := range c.Datasets.Sets {
		if _, err := ml.SchemaByName(set.Schema); err != nil {
			return fmt.Errorf("dataset %s: %w", name, err)
		}
		if set.Features == "" || set.Labels == "" {
			return fmt.Errorf("dataset %s: features and labels files are required", name)
		}
	}
	return nil
}

// DatasetDefinitions resolves configured file names against Datasets.Dir.
func (c *Config) DatasetDefinitions() ([]dataset.Definition, error) {
	defs := make([]dataset.Definition, 0, len(c.Datasets.Sets))
	for name, set := range c.Datasets.Sets {
		schema, err := ml.SchemaByName(set.Schema)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		defs = append(defs, dataset.Definition{
			Name:         name,
			Schema:       schema,
			FeaturesPath: c.resolve(set.Features),
			LabelsPath:   c.resolve(set.Labels),
			Encoding:     set.Encoding,
		})
	}
	return defs, nil
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Datasets.Dir, path)
}
