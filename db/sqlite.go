package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"loandesk/ml"
)

var database *sql.DB

var ErrNotInitialized = errors.New("database not initialized")

// InitDB opens the SQLite audit database and creates its tables
func InitDB(path string) error {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source VARCHAR(20) NOT NULL,
        schema_name VARCHAR(20) NOT NULL,
        features TEXT NOT NULL,
        predicted_label INTEGER NOT NULL,
        predicted_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS evaluation_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source VARCHAR(50) NOT NULL,
        total INTEGER NOT NULL,
        correct INTEGER NOT NULL,
        incorrect INTEGER NOT NULL,
        accuracy_pct REAL NOT NULL,
        precision REAL,
        recall REAL,
        evaluated_at DATETIME NOT NULL
    );
    `
	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	database = conn
	return nil
}

func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// SavePrediction records one single-applicant classification
func SavePrediction(source string, schema ml.Schema, row ml.FeatureRow, label ml.Label) error {
	if database == nil {
		return ErrNotInitialized
	}
	features := make(map[string]float64, len(row))
	for i, v := range row {
		if i < schema.Width() {
			features[schema.Columns[i]] = v
		}
	}
	payload, err := json.Marshal(features)
	if err != nil {
		return err
	}
	_, err = database.Exec(`
        INSERT INTO predictions (source, schema_name, features, predicted_label, predicted_at)
        VALUES (?, ?, ?, ?, ?)`,
		source, schema.Name, string(payload), int(label), time.Now().UTC())
	return err
}

type PredictionLog struct {
	Source      string             `json:"source"`
	Schema      string             `json:"schema"`
	Features    map[string]float64 `json:"features"`
	Label       ml.Label           `json:"label"`
	PredictedAt time.Time          `json:"predicted_at"`
}

func LoadPredictions(limit int) ([]PredictionLog, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := database.Query(`
        SELECT source, schema_name, features, predicted_label, predicted_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]PredictionLog, 0)
	for rows.Next() {
		var entry PredictionLog
		var features string
		var label int
		if err := rows.Scan(&entry.Source, &entry.Schema, &features, &label, &entry.PredictedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &entry.Features); err != nil {
			return nil, err
		}
		entry.Label = ml.Label(label)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

type EvaluationLog struct {
	Source      string    `json:"source"`
	Total       int       `json:"total"`
	Correct     int       `json:"correct"`
	Incorrect   int       `json:"incorrect"`
	AccuracyPct float64   `json:"accuracy_pct"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

func SaveEvaluation(source string, result ml.EvaluationResult) error {
	if database == nil {
		return ErrNotInitialized
	}
	_, err := database.Exec(`
        INSERT INTO evaluation_log (
            source, total, correct, incorrect, accuracy_pct, precision, recall, evaluated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		source, result.Total, result.Correct, result.Incorrect,
		result.AccuracyPct, result.Precision, result.Recall, time.Now().UTC())
	return err
}

func LoadEvaluationLog(limit int) ([]EvaluationLog, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := database.Query(`
        SELECT source, total, correct, incorrect, accuracy_pct, precision, recall, evaluated_at
        FROM evaluation_log
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]EvaluationLog, 0)
	for rows.Next() {
		var log EvaluationLog
		if err := rows.Scan(&log.Source, &log.Total, &log.Correct, &log.Incorrect,
			&log.AccuracyPct, &log.Precision, &log.Recall, &log.EvaluatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
