package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB opens the SQLite database and creates the prediction audit
// table.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT,
        sepal_length REAL NOT NULL,
        sepal_width REAL NOT NULL,
        petal_length REAL NOT NULL,
        petal_width REAL NOT NULL,
        label TEXT NOT NULL,
        label_index INTEGER NOT NULL,
        confidence REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at
        ON predictions(created_at DESC);
    `

	_, err = database.Exec(query)
	return err
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// PredictionRecord is one row of the audit log.
type PredictionRecord struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	Features   []float64 `json:"features"`
	Label      string    `json:"label"`
	LabelIndex int       `json:"label_index"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// SavePrediction appends a served prediction to the audit log.
func SavePrediction(rec PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if len(rec.Features) != 4 {
		return errors.New("expected 4 features")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := database.Exec(`
        INSERT INTO predictions (
            request_id, sepal_length, sepal_width, petal_length, petal_width,
            label, label_index, confidence, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		rec.Features[0], rec.Features[1], rec.Features[2], rec.Features[3],
		rec.Label, rec.LabelIndex, rec.Confidence, rec.CreatedAt,
	)
	return err
}

// RecentPredictions returns the newest audit rows, newest first.
func RecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := database.Query(`
        SELECT id, request_id, sepal_length, sepal_width, petal_length, petal_width,
               label, label_index, confidence, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		rec.Features = make([]float64, 4)
		err := rows.Scan(&rec.ID, &rec.RequestID,
			&rec.Features[0], &rec.Features[1], &rec.Features[2], &rec.Features[3],
			&rec.Label, &rec.LabelIndex, &rec.Confidence, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
