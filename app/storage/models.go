package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smsguard/smsguard/app/storage/engine"
	"github.com/smsguard/smsguard/lib/bayes"
)

// Models is a storage for trained model snapshots. Each snapshot keeps the
// serialized model together with the evaluation accuracy at training time.
type Models struct {
	*engine.SQL
	engine.RWLocker
}

// ErrNoModel returned by Latest when no model has been trained yet
var ErrNoModel = errors.New("no trained model")

// models-related command constants
const (
	CmdCreateModelsTable engine.DBCmd = iota + 200
	CmdCreateModelsIndexes
	CmdSaveModel
)

// modelsQueries holds all models-related queries
var modelsQueries = engine.NewQueryMap().
	Add(CmdCreateModelsTable, engine.Query{
		Sqlite: `CREATE TABLE IF NOT EXISTS models (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
            alpha REAL NOT NULL,
            vocab_size INTEGER NOT NULL,
            accuracy REAL NOT NULL,
            data TEXT NOT NULL
        )`,
		Postgres: `CREATE TABLE IF NOT EXISTS models (
            id SERIAL PRIMARY KEY,
            timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            alpha REAL NOT NULL,
            vocab_size INTEGER NOT NULL,
            accuracy REAL NOT NULL,
            data TEXT NOT NULL
        )`,
	}).
	Add(CmdSaveModel, engine.Query{
		Sqlite:   `INSERT INTO models (alpha, vocab_size, accuracy, data) VALUES (?, ?, ?, ?)`,
		Postgres: `INSERT INTO models (alpha, vocab_size, accuracy, data) VALUES ($1, $2, $3, $4) RETURNING id`,
	}).
	AddSame(CmdCreateModelsIndexes, `CREATE INDEX IF NOT EXISTS idx_models_timestamp ON models(timestamp)`)

// ModelInfo describes a stored model snapshot
type ModelInfo struct {
	ID        int64     `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	Alpha     float64   `db:"alpha"`
	VocabSize int       `db:"vocab_size"`
	Accuracy  float64   `db:"accuracy"`
}

// String provides a string representation of the model info
func (m *ModelInfo) String() string {
	return fmt.Sprintf("model #%d, alpha: %.2f, vocab: %d, accuracy: %.2f%%",
		m.ID, m.Alpha, m.VocabSize, m.Accuracy*100)
}

// NewModels creates a new Models storage
func NewModels(ctx context.Context, db *engine.SQL) (*Models, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection is nil")
	}
	res := &Models{SQL: db, RWLocker: db.MakeLock()}
	cfg := engine.TableConfig{
		Name:          "models",
		CreateTable:   CmdCreateModelsTable,
		CreateIndexes: CmdCreateModelsIndexes,
		QueriesMap:    modelsQueries,
	}
	if err := engine.InitTable(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("failed to init models storage: %w", err)
	}
	return res, nil
}

// Save stores a trained model snapshot with its evaluation accuracy and
// returns the snapshot id.
func (m *Models) Save(ctx context.Context, model *bayes.Model, accuracy float64) (int64, error) {
	if model == nil {
		return 0, fmt.Errorf("model is nil")
	}
	data, err := json.Marshal(model)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize model: %w", err)
	}

	m.Lock()
	defer m.Unlock()

	query, err := modelsQueries.Pick(m.Type(), CmdSaveModel)
	if err != nil {
		return 0, fmt.Errorf("failed to get query: %w", err)
	}

	if m.Type() == engine.Postgres {
		var id int64
		if err := m.GetContext(ctx, &id, query, model.Alpha(), model.VocabSize(), accuracy, string(data)); err != nil {
			return 0, fmt.Errorf("failed to save model: %w", err)
		}
		return id, nil
	}

	res, err := m.ExecContext(ctx, query, model.Alpha(), model.VocabSize(), accuracy, string(data))
	if err != nil {
		return 0, fmt.Errorf("failed to save model: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get model id: %w", err)
	}
	return id, nil
}

// Latest loads the most recent model snapshot. Returns ErrNoModel if the
// storage has no snapshots.
func (m *Models) Latest(ctx context.Context) (*bayes.Model, *ModelInfo, error) {
	m.RLock()
	defer m.RUnlock()

	var row struct {
		ModelInfo
		Data string `db:"data"`
	}
	query := `SELECT id, timestamp, alpha, vocab_size, accuracy, data FROM models ORDER BY id DESC LIMIT 1`
	if err := m.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNoModel
		}
		return nil, nil, fmt.Errorf("failed to get latest model: %w", err)
	}

	model := &bayes.Model{}
	if err := json.Unmarshal([]byte(row.Data), model); err != nil {
		return nil, nil, fmt.Errorf("failed to deserialize model #%d: %w", row.ID, err)
	}
	return model, &row.ModelInfo, nil
}

// Count returns the number of stored model snapshots
func (m *Models) Count(ctx context.Context) (int, error) {
	m.RLock()
	defer m.RUnlock()

	var count int
	if err := m.GetContext(ctx, &count, `SELECT COUNT(*) FROM models`); err != nil {
		return 0, fmt.Errorf("failed to count models: %w", err)
	}
	return count, nil
}
