// Package storage provides db-backed stores for the labeled sample corpus
// and trained model snapshots, on top of the engine abstraction.
package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/smsguard/smsguard/app/storage/engine"
	"github.com/smsguard/smsguard/lib/bayes"
)

// Samples is a storage for the labeled message corpus used for training and
// evaluation.
type Samples struct {
	*engine.SQL
	engine.RWLocker
}

// samples-related command constants
const (
	CmdCreateSamplesTable engine.DBCmd = iota + 100
	CmdCreateSamplesIndexes
	CmdAddSample
)

// samplesQueries holds all samples-related queries
var samplesQueries = engine.NewQueryMap().
	Add(CmdCreateSamplesTable, engine.Query{
		Sqlite: `CREATE TABLE IF NOT EXISTS samples (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
            class TEXT CHECK (class IN ('ham', 'spam')),
            message TEXT NOT NULL UNIQUE
        )`,
		Postgres: `CREATE TABLE IF NOT EXISTS samples (
            id SERIAL PRIMARY KEY,
            timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            class TEXT CHECK (class IN ('ham', 'spam')),
            message TEXT NOT NULL UNIQUE
        )`,
	}).
	Add(CmdAddSample, engine.Query{
		Sqlite: `INSERT OR REPLACE INTO samples (class, message) VALUES (?, ?)`,
		Postgres: `INSERT INTO samples (class, message) VALUES ($1, $2)
                  ON CONFLICT (message) DO UPDATE SET class = EXCLUDED.class`,
	}).
	AddSame(CmdCreateSamplesIndexes, `
		CREATE INDEX IF NOT EXISTS idx_samples_class ON samples(class);
		CREATE INDEX IF NOT EXISTS idx_samples_timestamp ON samples(timestamp)`)

// NewSamples creates a new Samples storage
func NewSamples(ctx context.Context, db *engine.SQL) (*Samples, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection is nil")
	}
	res := &Samples{SQL: db, RWLocker: db.MakeLock()}
	cfg := engine.TableConfig{
		Name:          "samples",
		CreateTable:   CmdCreateSamplesTable,
		CreateIndexes: CmdCreateSamplesIndexes,
		QueriesMap:    samplesQueries,
	}
	if err := engine.InitTable(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("failed to init samples storage: %w", err)
	}
	return res, nil
}

// Add adds a labeled sample to the storage, replacing the class of an
// already known message.
func (s *Samples) Add(ctx context.Context, class bayes.Class, message string) error {
	if !class.Valid() {
		return fmt.Errorf("invalid sample class: %q", string(class))
	}
	if message == "" {
		return fmt.Errorf("message can't be empty")
	}

	s.Lock()
	defer s.Unlock()

	query, err := samplesQueries.Pick(s.Type(), CmdAddSample)
	if err != nil {
		return fmt.Errorf("failed to get query: %w", err)
	}
	if _, err := s.ExecContext(ctx, query, class, message); err != nil {
		return fmt.Errorf("failed to add sample: %w", err)
	}
	return nil
}

// DeleteMessage removes a sample from the storage by its message
func (s *Samples) DeleteMessage(ctx context.Context, message string) error {
	s.Lock()
	defer s.Unlock()

	result, err := s.ExecContext(ctx, s.Adopt(`DELETE FROM samples WHERE message = ?`), message)
	if err != nil {
		return fmt.Errorf("failed to remove sample: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sample not found: %q", message)
	}
	return nil
}

// Read returns all messages of the given class, oldest first.
func (s *Samples) Read(ctx context.Context, class bayes.Class) ([]string, error) {
	if !class.Valid() {
		return nil, fmt.Errorf("invalid sample class: %q", string(class))
	}

	s.RLock()
	defer s.RUnlock()

	var messages []string
	query := s.Adopt(`SELECT message FROM samples WHERE class = ? ORDER BY id`)
	if err := s.SelectContext(ctx, &messages, query, class); err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}
	return messages, nil
}

// Messages returns the whole stored corpus as labeled training messages,
// oldest first.
func (s *Samples) Messages(ctx context.Context) ([]bayes.Message, error) {
	s.RLock()
	defer s.RUnlock()

	var rows []struct {
		Class   string `db:"class"`
		Message string `db:"message"`
	}
	if err := s.SelectContext(ctx, &rows, `SELECT class, message FROM samples ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}

	res := make([]bayes.Message, 0, len(rows))
	for _, row := range rows {
		res = append(res, bayes.Message{Class: bayes.Class(row.Class), Text: row.Message})
	}
	return res, nil
}

// Import adds labeled messages to the storage in a single transaction.
// If withCleanup is true all existing samples are removed first.
// Returns statistics about the stored corpus.
func (s *Samples) Import(ctx context.Context, messages []bayes.Message, withCleanup bool) (*SamplesStats, error) {
	for i, msg := range messages {
		if !msg.Class.Valid() {
			return nil, fmt.Errorf("invalid sample class %q at row %d", string(msg.Class), i)
		}
	}

	s.Lock()
	defer s.Unlock()

	tx, err := s.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if withCleanup {
		if _, err := tx.ExecContext(ctx, `DELETE FROM samples`); err != nil {
			return nil, fmt.Errorf("failed to remove old samples: %w", err)
		}
	}

	query, err := samplesQueries.Pick(s.Type(), CmdAddSample)
	if err != nil {
		return nil, fmt.Errorf("failed to get import query: %w", err)
	}

	added := 0
	for _, msg := range messages {
		if msg.Text == "" { // skip empty messages
			continue
		}
		if _, err = tx.ExecContext(ctx, query, msg.Class, msg.Text); err != nil {
			return nil, fmt.Errorf("failed to add sample: %w", err)
		}
		added++
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Printf("[DEBUG] imported %d samples, cleanup: %v", added, withCleanup)
	return s.stats(ctx)
}

// SamplesStats returns statistics about samples
type SamplesStats struct {
	TotalSpam int `db:"spam_count"`
	TotalHam  int `db:"ham_count"`
}

// String provides a string representation of the statistics
func (st *SamplesStats) String() string {
	return fmt.Sprintf("spam: %d, ham: %d", st.TotalSpam, st.TotalHam)
}

// Stats returns statistics about samples
func (s *Samples) Stats(ctx context.Context) (*SamplesStats, error) {
	s.RLock()
	defer s.RUnlock()
	return s.stats(ctx)
}

// stats returns statistics about samples without locking
func (s *Samples) stats(ctx context.Context) (*SamplesStats, error) {
	query := `
        SELECT
            COUNT(CASE WHEN class = 'spam' THEN 1 END) as spam_count,
            COUNT(CASE WHEN class = 'ham' THEN 1 END) as ham_count
        FROM samples`

	var stats SamplesStats
	if err := s.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}
