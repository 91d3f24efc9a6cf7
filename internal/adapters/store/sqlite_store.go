package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/core"
)

// SQLiteStore is a SQLite implementation of the ModelRepository interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite model store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS models (
			model_key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			vocabulary_size INTEGER,
			trained_at TIMESTAMP,
			saved_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Save stores a model, replacing any previous model with the same key
func (s *SQLiteStore) Save(ctx context.Context, model *core.TrainedModel, key string) error {
	payload, err := Encode(model)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO models (model_key, payload, vocabulary_size, trained_at, saved_at)
		VALUES (?, ?, ?, ?, ?)
	`, key, payload, model.VocabularySize(), model.TrainedAt.Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}

	s.logger.Debug("Model stored in SQLite", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}

// Load retrieves the model stored under key
func (s *SQLiteStore) Load(ctx context.Context, key string) (*core.TrainedModel, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM models WHERE model_key = ?
	`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no model stored under key %q", core.ErrModelNotFound, key)
		}
		return nil, fmt.Errorf("failed to query model: %w", err)
	}

	return Decode(payload)
}

// Delete removes a stored model
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE model_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	return nil
}

// Stop closes the database connection
func (s *SQLiteStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}

var _ core.ModelRepository = (*SQLiteStore)(nil)
