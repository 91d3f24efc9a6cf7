package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/core"
)

// MySQLStore is a MySQL implementation of the ModelRepository interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL model store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS models (
			model_key VARCHAR(255) PRIMARY KEY,
			payload LONGBLOB NOT NULL,
			vocabulary_size INT,
			trained_at TIMESTAMP NULL,
			saved_at TIMESTAMP NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Save stores a model, replacing any previous model with the same key
func (s *MySQLStore) Save(ctx context.Context, model *core.TrainedModel, key string) error {
	payload, err := Encode(model)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models (model_key, payload, vocabulary_size, trained_at, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			payload = VALUES(payload),
			vocabulary_size = VALUES(vocabulary_size),
			trained_at = VALUES(trained_at),
			saved_at = VALUES(saved_at)
	`, key, payload, model.VocabularySize(),
		model.TrainedAt.UTC().Format("2006-01-02 15:04:05"), time.Now().UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}

	s.logger.Debug("Model stored in MySQL", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}

// Load retrieves the model stored under key
func (s *MySQLStore) Load(ctx context.Context, key string) (*core.TrainedModel, error) {
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

// Stop closes the database connection
func (s *MySQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}

var _ core.ModelRepository = (*MySQLStore)(nil)
