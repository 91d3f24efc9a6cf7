package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/core"
)

// FileStore keeps models as JSON files. The key is the file path.
type FileStore struct {
	logger *zap.Logger
}

// NewFileStore creates a new file-backed model store
func NewFileStore(logger *zap.Logger) *FileStore {
	return &FileStore{logger: logger}
}

// Save writes the model atomically: a temporary file is renamed over the target
func (s *FileStore) Save(ctx context.Context, model *core.TrainedModel, path string) error {
	data, err := Encode(model)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move model file into place: %w", err)
	}

	s.logger.Debug("Model written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Load reads the model stored at path
func (s *FileStore) Load(ctx context.Context, path string) (*core.TrainedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s, run the train command first", core.ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	return Decode(data)
}

var _ core.ModelRepository = (*FileStore)(nil)
