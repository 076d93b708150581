package scoring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/errs"
)

// ErrBlobNotFound is returned by a BlobStore when no model has been saved under a name
var ErrBlobNotFound = errors.New("model blob not found")

// BlobStore persists serialized models by name
type BlobStore interface {
	SaveModel(ctx context.Context, name string, blob []byte) error
	LoadModel(ctx context.Context, name string) ([]byte, error)
}

// FileStore keeps each model as <dir>/<name>.json
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid model name %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// SaveModel writes to a temporary file and renames it, so readers never see a partial blob
func (s *FileStore) SaveModel(ctx context.Context, name string, blob []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move model file into place: %w", err)
	}
	return nil
}

func (s *FileStore) LoadModel(ctx context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return blob, nil
}

// Persist serializes the model and saves it under its backend name
func Persist(ctx context.Context, store BlobStore, m Model) error {
	blob, err := m.MarshalBinary()
	if err != nil {
		return errs.Persistence("encode "+m.Name(), err)
	}
	if err := store.SaveModel(ctx, m.Name(), blob); err != nil {
		return errs.Persistence("save "+m.Name(), err)
	}
	return nil
}

// Load restores the model from the store. A missing blob leaves the model
// untrained; an unreadable or corrupt blob is logged as a persistence error and
// the model is reset. Load never fails the caller.
func Load(ctx context.Context, store BlobStore, m Model, logger *zap.Logger) {
	blob, err := store.LoadModel(ctx, m.Name())
	if errors.Is(err, ErrBlobNotFound) {
		logger.Info("No persisted model, starting untrained", zap.String("backend", m.Name()))
		m.Reset()
		return
	}
	if err != nil {
		logger.Warn("Failed to load persisted model, starting untrained",
			zap.String("backend", m.Name()),
			zap.Error(errs.Persistence("load "+m.Name(), err)))
		m.Reset()
		return
	}
	if err := m.UnmarshalBinary(blob); err != nil {
		logger.Warn("Persisted model is corrupt, starting untrained",
			zap.String("backend", m.Name()),
			zap.Error(errs.Persistence("decode "+m.Name(), err)))
		m.Reset()
		return
	}

	meta := m.Metadata()
	logger.Info("Loaded persisted model",
		zap.String("backend", m.Name()),
		zap.String("version", meta.Version),
		zap.Bool("trained", meta.Trained),
		zap.Float64("accuracy", meta.Accuracy))
}
