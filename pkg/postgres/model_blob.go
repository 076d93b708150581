package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/manpower/pkg/core/scoring"
)

// SaveModel stores a serialized model under name, replacing any previous version
func (d *DB) SaveModel(ctx context.Context, name string, blob []byte) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO model_blob (name, blob, saved_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET blob = EXCLUDED.blob, saved_at = EXCLUDED.saved_at
	`, name, blob)
	if err != nil {
		return fmt.Errorf("failed to save model %s: %w", name, err)
	}
	return nil
}

// LoadModel returns the stored model blob, or scoring.ErrBlobNotFound
func (d *DB) LoadModel(ctx context.Context, name string) ([]byte, error) {
	var blob []byte
	err := d.pool.QueryRow(ctx, `SELECT blob FROM model_blob WHERE name = $1`, name).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", name, scoring.ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", name, err)
	}
	return blob, nil
}
