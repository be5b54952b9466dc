package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"asset-uploader/internal/models"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, connectionString string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// AssetStore keeps asset rows in the assets table.
type AssetStore struct {
	db *sql.DB
}

func NewAssetStore(db *sql.DB) *AssetStore {
	return &AssetStore{db: db}
}

func (s *AssetStore) InsertAsset(ctx context.Context, id uuid.UUID, status models.AssetStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, status, ts)
		VALUES ($1, $2, NOW())
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

func (s *AssetStore) GetAssetStatus(ctx context.Context, id uuid.UUID) (models.AssetStatus, bool, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status
		FROM assets
		WHERE id = $1
	`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get asset status: %w", err)
	}
	return models.AssetStatus(status), true, nil
}

// UpdateAssetStatus only touches the row while it is still in the from status,
// so two racing completions cannot both record the transition.
func (s *AssetStore) UpdateAssetStatus(ctx context.Context, id uuid.UUID, from, to models.AssetStatus) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE assets
		SET status = $1, ts = NOW()
		WHERE id = $2 AND status = $3
	`, string(to), id, string(from))
	if err != nil {
		return 0, fmt.Errorf("failed to update asset status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows, nil
}

func (s *AssetStore) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM assets
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

func (s *AssetStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
