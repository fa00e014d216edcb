package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/models"
)

// HistoryRepository defines the interface for per-node history samples.
// Samples are append-only; nothing updates or deletes them.
type HistoryRepository interface {
	AppendSample(ctx context.Context, sample *models.HistorySample) error
	// GetNodeHistory returns samples ordered newest first, bounded by limit.
	GetNodeHistory(ctx context.Context, pubkey string, limit int) ([]*models.HistorySample, error)
	CountSamples(ctx context.Context, pubkey string) (int, error)
}

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) AppendSample(ctx context.Context, sample *models.HistorySample) error {
	query := `
		INSERT INTO node_history (pubkey, timestamp, latency_ms, status)
		VALUES (?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		sample.Pubkey, sample.Timestamp, sample.LatencyMs, sample.Status,
	)
	if err != nil {
		return fmt.Errorf("append history sample: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		sample.ID = id
	}

	return nil
}

func (r *historyRepository) GetNodeHistory(ctx context.Context, pubkey string, limit int) ([]*models.HistorySample, error) {
	query := `
		SELECT id, pubkey, timestamp, latency_ms, status
		FROM node_history
		WHERE pubkey = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, pubkey, limit)
	if err != nil {
		return nil, fmt.Errorf("query node history: %w", err)
	}
	defer rows.Close()

	var samples []*models.HistorySample
	for rows.Next() {
		sample := &models.HistorySample{}
		err := rows.Scan(
			&sample.ID, &sample.Pubkey, &sample.Timestamp,
			&sample.LatencyMs, &sample.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history sample: %w", err)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return samples, nil
}

func (r *historyRepository) CountSamples(ctx context.Context, pubkey string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM node_history WHERE pubkey = ?`, pubkey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count history samples: %w", err)
	}

	return count, nil
}
