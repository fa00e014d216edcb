package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/models"
)

// SnapshotRepository defines the interface for fleet snapshot data access
type SnapshotRepository interface {
	CreateSnapshot(ctx context.Context, snapshot *models.FleetSnapshot) error
	// GetSnapshots returns snapshots ordered newest first, bounded by limit.
	GetSnapshots(ctx context.Context, limit int) ([]*models.FleetSnapshot, error)
	GetLatestSnapshot(ctx context.Context) (*models.FleetSnapshot, error)
}

type snapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) CreateSnapshot(ctx context.Context, snapshot *models.FleetSnapshot) error {
	query := `
		INSERT INTO fleet_snapshots (timestamp, total_nodes, online_nodes, total_storage)
		VALUES (?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		snapshot.Timestamp, snapshot.TotalNodes, snapshot.OnlineNodes, snapshot.TotalStorage,
	)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		snapshot.ID = id
	}

	return nil
}

func (r *snapshotRepository) GetSnapshots(ctx context.Context, limit int) ([]*models.FleetSnapshot, error) {
	query := `
		SELECT id, timestamp, total_nodes, online_nodes, total_storage
		FROM fleet_snapshots
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.FleetSnapshot
	for rows.Next() {
		snapshot := &models.FleetSnapshot{}
		err := rows.Scan(
			&snapshot.ID, &snapshot.Timestamp, &snapshot.TotalNodes,
			&snapshot.OnlineNodes, &snapshot.TotalStorage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return snapshots, nil
}

func (r *snapshotRepository) GetLatestSnapshot(ctx context.Context) (*models.FleetSnapshot, error) {
	query := `
		SELECT id, timestamp, total_nodes, online_nodes, total_storage
		FROM fleet_snapshots
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	snapshot := &models.FleetSnapshot{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&snapshot.ID, &snapshot.Timestamp, &snapshot.TotalNodes,
		&snapshot.OnlineNodes, &snapshot.TotalStorage,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	return snapshot, nil
}
