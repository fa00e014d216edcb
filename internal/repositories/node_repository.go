package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/models"
)

// NodeRepository defines the interface for current node state access
type NodeRepository interface {
	UpsertNode(ctx context.Context, node *models.Node) error
	GetAllNodes(ctx context.Context) ([]*models.Node, error)
	// FindNode matches by exact pubkey or by address substring.
	FindNode(ctx context.Context, id string) (*models.Node, error)
	CountNodes(ctx context.Context) (int, error)
}

type nodeRepository struct {
	db *sql.DB
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(db *sql.DB) NodeRepository {
	return &nodeRepository{db: db}
}

const nodeColumns = `pubkey, address, version, status, last_seen, uptime, is_public,
	   storage_used, storage_committed, storage_usage_percent, credits, latency_ms,
	   country, city, lat, lon`

// UpsertNode replaces the whole row on conflict. Fields that are nil in the
// new record overwrite previous values with NULL, by contract.
func (r *nodeRepository) UpsertNode(ctx context.Context, node *models.Node) error {
	query := `
		INSERT INTO nodes (pubkey, address, version, status, last_seen, uptime, is_public,
			storage_used, storage_committed, storage_usage_percent, credits, latency_ms,
			country, city, lat, lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pubkey) DO UPDATE SET
			address = excluded.address,
			version = excluded.version,
			status = excluded.status,
			last_seen = excluded.last_seen,
			uptime = excluded.uptime,
			is_public = excluded.is_public,
			storage_used = excluded.storage_used,
			storage_committed = excluded.storage_committed,
			storage_usage_percent = excluded.storage_usage_percent,
			credits = excluded.credits,
			latency_ms = excluded.latency_ms,
			country = excluded.country,
			city = excluded.city,
			lat = excluded.lat,
			lon = excluded.lon
	`

	_, err := r.db.ExecContext(ctx, query,
		node.Pubkey, node.Address, node.Version, node.Status, node.LastSeen,
		node.Uptime, node.IsPublic, node.StorageUsed, node.StorageCommitted,
		node.StorageUsagePercent, node.Credits, node.LatencyMs,
		node.Country, node.City, node.Latitude, node.Longitude,
	)
	if err != nil {
		return fmt.Errorf("upsert node: %w", err)
	}

	return nil
}

func (r *nodeRepository) GetAllNodes(ctx context.Context) ([]*models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM nodes ORDER BY pubkey`, nodeColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all nodes: %w", err)
	}
	defer rows.Close()

	return r.scanNodes(rows)
}

func (r *nodeRepository) FindNode(ctx context.Context, id string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM nodes
		WHERE pubkey = ? OR instr(address, ?) > 0
		LIMIT 1
	`, nodeColumns)

	node := &models.Node{}
	err := r.db.QueryRowContext(ctx, query, id, id).Scan(
		&node.Pubkey, &node.Address, &node.Version, &node.Status, &node.LastSeen,
		&node.Uptime, &node.IsPublic, &node.StorageUsed, &node.StorageCommitted,
		&node.StorageUsagePercent, &node.Credits, &node.LatencyMs,
		&node.Country, &node.City, &node.Latitude, &node.Longitude,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find node: %w", err)
	}

	return node, nil
}

func (r *nodeRepository) CountNodes(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}

	return count, nil
}

// Helper function to scan multiple nodes
func (r *nodeRepository) scanNodes(rows *sql.Rows) ([]*models.Node, error) {
	var nodes []*models.Node

	for rows.Next() {
		node := &models.Node{}
		err := rows.Scan(
			&node.Pubkey, &node.Address, &node.Version, &node.Status, &node.LastSeen,
			&node.Uptime, &node.IsPublic, &node.StorageUsed, &node.StorageCommitted,
			&node.StorageUsagePercent, &node.Credits, &node.LatencyMs,
			&node.Country, &node.City, &node.Latitude, &node.Longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return nodes, nil
}
