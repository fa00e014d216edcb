package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/models"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/repositories"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/metrics"
)

// RefreshMonitor drives one refresh cycle: directory fetch, aggregate
// snapshot, then per-node latency probing, geo enrichment and persistence.
//
// Snapshot, node rows and history samples are written without a spanning
// transaction; concurrent API reads may observe a snapshot ahead of the node
// rows from the same cycle. The dataset is advisory monitoring data, so this
// relaxation is deliberate.
type RefreshMonitor struct {
	directory *DirectoryClient
	prober    *LatencyProber
	geo       *GeoService
	nodes     repositories.NodeRepository
	snapshots repositories.SnapshotRepository
	history   repositories.HistoryRepository
	logger    *logrus.Logger
	metrics   *metrics.Metrics
}

// NewRefreshMonitor creates a new refresh monitor
func NewRefreshMonitor(
	directory *DirectoryClient,
	prober *LatencyProber,
	geo *GeoService,
	nodes repositories.NodeRepository,
	snapshots repositories.SnapshotRepository,
	history repositories.HistoryRepository,
	logger *logrus.Logger,
) *RefreshMonitor {
	return &RefreshMonitor{
		directory: directory,
		prober:    prober,
		geo:       geo,
		nodes:     nodes,
		snapshots: snapshots,
		history:   history,
		logger:    logger,
		metrics:   metrics.NewMetrics(),
	}
}

// RunCycle executes a single refresh cycle. A total fetch failure skips the
// whole cycle and leaves prior persisted state untouched; per-node
// persistence failures are logged and do not abort the remaining nodes.
func (m *RefreshMonitor) RunCycle(ctx context.Context) error {
	start := time.Now()

	pods, err := m.directory.FetchFleet(ctx)
	if err != nil {
		m.metrics.RecordRefreshCycle(false, time.Since(start))
		m.logger.WithError(err).Warn("Fleet fetch failed, skipping refresh cycle")
		return err
	}

	total, online, totalStorage := aggregate(pods)
	m.metrics.UpdateFleetCounts(total, online)

	snapshot := &models.FleetSnapshot{
		Timestamp:    time.Now().Unix(),
		TotalNodes:   total,
		OnlineNodes:  online,
		TotalStorage: totalStorage,
	}
	if err := m.snapshots.CreateSnapshot(ctx, snapshot); err != nil {
		m.metrics.RecordDatabaseError("create_snapshot")
		m.logger.WithError(err).Error("Failed to save fleet snapshot")
	}

	for i := range pods {
		m.processPod(ctx, &pods[i])
	}

	m.metrics.RecordRefreshCycle(true, time.Since(start))
	m.logger.WithFields(logrus.Fields{
		"total_nodes":  total,
		"online_nodes": online,
		"duration":     time.Since(start).String(),
	}).Info("Refresh cycle completed")

	return nil
}

func (m *RefreshMonitor) processPod(ctx context.Context, pod *models.RawPod) {
	address := stringValue(pod.Address)
	ip := m.geo.ExtractIP(address)

	var latency *int64
	if ip != "" {
		if ms, ok := m.prober.Probe(ctx, address); ok {
			latency = &ms
		}
	}

	var geo *models.GeoData
	if ip != "" {
		geo, _ = m.geo.Resolve(ctx, ip)
	}

	status := models.StatusOffline
	if pod.Uptime != nil && *pod.Uptime > 0 {
		status = models.StatusOnline
	}

	node := &models.Node{
		Pubkey:              stringValue(pod.Pubkey),
		Address:             address,
		Version:             pod.Version,
		Status:              &status,
		LastSeen:            pod.LastSeenTimestamp,
		Uptime:              pod.Uptime,
		IsPublic:            pod.IsPublic,
		StorageUsed:         pod.StorageUsed,
		StorageCommitted:    pod.StorageCommitted,
		StorageUsagePercent: pod.StorageUsagePercent,
		// Credits flow through the external proxy only, never the pipeline.
		Credits:   nil,
		LatencyMs: latency,
	}
	if geo != nil {
		node.Country = &geo.Country
		node.City = &geo.City
		node.Latitude = &geo.Latitude
		node.Longitude = &geo.Longitude
	}

	if err := m.nodes.UpsertNode(ctx, node); err != nil {
		m.metrics.RecordDatabaseError("upsert_node")
		m.logger.WithError(err).WithField("pubkey", node.Pubkey).Error("Failed to upsert node")
	}

	sample := &models.HistorySample{
		Pubkey:    node.Pubkey,
		Timestamp: time.Now().Unix(),
		LatencyMs: latency,
		Status:    &status,
	}
	if err := m.history.AppendSample(ctx, sample); err != nil {
		m.metrics.RecordDatabaseError("append_history")
		m.logger.WithError(err).WithField("pubkey", node.Pubkey).Error("Failed to append history sample")
	}
}

// aggregate computes the fleet snapshot counts: online means the node
// reported positive uptime.
func aggregate(pods []models.RawPod) (total, online int, totalStorage int64) {
	total = len(pods)
	for _, pod := range pods {
		if pod.Uptime != nil && *pod.Uptime > 0 {
			online++
		}
		if pod.StorageUsed != nil {
			totalStorage += *pod.StorageUsed
		}
	}
	return total, online, totalStorage
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
