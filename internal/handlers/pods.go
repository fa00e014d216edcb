package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/models"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/repositories"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/services"
)

const (
	nodeHistoryLimit  = 100
	fleetHistoryLimit = 1440
)

// PodsHandler serves the read-only query API over the persisted fleet state.
// Reads are independent of refresh-cycle timing; a mid-flight cycle may be
// observed partially applied.
type PodsHandler struct {
	nodes     repositories.NodeRepository
	snapshots repositories.SnapshotRepository
	history   repositories.HistoryRepository
	credits   *services.CreditsService
	logger    *logrus.Logger
}

// NewPodsHandler creates a new pods handler
func NewPodsHandler(
	nodes repositories.NodeRepository,
	snapshots repositories.SnapshotRepository,
	history repositories.HistoryRepository,
	credits *services.CreditsService,
	logger *logrus.Logger,
) *PodsHandler {
	return &PodsHandler{
		nodes:     nodes,
		snapshots: snapshots,
		history:   history,
		credits:   credits,
		logger:    logger,
	}
}

// GetPods returns the current node list with enrichment fields flattened
// into a nested geo object.
func (h *PodsHandler) GetPods(c *gin.Context) {
	nodes, err := h.nodes.GetAllNodes(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get nodes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve nodes"})
		return
	}

	pods := make([]models.PodDto, 0, len(nodes))
	for _, node := range nodes {
		pods = append(pods, node.ToDto())
	}

	c.JSON(http.StatusOK, models.PodsResponse{
		TotalCount: len(pods),
		Pods:       pods,
	})
}

// GetNode returns a single node matched by pubkey or address substring.
func (h *PodsHandler) GetNode(c *gin.Context) {
	id := c.Param("id")

	node, err := h.nodes.FindNode(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to find node")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve node"})
		return
	}

	if node == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Node not found"})
		return
	}

	c.JSON(http.StatusOK, node.ToDto())
}

// GetNodeHistory returns the node's history samples, newest first.
func (h *PodsHandler) GetNodeHistory(c *gin.Context) {
	id := c.Param("id")

	samples, err := h.history.GetNodeHistory(c.Request.Context(), id, nodeHistoryLimit)
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to get node history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve node history"})
		return
	}

	if samples == nil {
		samples = []*models.HistorySample{}
	}

	c.JSON(http.StatusOK, samples)
}

// GetFleetHistory returns fleet snapshots, newest first.
func (h *PodsHandler) GetFleetHistory(c *gin.Context) {
	snapshots, err := h.snapshots.GetSnapshots(c.Request.Context(), fleetHistoryLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get fleet history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve fleet history"})
		return
	}

	if snapshots == nil {
		snapshots = []*models.FleetSnapshot{}
	}

	c.JSON(http.StatusOK, snapshots)
}

// GetCredits proxies the external credits document.
func (h *PodsHandler) GetCredits(c *gin.Context) {
	doc, err := h.credits.FetchCredits(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch credits")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch credits"})
		return
	}

	c.Data(http.StatusOK, "application/json", doc)
}
