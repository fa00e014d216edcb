package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/config"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/database"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/models"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/repositories"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/services"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }
func float64Ptr(v float64) *float64 { return &v }

type handlerEnv struct {
	router    *gin.Engine
	db        *sql.DB
	nodes     repositories.NodeRepository
	snapshots repositories.SnapshotRepository
	history   repositories.HistoryRepository
}

func newHandlerEnv(t *testing.T, creditsURL string) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLiteDB(&config.DatabaseConfig{
		URL: filepath.Join(t.TempDir(), "handler_test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	nodes := repositories.NewNodeRepository(db)
	snapshots := repositories.NewSnapshotRepository(db)
	history := repositories.NewHistoryRepository(db)
	credits := services.NewCreditsService(creditsURL, logger)

	handler := NewPodsHandler(nodes, snapshots, history, credits, logger)

	router := gin.New()
	router.GET("/pods", handler.GetPods)
	router.GET("/node/:id", handler.GetNode)
	router.GET("/node/:id/history", handler.GetNodeHistory)
	router.GET("/history", handler.GetFleetHistory)
	router.GET("/credits", handler.GetCredits)

	return &handlerEnv{router: router, db: db, nodes: nodes, snapshots: snapshots, history: history}
}

func (e *handlerEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	e.router.ServeHTTP(w, req)
	return w
}

func seedNode(t *testing.T, env *handlerEnv) {
	t.Helper()
	node := &models.Node{
		Pubkey:      "pk1",
		Address:     "203.0.113.7:9001",
		Version:     strPtr("1.2.0"),
		Status:      strPtr(models.StatusOnline),
		Uptime:      int64Ptr(3600),
		StorageUsed: int64Ptr(100),
		LatencyMs:   int64Ptr(42),
		Country:     strPtr("Finland"),
		City:        strPtr("Helsinki"),
		Latitude:    float64Ptr(60.17),
		Longitude:   float64Ptr(24.94),
	}
	if err := env.nodes.UpsertNode(context.Background(), node); err != nil {
		t.Fatalf("Failed to seed node: %v", err)
	}
}

func TestGetPods(t *testing.T) {
	env := newHandlerEnv(t, "")
	seedNode(t, env)

	w := env.get(t, "/pods")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp models.PodsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.TotalCount != 1 || len(resp.Pods) != 1 {
		t.Fatalf("Expected 1 pod, got total_count=%d len=%d", resp.TotalCount, len(resp.Pods))
	}

	pod := resp.Pods[0]
	if pod.Pubkey == nil || *pod.Pubkey != "pk1" {
		t.Errorf("Expected pubkey pk1, got %v", pod.Pubkey)
	}
	if pod.Geo == nil || pod.Geo.Country != "Finland" {
		t.Errorf("Expected nested geo object, got %+v", pod.Geo)
	}
	if pod.LatencyMs == nil || *pod.LatencyMs != 42 {
		t.Errorf("Expected latency 42, got %v", pod.LatencyMs)
	}
}

func TestGetPods_EmptyStore(t *testing.T) {
	env := newHandlerEnv(t, "")

	w := env.get(t, "/pods")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp models.PodsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.TotalCount != 0 {
		t.Errorf("Expected total_count=0, got %d", resp.TotalCount)
	}
	if resp.Pods == nil {
		t.Error("Expected empty pods array, got null")
	}
}

func TestGetNode(t *testing.T) {
	env := newHandlerEnv(t, "")
	seedNode(t, env)

	tests := []struct {
		name string
		path string
	}{
		{name: "by pubkey", path: "/node/pk1"},
		{name: "by address substring", path: "/node/203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(t, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}

			var pod models.PodDto
			if err := json.Unmarshal(w.Body.Bytes(), &pod); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if pod.Pubkey == nil || *pod.Pubkey != "pk1" {
				t.Errorf("Expected pubkey pk1, got %v", pod.Pubkey)
			}
		})
	}
}

func TestGetNode_NotFound(t *testing.T) {
	env := newHandlerEnv(t, "")
	seedNode(t, env)

	w := env.get(t, "/node/unknown")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["error"] != "Node not found" {
		t.Errorf("Expected error body, got %v", body)
	}
}

func TestGetNodeHistory(t *testing.T) {
	env := newHandlerEnv(t, "")
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		sample := &models.HistorySample{
			Pubkey:    "pk1",
			Timestamp: 1700000000 + i,
			LatencyMs: int64Ptr(10 + i),
			Status:    strPtr(models.StatusOnline),
		}
		if err := env.history.AppendSample(ctx, sample); err != nil {
			t.Fatalf("Failed to seed history: %v", err)
		}
	}

	w := env.get(t, "/node/pk1/history")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var samples []models.HistorySample
	if err := json.Unmarshal(w.Body.Bytes(), &samples); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(samples))
	}
	if samples[0].Timestamp != 1700000002 {
		t.Errorf("Expected newest sample first, got timestamp %d", samples[0].Timestamp)
	}
}

func TestGetNodeHistory_UnknownNodeReturnsEmptyList(t *testing.T) {
	env := newHandlerEnv(t, "")

	w := env.get(t, "/node/unknown/history")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != "[]" {
		t.Errorf("Expected empty JSON array, got %q", w.Body.String())
	}
}

func TestGetFleetHistory(t *testing.T) {
	env := newHandlerEnv(t, "")
	ctx := context.Background()

	for i := int64(0); i < 2; i++ {
		snapshot := &models.FleetSnapshot{
			Timestamp:    1700000000 + i,
			TotalNodes:   10,
			OnlineNodes:  7,
			TotalStorage: 5000,
		}
		if err := env.snapshots.CreateSnapshot(ctx, snapshot); err != nil {
			t.Fatalf("Failed to seed snapshot: %v", err)
		}
	}

	w := env.get(t, "/history")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var snapshots []models.FleetSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshots); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].Timestamp != 1700000001 {
		t.Errorf("Expected newest snapshot first, got timestamp %d", snapshots[0].Timestamp)
	}
}

func TestGetCredits_ProxiesUpstreamDocument(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pods":[{"pubkey":"pk1","credits":17}]}`))
	}))
	defer upstream.Close()

	env := newHandlerEnv(t, upstream.URL)

	w := env.get(t, "/credits")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"pods":[{"pubkey":"pk1","credits":17}]}` {
		t.Errorf("Expected upstream body passed through, got %q", w.Body.String())
	}
}

func TestGetCredits_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	env := newHandlerEnv(t, upstream.URL)

	w := env.get(t, "/credits")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["error"] != "Failed to fetch credits" {
		t.Errorf("Expected error body, got %v", body)
	}
}
