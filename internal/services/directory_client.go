package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/models"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/errors"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/metrics"
)

// DirectoryClient fetches the current fleet state from the seed endpoints.
// Seeds are tried in shuffled order; the first well-formed response wins.
type DirectoryClient struct {
	seeds   []string
	rpcPort int
	timeout time.Duration
	client  *http.Client
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// NewDirectoryClient creates a new directory client
func NewDirectoryClient(seeds []string, rpcPort int, timeout time.Duration, logger *logrus.Logger) *DirectoryClient {
	return &DirectoryClient{
		seeds:   seeds,
		rpcPort: rpcPort,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
		metrics: metrics.NewMetrics(),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
}

// FetchFleet queries the seeds for pod stats. If every seed fails or returns
// malformed data it returns errors.ErrAllSeedsFailed; the caller is expected
// to leave previously persisted state untouched in that case.
func (c *DirectoryClient) FetchFleet(ctx context.Context) ([]models.RawPod, error) {
	seeds := make([]string, len(c.seeds))
	copy(seeds, c.seeds)
	rand.Shuffle(len(seeds), func(i, j int) {
		seeds[i], seeds[j] = seeds[j], seeds[i]
	})

	for _, seed := range seeds {
		pods, err := c.fetchFromSeed(ctx, seed)
		if err != nil {
			c.metrics.RecordSeedFetch(false)
			c.logger.WithError(err).WithField("seed", seed).Warn("Failed to fetch from seed")
			continue
		}

		c.metrics.RecordSeedFetch(true)
		c.logger.WithFields(logrus.Fields{
			"seed": seed,
			"pods": len(pods),
		}).Debug("Fetched fleet from seed")

		return pods, nil
	}

	return nil, errors.ErrAllSeedsFailed
}

func (c *DirectoryClient) fetchFromSeed(ctx context.Context, seed string) ([]models.RawPod, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "get-pods-with-stats",
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL(seed), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(rpcResp.Result) == 0 {
		return nil, fmt.Errorf("response has no result")
	}

	return parseResult(rpcResp.Result)
}

// parseResult accepts the two shapes seeds are known to return: a bare pod
// list, or an object with a nested "pods" list. A null result is malformed,
// not an empty fleet; the nil check keeps it from decoding as one.
func parseResult(result json.RawMessage) ([]models.RawPod, error) {
	var pods []models.RawPod
	if err := json.Unmarshal(result, &pods); err == nil && pods != nil {
		return pods, nil
	}

	var wrapped struct {
		Pods []models.RawPod `json:"pods"`
	}
	if err := json.Unmarshal(result, &wrapped); err == nil && wrapped.Pods != nil {
		return wrapped.Pods, nil
	}

	return nil, fmt.Errorf("unrecognized result shape")
}

// rpcURL builds the endpoint for a seed. A seed carrying an explicit port
// (used by staging overrides) is taken as-is.
func (c *DirectoryClient) rpcURL(seed string) string {
	if strings.Contains(seed, ":") {
		return fmt.Sprintf("http://%s/rpc", seed)
	}
	return fmt.Sprintf("http://%s:%d/rpc", seed, c.rpcPort)
}
