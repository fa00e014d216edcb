package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/models"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/metrics"
)

// GeoService handles IP geolocation lookups with an in-process cache.
// Geolocation is near-static, so entries are never invalidated within the
// process lifetime. Concurrent misses on the same IP may both hit the
// external service; last insert wins.
type GeoService struct {
	cache   map[string]*models.GeoData
	cacheMu sync.RWMutex
	pacing  time.Duration
	client  *http.Client
	logger  *logrus.Logger
	metrics *metrics.Metrics
	apiURL  string
}

// NewGeoService creates a new geo location service
func NewGeoService(apiURL string, logger *logrus.Logger) *GeoService {
	return &GeoService{
		cache:  make(map[string]*models.GeoData),
		pacing: 100 * time.Millisecond, // informal ip-api.com rate limit
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  logger,
		metrics: metrics.NewMetrics(),
		apiURL:  apiURL,
	}
}

// Resolve returns geographic metadata for a bare IP. Cache hits return
// without any external call. Failures are not cached, so a later cycle
// may retry the same IP.
func (s *GeoService) Resolve(ctx context.Context, ip string) (*models.GeoData, bool) {
	parsed := net.ParseIP(ip)
	if parsed != nil && (parsed.IsLoopback() || parsed.IsUnspecified()) {
		return nil, false
	}

	s.cacheMu.RLock()
	cached, ok := s.cache[ip]
	s.cacheMu.RUnlock()
	if ok {
		s.metrics.RecordGeoLookup("hit")
		return cached, true
	}

	// Space out external lookups to respect the service's informal rate limit.
	select {
	case <-time.After(s.pacing):
	case <-ctx.Done():
		return nil, false
	}

	geo, err := s.lookup(ctx, ip)
	if err != nil {
		s.metrics.RecordGeoLookup("error")
		s.logger.WithError(err).WithField("ip", ip).Warn("Geo lookup failed")
		return nil, false
	}

	s.cacheMu.Lock()
	s.cache[ip] = geo
	size := len(s.cache)
	s.cacheMu.Unlock()

	s.metrics.RecordGeoLookup("miss")
	metrics.GeoCacheSize.Set(float64(size))

	s.logger.WithFields(logrus.Fields{
		"ip":      ip,
		"country": geo.Country,
		"city":    geo.City,
	}).Debug("Resolved geo location")

	return geo, true
}

func (s *GeoService) lookup(ctx context.Context, ip string) (*models.GeoData, error) {
	url := fmt.Sprintf("%s/%s", s.apiURL, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch geo data: %w", err)
	}
	defer resp.Body.Close()

	var geo models.GeoLocation
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !geo.IsValid() {
		return nil, fmt.Errorf("geo lookup failed: %s", geo.Message)
	}

	return geo.ToGeoData(), nil
}

// ExtractIP strips the port from a node address, returning the bare host.
func (s *GeoService) ExtractIP(address string) string {
	if address == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}

	// Addresses without a port come through as-is; anything after a stray
	// colon is discarded the way the seeds themselves report bare IPs.
	if idx := strings.Index(address, ":"); idx >= 0 {
		return address[:idx]
	}
	return address
}

// CacheSize returns the number of cached entries
func (s *GeoService) CacheSize() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return len(s.cache)
}

// SetPacing overrides the delay before external lookups
func (s *GeoService) SetPacing(d time.Duration) {
	s.pacing = d
}
