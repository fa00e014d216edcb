package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/errors"
)

// CreditsService proxies the external pod-credits document. Credits are
// published by a separate system and are unrelated to the refresh pipeline.
type CreditsService struct {
	url    string
	client *http.Client
	logger *logrus.Logger
}

// NewCreditsService creates a new credits service
func NewCreditsService(url string, logger *logrus.Logger) *CreditsService {
	return &CreditsService{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// FetchCredits retrieves the upstream credits document verbatim.
func (s *CreditsService) FetchCredits(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch credits")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch credits: unexpected status %d", resp.StatusCode)
	}

	var doc json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode credits")
	}

	return doc, nil
}
