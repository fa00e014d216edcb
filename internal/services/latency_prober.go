package services

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/metrics"
)

// LatencyProber measures TCP connection setup time to a node address.
type LatencyProber struct {
	timeout time.Duration
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// NewLatencyProber creates a new latency prober
func NewLatencyProber(timeout time.Duration, logger *logrus.Logger) *LatencyProber {
	return &LatencyProber{
		timeout: timeout,
		logger:  logger,
		metrics: metrics.NewMetrics(),
	}
}

// Probe dials the address exactly as supplied and reports the elapsed
// wall-clock milliseconds on success. Any failure, including a missing port,
// reports absence rather than an error; probes never abort the pipeline.
func (p *LatencyProber) Probe(ctx context.Context, address string) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	elapsed := time.Since(start)
	if err != nil {
		p.metrics.RecordProbe(false, elapsed)
		p.logger.WithError(err).WithField("address", address).Debug("Latency probe failed")
		return 0, false
	}
	defer conn.Close()

	p.metrics.RecordProbe(true, elapsed)

	return elapsed.Milliseconds(), true
}
