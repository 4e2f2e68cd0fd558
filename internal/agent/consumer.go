package agent

import (
	"context"
	"log/slog"
	"time"

	"sysmon-agent/internal/model"
	"sysmon-agent/internal/stream"
)

// sinkConsumer forwards sampler output to the stream sink and tracks health.
// It only ever sees immutable records; a send failure is logged and counted,
// never propagated back into the tick path.
type sinkConsumer struct {
	sink        stream.Sink
	health      *HealthStatus
	logger      *slog.Logger
	nodeID      string
	sendTimeout time.Duration
}

func newSinkConsumer(sink stream.Sink, health *HealthStatus, logger *slog.Logger, nodeID string, sendTimeout time.Duration) *sinkConsumer {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &sinkConsumer{
		sink:        sink,
		health:      health,
		logger:      logger,
		nodeID:      nodeID,
		sendTimeout: sendTimeout,
	}
}

func (c *sinkConsumer) HandleRecord(rec model.MetricsRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), c.sendTimeout)
	defer cancel()
	if err := c.sink.SendMetrics(ctx, rec); err != nil {
		c.logger.Warn("metrics send failed", "error", err)
		c.health.SetStreamConnected(false)
		return
	}
	c.health.SetStreamConnected(true)
	c.health.MarkSample(rec.Timestamp)
}

func (c *sinkConsumer) HandleError(err error) {
	c.health.MarkSampleError()
	c.logger.Warn("sample failed", "error", err)

	e := model.SampleError{NodeID: c.nodeID, Timestamp: time.Now().UTC(), Message: err.Error()}
	ctx, cancel := context.WithTimeout(context.Background(), c.sendTimeout)
	defer cancel()
	if sendErr := c.sink.SendSampleError(ctx, e); sendErr != nil {
		c.logger.Warn("sample error send failed", "error", sendErr)
		c.health.SetStreamConnected(false)
		return
	}
	c.health.SetStreamConnected(true)
}
