package stream

import (
	"context"
	"encoding/json"

	"sysmon-agent/internal/model"
)

// Sink delivers one envelope per completed tick to a backend. Implementations
// reconnect on failure; a send error is local to that tick.
type Sink interface {
	SendMetrics(ctx context.Context, rec model.MetricsRecord) error
	SendSampleError(ctx context.Context, e model.SampleError) error
	Close(ctx context.Context) error
}

func NewMetricsEnvelope(rec model.MetricsRecord) model.Envelope {
	return model.Envelope{Type: model.MetricTypeHost, NodeID: rec.NodeID, Timestamp: rec.Timestamp, Payload: rec}
}

func NewErrorEnvelope(e model.SampleError) model.Envelope {
	return model.Envelope{Type: model.MetricTypeSampleError, NodeID: e.NodeID, Timestamp: e.Timestamp, Payload: e}
}

func EncodeEnvelope(e model.Envelope) ([]byte, error) {
	return json.Marshal(e)
}
