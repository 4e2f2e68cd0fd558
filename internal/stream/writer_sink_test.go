package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sysmon-agent/internal/model"
)

func TestWriterSinkEmitsEnvelopeLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	rec := model.MetricsRecord{
		NodeID:    "node-a",
		Hostname:  "host-a",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		CPU:       model.CPUMetrics{LoadPercent: 42.5},
		Network:   model.NetworkMetrics{RxBytesPerSec: 1500, RxBytesTotal: 2500},
	}
	if err := sink.SendMetrics(context.Background(), rec); err != nil {
		t.Fatalf("SendMetrics: %v", err)
	}
	if err := sink.SendSampleError(context.Background(), model.SampleError{NodeID: "node-a", Message: "boom"}); err != nil {
		t.Fatalf("SendSampleError: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var envelope struct {
		Type    model.MetricType    `json:"type"`
		NodeID  string              `json:"node_id"`
		Payload model.MetricsRecord `json:"payload"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &envelope); err != nil {
		t.Fatalf("unmarshal metrics line: %v", err)
	}
	if envelope.Type != model.MetricTypeHost || envelope.NodeID != "node-a" {
		t.Errorf("envelope header = %s/%s", envelope.Type, envelope.NodeID)
	}
	if envelope.Payload.Network.RxBytesPerSec != 1500 {
		t.Errorf("payload rx rate = %v, want 1500", envelope.Payload.Network.RxBytesPerSec)
	}

	var errEnvelope struct {
		Type    model.MetricType  `json:"type"`
		Payload model.SampleError `json:"payload"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &errEnvelope); err != nil {
		t.Fatalf("unmarshal error line: %v", err)
	}
	if errEnvelope.Type != model.MetricTypeSampleError || errEnvelope.Payload.Message != "boom" {
		t.Errorf("error envelope = %s/%q", errEnvelope.Type, errEnvelope.Payload.Message)
	}
}

func TestWriterSinkCanceledContext(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.SendMetrics(ctx, model.MetricsRecord{}); err == nil {
		t.Error("expected error on canceled context")
	}
	if buf.Len() != 0 {
		t.Error("record written despite canceled context")
	}
}
