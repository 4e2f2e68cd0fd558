package agent

import (
	"sync/atomic"
	"time"
)

type HealthStatus struct {
	streamConnected atomic.Bool
	lastSampleAt    atomic.Int64
	sampleCount     atomic.Uint64
	errorCount      atomic.Uint64
}

func NewHealthStatus() *HealthStatus {
	h := &HealthStatus{}
	h.streamConnected.Store(false)
	return h
}

func (h *HealthStatus) SetStreamConnected(ok bool) {
	h.streamConnected.Store(ok)
}

func (h *HealthStatus) MarkSample(ts time.Time) {
	h.lastSampleAt.Store(ts.UnixNano())
	h.sampleCount.Add(1)
}

func (h *HealthStatus) MarkSampleError() {
	h.errorCount.Add(1)
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"stream_connected": h.streamConnected.Load(),
		"sample_count":     h.sampleCount.Load(),
		"error_count":      h.errorCount.Load(),
	}
	if v := h.lastSampleAt.Load(); v > 0 {
		out["last_sample_at"] = time.Unix(0, v).UTC()
	}
	return out
}
