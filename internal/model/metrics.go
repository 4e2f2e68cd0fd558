package model

import "time"

type CPUMetrics struct {
	LoadPercent float64 `json:"load_percent"`
}

type MemoryMetrics struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type NetworkMetrics struct {
	RxBytesPerSec float64 `json:"rx_bytes_per_sec"`
	TxBytesPerSec float64 `json:"tx_bytes_per_sec"`
	RxBytesTotal  uint64  `json:"rx_bytes_total"`
	TxBytesTotal  uint64  `json:"tx_bytes_total"`
	// CounterReset marks a tick whose cumulative counters went backwards
	// (interface restart or counter wrap); the rates are clamped to zero.
	CounterReset bool `json:"counter_reset,omitempty"`
}

// MetricsRecord is the immutable output of one sampler tick.
type MetricsRecord struct {
	NodeID    string         `json:"node_id"`
	Hostname  string         `json:"hostname"`
	Timestamp time.Time      `json:"timestamp"`
	CPU       CPUMetrics     `json:"cpu"`
	Memory    MemoryMetrics  `json:"memory"`
	Network   NetworkMetrics `json:"network"`
}

// SampleError reports a tick whose snapshot read failed. It is delivered in
// place of a record so a failed tick is never mistaken for a zero reading.
type SampleError struct {
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
