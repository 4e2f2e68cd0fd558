package sampler

import (
	"context"
	"errors"
	"time"

	"sysmon-agent/internal/model"
)

// Snapshot is one instantaneous reading of host gauges and cumulative
// counters. It is produced fresh each tick and owned by that tick.
type Snapshot struct {
	CPULoadPercent float64

	MemoryTotalBytes uint64
	MemoryUsedBytes  uint64
	MemoryFreeBytes  uint64

	// Cumulative byte counters summed over all active interfaces,
	// monotonically non-decreasing except across a counter reset.
	RxBytesTotal uint64
	TxBytesTotal uint64

	// ReadAt carries the monotonic clock reading used for interval math.
	// It must come from an unmodified time.Now().
	ReadAt time.Time
}

// Source produces a raw snapshot of the host. Implementations must honor the
// context; a read abandoned at its deadline is discarded by the sampler.
type Source interface {
	TakeSnapshot(ctx context.Context) (Snapshot, error)
}

// Consumer receives one record or one error per completed tick, in strict
// chronological order, from the sampler's tick goroutine.
type Consumer interface {
	HandleRecord(rec model.MetricsRecord)
	HandleError(err error)
}

var (
	// ErrSourceUnavailable marks a tick whose snapshot read failed
	// entirely: the host API could not be reached, or the read exceeded
	// the snapshot timeout.
	ErrSourceUnavailable = errors.New("snapshot source unavailable")

	// ErrPartialRead marks a tick where only a subset of cpu/memory/
	// network could be read. Treated as a full failure for the tick, so a
	// zeroed field is never mistaken for a real reading.
	ErrPartialRead = errors.New("partial snapshot read")

	// ErrAlreadyRunning is returned by Start on a running sampler.
	ErrAlreadyRunning = errors.New("sampler already running")
)
