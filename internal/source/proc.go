// Package source implements the /proc-backed snapshot source.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sysmon-agent/internal/sampler"
	"sysmon-agent/internal/system"
)

// ProcSource reads CPU, memory, and network state from /proc. It keeps the
// previous CPU counters internally: the busy percentage is a gauge derived
// from two counter readings, which is smoothing inside the source, not rate
// state of the sampler.
type ProcSource struct {
	logger *slog.Logger

	readCPU     func() (system.CPUCounters, error)
	readMemory  func() (system.MemoryInfo, error)
	readNetwork func() ([]system.InterfaceCounters, error)

	mu      sync.Mutex
	prevCPU *system.CPUCounters
}

func NewProcSource(logger *slog.Logger) *ProcSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcSource{
		logger:      logger,
		readCPU:     system.ReadCPUCounters,
		readMemory:  system.ReadMemoryInfo,
		readNetwork: system.ReadInterfaceCounters,
	}
}

func (p *ProcSource) TakeSnapshot(ctx context.Context) (sampler.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return sampler.Snapshot{}, fmt.Errorf("%w: %v", sampler.ErrSourceUnavailable, err)
	}

	now := time.Now()

	cpu, cpuErr := p.readCPU()
	mem, memErr := p.readMemory()
	ifaces, netErr := p.readNetwork()

	var failed []string
	if cpuErr != nil {
		failed = append(failed, fmt.Sprintf("cpu: %v", cpuErr))
	}
	if memErr != nil {
		failed = append(failed, fmt.Sprintf("memory: %v", memErr))
	}
	if netErr != nil {
		failed = append(failed, fmt.Sprintf("network: %v", netErr))
	}
	switch len(failed) {
	case 0:
	case 3:
		return sampler.Snapshot{}, fmt.Errorf("%w: %s", sampler.ErrSourceUnavailable, strings.Join(failed, "; "))
	default:
		return sampler.Snapshot{}, fmt.Errorf("%w: %s", sampler.ErrPartialRead, strings.Join(failed, "; "))
	}

	rx, tx := system.SumInterfaceCounters(ifaces)
	return sampler.Snapshot{
		CPULoadPercent:   p.cpuLoad(cpu),
		MemoryTotalBytes: mem.TotalBytes,
		MemoryUsedBytes:  mem.UsedBytes,
		MemoryFreeBytes:  mem.FreeBytes,
		RxBytesTotal:     rx,
		TxBytesTotal:     tx,
		ReadAt:           now,
	}, nil
}

// cpuLoad diffs against the previous counter reading. The first call has no
// baseline and reports 0, same as one /proc/stat reading can tell.
func (p *ProcSource) cpuLoad(cur system.CPUCounters) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prevCPU == nil {
		p.prevCPU = &cur
		return 0
	}
	load := system.CPUUsagePercent(*p.prevCPU, cur)
	p.prevCPU = &cur
	return load
}
