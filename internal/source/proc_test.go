package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"sysmon-agent/internal/sampler"
	"sysmon-agent/internal/system"
)

func newTestSource(
	cpu func() (system.CPUCounters, error),
	mem func() (system.MemoryInfo, error),
	net func() ([]system.InterfaceCounters, error),
) *ProcSource {
	p := NewProcSource(nil)
	p.readCPU = cpu
	p.readMemory = mem
	p.readNetwork = net
	return p
}

func okCPU(c system.CPUCounters) func() (system.CPUCounters, error) {
	return func() (system.CPUCounters, error) { return c, nil }
}

func okMem(m system.MemoryInfo) func() (system.MemoryInfo, error) {
	return func() (system.MemoryInfo, error) { return m, nil }
}

func okNet(ifaces []system.InterfaceCounters) func() ([]system.InterfaceCounters, error) {
	return func() ([]system.InterfaceCounters, error) { return ifaces, nil }
}

func TestTakeSnapshotAggregatesInterfaces(t *testing.T) {
	src := newTestSource(
		okCPU(system.CPUCounters{Idle: 100, Total: 200}),
		okMem(system.MemoryInfo{TotalBytes: 1000, UsedBytes: 600, FreeBytes: 400}),
		okNet([]system.InterfaceCounters{
			{Name: "eth0", RxBytes: 1000, TxBytes: 500},
			{Name: "wlan0", RxBytes: 200, TxBytes: 100},
		}),
	)

	snap, err := src.TakeSnapshot(context.Background())
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if snap.RxBytesTotal != 1200 || snap.TxBytesTotal != 600 {
		t.Errorf("aggregated counters = %d/%d, want 1200/600", snap.RxBytesTotal, snap.TxBytesTotal)
	}
	if snap.MemoryTotalBytes != 1000 || snap.MemoryUsedBytes != 600 || snap.MemoryFreeBytes != 400 {
		t.Errorf("memory = %d/%d/%d", snap.MemoryTotalBytes, snap.MemoryUsedBytes, snap.MemoryFreeBytes)
	}
	if snap.ReadAt.IsZero() {
		t.Error("ReadAt not set")
	}
}

func TestTakeSnapshotEmptyInterfaceSet(t *testing.T) {
	src := newTestSource(
		okCPU(system.CPUCounters{}),
		okMem(system.MemoryInfo{TotalBytes: 1000}),
		okNet(nil),
	)

	snap, err := src.TakeSnapshot(context.Background())
	if err != nil {
		t.Fatalf("TakeSnapshot with no interfaces: %v", err)
	}
	if snap.RxBytesTotal != 0 || snap.TxBytesTotal != 0 {
		t.Errorf("counters = %d/%d, want 0/0", snap.RxBytesTotal, snap.TxBytesTotal)
	}
}

func TestFirstCPULoadIsZeroThenDerived(t *testing.T) {
	readings := []system.CPUCounters{
		{Idle: 100, Total: 200},
		{Idle: 150, Total: 300},
	}
	i := 0
	src := newTestSource(
		func() (system.CPUCounters, error) { c := readings[i]; i++; return c, nil },
		okMem(system.MemoryInfo{TotalBytes: 1}),
		okNet(nil),
	)

	first, err := src.TakeSnapshot(context.Background())
	if err != nil {
		t.Fatalf("first TakeSnapshot: %v", err)
	}
	if first.CPULoadPercent != 0 {
		t.Errorf("first cpu load = %v, want 0 (no baseline)", first.CPULoadPercent)
	}

	second, err := src.TakeSnapshot(context.Background())
	if err != nil {
		t.Fatalf("second TakeSnapshot: %v", err)
	}
	// 100 total jiffies, 50 idle: 50% busy.
	if math.Abs(second.CPULoadPercent-50) > 1e-9 {
		t.Errorf("second cpu load = %v, want 50", second.CPULoadPercent)
	}
}

func TestPartialFailureClassification(t *testing.T) {
	boom := fmt.Errorf("permission denied")
	tests := []struct {
		name    string
		cpuErr  error
		memErr  error
		netErr  error
		wantErr error
	}{
		{"memory failed", nil, boom, nil, sampler.ErrPartialRead},
		{"cpu failed", boom, nil, nil, sampler.ErrPartialRead},
		{"two failed", boom, boom, nil, sampler.ErrPartialRead},
		{"all failed", boom, boom, boom, sampler.ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestSource(
				func() (system.CPUCounters, error) { return system.CPUCounters{}, tt.cpuErr },
				func() (system.MemoryInfo, error) { return system.MemoryInfo{}, tt.memErr },
				func() ([]system.InterfaceCounters, error) { return nil, tt.netErr },
			)
			_, err := src.TakeSnapshot(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("TakeSnapshot error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanceledContext(t *testing.T) {
	src := newTestSource(
		okCPU(system.CPUCounters{}),
		okMem(system.MemoryInfo{}),
		okNet(nil),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.TakeSnapshot(ctx); !errors.Is(err, sampler.ErrSourceUnavailable) {
		t.Errorf("TakeSnapshot on canceled ctx = %v, want ErrSourceUnavailable", err)
	}
}
