package system

import (
	"math"
	"strings"
	"testing"
)

const procStatFixture = `cpu  4705 150 1120 16250 520 30 100 25 0 0
cpu0 2350 75 560 8125 260 15 50 12 0 0
cpu1 2355 75 560 8125 260 15 50 13 0 0
intr 1462519 122 9 0 0
ctxt 2979640
btime 1700000000
`

func TestParseCPUCounters(t *testing.T) {
	c, err := parseCPUCounters(strings.NewReader(procStatFixture))
	if err != nil {
		t.Fatalf("parseCPUCounters: %v", err)
	}
	if c.User != 4705 || c.Nice != 150 || c.System != 1120 || c.Idle != 16250 {
		t.Errorf("unexpected counters: %+v", c)
	}
	if c.IOWait != 520 || c.IRQ != 30 || c.SoftIRQ != 100 || c.Steal != 25 {
		t.Errorf("unexpected tail counters: %+v", c)
	}
	want := uint64(4705 + 150 + 1120 + 16250 + 520 + 30 + 100 + 25)
	if c.Total != want {
		t.Errorf("total = %d, want %d", c.Total, want)
	}
}

func TestParseCPUCountersErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no aggregate line", "cpu0 1 2 3 4 5 6 7 8\n"},
		{"short line", "cpu 1 2 3\n"},
		{"garbage field", "cpu 1 2 x 4 5 6 7 8\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseCPUCounters(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCPUUsagePercent(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur CPUCounters
		want      float64
	}{
		{
			name: "half busy",
			prev: CPUCounters{Idle: 100, Total: 200},
			cur:  CPUCounters{Idle: 150, Total: 300},
			want: 50,
		},
		{
			name: "fully idle",
			prev: CPUCounters{Idle: 100, Total: 100},
			cur:  CPUCounters{Idle: 200, Total: 200},
			want: 0,
		},
		{
			name: "iowait counts as idle",
			prev: CPUCounters{Idle: 50, IOWait: 50, Total: 200},
			cur:  CPUCounters{Idle: 75, IOWait: 75, Total: 300},
			want: 50,
		},
		{
			name: "no advance",
			prev: CPUCounters{Idle: 100, Total: 200},
			cur:  CPUCounters{Idle: 100, Total: 200},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CPUUsagePercent(tt.prev, tt.cur)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CPUUsagePercent = %v, want %v", got, tt.want)
			}
		})
	}
}

const meminfoFixture = `MemTotal:       16384000 kB
MemFree:         2048000 kB
MemAvailable:    8192000 kB
Buffers:          512000 kB
Cached:          4096000 kB
SwapTotal:       2097152 kB
SwapFree:        2097152 kB
`

func TestParseMemoryInfo(t *testing.T) {
	info, err := parseMemoryInfo(strings.NewReader(meminfoFixture))
	if err != nil {
		t.Fatalf("parseMemoryInfo: %v", err)
	}
	wantTotal := uint64(16384000) * 1024
	wantFree := uint64(8192000) * 1024
	if info.TotalBytes != wantTotal {
		t.Errorf("total = %d, want %d", info.TotalBytes, wantTotal)
	}
	if info.FreeBytes != wantFree {
		t.Errorf("free = %d, want %d", info.FreeBytes, wantFree)
	}
	if info.UsedBytes != wantTotal-wantFree {
		t.Errorf("used = %d, want %d", info.UsedBytes, wantTotal-wantFree)
	}
}

func TestParseMemoryInfoNoMemAvailable(t *testing.T) {
	// Kernels before 3.14 have no MemAvailable line.
	input := "MemTotal: 1000 kB\nMemFree: 400 kB\n"
	info, err := parseMemoryInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseMemoryInfo: %v", err)
	}
	if info.FreeBytes != 400*1024 {
		t.Errorf("free = %d, want %d", info.FreeBytes, 400*1024)
	}
	if info.UsedBytes != 600*1024 {
		t.Errorf("used = %d, want %d", info.UsedBytes, 600*1024)
	}
}

func TestParseMemoryInfoMissingTotal(t *testing.T) {
	if _, err := parseMemoryInfo(strings.NewReader("MemFree: 400 kB\n")); err == nil {
		t.Error("expected error for missing MemTotal")
	}
}

const netDevFixture = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 9999999    1000    0    0    0     0          0         0  9999999    1000    0    0    0     0       0          0
  eth0: 1500000   12000    0    0    0     0          0         0   750000    8000    0    0    0     0       0          0
 wlan0:  250000    2000    0    0    0     0          0         0   125000    1000    0    0    0     0       0          0
`

func TestParseInterfaceCounters(t *testing.T) {
	ifaces, err := parseInterfaceCounters(strings.NewReader(netDevFixture))
	if err != nil {
		t.Fatalf("parseInterfaceCounters: %v", err)
	}
	if len(ifaces) != 2 {
		t.Fatalf("got %d interfaces, want 2 (loopback excluded)", len(ifaces))
	}
	if ifaces[0].Name != "eth0" || ifaces[0].RxBytes != 1500000 || ifaces[0].TxBytes != 750000 {
		t.Errorf("eth0 = %+v", ifaces[0])
	}
	if ifaces[1].Name != "wlan0" || ifaces[1].RxBytes != 250000 || ifaces[1].TxBytes != 125000 {
		t.Errorf("wlan0 = %+v", ifaces[1])
	}
}

func TestSumInterfaceCounters(t *testing.T) {
	tests := []struct {
		name           string
		ifaces         []InterfaceCounters
		wantRx, wantTx uint64
	}{
		{"empty set sums to zero", nil, 0, 0},
		{
			"two interfaces",
			[]InterfaceCounters{
				{Name: "eth0", RxBytes: 1500000, TxBytes: 750000},
				{Name: "wlan0", RxBytes: 250000, TxBytes: 125000},
			},
			1750000, 875000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rx, tx := SumInterfaceCounters(tt.ifaces)
			if rx != tt.wantRx || tx != tt.wantTx {
				t.Errorf("sum = %d/%d, want %d/%d", rx, tx, tt.wantRx, tt.wantTx)
			}
		})
	}
}
