package system

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const procStatPath = "/proc/stat"

// CPUCounters holds the aggregate jiffy counters from the "cpu" line of
// /proc/stat. Values are cumulative since boot.
type CPUCounters struct {
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	IOWait  uint64
	IRQ     uint64
	SoftIRQ uint64
	Steal   uint64
	Total   uint64
}

func ReadCPUCounters() (CPUCounters, error) {
	f, err := os.Open(procStatPath)
	if err != nil {
		return CPUCounters{}, fmt.Errorf("open %s: %w", procStatPath, err)
	}
	defer f.Close()
	return parseCPUCounters(f)
}

func parseCPUCounters(r io.Reader) (CPUCounters, error) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 8 {
			return CPUCounters{}, fmt.Errorf("unexpected cpu line: %q", line)
		}
		vals := make([]uint64, 0, len(fields)-1)
		for _, field := range fields[1:] {
			v, convErr := strconv.ParseUint(field, 10, 64)
			if convErr != nil {
				return CPUCounters{}, fmt.Errorf("parse cpu stat %q: %w", field, convErr)
			}
			vals = append(vals, v)
		}
		c := CPUCounters{
			User:   vals[0],
			Nice:   vals[1],
			System: vals[2],
			Idle:   vals[3],
		}
		if len(vals) > 4 {
			c.IOWait = vals[4]
		}
		if len(vals) > 5 {
			c.IRQ = vals[5]
		}
		if len(vals) > 6 {
			c.SoftIRQ = vals[6]
		}
		if len(vals) > 7 {
			c.Steal = vals[7]
		}
		for _, v := range vals {
			c.Total += v
		}
		return c, nil
	}
	if err := s.Err(); err != nil {
		return CPUCounters{}, fmt.Errorf("scan cpu stat: %w", err)
	}
	return CPUCounters{}, fmt.Errorf("cpu aggregate line not found")
}

// CPUUsagePercent derives the busy percentage from two consecutive counter
// readings. Returns 0 when the counters did not advance.
func CPUUsagePercent(prev, cur CPUCounters) float64 {
	if cur.Total <= prev.Total {
		return 0
	}
	totalDelta := float64(cur.Total - prev.Total)
	idlePrev := prev.Idle + prev.IOWait
	idleCur := cur.Idle + cur.IOWait
	idleDelta := float64(idleCur) - float64(idlePrev)
	if idleDelta < 0 {
		idleDelta = 0
	}
	usage := ((totalDelta - idleDelta) / totalDelta) * 100
	if usage < 0 {
		return 0
	}
	if usage > 100 {
		return 100
	}
	return usage
}
