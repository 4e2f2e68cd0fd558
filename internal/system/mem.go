package system

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const procMeminfoPath = "/proc/meminfo"

type MemoryInfo struct {
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64
}

func ReadMemoryInfo() (MemoryInfo, error) {
	f, err := os.Open(procMeminfoPath)
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("open %s: %w", procMeminfoPath, err)
	}
	defer f.Close()
	return parseMemoryInfo(f)
}

func parseMemoryInfo(r io.Reader) (MemoryInfo, error) {
	vals := map[string]uint64{}
	seen := map[string]bool{}
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		v, convErr := strconv.ParseUint(fields[1], 10, 64)
		if convErr != nil {
			continue
		}
		vals[key] = v * 1024
		seen[key] = true
	}
	if err := s.Err(); err != nil {
		return MemoryInfo{}, fmt.Errorf("scan meminfo: %w", err)
	}
	if !seen["MemTotal"] {
		return MemoryInfo{}, fmt.Errorf("MemTotal missing")
	}

	total := vals["MemTotal"]
	avail := vals["MemAvailable"]
	if !seen["MemAvailable"] {
		// Old kernels lack MemAvailable; MemFree is the closest stand-in.
		avail = vals["MemFree"]
	}
	if avail > total {
		avail = total
	}
	return MemoryInfo{
		TotalBytes: total,
		UsedBytes:  total - avail,
		FreeBytes:  avail,
	}, nil
}
