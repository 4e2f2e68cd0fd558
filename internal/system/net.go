package system

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const procNetDevPath = "/proc/net/dev"

// InterfaceCounters holds the cumulative byte counters of one network
// interface as reported by /proc/net/dev.
type InterfaceCounters struct {
	Name    string
	RxBytes uint64
	TxBytes uint64
}

// ReadInterfaceCounters returns the counters of every active non-loopback
// interface. An empty slice is a valid result, not an error.
func ReadInterfaceCounters() ([]InterfaceCounters, error) {
	f, err := os.Open(procNetDevPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", procNetDevPath, err)
	}
	defer f.Close()
	return parseInterfaceCounters(f)
}

func parseInterfaceCounters(r io.Reader) ([]InterfaceCounters, error) {
	var out []InterfaceCounters
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		if lineNo <= 2 {
			// column headers
			continue
		}
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		iface := strings.TrimSpace(parts[0])
		if iface == "" || iface == "lo" {
			continue
		}
		fields := strings.Fields(strings.TrimSpace(parts[1]))
		if len(fields) < 16 {
			continue
		}
		rx, rxErr := strconv.ParseUint(fields[0], 10, 64)
		tx, txErr := strconv.ParseUint(fields[8], 10, 64)
		if rxErr != nil || txErr != nil {
			continue
		}
		out = append(out, InterfaceCounters{Name: iface, RxBytes: rx, TxBytes: tx})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan net dev: %w", err)
	}
	return out, nil
}

// SumInterfaceCounters aggregates counters over a possibly-empty interface
// set. An empty set sums to zero.
func SumInterfaceCounters(ifaces []InterfaceCounters) (rx, tx uint64) {
	for _, c := range ifaces {
		rx += c.RxBytes
		tx += c.TxBytes
	}
	return rx, tx
}
