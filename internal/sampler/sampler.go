package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sysmon-agent/internal/model"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Config struct {
	NodeID   string
	Hostname string

	// Interval between ticks. Must be > 0.
	Interval time.Duration

	// SnapshotTimeout bounds one source read. Defaults to Interval.
	SnapshotTimeout time.Duration

	// ErrorBackoff, when > 0, adds a sleep after a tick that failed with
	// ErrSourceUnavailable. The sleep runs inside the tick loop, so ticks
	// stay serialized and overdue fires coalesce.
	ErrorBackoff time.Duration
}

// Sampler drives the read-diff-emit cycle on a recurring timer. The previous
// snapshot is owned exclusively by the tick goroutine; Start and Stop are the
// only operations safe to call from outside it.
type Sampler struct {
	cfg      Config
	source   Source
	consumer Consumer
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	doneCh chan struct{}
}

func New(cfg Config, source Source, consumer Consumer, logger *slog.Logger) (*Sampler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sample interval must be > 0, got %s", cfg.Interval)
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = cfg.Interval
	}
	if source == nil {
		return nil, errors.New("nil snapshot source")
	}
	if consumer == nil {
		return nil, errors.New("nil consumer")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{cfg: cfg, source: source, consumer: consumer, logger: logger}, nil
}

func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start arms the recurring timer. Restarting a stopped sampler is allowed and
// re-initializes the tick state: the previous snapshot is invalidated, so the
// first post-restart tick reports zero network rates rather than a rate
// skewed by the stopped gap.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.state = StateRunning
	go s.run(s.stopCh, s.doneCh)
	return nil
}

// Stop halts the timer and joins the tick goroutine. It is idempotent; once
// it returns, no further record or error reaches the consumer.
func (s *Sampler) Stop() {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.state = StateStopped
		s.mu.Unlock()
		return
	case StateStopped:
		doneCh := s.doneCh
		s.mu.Unlock()
		if doneCh != nil {
			<-doneCh
		}
		return
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.state = StateStopped
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (s *Sampler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	// prev lives only in this goroutine for the duration of one run.
	var prev *Snapshot
	prev = s.tick(prev, stopCh)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			prev = s.tick(prev, stopCh)
		}
	}
}

// tick runs one read-diff-emit cycle and returns the snapshot to diff against
// next time. On a failed read or a clock anomaly the old snapshot is returned
// unchanged, so the next successful tick still diffs against the last good
// reading.
func (s *Sampler) tick(prev *Snapshot, stopCh <-chan struct{}) *Snapshot {
	cur, err := s.takeSnapshot()
	if err != nil {
		s.consumer.HandleError(err)
		if s.cfg.ErrorBackoff > 0 && errors.Is(err, ErrSourceUnavailable) {
			sleepInterruptible(s.cfg.ErrorBackoff, stopCh)
		}
		return prev
	}

	if prev == nil {
		// A rate needs two points; the first tick reports the gauges and
		// totals with zero rates.
		s.consumer.HandleRecord(s.newRecord(cur))
		snap := cur
		return &snap
	}

	elapsed := cur.ReadAt.Sub(prev.ReadAt).Seconds()
	if elapsed <= 0 {
		s.logger.Debug("non-positive sample interval, skipping tick", "elapsed_seconds", elapsed)
		return prev
	}

	rec := s.newRecord(cur)
	var rxReset, txReset bool
	rec.Network.RxBytesPerSec, rxReset = counterRate(cur.RxBytesTotal, prev.RxBytesTotal, elapsed)
	rec.Network.TxBytesPerSec, txReset = counterRate(cur.TxBytesTotal, prev.TxBytesTotal, elapsed)
	rec.Network.CounterReset = rxReset || txReset
	if rec.Network.CounterReset {
		s.logger.Debug("cumulative network counter went backwards, clamping rate to zero",
			"prev_rx", prev.RxBytesTotal, "cur_rx", cur.RxBytesTotal,
			"prev_tx", prev.TxBytesTotal, "cur_tx", cur.TxBytesTotal)
	}
	s.consumer.HandleRecord(rec)

	snap := cur
	return &snap
}

// takeSnapshot bounds the source read with the snapshot timeout. A read that
// outlives the timeout is abandoned; its late result lands in the buffered
// channel and is garbage collected without touching tick state.
func (s *Sampler) takeSnapshot() (Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SnapshotTimeout)
	defer cancel()

	type result struct {
		snap Snapshot
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		snap, err := s.source.TakeSnapshot(ctx)
		resCh <- result{snap: snap, err: err}
	}()

	select {
	case res := <-resCh:
		return res.snap, res.err
	case <-ctx.Done():
		return Snapshot{}, fmt.Errorf("%w: snapshot read exceeded %s", ErrSourceUnavailable, s.cfg.SnapshotTimeout)
	}
}

func (s *Sampler) newRecord(snap Snapshot) model.MetricsRecord {
	return model.MetricsRecord{
		NodeID:    s.cfg.NodeID,
		Hostname:  s.cfg.Hostname,
		Timestamp: time.Now().UTC(),
		CPU: model.CPUMetrics{
			LoadPercent: snap.CPULoadPercent,
		},
		Memory: model.MemoryMetrics{
			TotalBytes:  snap.MemoryTotalBytes,
			UsedBytes:   snap.MemoryUsedBytes,
			FreeBytes:   snap.MemoryFreeBytes,
			UsedPercent: usedPercent(snap.MemoryUsedBytes, snap.MemoryTotalBytes),
		},
		Network: model.NetworkMetrics{
			RxBytesTotal: snap.RxBytesTotal,
			TxBytesTotal: snap.TxBytesTotal,
		},
	}
}

// counterRate converts a cumulative counter delta into a per-second rate.
// A counter that went backwards (reset/wrap) clamps to zero and reports the
// discontinuity instead of producing a negative rate.
func counterRate(cur, prev uint64, elapsedSeconds float64) (rate float64, reset bool) {
	if cur < prev {
		return 0, true
	}
	return float64(cur-prev) / elapsedSeconds, false
}

func usedPercent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(used) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func sleepInterruptible(d time.Duration, stopCh <-chan struct{}) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stopCh:
	case <-t.C:
	}
}
