package stream

import (
	"context"
	"fmt"
	"io"
	"sync"

	"sysmon-agent/internal/model"
)

// WriterSink prints one envelope per line to a writer. It is the stdout
// stream mode used when running the agent as a standalone monitor.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) SendMetrics(ctx context.Context, rec model.MetricsRecord) error {
	return s.write(ctx, NewMetricsEnvelope(rec))
}

func (s *WriterSink) SendSampleError(ctx context.Context, e model.SampleError) error {
	return s.write(ctx, NewErrorEnvelope(e))
}

func (s *WriterSink) Close(ctx context.Context) error {
	return nil
}

func (s *WriterSink) write(ctx context.Context, envelope model.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeEnvelope(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}
