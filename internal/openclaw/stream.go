package openclaw

import (
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/openclaw-responses/internal/converter"
	"github.com/young1lin/openclaw-responses/internal/metrics"
	"github.com/young1lin/openclaw-responses/internal/schema"
	"github.com/young1lin/openclaw-responses/internal/sse"
	"github.com/young1lin/openclaw-responses/pkg/llm"
)

// eventStream pulls SSE frames from the response body and runs them through
// one StreamReconstructor. Parts are produced in the order the vendor events
// arrive.
type eventStream struct {
	body    io.ReadCloser
	reader  *sse.Reader
	recon   *converter.StreamReconstructor
	modelID string
	start   time.Time
	logger  *zap.Logger

	pending   []llm.StreamPart
	exhausted bool

	closeOnce sync.Once
	closeErr  error
}

func newEventStream(body io.ReadCloser, recon *converter.StreamReconstructor, modelID string, start time.Time, logger *zap.Logger) *eventStream {
	return &eventStream{
		body:    body,
		reader:  sse.NewReader(body),
		recon:   recon,
		modelID: modelID,
		start:   start,
		logger:  logger,
	}
}

// Recv returns the next part, or io.EOF once the stream is exhausted
func (s *eventStream) Recv() (llm.StreamPart, error) {
	for len(s.pending) == 0 {
		if s.exhausted {
			return llm.StreamPart{}, io.EOF
		}
		s.fill()
	}

	part := s.pending[0]
	s.pending = s.pending[1:]
	s.observe(part)
	return part, nil
}

// fill reads the next SSE frame and queues the parts it produced. At the end
// of the body the reconstructor is flushed.
func (s *eventStream) fill() {
	event, err := s.reader.Next()
	if err == nil {
		s.pending = s.recon.ConsumeChunk(event.Data)
		return
	}

	if !errors.Is(err, io.EOF) {
		// an aborted transport ends the stream like a missing terminal event
		s.logger.Warn("stream read failed", zap.Error(err))
		s.pending = append(s.pending, llm.StreamPart{Type: llm.StreamError, Err: err})
	}
	tail := s.recon.Flush()
	if !hasFinish(tail) {
		metrics.CallsTotal.WithLabelValues(s.modelID, metrics.ModeStream, "incomplete").Inc()
	}
	s.pending = append(s.pending, tail...)
	s.exhausted = true
	s.done()
}

func hasFinish(parts []llm.StreamPart) bool {
	for _, p := range parts {
		if p.Type == llm.StreamFinish {
			return true
		}
	}
	return false
}

func (s *eventStream) observe(part llm.StreamPart) {
	metrics.StreamPartsTotal.WithLabelValues(string(part.Type)).Inc()

	switch part.Type {
	case llm.StreamError:
		var de *schema.DecodeError
		if errors.As(part.Err, &de) {
			metrics.DecodeFailuresTotal.WithLabelValues(de.Kind).Inc()
		}
	case llm.StreamFinish:
		metrics.CallsTotal.WithLabelValues(s.modelID, metrics.ModeStream, string(part.FinishReason.Unified)).Inc()
		observeUsage(s.modelID, *part.Usage)
	}
}

// done records the end of the stream once the body is exhausted
func (s *eventStream) done() {
	metrics.CallDuration.WithLabelValues(s.modelID, metrics.ModeStream).Observe(time.Since(s.start).Seconds())
	s.logger.Info("stream ended",
		zap.String("response_id", s.recon.ResponseID()),
		zap.Duration("duration", time.Since(s.start)),
	)
	_ = s.Close()
}

// Close releases the response body. It is safe to call more than once.
func (s *eventStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
