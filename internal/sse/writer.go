package sse

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
)

// Writer handles writing Server-Sent Events
type Writer struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	logger  *zap.Logger
	started bool
}

// NewWriter creates a new SSE writer
func NewWriter(w http.ResponseWriter, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		w:      w,
		rc:     http.NewResponseController(w),
		logger: logger,
	}
}

func (s *Writer) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
}

// WriteEvent writes an SSE event and flushes it
func (s *Writer) WriteEvent(event string, data []byte) error {
	s.start()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}
	s.logger.Debug("SSE event sent",
		zap.String("event", event),
		zap.String("data", truncateString(string(data), 200)),
	)
	return nil
}

// WriteJSON marshals v and writes it as the data of an SSE event
func (s *Writer) WriteJSON(event string, v any) error {
	data, err := jsonx.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return s.WriteEvent(event, data)
}

// Done writes the [DONE] sentinel
func (s *Writer) Done() error {
	s.start()
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("write done: %w", err)
	}
	return s.rc.Flush()
}

// truncateString truncates a string for logging
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
