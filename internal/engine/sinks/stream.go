package sinks

import (
	"context"
	"fmt"
	"io"

	"github.com/onionshare/onionshare/internal/engine"
)

// StreamSink copies archives to a writer, typically stdout so the archive can
// be piped into another program.
type StreamSink struct {
	w       io.Writer
	written int64
}

func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

var _ engine.Sink = (*StreamSink)(nil)

func (s *StreamSink) Name() string {
	return "stream"
}

func (s *StreamSink) Kind() string {
	return "stream"
}

func (s *StreamSink) Write(ctx context.Context, path string, data io.Reader) error {
	n, err := io.Copy(s.w, data)
	s.written += n
	if err != nil {
		return fmt.Errorf("failed to stream %s: %w", path, err)
	}
	return nil
}

// Written returns the number of bytes copied so far.
func (s *StreamSink) Written() int64 {
	return s.written
}

func (s *StreamSink) Close(ctx context.Context) error {
	return nil
}
