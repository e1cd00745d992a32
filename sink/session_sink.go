// Package sink carries server-to-client frames for one connected session.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"babel-relay/domain"
)

const (
	FrameHistoryStart = "historyStart"
	FrameMessage      = "message"
	FrameError        = "error"
)

// Frame is the server-to-client envelope. Message-view fields are inlined
// for "message" frames and absent otherwise.
type Frame struct {
	Type string `json:"type"`
	*domain.MessageView
	Message string `json:"message,omitempty"`
}

// SessionSink buffers outbound frames for a single connection. The replay
// goroutine and the fanout worker both produce into it; the connection's
// writer drains Frames. A slow client is cut off by the delivery timeout
// instead of stalling the producers.
type SessionSink struct {
	log             *slog.Logger
	frames          chan Frame
	deliveryTimeout time.Duration
	done            chan struct{}
	closeOnce       sync.Once
}

func NewSessionSink(log *slog.Logger, bufferSize int, deliveryTimeout time.Duration) *SessionSink {
	return &SessionSink{
		log:             log,
		frames:          make(chan Frame, bufferSize),
		deliveryTimeout: deliveryTimeout,
		done:            make(chan struct{}),
	}
}

// Frames is drained by the connection's writer goroutine.
func (s *SessionSink) Frames() <-chan Frame {
	return s.frames
}

// Close stops accepting frames. Safe to call more than once; in-flight
// producers get an error instead of a panic on a closed channel.
func (s *SessionSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *SessionSink) HistoryStart(ctx context.Context) error {
	return s.push(ctx, Frame{Type: FrameHistoryStart})
}

func (s *SessionSink) Deliver(ctx context.Context, view domain.MessageView) error {
	return s.push(ctx, Frame{Type: FrameMessage, MessageView: &view})
}

func (s *SessionSink) Fail(ctx context.Context, message string) error {
	return s.push(ctx, Frame{Type: FrameError, Message: message})
}

func (s *SessionSink) push(ctx context.Context, frame Frame) error {
	select {
	case <-s.done:
		return fmt.Errorf("session sink closed")
	default:
	}

	timer := time.NewTimer(s.deliveryTimeout)
	defer timer.Stop()

	select {
	case s.frames <- frame:
		return nil
	case <-s.done:
		return fmt.Errorf("session sink closed")
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("delivery timed out after %s", s.deliveryTimeout)
	}
}
