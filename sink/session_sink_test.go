package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"babel-relay/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Frames_Arrive_In_Push_Order(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(slog.Default(), 8, time.Second)
	ctx := context.Background()

	req.NoError(s.HistoryStart(ctx))
	req.NoError(s.Deliver(ctx, domain.MessageView{MessageID: uuid.New(), TranslatedText: "Hello"}))
	req.NoError(s.Fail(ctx, "boom"))

	req.Equal(FrameHistoryStart, (<-s.Frames()).Type)
	msg := <-s.Frames()
	req.Equal(FrameMessage, msg.Type)
	req.Equal("Hello", msg.TranslatedText)
	errFrame := <-s.Frames()
	req.Equal(FrameError, errFrame.Type)
	req.Equal("boom", errFrame.Message)
}

func Test_Push_Times_Out_On_Slow_Client(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(slog.Default(), 1, 20*time.Millisecond)
	ctx := context.Background()

	req.NoError(s.HistoryStart(ctx))
	err := s.HistoryStart(ctx)
	req.ErrorContains(err, "timed out")
}

func Test_Closed_Sink_Rejects_Frames(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(slog.Default(), 8, time.Second)
	s.Close()
	s.Close() // idempotent

	req.Error(s.HistoryStart(context.Background()))
}

func Test_Frame_Wire_Shape(t *testing.T) {
	req := require.New(t)
	id := uuid.New()
	view := domain.MessageView{
		MessageID:      id,
		User:           "alice",
		OriginText:     "Hola",
		TranslatedText: "Hello",
		OriginLang:     "es",
		TargetLang:     "en",
		Ts:             time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Replayed:       true,
	}
	raw, err := json.Marshal(Frame{Type: FrameMessage, MessageView: &view})
	req.NoError(err)

	var decoded map[string]any
	req.NoError(json.Unmarshal(raw, &decoded))
	req.Equal("message", decoded["type"])
	req.Equal(id.String(), decoded["messageId"])
	req.Equal("alice", decoded["user"])
	req.Equal("Hola", decoded["originText"])
	req.Equal("Hello", decoded["translatedText"])
	req.Equal("es", decoded["originLang"])
	req.Equal("en", decoded["targetLang"])
	req.Equal(true, decoded["replayed"])
}
