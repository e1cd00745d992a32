package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/infrastructure/storage"
	"babel-relay/translate"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// stubTranslator answers deterministically so assertions can check both the
// translated text and how often the upstream was actually hit.
type stubTranslator struct {
	calls       atomic.Int32
	fail        atomic.Bool
	onTranslate func(text, fromLang, toLang string)
}

func (s *stubTranslator) Translate(_ context.Context, text, fromLang, toLang string) (string, error) {
	s.calls.Add(1)
	if s.onTranslate != nil {
		s.onTranslate(text, fromLang, toLang)
	}
	if s.fail.Load() {
		return "", fmt.Errorf("translator down")
	}
	if text == "Hola" && fromLang == "es" && toLang == "en" {
		return "Hello", nil
	}
	return text + "|" + toLang, nil
}

// recordingSink captures every frame pushed to one session.
type recordingSink struct {
	mu     sync.Mutex
	starts int
	views  []domain.MessageView
	errors []string
}

func (s *recordingSink) HistoryStart(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return nil
}

func (s *recordingSink) Deliver(_ context.Context, view domain.MessageView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, view)
	return nil
}

func (s *recordingSink) Fail(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
	return nil
}

func (s *recordingSink) snapshotViews() []domain.MessageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MessageView, len(s.views))
	copy(out, s.views)
	return out
}

func (s *recordingSink) snapshotErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.errors))
	copy(out, s.errors)
	return out
}

type noopIndex struct{}

func (noopIndex) Index(domain.Message) error { return nil }
func (noopIndex) Search(context.Context, domain.ChatID, string, int) ([]contract.SearchHit, error) {
	return nil, nil
}
func (noopIndex) Close() error { return nil }

// newTestBackend opens a throwaway badger-backed log and a cache engine fed
// by the stub translator.
func newTestBackend(t *testing.T) (*storage.ChatLog, *translate.Engine, *stubTranslator) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	chatLog := storage.NewChatLog(db, slog.Default())
	translator := &stubTranslator{}
	engine := translate.NewEngine(slog.Default(), chatLog, translator, time.Second)
	return chatLog, engine, translator
}
