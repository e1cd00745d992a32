package translate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"babel-relay/domain"
	errs "babel-relay/errors"
	"babel-relay/infrastructure/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// stubTranslator is deterministic: "Hola" es->en gives "Hello", everything
// else is "<text>|<to>". It counts calls and can be forced to fail.
type stubTranslator struct {
	calls atomic.Int32
	fail  bool
}

func (s *stubTranslator) Translate(_ context.Context, text, fromLang, toLang string) (string, error) {
	s.calls.Add(1)
	if s.fail {
		return "", context.DeadlineExceeded
	}
	if text == "Hola" && fromLang == "es" && toLang == "en" {
		return "Hello", nil
	}
	return text + "|" + toLang, nil
}

func newTestEngine(t *testing.T, translator *stubTranslator) (*Engine, *storage.ChatLog, domain.ChatID) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	chatLog := storage.NewChatLog(db, slog.Default())
	chat, err := chatLog.CreateChat()
	require.NoError(t, err)

	return NewEngine(slog.Default(), chatLog, translator, time.Second), chatLog, chat
}

func Test_Ensure_Translates_And_Caches(t *testing.T) {
	req := require.New(t)
	translator := &stubTranslator{}
	engine, chatLog, chat := newTestEngine(t, translator)

	stored, err := chatLog.Append(domain.NewMessage(chat, "alice", "es", "Hola", time.Now().UTC()))
	req.NoError(err)

	ensured, err := engine.Ensure(context.Background(), stored, "en")
	req.NoError(err)
	req.Equal("Hello", ensured.Translations["en"])
	req.Equal("Hola", ensured.Translations["es"])
	req.Equal(int32(1), translator.calls.Load())

	// The cache lives in the log, not in the returned value.
	fetched, err := chatLog.Query(chat)
	req.NoError(err)
	req.Equal("Hello", fetched[0].Translations["en"])
}

func Test_Ensure_Fast_Path_Skips_Translator(t *testing.T) {
	req := require.New(t)
	translator := &stubTranslator{}
	engine, chatLog, chat := newTestEngine(t, translator)

	stored, err := chatLog.Append(domain.NewMessage(chat, "alice", "es", "Hola", time.Now().UTC()))
	req.NoError(err)

	first, err := engine.Ensure(context.Background(), stored, "en")
	req.NoError(err)
	second, err := engine.Ensure(context.Background(), first, "en")
	req.NoError(err)

	req.Equal(first.Translations["en"], second.Translations["en"])
	req.Equal(int32(1), translator.calls.Load())

	// Requesting the sender's own language never leaves the fast path.
	same, err := engine.Ensure(context.Background(), first, "es")
	req.NoError(err)
	req.Equal("Hola", same.Translations["es"])
	req.Equal(int32(1), translator.calls.Load())
}

func Test_Ensure_Caches_Passthrough_On_Failure(t *testing.T) {
	req := require.New(t)
	translator := &stubTranslator{fail: true}
	engine, chatLog, chat := newTestEngine(t, translator)

	stored, err := chatLog.Append(domain.NewMessage(chat, "alice", "es", "Hola", time.Now().UTC()))
	req.NoError(err)

	ensured, err := engine.Ensure(context.Background(), stored, "en")
	req.NoError(err)
	req.Equal("Hola", ensured.Translations["en"])

	// The fallback is cached: a later call finds it and never retries.
	translator.fail = false
	again, err := engine.Ensure(context.Background(), ensured, "en")
	req.NoError(err)
	req.Equal("Hola", again.Translations["en"])
	req.Equal(int32(1), translator.calls.Load())
}

func Test_Ensure_Concurrent_Languages_All_Survive(t *testing.T) {
	req := require.New(t)
	translator := &stubTranslator{}
	engine, chatLog, chat := newTestEngine(t, translator)

	stored, err := chatLog.Append(domain.NewMessage(chat, "alice", "es", "Hola", time.Now().UTC()))
	req.NoError(err)

	langs := []string{"en", "fr", "de", "it", "pt", "ja"}
	var wg sync.WaitGroup
	for _, lang := range langs {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			_, err := engine.Ensure(context.Background(), stored, lang)
			require.NoError(t, err)
		}(lang)
	}
	wg.Wait()

	fetched, err := chatLog.Query(chat)
	req.NoError(err)
	req.Len(fetched[0].Translations, len(langs)+1)
}

func Test_Ensure_Surfaces_Deleted_Chat(t *testing.T) {
	req := require.New(t)
	translator := &stubTranslator{}
	engine, chatLog, chat := newTestEngine(t, translator)

	stored, err := chatLog.Append(domain.NewMessage(chat, "alice", "es", "Hola", time.Now().UTC()))
	req.NoError(err)
	req.NoError(chatLog.DeleteChat(chat))

	_, err = engine.Ensure(context.Background(), stored, "en")
	req.ErrorIs(err, errs.ErrChatNotFound)
}
