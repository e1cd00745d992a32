//go:generate go run go.uber.org/mock/mockgen -source=engine.go -destination=../mocks/mock_engine.go -package=mocks
package translate

import (
	"context"
	"log/slog"
	"time"

	"babel-relay/contract"
	"babel-relay/domain"
)

// Engine ensures a message carries a translation for a requested language
// and caches the result back into the chat's log.
//
// Fallback policy: when the translator fails or times out, the original
// text is cached under the requested language and never retried. A reader
// cannot tell a failed-and-faked entry from a genuine same-text translation;
// the entry is permanent for that message+language.
type Engine struct {
	log        *slog.Logger
	chatLog    contract.IChatLog
	translator contract.ITranslator
	timeout    time.Duration
}

func NewEngine(log *slog.Logger, chatLog contract.IChatLog,
	translator contract.ITranslator, timeout time.Duration) *Engine {
	return &Engine{log: log, chatLog: chatLog, translator: translator, timeout: timeout}
}

// Ensure returns a record carrying the requested language.
//
// Fast path: the language is already cached; no I/O, no write. Slow path:
// translate, then merge into the freshest stored record. Many Ensure calls
// for the same message but different languages may run concurrently; the
// merge is delegated to the log's AppendMerge, which re-reads the latest
// state before unioning, so no concurrently cached language is ever lost.
func (e *Engine) Ensure(ctx context.Context, msg domain.Message, lang string) (domain.Message, error) {
	if msg.Translated(lang) {
		return msg, nil
	}

	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	translated, err := e.translator.Translate(tctx, msg.OriginalText, msg.OriginalLang, lang)
	if err != nil {
		// Non-fatal: fall back to the original text and cache it anyway,
		// bounding retry storms against a flaky translator.
		e.log.Warn("Translation failed, caching passthrough",
			"message_id", msg.ID,
			"from", msg.OriginalLang,
			"to", lang,
			"error", err)
		translated = msg.OriginalText
	}

	return e.chatLog.AppendMerge(msg.ChatID, msg.ID, lang, translated)
}
