//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"babel-relay/domain"
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// SessionSink is one connected session's outbound channel. Implementations
// must be safe for use by the replay goroutine and the fanout worker.
type SessionSink interface {
	// HistoryStart tells the client to discard any previously materialized
	// view of the chat before replay rows arrive.
	HistoryStart(ctx context.Context) error
	Deliver(ctx context.Context, view domain.MessageView) error
	// Fail surfaces a recoverable, session-scoped error to the client.
	Fail(ctx context.Context, message string) error
}

// Delivery pairs a registered session with its sink, as captured by a
// registry snapshot.
type Delivery struct {
	Session domain.Session
	Sink    SessionSink
}

type IRegistry interface {
	Subscribe(session domain.Session, sink SessionSink)
	MarkLive(sessionID uuid.UUID)
	SetLanguage(sessionID uuid.UUID, lang string) (domain.Session, bool)
	Unsubscribe(sessionID uuid.UUID)
	// Snapshot returns the live members of a chat at the moment of the call.
	// Sessions still replaying are excluded.
	Snapshot(chat domain.ChatID) []Delivery
}

// ITranslator is the machine-translation collaborator. It must be treated
// as unreliable; callers own the fallback policy.
type ITranslator interface {
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
}

// IChatLog is the compacted event log plus its latest-state view.
type IChatLog interface {
	CreateChat() (domain.ChatID, error)
	DeleteChat(chat domain.ChatID) error
	ListChats() ([]domain.ChatID, error)
	// Append assigns the next log position and persists the record,
	// returning it with Seq populated.
	Append(msg domain.Message) (domain.Message, error)
	// AppendMerge unions {lang: text} into the freshest record for the
	// message and appends the result. It must never drop a language that a
	// concurrent merge already committed.
	AppendMerge(chat domain.ChatID, messageID uuid.UUID, lang, text string) (domain.Message, error)
	// Query returns the latest record per message, ordered by log position.
	Query(chat domain.ChatID) ([]domain.Message, error)
}

// ITranslationEngine ensures a message carries a translation for a language,
// caching the result back into the chat's log.
type ITranslationEngine interface {
	Ensure(ctx context.Context, msg domain.Message, lang string) (domain.Message, error)
}

// IMessageIndex is the full-text index over stored original text.
type IMessageIndex interface {
	Index(msg domain.Message) error
	Search(ctx context.Context, chat domain.ChatID, query string, limit int) ([]SearchHit, error)
	Close() error
}

type SearchHit struct {
	MessageID string  `json:"messageId"`
	Score     float64 `json:"score"`
}
