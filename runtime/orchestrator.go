// Package runtime wires the relay together: session lifecycle, the send
// path, and the supervised workers. It orchestrates without containing
// storage or translation logic of its own.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/domain/event"
	errs "babel-relay/errors"
	"babel-relay/moderation"
	"babel-relay/runtime/workers"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

const defaultLang = "en"

type Orchestrator struct {
	log            *slog.Logger
	chatLog        contract.IChatLog
	engine         contract.ITranslationEngine
	registry       contract.IRegistry
	replay         *ReplayCoordinator
	moderator      moderation.Moderator
	index          contract.IMessageIndex
	supervisor     contract.ISupervisor
	events         chan event.DomainEvent
	healthInterval time.Duration
}

func NewOrchestrator(log *slog.Logger, chatLog contract.IChatLog,
	engine contract.ITranslationEngine, registry contract.IRegistry,
	moderator moderation.Moderator, index contract.IMessageIndex,
	supervisor contract.ISupervisor, bufferSize int,
	healthInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:            log,
		chatLog:        chatLog,
		engine:         engine,
		registry:       registry,
		replay:         NewReplayCoordinator(log, chatLog, engine),
		moderator:      moderator,
		index:          index,
		supervisor:     supervisor,
		events:         make(chan event.DomainEvent, bufferSize),
		healthInterval: healthInterval,
	}
}

// Start registers the workers and blocks inside the supervisor until Stop
// or parent-context cancellation.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(workers.NewFanoutWorker(o.log, o.registry, o.engine, o.events))
	o.supervisor.Add(workers.NewHealthWorker(o.log, o.healthInterval))

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of the supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

// Join registers a session, replays the chat's history into its sink, and
// only then makes it eligible for live fanout. A failed replay leaves the
// session registered but not live; already emitted views are not retracted.
func (o *Orchestrator) Join(ctx context.Context, session domain.Session, sink contract.SessionSink) error {
	o.registry.Subscribe(session, sink)
	if err := o.replay.Replay(ctx, session, sink); err != nil {
		return err
	}
	o.registry.MarkLive(session.ID)
	o.log.Info("Session joined",
		"session_id", session.ID, "chat_id", session.ChatID, "lang", session.TargetLang)
	return nil
}

// SetLanguage switches a session's target language. The session drops out
// of live fanout, replays the full history in the new language, and only
// re-enters live delivery once that replay has completed.
func (o *Orchestrator) SetLanguage(ctx context.Context, sessionID uuid.UUID, lang string, sink contract.SessionSink) error {
	session, ok := o.registry.SetLanguage(sessionID, lang)
	if !ok {
		return fmt.Errorf("unknown session %s: %w", sessionID, errs.ErrValidation)
	}
	if err := o.replay.Replay(ctx, session, sink); err != nil {
		return err
	}
	o.registry.MarkLive(sessionID)
	return nil
}

// Disconnect removes the session from room membership immediately. Cache
// fills already started on its behalf run to completion; their side effects
// stay valid for other sessions.
func (o *Orchestrator) Disconnect(sessionID uuid.UUID) {
	o.registry.Unsubscribe(sessionID)
}

// Send persists the canonical record for a new message and hands it to the
// fanout worker. The sender language is detected from the text when the
// client omits it; the original text is censored before persistence so
// every derived translation works from the canonical censored form.
func (o *Orchestrator) Send(ctx context.Context, session domain.Session, text, lang string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, fmt.Errorf("empty message text: %w", errs.ErrValidation)
	}
	if lang == "" {
		lang = detectLang(text)
	}

	censored := o.moderator.Censor(text)
	msg := domain.NewMessage(session.ChatID, session.UserID, lang, censored, time.Now().UTC())

	stored, err := o.chatLog.Append(msg)
	if err != nil {
		return domain.Message{}, err
	}

	if err := o.index.Index(stored); err != nil {
		o.log.Warn("Indexing failed", "message_id", stored.ID, "error", err)
	}

	o.dispatch(event.MessageStored{Message: stored})
	return stored, nil
}

// CreateChat provisions the backing log and view; the chat is queryable
// once the id is returned.
func (o *Orchestrator) CreateChat() (domain.ChatID, error) {
	chat, err := o.chatLog.CreateChat()
	if err != nil {
		return "", err
	}
	o.log.Info("Chat created", "chat_id", chat)
	return chat, nil
}

// DeleteChat tears down the chat and tells its connected sessions. Replays
// and fanouts in flight fail with ErrChatNotFound rather than hanging.
func (o *Orchestrator) DeleteChat(chat domain.ChatID) error {
	if err := o.chatLog.DeleteChat(chat); err != nil {
		return err
	}
	o.dispatch(event.ChatDeleted{Chat: chat})
	return nil
}

func (o *Orchestrator) ListChats() ([]domain.ChatID, error) {
	return o.chatLog.ListChats()
}

func (o *Orchestrator) Search(ctx context.Context, chat domain.ChatID, query string, limit int) ([]contract.SearchHit, error) {
	return o.index.Search(ctx, chat, query, limit)
}

// dispatch hands an event to the fanout worker. When the buffer is full the
// event is dropped with a warning: affected sessions still converge through
// their next replay, and the canonical record is already durable.
func (o *Orchestrator) dispatch(e event.DomainEvent) {
	select {
	case o.events <- e:
	default:
		o.log.Warn(fmt.Sprintf("Event channel full for chat %s, dropping fanout", e.ChatID()))
	}
}

func detectLang(text string) string {
	info := whatlanggo.Detect(text)
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return defaultLang
}
