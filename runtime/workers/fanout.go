package workers

import (
	"context"
	"log/slog"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/domain/event"

	"github.com/samber/lo"
)

// Ensure *FanoutWorker implements the contract.Worker interface at compile
// time, keeping type mismatches out of the wiring code.
var _ contract.Worker = (*FanoutWorker)(nil)

// FanoutWorker pushes each newly stored message to every live session of
// its chat, translated into that session's target language.
//
// The registry is snapshotted once per message: sessions joining after the
// snapshot are not guaranteed this specific push and catch up via their own
// replay. Each distinct target language is computed exactly once through
// the cache engine, so two sessions sharing a language always observe
// identical translated text.
type FanoutWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	engine   contract.ITranslationEngine
	events   chan event.DomainEvent
}

func NewFanoutWorker(log *slog.Logger, registry contract.IRegistry,
	engine contract.ITranslationEngine, events chan event.DomainEvent) *FanoutWorker {
	return &FanoutWorker{log: log, registry: registry, engine: engine, events: events}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case e, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			switch evt := e.(type) {
			case event.MessageStored:
				w.fanout(ctx, evt.Message)
			case event.ChatDeleted:
				w.notifyDeleted(ctx, evt.Chat)
			}
		}
	}
}

func (w *FanoutWorker) fanout(ctx context.Context, msg domain.Message) {
	deliveries := w.registry.Snapshot(msg.ChatID)
	if len(deliveries) == 0 {
		return
	}

	langs := lo.Uniq(lo.Map(deliveries, func(d contract.Delivery, _ int) string {
		return d.Session.TargetLang
	}))

	current := msg
	for _, lang := range langs {
		ensured, err := w.engine.Ensure(ctx, current, lang)
		if err != nil {
			// Delivery for this language degrades to the original text;
			// other sessions and chats are unaffected.
			w.log.Error("Fanout translation failed",
				"chat_id", msg.ChatID, "message_id", msg.ID, "lang", lang, "error", err)
			continue
		}
		current = ensured
	}

	for _, d := range deliveries {
		view := domain.ViewOf(current, d.Session.TargetLang, false)
		if err := d.Sink.Deliver(ctx, view); err != nil {
			w.log.Warn("Dropping delivery to session",
				"session_id", d.Session.ID, "chat_id", msg.ChatID, "error", err)
		}
	}
}

func (w *FanoutWorker) notifyDeleted(ctx context.Context, chat domain.ChatID) {
	for _, d := range w.registry.Snapshot(chat) {
		if err := d.Sink.Fail(ctx, "chat not found"); err != nil {
			w.log.Debug("Session unreachable for delete notice",
				"session_id", d.Session.ID, "chat_id", chat)
		}
	}
}
