package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"babel-relay/contract"
	"babel-relay/domain"
)

// ReplayCoordinator reconstructs a chat's history for one session: a
// historyStart marker, then every message in log order, each carrying the
// session's target language (backfilled through the cache engine when
// missing).
type ReplayCoordinator struct {
	log     *slog.Logger
	chatLog contract.IChatLog
	engine  contract.ITranslationEngine
}

func NewReplayCoordinator(log *slog.Logger, chatLog contract.IChatLog,
	engine contract.ITranslationEngine) *ReplayCoordinator {
	return &ReplayCoordinator{log: log, chatLog: chatLog, engine: engine}
}

// Replay streams the full history to the sink. On failure it aborts and
// returns the error; views already emitted are not retracted. The caller
// owns the live-eligibility transition and must only mark the session live
// after Replay returns nil.
func (r *ReplayCoordinator) Replay(ctx context.Context, session domain.Session, sink contract.SessionSink) error {
	if err := sink.HistoryStart(ctx); err != nil {
		return fmt.Errorf("emitting history start: %w", err)
	}

	messages, err := r.chatLog.Query(session.ChatID)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		ensured, err := r.engine.Ensure(ctx, msg, session.TargetLang)
		if err != nil {
			return err
		}
		if err := sink.Deliver(ctx, domain.ViewOf(ensured, session.TargetLang, true)); err != nil {
			return fmt.Errorf("delivering replayed message %s: %w", msg.ID, err)
		}
	}

	r.log.Debug("Replay complete",
		"session_id", session.ID,
		"chat_id", session.ChatID,
		"target_lang", session.TargetLang,
		"messages", len(messages))
	return nil
}
