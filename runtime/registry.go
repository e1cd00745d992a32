package runtime

import (
	"sync"

	"babel-relay/contract"
	"babel-relay/domain"

	"github.com/google/uuid"
)

type entry struct {
	session domain.Session
	sink    contract.SessionSink
	state   domain.SessionState
}

// Registry tracks live sessions, their chat-room membership and target
// language. It is the single owner of that state; everything else sees it
// only through snapshots.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*entry
	chatMembers map[domain.ChatID]map[uuid.UUID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[uuid.UUID]*entry),
		chatMembers: make(map[domain.ChatID]map[uuid.UUID]struct{}),
	}
}

// Subscribe registers a session in its chat room. The session starts in the
// replaying state: it is invisible to fanout snapshots until MarkLive, which
// prevents duplicate-or-missing deliveries at the join boundary.
func (r *Registry) Subscribe(session domain.Session, sink contract.SessionSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = &entry{session: session, sink: sink, state: domain.StateReplaying}

	if _, ok := r.chatMembers[session.ChatID]; !ok {
		r.chatMembers[session.ChatID] = make(map[uuid.UUID]struct{})
	}
	r.chatMembers[session.ChatID][session.ID] = struct{}{}
}

// MarkLive flags a session as eligible for live fanout, called once its
// current replay has fully completed.
func (r *Registry) MarkLive(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sessionID]; ok {
		e.state = domain.StateLive
	}
}

// SetLanguage mutates a session's target language and drops it back to the
// replaying state; the caller must run a fresh replay and MarkLive again.
func (r *Registry) SetLanguage(sessionID uuid.UUID, lang string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return domain.Session{}, false
	}
	e.session.TargetLang = lang
	e.state = domain.StateReplaying
	return e.session, true
}

// Unsubscribe removes a session from the registry and its room. Empty room
// sets are removed entirely so the map doesn't leak over time.
func (r *Registry) Unsubscribe(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)

	if members, ok := r.chatMembers[e.session.ChatID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.chatMembers, e.session.ChatID)
		}
	}
}

// Snapshot captures the live members of a chat at the moment of the call.
// Sessions joining (or switching language) afterwards are not part of the
// snapshot; they catch up through their own replay.
func (r *Registry) Snapshot(chat domain.ChatID) []contract.Delivery {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.chatMembers[chat]
	if !ok {
		return nil
	}
	var deliveries []contract.Delivery
	for sessionID := range members {
		if e, ok := r.sessions[sessionID]; ok && e.state == domain.StateLive {
			deliveries = append(deliveries, contract.Delivery{Session: e.session, Sink: e.sink})
		}
	}
	return deliveries
}
