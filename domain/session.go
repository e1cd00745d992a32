// Package domain contains core concepts of the relay.
// This file defines Session values owned by the connection registry.
// Sessions are ephemeral and never persisted.
package domain

import "github.com/google/uuid"

// SessionState tracks where a session is in its lifecycle.
// A session only receives live fanout while in StateLive; a join or a
// language change drops it back to StateReplaying until its replay completes.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateReplaying
	StateLive
	StateDisconnected
)

// Session is one live connection's membership and language preference
// within a chat.
type Session struct {
	ID         uuid.UUID
	ChatID     ChatID
	UserID     string
	TargetLang string
}
