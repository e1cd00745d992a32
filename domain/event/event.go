// Package event defines the domain events flowing between the send path
// and the live fanout worker.
package event

import (
	"babel-relay/domain"
)

// DomainEvent is anything routable to a chat's connected sessions.
type DomainEvent interface {
	ChatID() domain.ChatID
}

// MessageStored is emitted after the canonical record of a new message has
// been appended to the chat's log. The fanout worker consumes it.
type MessageStored struct {
	Message domain.Message
}

func (e MessageStored) ChatID() domain.ChatID {
	return e.Message.ChatID
}

// ChatDeleted is emitted when a chat's backing log and view are torn down,
// so connected sessions can be told their chat is gone.
type ChatDeleted struct {
	Chat domain.ChatID
}

func (e ChatDeleted) ChatID() domain.ChatID {
	return e.Chat
}
