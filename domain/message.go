// Package domain contains core concepts of the relay.
// This file defines the canonical Message record and its merge rules.
// Messages are immutable except for the translations map, which only grows.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatID identifies a chat and its backing log/view pair.
type ChatID string

// Message is the canonical per-chat record. Identity is ID, assigned at
// creation and stable across every later translation merge. Translations
// always contains the original language mapped to the original text.
type Message struct {
	ID           uuid.UUID         `json:"messageId"`
	ChatID       ChatID            `json:"chatId"`
	SenderID     string            `json:"user"`
	Seq          int64             `json:"seq"`
	CreatedAt    time.Time         `json:"ts"`
	OriginalLang string            `json:"originalLang"`
	OriginalText string            `json:"originalText"`
	Translations map[string]string `json:"translations"`
}

// NewMessage builds the canonical record for a freshly sent message.
// The sender's own language is seeded into the translations map so the
// invariant translations[originalLang] == originalText holds from creation.
func NewMessage(chatID ChatID, senderID, lang, text string, at time.Time) Message {
	return Message{
		ID:           uuid.New(),
		ChatID:       chatID,
		SenderID:     senderID,
		CreatedAt:    at,
		OriginalLang: lang,
		OriginalText: text,
		Translations: map[string]string{lang: text},
	}
}

// Translated reports whether the message already carries the given language.
func (m Message) Translated(lang string) bool {
	_, ok := m.Translations[lang]
	return ok
}

// MergeTranslations returns a copy of m whose translations map is the
// monotonic union of both inputs. Entries already present are never
// overwritten, so a language cached by one writer cannot be dropped or
// rewritten by another writer working from an older snapshot.
func (m Message) MergeTranslations(extra map[string]string) Message {
	merged := make(map[string]string, len(m.Translations)+len(extra))
	for lang, text := range m.Translations {
		merged[lang] = text
	}
	for lang, text := range extra {
		if _, ok := merged[lang]; !ok {
			merged[lang] = text
		}
	}
	out := m
	out.Translations = merged
	return out
}
