package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageView is the per-recipient materialization of a message: the
// canonical record narrowed to one target language. Replayed distinguishes
// history re-delivery from live fanout.
type MessageView struct {
	MessageID      uuid.UUID `json:"messageId"`
	User           string    `json:"user"`
	OriginText     string    `json:"originText"`
	TranslatedText string    `json:"translatedText"`
	OriginLang     string    `json:"originLang"`
	TargetLang     string    `json:"targetLang"`
	Ts             time.Time `json:"ts"`
	Replayed       bool      `json:"replayed"`
}

// ViewOf narrows a message to the given target language. The caller is
// expected to have ensured the translation first; if the language is still
// missing the original text is used, matching the fallback contract.
func ViewOf(m Message, targetLang string, replayed bool) MessageView {
	text, ok := m.Translations[targetLang]
	if !ok {
		text = m.OriginalText
	}
	return MessageView{
		MessageID:      m.ID,
		User:           m.SenderID,
		OriginText:     m.OriginalText,
		TranslatedText: text,
		OriginLang:     m.OriginalLang,
		TargetLang:     targetLang,
		Ts:             m.CreatedAt,
		Replayed:       replayed,
	}
}
