package services

import (
	"context"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/runtime"

	"github.com/google/uuid"
)

type IChatService interface {
	Join(ctx context.Context, session domain.Session, sink contract.SessionSink) error
	SetLanguage(ctx context.Context, sessionID uuid.UUID, lang string, sink contract.SessionSink) error
	Disconnect(sessionID uuid.UUID)
	Send(ctx context.Context, session domain.Session, text, lang string) (domain.Message, error)
	CreateChat() (domain.ChatID, error)
	DeleteChat(chat domain.ChatID) error
	ListChats() ([]domain.ChatID, error)
	Search(ctx context.Context, chat domain.ChatID, query string, limit int) ([]contract.SearchHit, error)
}

// ChatService is the transport-facing facade over the orchestrator.
type ChatService struct {
	orchestrator *runtime.Orchestrator
}

func NewChatService(o *runtime.Orchestrator) *ChatService {
	return &ChatService{orchestrator: o}
}

func (s *ChatService) Join(ctx context.Context, session domain.Session, sink contract.SessionSink) error {
	return s.orchestrator.Join(ctx, session, sink)
}

func (s *ChatService) SetLanguage(ctx context.Context, sessionID uuid.UUID, lang string, sink contract.SessionSink) error {
	return s.orchestrator.SetLanguage(ctx, sessionID, lang, sink)
}

func (s *ChatService) Disconnect(sessionID uuid.UUID) {
	s.orchestrator.Disconnect(sessionID)
}

func (s *ChatService) Send(ctx context.Context, session domain.Session, text, lang string) (domain.Message, error) {
	return s.orchestrator.Send(ctx, session, text, lang)
}

func (s *ChatService) CreateChat() (domain.ChatID, error) {
	return s.orchestrator.CreateChat()
}

func (s *ChatService) DeleteChat(chat domain.ChatID) error {
	return s.orchestrator.DeleteChat(chat)
}

func (s *ChatService) ListChats() ([]domain.ChatID, error) {
	return s.orchestrator.ListChats()
}

func (s *ChatService) Search(ctx context.Context, chat domain.ChatID, query string, limit int) ([]contract.SearchHit, error) {
	return s.orchestrator.Search(ctx, chat, query, limit)
}
