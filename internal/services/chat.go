package services

import (
	"context"
	"fmt"
	"time"

	"project-advisor/internal/extraction"
	"project-advisor/internal/models"
	"project-advisor/internal/repositories"
)

// Turn is one user query and the assistant's answer
type Turn struct {
	ConversationID string
	ProjectID      string
	UserEmail      string
	Query          string
	Answer         string
	// Document is stored on newly created document conversations
	Document string
}

// ConversationManager appends turns to conversation logs
type ConversationManager struct {
	store repositories.Store
	now   func() time.Time
}

// NewConversationManager creates a new conversation manager
func NewConversationManager(store repositories.Store) *ConversationManager {
	return &ConversationManager{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Record appends the user query and assistant answer, in that order. Without
// a conversation id a new conversation is created and its id returned.
func (m *ConversationManager) Record(ctx context.Context, kind models.ConversationKind, turn Turn) (string, error) {
	now := m.now()
	messages := []models.Message{
		{Timestamp: now, Role: models.RoleUser, Text: turn.Query},
		{Timestamp: now, Role: models.RoleAssistant, Text: turn.Answer},
	}

	if turn.ConversationID != "" {
		if err := m.store.AppendMessages(ctx, kind, turn.ConversationID, messages...); err != nil {
			return "", fmt.Errorf("failed to append to conversation: %w", err)
		}
		return turn.ConversationID, nil
	}

	id, err := m.store.CreateConversation(ctx, kind, &models.Conversation{
		ProjectID:       turn.ProjectID,
		UserEmail:       turn.UserEmail,
		DocumentContent: turn.Document,
		Messages:        messages,
		CreatedAt:       now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

// ChatRequest is a question about a project
type ChatRequest struct {
	ProjectID      string `json:"projectId"`
	UserEmail      string `json:"userEmail"`
	Query          string `json:"query"`
	ConversationID string `json:"conversationId,omitempty"`
	DocumentID     string `json:"documentId,omitempty"`
}

// ChatResponse is the cleaned answer and the conversation it was logged to
type ChatResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId"`
}

// ChatService answers questions grounded in stored project context
type ChatService struct {
	store         repositories.Store
	generator     Generator
	assembler     *ContextAssembler
	conversations *ConversationManager
	documents     *DocumentRegistry
}

// NewChatService creates a new chat service
func NewChatService(store repositories.Store, generator Generator, documents *DocumentRegistry) *ChatService {
	return &ChatService{
		store:         store,
		generator:     generator,
		assembler:     NewContextAssembler(store),
		conversations: NewConversationManager(store),
		documents:     documents,
	}
}

// Ask answers a query using the project's context
func (s *ChatService) Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.ProjectID == "" || req.UserEmail == "" || req.Query == "" {
		return nil, invalid("projectId, userEmail, and query are required")
	}

	contextBlob := s.assembler.Build(ctx, req.ProjectID)
	raw, err := s.generator.Generate(ctx, chatPrompt(contextBlob, req.Query))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	answer := extraction.CleanAnswer(raw)

	id, err := s.conversations.Record(ctx, models.ConversationChatbot, Turn{
		ConversationID: req.ConversationID,
		ProjectID:      req.ProjectID,
		UserEmail:      req.UserEmail,
		Query:          req.Query,
		Answer:         answer,
	})
	if err != nil {
		return nil, err
	}

	return &ChatResponse{Answer: answer, ConversationID: id}, nil
}

// AskWithDocument answers a query using project context plus an uploaded
// document. A missing project id is replaced by a freshly minted one.
func (s *ChatService) AskWithDocument(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.UserEmail == "" || req.Query == "" {
		return nil, invalid("userEmail and query are required")
	}
	if req.ProjectID == "" {
		req.ProjectID = s.store.NewID()
	}

	var document string
	if req.DocumentID != "" {
		text, ok := s.documents.Get(req.DocumentID)
		if !ok {
			return nil, invalid("documentId is unknown or has expired")
		}
		document = text
	}

	contextBlob := WithDocument(s.assembler.Build(ctx, req.ProjectID), document)
	raw, err := s.generator.Generate(ctx, documentChatPrompt(contextBlob, req.Query))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	answer := extraction.CleanAnswer(raw)

	id, err := s.conversations.Record(ctx, models.ConversationDocuments, Turn{
		ConversationID: req.ConversationID,
		ProjectID:      req.ProjectID,
		UserEmail:      req.UserEmail,
		Query:          req.Query,
		Answer:         answer,
		Document:       document,
	})
	if err != nil {
		return nil, err
	}

	return &ChatResponse{Answer: answer, ConversationID: id}, nil
}
