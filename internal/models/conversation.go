package models

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationKind selects which conversation log a chat belongs to
type ConversationKind string

const (
	ConversationChatbot   ConversationKind = "chatbot"
	ConversationDocuments ConversationKind = "documents"
)

// Message is one turn in a conversation
type Message struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Role      string    `json:"role" bson:"role"`
	Text      string    `json:"message" bson:"message"`
}

// Conversation is an append-only chat log for one project and user
type Conversation struct {
	ID              string    `json:"id" bson:"-"`
	ProjectID       string    `json:"projectId" bson:"-"`
	UserEmail       string    `json:"userEmail" bson:"userEmail"`
	DocumentContent string    `json:"documentContent,omitempty" bson:"documentContent,omitempty"`
	Messages        []Message `json:"messages" bson:"messages"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
}
