package repositories

import (
	"context"
	"errors"

	"project-advisor/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a keyed record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidID is returned when an identifier is not a 24-hex object id
	ErrInvalidID = errors.New("invalid object id")
)

// Collection names
const (
	ProjectsCollection        = "projects"
	AnalysisCollection        = "analysis"
	RawAnalysisCollection     = "rawAnalysis"
	ChatbotCollection         = "chatbotConversation"
	DocumentChatCollection    = "chatWithDocuments"
	TeamAssignmentsCollection = "teamAssignments"
)

// Store is the document store the services depend on. Lookups of absent
// records return ErrNotFound.
type Store interface {
	FindProject(ctx context.Context, projectID string) (models.Project, error)
	LatestAnalysis(ctx context.Context, projectID string) (*models.StructuredAnalysis, error)
	LatestRawAnalysis(ctx context.Context, projectID string) (*models.RawAnalysis, error)

	InsertRawAnalysis(ctx context.Context, raw *models.RawAnalysis) (string, error)
	InsertAnalysis(ctx context.Context, analysis *models.StructuredAnalysis) (string, error)

	CreateConversation(ctx context.Context, kind models.ConversationKind, conv *models.Conversation) (string, error)
	AppendMessages(ctx context.Context, kind models.ConversationKind, conversationID string, messages ...models.Message) error

	UpsertTeamAssignment(ctx context.Context, assignment *models.TeamAssignment) error

	// NewID mints an identifier in the store's format
	NewID() string
	Close(ctx context.Context) error
}

// ParseID converts a hex identifier, wrapping failures in ErrInvalidID
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errors.Join(ErrInvalidID, err)
	}
	return oid, nil
}

func conversationCollection(kind models.ConversationKind) string {
	if kind == models.ConversationDocuments {
		return DocumentChatCollection
	}
	return ChatbotCollection
}
