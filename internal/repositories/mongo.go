package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"project-advisor/internal/config"
	"project-advisor/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository handles document store interactions on MongoDB
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

type rawAnalysisDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	ProjectID          primitive.ObjectID `bson:"projectId"`
	models.RawAnalysis `bson:",inline"`
}

type analysisDoc struct {
	ID                        primitive.ObjectID `bson:"_id,omitempty"`
	ProjectID                 primitive.ObjectID `bson:"projectId"`
	models.StructuredAnalysis `bson:",inline"`
}

type conversationDoc struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	ProjectID           primitive.ObjectID `bson:"projectId"`
	models.Conversation `bson:",inline"`
}

// NewMongoRepository connects to MongoDB and verifies the connection
func NewMongoRepository(ctx context.Context, storeConfig *config.StoreConfig) (*MongoRepository, error) {
	timeout := time.Duration(storeConfig.TimeoutSeconds) * time.Second
	opts := options.Client().
		ApplyURI(storeConfig.URI).
		SetConnectTimeout(timeout).
		SetTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoRepository{
		client: client,
		db:     client.Database(storeConfig.Database),
	}, nil
}

// EnsureIndexes creates the unique (email, projectId) index upserts rely on
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(TeamAssignmentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}, {Key: "projectId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create team assignment index: %w", err)
	}
	return nil
}

// FindProject returns the project document with the given id
func (r *MongoRepository) FindProject(ctx context.Context, projectID string) (models.Project, error) {
	oid, err := ParseID(projectID)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = r.db.Collection(ProjectsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		return nil, wrapFind("project", err)
	}

	return models.Project(doc), nil
}

// LatestAnalysis returns the most recent structured analysis for a project
func (r *MongoRepository) LatestAnalysis(ctx context.Context, projectID string) (*models.StructuredAnalysis, error) {
	oid, err := ParseID(projectID)
	if err != nil {
		return nil, err
	}

	var doc analysisDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "analysisTimestamp", Value: -1}})
	if err := r.db.Collection(AnalysisCollection).FindOne(ctx, bson.M{"projectId": oid}, opts).Decode(&doc); err != nil {
		return nil, wrapFind("analysis", err)
	}

	analysis := doc.StructuredAnalysis
	analysis.ID = doc.ID.Hex()
	analysis.ProjectID = doc.ProjectID.Hex()
	return &analysis, nil
}

// LatestRawAnalysis returns the most recent raw analysis for a project
func (r *MongoRepository) LatestRawAnalysis(ctx context.Context, projectID string) (*models.RawAnalysis, error) {
	oid, err := ParseID(projectID)
	if err != nil {
		return nil, err
	}

	var doc rawAnalysisDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := r.db.Collection(RawAnalysisCollection).FindOne(ctx, bson.M{"projectId": oid}, opts).Decode(&doc); err != nil {
		return nil, wrapFind("raw analysis", err)
	}

	raw := doc.RawAnalysis
	raw.ID = doc.ID.Hex()
	raw.ProjectID = doc.ProjectID.Hex()
	return &raw, nil
}

// InsertRawAnalysis stores a raw analysis and returns its id
func (r *MongoRepository) InsertRawAnalysis(ctx context.Context, raw *models.RawAnalysis) (string, error) {
	oid, err := ParseID(raw.ProjectID)
	if err != nil {
		return "", err
	}

	res, err := r.db.Collection(RawAnalysisCollection).InsertOne(ctx, rawAnalysisDoc{
		ProjectID:   oid,
		RawAnalysis: *raw,
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert raw analysis: %w", err)
	}

	return insertedHex(res), nil
}

// InsertAnalysis stores a structured analysis and returns its id
func (r *MongoRepository) InsertAnalysis(ctx context.Context, analysis *models.StructuredAnalysis) (string, error) {
	oid, err := ParseID(analysis.ProjectID)
	if err != nil {
		return "", err
	}

	res, err := r.db.Collection(AnalysisCollection).InsertOne(ctx, analysisDoc{
		ProjectID:          oid,
		StructuredAnalysis: *analysis,
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert analysis: %w", err)
	}

	return insertedHex(res), nil
}

// CreateConversation stores a new conversation and returns its id
func (r *MongoRepository) CreateConversation(ctx context.Context, kind models.ConversationKind, conv *models.Conversation) (string, error) {
	oid, err := ParseID(conv.ProjectID)
	if err != nil {
		return "", err
	}

	res, err := r.db.Collection(conversationCollection(kind)).InsertOne(ctx, conversationDoc{
		ProjectID:    oid,
		Conversation: *conv,
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert conversation: %w", err)
	}

	return insertedHex(res), nil
}

// AppendMessages pushes messages onto a conversation in a single update
func (r *MongoRepository) AppendMessages(ctx context.Context, kind models.ConversationKind, conversationID string, messages ...models.Message) error {
	oid, err := ParseID(conversationID)
	if err != nil {
		return err
	}

	update := bson.M{"$push": bson.M{"messages": bson.M{"$each": messages}}}
	res, err := r.db.Collection(conversationCollection(kind)).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	return nil
}

// UpsertTeamAssignment replaces the member's name, role and tasks for a
// project, creating the record when absent
func (r *MongoRepository) UpsertTeamAssignment(ctx context.Context, assignment *models.TeamAssignment) error {
	oid, err := ParseID(assignment.ProjectID)
	if err != nil {
		return err
	}

	filter := bson.M{"email": assignment.Email, "projectId": oid}
	update := bson.M{"$set": bson.M{
		"teamMemberName": assignment.TeamMemberName,
		"role":           assignment.Role,
		"tasks":          assignment.Tasks,
		"updatedAt":      assignment.UpdatedAt,
	}}

	_, err = r.db.Collection(TeamAssignmentsCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert assignment for %s: %w", assignment.Email, err)
	}

	return nil
}

// NewID mints a new object id
func (r *MongoRepository) NewID() string {
	return primitive.NewObjectID().Hex()
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func wrapFind(what string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

func insertedHex(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", res.InsertedID)
}
