package repositories

import (
	"context"
	"fmt"
	"sync"

	"project-advisor/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository is an in-process Store. It validates identifiers the same
// way MongoRepository does so behaviour matches across drivers.
type MemoryRepository struct {
	mu            sync.RWMutex
	projects      map[string]models.Project
	analyses      []models.StructuredAnalysis
	rawAnalyses   []models.RawAnalysis
	conversations map[models.ConversationKind]map[string]*models.Conversation
	assignments   map[assignmentKey]models.TeamAssignment
}

type assignmentKey struct {
	email     string
	projectID string
}

// NewMemoryRepository creates an empty in-memory store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects:      make(map[string]models.Project),
		conversations: make(map[models.ConversationKind]map[string]*models.Conversation),
		assignments:   make(map[assignmentKey]models.TeamAssignment),
	}
}

// PutProject stores a project document under projectID
func (r *MemoryRepository) PutProject(projectID string, project models.Project) error {
	if _, err := ParseID(projectID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[projectID] = cloneProject(project)
	return nil
}

// FindProject returns a copy of the stored project
func (r *MemoryRepository) FindProject(ctx context.Context, projectID string) (models.Project, error) {
	if _, err := ParseID(projectID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	project, ok := r.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project: %w", ErrNotFound)
	}
	out := cloneProject(project)
	out[models.ProjectIDField] = projectID
	return out, nil
}

// LatestAnalysis returns the analysis with the greatest timestamp; on ties
// the later insert wins.
func (r *MemoryRepository) LatestAnalysis(ctx context.Context, projectID string) (*models.StructuredAnalysis, error) {
	if _, err := ParseID(projectID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.StructuredAnalysis
	for i := range r.analyses {
		a := &r.analyses[i]
		if a.ProjectID != projectID {
			continue
		}
		if latest == nil || !a.AnalysisTimestamp.Before(latest.AnalysisTimestamp) {
			latest = a
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("analysis: %w", ErrNotFound)
	}
	out := *latest
	return &out, nil
}

// LatestRawAnalysis returns the raw analysis with the greatest createdAt
func (r *MemoryRepository) LatestRawAnalysis(ctx context.Context, projectID string) (*models.RawAnalysis, error) {
	if _, err := ParseID(projectID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.RawAnalysis
	for i := range r.rawAnalyses {
		raw := &r.rawAnalyses[i]
		if raw.ProjectID != projectID {
			continue
		}
		if latest == nil || !raw.CreatedAt.Before(latest.CreatedAt) {
			latest = raw
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("raw analysis: %w", ErrNotFound)
	}
	out := *latest
	return &out, nil
}

// InsertRawAnalysis stores a raw analysis
func (r *MemoryRepository) InsertRawAnalysis(ctx context.Context, raw *models.RawAnalysis) (string, error) {
	if _, err := ParseID(raw.ProjectID); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *raw
	stored.ID = r.NewID()
	r.rawAnalyses = append(r.rawAnalyses, stored)
	return stored.ID, nil
}

// InsertAnalysis stores a structured analysis
func (r *MemoryRepository) InsertAnalysis(ctx context.Context, analysis *models.StructuredAnalysis) (string, error) {
	if _, err := ParseID(analysis.ProjectID); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *analysis
	stored.ID = r.NewID()
	r.analyses = append(r.analyses, stored)
	return stored.ID, nil
}

// CreateConversation stores a new conversation
func (r *MemoryRepository) CreateConversation(ctx context.Context, kind models.ConversationKind, conv *models.Conversation) (string, error) {
	if _, err := ParseID(conv.ProjectID); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *conv
	stored.ID = r.NewID()
	stored.Messages = append([]models.Message(nil), conv.Messages...)

	byID, ok := r.conversations[kind]
	if !ok {
		byID = make(map[string]*models.Conversation)
		r.conversations[kind] = byID
	}
	byID[stored.ID] = &stored
	return stored.ID, nil
}

// AppendMessages appends messages to an existing conversation
func (r *MemoryRepository) AppendMessages(ctx context.Context, kind models.ConversationKind, conversationID string, messages ...models.Message) error {
	if _, err := ParseID(conversationID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[kind][conversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	conv.Messages = append(conv.Messages, messages...)
	return nil
}

// Conversation returns a copy of a stored conversation
func (r *MemoryRepository) Conversation(kind models.ConversationKind, conversationID string) (*models.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[kind][conversationID]
	if !ok {
		return nil, false
	}
	out := *conv
	out.Messages = append([]models.Message(nil), conv.Messages...)
	return &out, true
}

// ConversationCount returns how many conversations of kind are stored
func (r *MemoryRepository) ConversationCount(kind models.ConversationKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations[kind])
}

// UpsertTeamAssignment creates or replaces the assignment for (email, project)
func (r *MemoryRepository) UpsertTeamAssignment(ctx context.Context, assignment *models.TeamAssignment) error {
	if _, err := ParseID(assignment.ProjectID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *assignment
	stored.Tasks = append([]models.Task(nil), assignment.Tasks...)
	r.assignments[assignmentKey{email: assignment.Email, projectID: assignment.ProjectID}] = stored
	return nil
}

// TeamAssignments returns every stored assignment for a project
func (r *MemoryRepository) TeamAssignments(projectID string) []models.TeamAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.TeamAssignment
	for key, a := range r.assignments {
		if key.projectID == projectID {
			out = append(out, a)
		}
	}
	return out
}

// Counts reports stored raw and structured analyses for a project
func (r *MemoryRepository) Counts(projectID string) (raw, structured int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.rawAnalyses {
		if a.ProjectID == projectID {
			raw++
		}
	}
	for _, a := range r.analyses {
		if a.ProjectID == projectID {
			structured++
		}
	}
	return raw, structured
}

// NewID mints a new object id
func (r *MemoryRepository) NewID() string {
	return primitive.NewObjectID().Hex()
}

// Close is a no-op
func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}

func cloneProject(p models.Project) models.Project {
	out := make(models.Project, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
