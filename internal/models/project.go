package models

import "time"

// Project is an arbitrary project document owned by the project-management
// workflow. It is only ever read here.
type Project map[string]interface{}

// Well-known project fields
const (
	ProjectIDField        = "_id"
	ProjectTimelineField  = "timeline"
	ProjectCreatedAtField = "createdAt"
)

// Recognized keys of a structured analysis
var AnalysisKeys = []string{
	"suggestedTime",
	"suggestedBudget",
	"riskAssessment",
	"recommendedTeamStructure",
	"memberRecommendations",
	"phases",
	"potentialRisks",
	"riskMitigation",
	"advancedIdeas",
	"sdlcMethodology",
}

// RawAnalysis is the verbatim narrative returned by the first generative pass
type RawAnalysis struct {
	ID        string    `json:"id" bson:"-"`
	ProjectID string    `json:"projectId" bson:"-"`
	RawText   string    `json:"rawAnalysis" bson:"rawAnalysis"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// StructuredAnalysis holds the parsed second pass. Analysis is either the
// recognized-key mapping or the {error, raw} fallback, never nil.
type StructuredAnalysis struct {
	ID                string                 `json:"id" bson:"-"`
	ProjectID         string                 `json:"projectId" bson:"-"`
	Analysis          map[string]interface{} `json:"analysis" bson:"analysis"`
	AnalysisTimestamp time.Time              `json:"analysisTimestamp" bson:"analysisTimestamp"`
}

// AnalysisResult is what one analysis run produced
type AnalysisResult struct {
	AnalysisID    string                 `json:"analysis_id"`
	RawAnalysisID string                 `json:"raw_analysis_id"`
	RawText       string                 `json:"raw_analysis,omitempty"`
	Analysis      map[string]interface{} `json:"analysis"`
}
