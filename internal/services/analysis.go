package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"project-advisor/internal/extraction"
	"project-advisor/internal/helpers"
	"project-advisor/internal/models"
	"project-advisor/internal/repositories"
)

// AnalysisService runs the two-pass project analysis
type AnalysisService struct {
	store     repositories.Store
	generator Generator
	now       func() time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(store repositories.Store, generator Generator) *AnalysisService {
	return &AnalysisService{
		store:     store,
		generator: generator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProjectID returns the identifier carried by a submitted project document
func ProjectID(project models.Project) string {
	for _, key := range []string{models.ProjectIDField, "id"} {
		if v, ok := project[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// AnalyzeProject asks for a free-form narrative, stores it, then asks for
// the narrative compressed into the recognized keys and stores the parsed
// result. The raw narrative stays stored even if the second pass fails.
func (s *AnalysisService) AnalyzeProject(ctx context.Context, project models.Project) (*models.AnalysisResult, error) {
	if len(project) == 0 {
		return nil, invalid("No project data provided")
	}
	projectID := ProjectID(project)
	if projectID == "" {
		return nil, invalid("Project _id is required to link analysis data.")
	}

	helpers.PrintInfo("Analyzing project %s", projectID)

	narrative, err := s.generator.Generate(ctx, narrativePrompt(project))
	if err != nil {
		return nil, fmt.Errorf("failed to generate narrative analysis: %w", err)
	}

	rawID, err := s.store.InsertRawAnalysis(ctx, &models.RawAnalysis{
		ProjectID: projectID,
		RawText:   narrative,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save raw analysis: %w", err)
	}

	structured, err := s.generator.Generate(ctx, structuringPrompt(narrative))
	if err != nil {
		return nil, fmt.Errorf("failed to generate structured analysis: %w", err)
	}

	res := extraction.Extract(structured)
	if res.Stage == extraction.StageFallback {
		helpers.PrintWarning("Structured analysis for project %s could not be parsed: %s",
			projectID, helpers.Truncate(structured, 200))
	}

	analysisID, err := s.store.InsertAnalysis(ctx, &models.StructuredAnalysis{
		ProjectID:         projectID,
		Analysis:          res.Value,
		AnalysisTimestamp: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save structured analysis: %w", err)
	}

	helpers.PrintSuccess("Stored analysis %s (raw %s, %s parse) for project %s", analysisID, rawID, res.Stage, projectID)

	return &models.AnalysisResult{
		AnalysisID:    analysisID,
		RawAnalysisID: rawID,
		RawText:       narrative,
		Analysis:      res.Value,
	}, nil
}

// DisplayAnalysis prints an analysis result in a readable form
func (s *AnalysisService) DisplayAnalysis(result *models.AnalysisResult) {
	helpers.PrintTitle("Project Analysis %s", result.AnalysisID)
	helpers.PrintInfo("Raw analysis: %s", result.RawAnalysisID)
	helpers.PrintSeparator()

	if extraction.IsErrorShape(result.Analysis) {
		helpers.PrintWarning("The structured pass could not be parsed; raw output follows")
		fmt.Println(result.Analysis["raw"])
		return
	}

	shown := make(map[string]bool)
	for _, key := range models.AnalysisKeys {
		if v, ok := result.Analysis[key]; ok {
			printAnalysisField(key, v)
			shown[key] = true
		}
	}

	var extra []string
	for key := range result.Analysis {
		if !shown[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		printAnalysisField(key, result.Analysis[key])
	}
}

// SaveAnalysisResult writes the analysis as JSON and a markdown summary
func (s *AnalysisService) SaveAnalysisResult(result *models.AnalysisResult, outputDir string) error {
	if err := helpers.EnsureDir(outputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	jsonPath := helpers.GetOutputPath(outputDir, helpers.GenerateOutputFilename("project-analysis", "json"))
	if err := helpers.SaveJSON(result, jsonPath); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	helpers.PrintSuccess("Saved analysis to: %s", jsonPath)

	var summary strings.Builder
	summary.WriteString(fmt.Sprintf("# Project Analysis %s\n\n", result.AnalysisID))
	for _, key := range models.AnalysisKeys {
		v, ok := result.Analysis[key]
		if !ok {
			continue
		}
		summary.WriteString(fmt.Sprintf("## %s\n\n", key))
		if str, ok := v.(string); ok {
			summary.WriteString(str + "\n\n")
		} else {
			summary.WriteString("```json\n" + helpers.PrettyJSON(v) + "\n```\n\n")
		}
	}

	summaryPath := helpers.GetOutputPath(outputDir, helpers.GenerateOutputFilename("project-analysis-summary", "md"))
	if err := helpers.SaveText(summary.String(), summaryPath); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	helpers.PrintSuccess("Saved summary to: %s", summaryPath)

	return nil
}

func printAnalysisField(key string, v interface{}) {
	if str, ok := v.(string); ok {
		helpers.PrintInfo("%s: %s", key, str)
		return
	}
	helpers.PrintInfo("%s:", key)
	fmt.Println(helpers.PrettyJSON(v))
}
