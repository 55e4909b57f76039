package services

import (
	"context"
	"errors"
	"strings"

	"project-advisor/internal/helpers"
	"project-advisor/internal/models"
	"project-advisor/internal/repositories"
)

// Section labels of the context blob
const (
	sectionProject   = "Project Details"
	sectionAnalysis  = "Structured Analysis"
	sectionRaw       = "Raw Analysis"
	sectionDocument  = "Document Content"
	sectionSeparator = "\n\n"
)

// ContextAssembler merges a project's stored records into one prompt context
type ContextAssembler struct {
	store repositories.Store
}

// NewContextAssembler creates a new context assembler
func NewContextAssembler(store repositories.Store) *ContextAssembler {
	return &ContextAssembler{store: store}
}

// Build returns the labelled project, structured analysis and raw analysis
// sections that exist for projectID. Lookup failures drop the section; the
// result is empty when nothing is available.
func (a *ContextAssembler) Build(ctx context.Context, projectID string) string {
	var parts []string

	project, err := a.store.FindProject(ctx, projectID)
	if a.usable("project", projectID, err) && project != nil {
		details := make(models.Project, len(project))
		for k, v := range project {
			if k != models.ProjectIDField {
				details[k] = v
			}
		}
		parts = append(parts, section(sectionProject, helpers.PrettyJSON(details)))
	}

	analysis, err := a.store.LatestAnalysis(ctx, projectID)
	if a.usable("analysis", projectID, err) && analysis != nil && len(analysis.Analysis) > 0 {
		parts = append(parts, section(sectionAnalysis, helpers.PrettyJSON(analysis.Analysis)))
	}

	raw, err := a.store.LatestRawAnalysis(ctx, projectID)
	if a.usable("raw analysis", projectID, err) && raw != nil && raw.RawText != "" {
		parts = append(parts, section(sectionRaw, raw.RawText))
	}

	return strings.Join(parts, sectionSeparator)
}

// WithDocument appends the document section to a context blob
func WithDocument(contextBlob, document string) string {
	if document == "" {
		return contextBlob
	}
	doc := section(sectionDocument, document)
	if contextBlob == "" {
		return doc
	}
	return contextBlob + sectionSeparator + doc
}

func (a *ContextAssembler) usable(what, projectID string, err error) bool {
	if err == nil {
		return true
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		helpers.PrintWarning("Skipping %s context for project %s: %v", what, projectID, err)
	}
	return false
}

func section(label, body string) string {
	return label + ":\n" + body
}
