package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"project-advisor/internal/extraction"
	"project-advisor/internal/helpers"
	"project-advisor/internal/models"
	"project-advisor/internal/repositories"
)

// AssignmentResult is the generated plan and the members that were not stored
type AssignmentResult struct {
	Assignments map[string]models.MemberAssignment `json:"assignments"`
	Failed      []string                           `json:"failed,omitempty"`
}

// AssignmentService generates and stores per-member task assignments
type AssignmentService struct {
	store     repositories.Store
	generator Generator
	assembler *ContextAssembler
	now       func() time.Time
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(store repositories.Store, generator Generator) *AssignmentService {
	return &AssignmentService{
		store:     store,
		generator: generator,
		assembler: NewContextAssembler(store),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AssignTasks asks for a task plan covering the confirmed roster and upserts
// one assignment per member email. Members whose entry is malformed or whose
// upsert fails are listed in Failed; the rest of the plan is still returned.
func (s *AssignmentService) AssignTasks(ctx context.Context, projectID string, roster []models.TeamMember) (*AssignmentResult, error) {
	if projectID == "" || len(roster) == 0 {
		return nil, invalid("Project ID and confirmed team details are required")
	}

	project, err := s.store.FindProject(ctx, projectID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	timeline := ResolveTimeline(project)
	if timeline == nil {
		helpers.PrintInfo("No usable timeline for project %s; deadlines left open", projectID)
	}

	contextBlob := s.assembler.Build(ctx, projectID)
	generated, err := s.generator.Generate(ctx, assignmentPrompt(contextBlob, roster, timeline))
	if err != nil {
		return nil, fmt.Errorf("failed to generate assignments: %w", err)
	}

	entries := extraction.Assignments(generated)
	if len(entries) == 0 {
		helpers.PrintWarning("No assignments found in generated output for project %s: %s",
			projectID, helpers.Truncate(generated, 200))
	}

	result := &AssignmentResult{Assignments: make(map[string]models.MemberAssignment, len(entries))}
	emails := make([]string, 0, len(entries))
	for email := range entries {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	for i, email := range emails {
		helpers.PrintProgress(i+1, len(emails), fmt.Sprintf("Assigning tasks to %s", email))

		assignment, err := decodeMemberAssignment(entries[email])
		if err != nil {
			helpers.PrintWarning("Skipping malformed assignment for %s: %v", email, err)
			result.Failed = append(result.Failed, email)
			continue
		}
		s.normalizeTasks(assignment.Tasks)
		result.Assignments[email] = assignment

		err = s.store.UpsertTeamAssignment(ctx, &models.TeamAssignment{
			Email:          email,
			ProjectID:      projectID,
			TeamMemberName: assignment.TeamMemberName,
			Role:           assignment.Role,
			Tasks:          assignment.Tasks,
			UpdatedAt:      s.now(),
		})
		if err != nil {
			helpers.PrintWarning("Failed to store assignment for %s: %v", email, err)
			result.Failed = append(result.Failed, email)
			continue
		}
	}

	helpers.PrintSuccess("Assigned tasks to %d of %d members for project %s",
		len(emails)-len(result.Failed), len(emails), projectID)
	return result, nil
}

// decodeMemberAssignment reads one generated entry. Only a non-object entry
// is rejected; loosely typed task fields are coerced.
func decodeMemberAssignment(entry interface{}) (models.MemberAssignment, error) {
	fields, ok := entry.(map[string]interface{})
	if !ok {
		return models.MemberAssignment{}, fmt.Errorf("expected an object, got %T", entry)
	}

	assignment := models.MemberAssignment{
		TeamMemberName: textValue(fields["teamMemberName"]),
		Role:           textValue(fields["role"]),
		Tasks:          []models.Task{},
	}
	for key, value := range fields {
		switch key {
		case "teamMemberName", "role", "tasks":
			continue
		}
		if assignment.Extra == nil {
			assignment.Extra = make(map[string]interface{})
		}
		assignment.Extra[key] = value
	}

	items, _ := fields["tasks"].([]interface{})
	for _, item := range items {
		assignment.Tasks = append(assignment.Tasks, decodeTask(item))
	}
	return assignment, nil
}

func decodeTask(item interface{}) models.Task {
	fields, ok := item.(map[string]interface{})
	if !ok {
		return models.Task{Description: textValue(item)}
	}

	task := models.Task{
		Description: textValue(fields["description"]),
		Status:      textValue(fields["status"]),
		Progress:    progressValue(fields["progress"]),
		AssignedAt:  textValue(fields["assignedAt"]),
	}
	if deadline, ok := fields["deadline"]; ok && deadline != nil {
		d := textValue(deadline)
		task.Deadline = &d
	}
	return task
}

// textValue renders scalars as text; numbers lose no digits
func textValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// progressValue accepts a number or numeric string and clamps it to 0..100
func progressValue(v interface{}) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%")), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 100:
		return 100
	}
	return int(f)
}

func (s *AssignmentService) normalizeTasks(tasks []models.Task) {
	stamp := s.now().Format(time.RFC3339)
	for i := range tasks {
		t := &tasks[i]
		if t.Status == "" {
			t.Status = models.TaskPending
		}
		if t.Progress < 0 {
			t.Progress = 0
		} else if t.Progress > 100 {
			t.Progress = 100
		}
		if t.AssignedAt == "" {
			t.AssignedAt = stamp
		}
		if t.Deadline != nil && strings.TrimSpace(*t.Deadline) == "" {
			t.Deadline = nil
		}
	}
}

// ResolveTimeline reads the project's duration in weeks and its creation
// time. It returns nil unless both are usable.
func ResolveTimeline(project models.Project) *Timeline {
	if project == nil {
		return nil
	}

	weeks, ok := timelineWeeks(project[models.ProjectTimelineField])
	if !ok || weeks <= 0 {
		return nil
	}

	start, ok := startDate(project[models.ProjectCreatedAtField])
	if !ok {
		helpers.PrintWarning("Project createdAt %v is not a usable start date", project[models.ProjectCreatedAtField])
		return nil
	}

	return &Timeline{Start: start, TotalDays: weeks * 7}
}

func timelineWeeks(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		n, err := strconv.Atoi(t.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

var startDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func startDate(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case interface{ Time() time.Time }:
		return t.Time(), true
	case string:
		for _, layout := range startDateLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
