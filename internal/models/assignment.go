package models

import (
	"encoding/json"
	"time"
)

// Task statuses
const (
	TaskPending = "Pending"
)

// TeamMember is one entry of the confirmed roster. Extra fields supplied by
// the caller are kept so they reach the prompt unchanged.
type TeamMember map[string]interface{}

// Email returns the member's email, if any
func (m TeamMember) Email() string {
	s, _ := m["email"].(string)
	return s
}

// Task is a single assigned unit of work
type Task struct {
	Description string  `json:"description" bson:"description"`
	Deadline    *string `json:"deadline" bson:"deadline"`
	Status      string  `json:"status" bson:"status"`
	Progress    int     `json:"progress" bson:"progress"`
	AssignedAt  string  `json:"assignedAt" bson:"assignedAt"`
}

// MemberAssignment is the generated plan for one team member. Extra keeps
// any other keys the model produced; they are echoed back but not stored.
type MemberAssignment struct {
	TeamMemberName string                 `json:"teamMemberName"`
	Role           string                 `json:"role"`
	Tasks          []Task                 `json:"tasks"`
	Extra          map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra alongside the known fields
func (a MemberAssignment) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a.Extra)+3)
	for k, v := range a.Extra {
		out[k] = v
	}
	out["teamMemberName"] = a.TeamMemberName
	out["role"] = a.Role
	out["tasks"] = a.Tasks
	return json.Marshal(out)
}

// TeamAssignment is the stored assignment, unique per (Email, ProjectID)
type TeamAssignment struct {
	Email          string    `json:"email" bson:"email"`
	ProjectID      string    `json:"projectId" bson:"-"`
	TeamMemberName string    `json:"teamMemberName" bson:"teamMemberName"`
	Role           string    `json:"role" bson:"role"`
	Tasks          []Task    `json:"tasks" bson:"tasks"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}
