package services

import (
	"fmt"
	"strings"
	"time"

	"project-advisor/internal/helpers"
	"project-advisor/internal/models"
)

func narrativePrompt(project models.Project) string {
	return fmt.Sprintf(`You are an expert project management advisor.
Provide a very detailed, multi-page analysis of the following project. Discuss scope, budget, timeline, risk factors, team structure, phases, potential pitfalls, advanced ideas, and any other relevant aspects.

Project details:
%s

Be as thorough as possible. No strict format is required.`, helpers.PrettyJSON(project))
}

func structuringPrompt(narrative string) string {
	return fmt.Sprintf(`You are an assistant that converts long text into a rich JSON structure.
Extract and create a JSON object with the following keys exactly:
  - suggestedTime (string)
  - suggestedBudget (number)
  - riskAssessment (string)
  - recommendedTeamStructure (object)
  - memberRecommendations (object)
  - phases (array or object)
  - potentialRisks (array)
  - riskMitigation (array or object)
  - advancedIdeas (array or object)
  - sdlcMethodology (string)
If any field is missing, set it as empty or null.
Return ONLY valid JSON without extra text.

Raw text:
%s
`, narrative)
}

func chatPrompt(contextBlob, query string) string {
	return fmt.Sprintf(`You are a helpful AI assistant that responds in a clean, concise, well-formatted text.
Please do not include triple backticks or disclaimers.
Use headings, bullet points, or short paragraphs as needed.
Avoid excessive asterisks or markdown fences.

Project Context:
%s

User Query:
%s

Answer:
`, contextBlob, query)
}

func documentChatPrompt(contextBlob, query string) string {
	return fmt.Sprintf(`You are a helpful AI assistant answering questions about a project and the documents shared for it.
Please do not include triple backticks or disclaimers.

Project Context:
%s

User Query: %s

Answer:`, contextBlob, query)
}

// Timeline is the resolved project schedule used to spread deadlines
type Timeline struct {
	Start     time.Time
	TotalDays int
}

func assignmentPrompt(contextBlob string, roster []models.TeamMember, timeline *Timeline) string {
	var b strings.Builder

	b.WriteString("You are an expert project management advisor. Based on the following project context and confirmed team details, ")
	b.WriteString("generate a detailed task assignment plan for each team member in JSON format. For each team member, include their email, name, role, and an array of tasks. ")
	b.WriteString("Each task should have a 'description', a 'deadline' (YYYY-MM-DD format), a 'status' (set to 'Pending'), 'progress' (0), and 'assignedAt' timestamp in ISO format. ")
	b.WriteString("Distribute deadlines evenly over the project's timeline if timeline information is provided. ")
	b.WriteString("If timeline information is not provided, leave deadlines as null.\n\n")

	b.WriteString("Project Context:\n")
	b.WriteString(contextBlob)
	b.WriteString("\n\nConfirmed Team Details:\n")
	b.WriteString(helpers.PrettyJSON(roster))
	b.WriteString("\n\n")

	if timeline != nil {
		fmt.Fprintf(&b, "Project Timeline: Start date is %s and total project duration is %d days.\n\n",
			timeline.Start.Format("2006-01-02T15:04:05"), timeline.TotalDays)
	}

	b.WriteString("Generate a JSON object with an 'assignments' key mapping each team member's email to their assignment details. ")
	b.WriteString("Return ONLY the valid JSON without any markdown code block markers (like ```json or ```) or other text.")

	return b.String()
}
