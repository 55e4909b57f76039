package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"unicode/utf8"

	"project-advisor/internal/helpers"
	"project-advisor/internal/models"
	"project-advisor/internal/services"

	"github.com/gin-gonic/gin"
)

const internalErrorMessage = "Internal Server Error"

type assignRequest struct {
	ProjectID     string              `json:"projectId"`
	ConfirmedTeam []models.TeamMember `json:"confirmedTeam"`
}

func (s *Server) analyzeProject(c *gin.Context) {
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil || len(project) == 0 {
		badRequest(c, "No project data provided")
		return
	}

	result, err := s.analysis.AnalyzeProject(c.Request.Context(), project)
	if err != nil {
		s.fail(c, "analyzing project", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Project analysis completed successfully",
		"analysis_id":     result.AnalysisID,
		"raw_analysis_id": result.RawAnalysisID,
		"analysis":        result.Analysis,
	})
}

func (s *Server) chatbot(c *gin.Context) {
	var req services.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No data provided")
		return
	}

	resp, err := s.chat.Ask(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "processing chatbot query", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Query processed successfully",
		"answer":         resp.Answer,
		"conversationId": resp.ConversationID,
	})
}

// chatWithDocuments accepts either a multipart upload in the "file" field or
// a JSON chat request
func (s *Server) chatWithDocuments(c *gin.Context) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		file, err := c.FormFile("file")
		switch {
		case err == nil:
			s.uploadDocument(c, file)
			return
		case !errors.Is(err, http.ErrMissingFile):
			badRequest(c, "Invalid multipart upload")
			return
		}
	}

	var req services.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No JSON data provided")
		return
	}

	resp, err := s.chat.AskWithDocument(c.Request.Context(), req)
	if err != nil {
		s.fail(c, "chatting with documents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Query processed successfully",
		"answer":         resp.Answer,
		"conversationId": resp.ConversationID,
	})
}

func (s *Server) uploadDocument(c *gin.Context, file *multipart.FileHeader) {
	if file.Filename == "" {
		badRequest(c, "No file selected")
		return
	}

	f, err := file.Open()
	if err != nil {
		s.fail(c, "opening upload", err)
		return
	}
	defer f.Close()

	text, err := services.ExtractText(file.Filename, f)
	if err != nil {
		s.fail(c, "extracting document text", err)
		return
	}

	id := s.documents.Put(text)
	helpers.PrintInfo("Stored document %s (%s, %d bytes of text)", id, file.Filename, len(text))

	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("File '%s' processed successfully!", file.Filename),
		"documentLength": utf8.RuneCountInString(text),
		"documentId":     id,
	})
}

func (s *Server) assignTasks(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No data provided")
		return
	}

	result, err := s.assignments.AssignTasks(c.Request.Context(), req.ProjectID, req.ConfirmedTeam)
	if err != nil {
		s.fail(c, "assigning tasks", err)
		return
	}

	body := gin.H{
		"message":     "Tasks assigned successfully",
		"assignments": result.Assignments,
	}
	if len(result.Failed) > 0 {
		body["failed"] = result.Failed
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) fail(c *gin.Context, action string, err error) {
	if services.IsValidation(err) {
		badRequest(c, err.Error())
		return
	}
	helpers.PrintError("Error %s: %v", action, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": internalErrorMessage})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": message})
}
