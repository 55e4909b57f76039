package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"project-advisor/internal/config"
	"project-advisor/internal/models"
	"project-advisor/internal/repositories"

	"github.com/gin-gonic/gin"
)

const testProjectID = "64b7f0c2a1b2c3d4e5f60718"

func init() {
	gin.SetMode(gin.TestMode)
}

type scriptedGenerator struct {
	mu      sync.Mutex
	reply   func(prompt string) (string, error)
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply(prompt)
}

func replyWith(text string) *scriptedGenerator {
	return &scriptedGenerator{reply: func(string) (string, error) { return text, nil }}
}

func newTestServer(t *testing.T, gen *scriptedGenerator) (*Server, *repositories.MemoryRepository) {
	t.Helper()
	cfg := config.Default()
	repo := repositories.NewMemoryRepository()
	return New(&cfg.Server, repo, gen), repo
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		if payload, err = json.Marshal(b); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestAnalyzeProjectEndToEnd(t *testing.T) {
	gen := replyWith("Sure! ```json\n{\"suggestedTime\":\"10 weeks\",\"suggestedBudget\":5000}\n```")
	s, repo := newTestServer(t, gen)

	rec, body := postJSON(t, s, "/api/analyze_project", map[string]interface{}{
		"_id":      testProjectID,
		"name":     "Alpha",
		"timeline": "10",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	analysis, _ := json.Marshal(body["analysis"])
	if string(analysis) != `{"suggestedBudget":5000,"suggestedTime":"10 weeks"}` {
		t.Fatalf("unexpected analysis %s", analysis)
	}
	if body["analysis_id"] == "" || body["raw_analysis_id"] == "" || body["message"] == nil {
		t.Fatalf("missing fields: %v", body)
	}

	raw, structured := repo.Counts(testProjectID)
	if raw != 1 || structured != 1 {
		t.Fatalf("expected one raw and one structured record, got %d/%d", raw, structured)
	}
}

func TestAnalyzeProjectValidation(t *testing.T) {
	s, _ := newTestServer(t, replyWith("{}"))

	for _, body := range []interface{}{"", "not json", map[string]interface{}{"name": "Alpha"}} {
		rec, out := postJSON(t, s, "/api/analyze_project", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, rec.Code)
		}
		if out["message"] == "" {
			t.Fatalf("expected a message")
		}
	}
}

func TestAnalyzeProjectAdapterFailureIs500(t *testing.T) {
	gen := &scriptedGenerator{reply: func(string) (string, error) { return "", errors.New("upstream down") }}
	s, _ := newTestServer(t, gen)

	rec, out := postJSON(t, s, "/api/analyze_project", map[string]interface{}{"_id": testProjectID})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if out["message"] != internalErrorMessage {
		t.Fatalf("expected generic message, got %v", out["message"])
	}
}

func TestChatbotConversationFlow(t *testing.T) {
	s, repo := newTestServer(t, replyWith("**Ship** on Friday."))

	rec, body := postJSON(t, s, "/api/chatbot", map[string]interface{}{
		"projectId": testProjectID,
		"userEmail": "a@x.com",
		"query":     "When do we ship?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["answer"] != "Ship on Friday." {
		t.Fatalf("unexpected answer %v", body["answer"])
	}
	id, _ := body["conversationId"].(string)

	rec, body = postJSON(t, s, "/api/chatbot", map[string]interface{}{
		"projectId":      testProjectID,
		"userEmail":      "a@x.com",
		"query":          "And QA?",
		"conversationId": id,
	})
	if rec.Code != http.StatusOK || body["conversationId"] != id {
		t.Fatalf("expected same conversation, got %d %v", rec.Code, body)
	}

	conv, ok := repo.Conversation(models.ConversationChatbot, id)
	if !ok || len(conv.Messages) != 4 {
		t.Fatalf("expected four messages, got %+v", conv)
	}
}

func TestChatbotValidation(t *testing.T) {
	s, _ := newTestServer(t, replyWith("unused"))

	rec, _ := postJSON(t, s, "/api/chatbot", map[string]interface{}{"projectId": testProjectID, "query": "q"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatbotUnknownConversationIs500(t *testing.T) {
	s, repo := newTestServer(t, replyWith("answer"))

	rec, _ := postJSON(t, s, "/api/chatbot", map[string]interface{}{
		"projectId":      testProjectID,
		"userEmail":      "a@x.com",
		"query":          "q",
		"conversationId": repo.NewID(),
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func uploadFile(t *testing.T, s *Server, path, filename, content string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, out
}

func TestChatWithDocumentsUploadThenChat(t *testing.T) {
	gen := replyWith("It covers payments.")
	s, repo := newTestServer(t, gen)

	rec, body := uploadFile(t, s, "/chat_with_documents", "requirements.txt", "Payments requirements v2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["documentLength"] != float64(len("Payments requirements v2")) {
		t.Fatalf("unexpected length %v", body["documentLength"])
	}
	docID, _ := body["documentId"].(string)
	if docID == "" {
		t.Fatalf("expected a document handle")
	}

	rec, body = postJSON(t, s, "/api/chat_with_documents", map[string]interface{}{
		"userEmail":  "a@x.com",
		"query":      "What does it cover?",
		"documentId": docID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["answer"] != "It covers payments." {
		t.Fatalf("unexpected answer %v", body["answer"])
	}
	if !strings.Contains(gen.prompts[0], "Payments requirements v2") {
		t.Fatalf("prompt missing document:\n%s", gen.prompts[0])
	}
	if repo.ConversationCount(models.ConversationDocuments) != 1 {
		t.Fatalf("expected a document conversation")
	}
}

func TestChatWithDocumentsRejectsUnsupportedFile(t *testing.T) {
	s, _ := newTestServer(t, replyWith("unused"))

	rec, body := uploadFile(t, s, "/api/chat_with_documents", "deck.pptx", "binary")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body["message"] != "Unsupported file type (only PDF or TXT)" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestChatWithDocumentsValidation(t *testing.T) {
	s, _ := newTestServer(t, replyWith("unused"))

	rec, _ := postJSON(t, s, "/chat_with_documents", map[string]interface{}{"query": "q"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAssignTasksEndToEnd(t *testing.T) {
	response := `{"assignments":{"a@x.com":{"teamMemberName":"A","role":"Developer","tasks":[{"description":"Build","deadline":null,"status":"Pending","progress":0,"assignedAt":"2025-03-01T00:00:00Z"}]}}}`

	for _, path := range []string{"/assign_tasks", "/assignTasks"} {
		t.Run(path, func(t *testing.T) {
			s, repo := newTestServer(t, replyWith(response))

			rec, body := postJSON(t, s, path, map[string]interface{}{
				"projectId":     testProjectID,
				"confirmedTeam": []map[string]string{{"email": "a@x.com", "name": "A"}},
			})
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}

			got, _ := json.Marshal(body["assignments"])
			want := `{"a@x.com":{"role":"Developer","tasks":[{"assignedAt":"2025-03-01T00:00:00Z","deadline":null,"description":"Build","progress":0,"status":"Pending"}],"teamMemberName":"A"}}`
			if string(got) != want {
				t.Fatalf("unexpected assignments\n got %s\nwant %s", got, want)
			}

			stored := repo.TeamAssignments(testProjectID)
			if len(stored) != 1 || stored[0].Email != "a@x.com" {
				t.Fatalf("expected one upserted assignment, got %+v", stored)
			}
		})
	}
}

func TestAssignTasksEmptyPlan(t *testing.T) {
	s, repo := newTestServer(t, replyWith("I cannot help with that."))

	rec, body := postJSON(t, s, "/assign_tasks", map[string]interface{}{
		"projectId":     testProjectID,
		"confirmedTeam": []map[string]string{{"email": "a@x.com"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if assignments, ok := body["assignments"].(map[string]interface{}); !ok || len(assignments) != 0 {
		t.Fatalf("expected empty assignments, got %v", body["assignments"])
	}
	if len(repo.TeamAssignments(testProjectID)) != 0 {
		t.Fatalf("expected zero upserts")
	}
}

func TestAssignTasksValidation(t *testing.T) {
	s, _ := newTestServer(t, replyWith("unused"))

	rec, _ := postJSON(t, s, "/assign_tasks", map[string]interface{}{"projectId": testProjectID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, replyWith("unused"))

	req := httptest.NewRequest(http.MethodOptions, "/assign_tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials allowed")
	}
}
