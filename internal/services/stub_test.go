package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"project-advisor/internal/models"
	"project-advisor/internal/repositories"
)

const testProjectID = "64b7f0c2a1b2c3d4e5f60718"

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// stubGenerator replays queued responses and records every prompt
type stubGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func newStub(responses ...string) *stubGenerator {
	return &stubGenerator{responses: responses}
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	call := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if call < len(g.errs) && g.errs[call] != nil {
		return "", g.errs[call]
	}
	if len(g.responses) == 0 {
		return "", errors.New("no stub response")
	}
	if call < len(g.responses) {
		return g.responses[call], nil
	}
	return g.responses[len(g.responses)-1], nil
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func seededRepo(project models.Project) *repositories.MemoryRepository {
	repo := repositories.NewMemoryRepository()
	if project != nil {
		if err := repo.PutProject(testProjectID, project); err != nil {
			panic(err)
		}
	}
	return repo
}
