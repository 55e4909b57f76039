package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"project-advisor/internal/config"
	"project-advisor/internal/helpers"
	"project-advisor/internal/repositories"
	"project-advisor/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server wires the services to the HTTP routes
type Server struct {
	config      *config.ServerConfig
	analysis    *services.AnalysisService
	chat        *services.ChatService
	assignments *services.AssignmentService
	documents   *services.DocumentRegistry
	router      *gin.Engine
}

// New builds a server over store and generator
func New(serverConfig *config.ServerConfig, store repositories.Store, generator services.Generator) *Server {
	documents := services.NewDocumentRegistry(time.Duration(serverConfig.DocumentTTLMinutes) * time.Minute)

	s := &Server{
		config:      serverConfig,
		analysis:    services.NewAnalysisService(store, generator),
		chat:        services.NewChatService(store, generator, documents),
		assignments: services.NewAssignmentService(store, generator),
		documents:   documents,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.CustomRecovery(recoverInternal))
	r.MaxMultipartMemory = int64(s.config.MaxUploadMB) << 20

	corsConfig := cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// cors rejects "*" alongside an explicit origin list
	if slices.Contains(corsConfig.AllowOrigins, "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/analyze_project", s.analyzeProject)
	r.POST("/api/chatbot", s.chatbot)
	r.POST("/api/chat_with_documents", s.chatWithDocuments)
	r.POST("/chat_with_documents", s.chatWithDocuments)
	r.POST("/assign_tasks", s.assignTasks)
	r.POST("/assignTasks", s.assignTasks)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		helpers.PrintSuccess("Listening on %s", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	helpers.PrintInfo("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		helpers.PrintRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func recoverInternal(c *gin.Context, recovered interface{}) {
	helpers.PrintError("Panic serving %s: %v", c.Request.URL.Path, recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": internalErrorMessage})
}
