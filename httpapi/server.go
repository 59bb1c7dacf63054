// Package httpapi implements the §6 thin HTTP adapter over the core
// engine: auth/session endpoints and the POST /retrieval surface, kept
// separate from the retrieval/index packages themselves (§6 "thin
// adapter, not the core").
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aqua777/graphrag-core/authstore"
	"github.com/aqua777/graphrag-core/config"
	"github.com/aqua777/graphrag-core/schema"
)

// Retriever runs one named retrieval strategy, matching cmd/graphrag-core's
// coreCommand.Query but scoped to a single method so the HTTP layer can
// report per-method errors distinctly from the CLI's rank-merge.
type Retriever interface {
	Query(ctx context.Context, methods []string, prompt string) ([]schema.RetrievalRecord, error)
}

// Server wires an auth store, a config and a Retriever into the recognised
// §6 endpoints.
type Server struct {
	auth      *authstore.Store
	cfg       *config.Config
	retriever Retriever
	engine    *gin.Engine
}

// NewServer builds a Server and registers every recognised route.
func NewServer(auth *authstore.Store, cfg *config.Config, retriever Retriever) *Server {
	s := &Server{auth: auth, cfg: cfg, retriever: retriever, engine: gin.Default()}
	s.routes()
	return s
}

// Handler returns the underlying http.Handler, for http.Server/httptest use.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/auth/methods", s.handleAuthMethods)
	s.engine.GET("/dataSource", s.handleDataSource)
	s.engine.GET("/embedding/info", s.handleEmbeddingInfo)
	s.engine.GET("/retrieval/info", s.handleRetrievalInfo)
	s.engine.GET("/security/requirements", s.handleSecurityRequirements)
	s.engine.POST("/auth", s.handleAuth)
	s.engine.POST("/retrieval", s.handleRetrieval)
}

func (s *Server) handleAuthMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"methods": []string{"bearer"}})
}

func (s *Server) handleDataSource(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data_dir": s.cfg.General.DataDir})
}

func (s *Server) handleEmbeddingInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"model": s.cfg.General.DefaultEmbeddingModel})
}

func (s *Server) handleRetrievalInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"methods": []string{"NaiveRAG", "NaiveGraphRAG", "GARAG", "GraphRAG"},
	})
}

func (s *Server) handleSecurityRequirements(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"auth_required":    true,
		"token_ttl_minutes": int(authstore.DefaultTokenTTL / time.Minute),
	})
}

// handleAuth implements "POST /auth (auth method as query param, optional
// Authorization: Bearer)": it accepts whatever bearer credential was
// presented as the user identity and mints a session token for it. A real
// credential-verification step belongs in front of this (§6 names bearer
// auth as the recognised method, not how the bearer value is itself
// authenticated), so this issues a token for any non-empty bearer value.
func (s *Server) handleAuth(c *gin.Context) {
	method := c.Query("method")
	if method != "" && method != "bearer" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unknown auth method"})
		return
	}
	user := bearerToken(c.GetHeader("Authorization"))
	if user == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer credential"})
		return
	}
	token, err := s.auth.Issue(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type retrievalRequest struct {
	LatestUserPrompt     string                 `json:"latestUserPrompt"`
	LatestUserPromptType string                 `json:"latestUserPromptType"`
	Thread               string                 `json:"thread"`
	RetrievalProcessID   string                 `json:"retrievalProcessId"`
	Parameters           map[string]interface{} `json:"parameters"`
	MaxMatches           int                    `json:"maxMatches"`
}

// handleRetrieval implements "POST /retrieval" (§6): validates the token
// header, the prompt type, then dispatches to the process named by
// retrievalProcessId (one of the four retrieval strategies).
func (s *Server) handleRetrieval(c *gin.Context) {
	token := c.GetHeader("token")
	if _, err := s.auth.Validate(c.Request.Context(), token); err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, authstore.ErrInvalidToken) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"detail": "invalid token"})
		return
	}

	var req retrievalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if req.LatestUserPromptType != "" && req.LatestUserPromptType != "text" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid prompt type"})
		return
	}
	if req.RetrievalProcessID == "" {
		c.JSON(http.StatusNotFound, gin.H{"detail": "unknown process"})
		return
	}

	records, err := s.retriever.Query(c.Request.Context(), []string{req.RetrievalProcessID}, req.LatestUserPrompt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
