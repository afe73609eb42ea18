// Package httpapi exposes the answer service over HTTP: a health
// check, a complete-answer endpoint and two NDJSON streaming
// endpoints.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Server wires the answer service into a gin engine.
type Server struct {
	engine *gin.Engine
	svc    driving.AnswerService
}

// askRequest is the body of /ask and /ask/stream.
type askRequest struct {
	Query           string `json:"query"`
	QuestionContext string `json:"questionContext"`
}

// explainRequest is the body of /explain/stream.
type explainRequest struct {
	QuestionContext string `json:"questionContext"`
}

// New creates the HTTP server around the answer service.
func New(svc driving.AnswerService) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLog(), cors())

	s := &Server{engine: engine, svc: svc}

	engine.GET("/health", s.health)
	engine.POST("/ask", s.ask)
	engine.POST("/ask/stream", s.askStream)
	engine.POST("/explain/stream", s.explainStream)

	return s
}

// Handler exposes the engine for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the given address until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// health reports readiness and the indexed chunk count.
func (s *Server) health(c *gin.Context) {
	st := s.svc.Status()
	status := "ok"
	if !st.Ready {
		status = "indexing"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "indexed": st.Indexed})
}

// ask returns a complete answer envelope.
func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `envie {"query": "sua pergunta"}`})
		return
	}

	qc := domain.QueryContext{Query: req.Query, AssessmentText: req.QuestionContext}
	answer, err := s.svc.Ask(c.Request.Context(), qc)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// askStream streams the answer as NDJSON frames.
func (s *Server) askStream(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `envie {"query": "sua pergunta"}`})
		return
	}

	qc := domain.QueryContext{Query: req.Query, AssessmentText: req.QuestionContext}
	frames, err := s.svc.AskStream(c.Request.Context(), qc)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.streamFrames(c, frames)
}

// explainStream streams an explanation of the assessment question.
func (s *Server) explainStream(c *gin.Context) {
	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `envie {"questionContext": "pergunta do assessment"}`})
		return
	}

	frames, err := s.svc.Explain(c.Request.Context(), req.QuestionContext)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.streamFrames(c, frames)
}

// streamFrames writes one JSON object per line, flushing after each
// frame. The frame channel closes after its single done frame, which
// terminates the response cleanly.
func (s *Server) streamFrames(c *gin.Context, frames <-chan domain.StreamFrame) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Writer.Flush()

	enc := json.NewEncoder(c.Writer)
	for frame := range frames {
		if err := enc.Encode(frame); err != nil {
			logger.Warn("writing stream frame: %v", err)
			return
		}
		c.Writer.Flush()
	}
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": `envie {"query": "sua pergunta"}`})
	case errors.Is(err, domain.ErrIndexNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "índice não carregado; aguarde a indexação dos documentos"})
	default:
		logger.Warn("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erro interno"})
	}
}

// requestLog attaches a request ID and logs timing in verbose mode.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("requestID", id)
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s id=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond), id)
	}
}

// cors allows the browser front end to call the API from any origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
