package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/extract"
	"github.com/zakerytclarke/teapot/internal/service"
)

type QueryHandler struct {
	engine *service.Engine
}

func NewQueryHandler(engine *service.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

type queryRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Context  string        `json:"context"`
}

type extractRequest struct {
	Query   string          `json:"query"`
	Context string          `json:"context"`
	Schema  *extract.Schema `json:"schema"`
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		badRequest(c, "query is required")
		return
	}
	ans, err := h.engine.Query(c.Request.Context(), req.Query, req.Context)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ans)
}

func (h *QueryHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		badRequest(c, "messages are required")
		return
	}
	var conv domain.Conversation
	for _, m := range req.Messages {
		role, ok := domain.ParseRole(m.Role)
		if !ok {
			badRequest(c, "unknown role "+m.Role)
			return
		}
		conv = conv.Append(role, m.Content)
	}
	ans, err := h.engine.Chat(c.Request.Context(), conv, req.Context)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ans)
}

func (h *QueryHandler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Schema == nil {
		badRequest(c, "schema is required")
		return
	}
	rec, err := h.engine.Extract(c.Request.Context(), req.Schema, req.Query, req.Context)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec.Values()})
}

func (h *QueryHandler) Retrieve(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	found, err := h.engine.Retrieve(c.Request.Context(), req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	if found == nil {
		found = []domain.ScoredDocument{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": found})
}

func (h *QueryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "documents": h.engine.Pool().Len()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func handleError(c *gin.Context, err error) {
	_ = c.Error(err)
	var verr *extract.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "problems": verr.Problems})
	case errors.Is(err, extract.ErrUnsupportedType), errors.Is(err, extract.ErrInvalidSchema):
		badRequest(c, err.Error())
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
