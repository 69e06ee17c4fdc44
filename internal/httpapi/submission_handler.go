package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oj-platform/judge-executor/internal/domain"
)

// SubmissionHandler serves POST /submissions and GET /submissions/:id.
type SubmissionHandler struct {
	svc    *SubmissionService
	logger *zap.Logger
}

// NewSubmissionHandler builds a SubmissionHandler.
func NewSubmissionHandler(svc *SubmissionService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, logger: logger}
}

// Submit handles POST /submissions.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.svc.Submit(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidLanguage), errors.Is(err, domain.ErrEmptySourceCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPayloadTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPublishFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		default:
			h.logger.Error("submit failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetByID handles GET /submissions/:id.
func (h *SubmissionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}

	view, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSubmissionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		h.logger.Error("get submission failed", zap.Error(err), zap.String("submission_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, view)
}
