package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LanguageHandler serves GET /languages.
type LanguageHandler struct {
	svc *SubmissionService
}

// NewLanguageHandler builds a LanguageHandler.
func NewLanguageHandler(svc *SubmissionService) *LanguageHandler {
	return &LanguageHandler{svc: svc}
}

// List handles GET /languages.
func (h *LanguageHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": h.svc.Languages()})
}
