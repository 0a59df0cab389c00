package handlers

import (
	"log"
	"net/http"

	"github.com/Jancy0713/jancy-template-end/backend/internal/errs"

	"github.com/gin-gonic/gin"
)

// handleServiceError translates the service error taxonomy into responses.
// Store causes are logged and replaced with a generic failure; callers never
// see internal detail.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errs.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
