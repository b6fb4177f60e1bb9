package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"termfolio/internal/store"
)

// writeStoreError maps store sentinels onto HTTP status codes. Validation
// messages are passed through; anything else is reported generically.
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalid):
		msg := strings.TrimPrefix(err.Error(), store.ErrInvalid.Error()+": ")
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
