package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"termfolio/internal/model"
	"termfolio/internal/store"
)

type VisitorHandler struct {
	Store store.Store
	Now   func() time.Time
}

type upsertVisitorBody struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}

// Upsert keeps the original id and createdAt when the session is known.
func (h *VisitorHandler) Upsert(c *gin.Context) {
	var body upsertVisitorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id := body.ID
	if id == "" {
		id = uuid.NewString()
	}
	v, err := h.Store.UpsertVisitor(c.Request.Context(), model.Visitor{
		ID:        id,
		SessionID: body.SessionID,
		Username:  body.Username,
		CreatedAt: now(h.Now),
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitor": v})
}

func (h *VisitorHandler) Get(c *gin.Context) {
	v, err := h.Store.GetVisitor(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitor": v})
}
