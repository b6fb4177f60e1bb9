package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"termfolio/internal/model"
	"termfolio/internal/store"
)

const (
	defaultGuestbookLimit = 50
	maxGuestbookLimit     = 200
)

type GuestbookHandler struct {
	Store store.Store
	Now   func() time.Time
}

type addGuestbookBody struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (h *GuestbookHandler) Add(c *gin.Context) {
	var body addGuestbookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id := body.ID
	if id == "" {
		id = uuid.NewString()
	}
	entry, err := h.Store.AddGuestbookEntry(c.Request.Context(), model.GuestbookEntry{
		ID:        id,
		Username:  body.Username,
		Message:   body.Message,
		CreatedAt: now(h.Now),
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// List returns the newest entries first. ?limit is clamped to 200.
func (h *GuestbookHandler) List(c *gin.Context) {
	limit := defaultGuestbookLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxGuestbookLimit)
	}

	entries, err := h.Store.ListGuestbook(c.Request.Context(), limit)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Delete is the moderation route; the router restricts it to service keys.
func (h *GuestbookHandler) Delete(c *gin.Context) {
	if err := h.Store.DeleteGuestbookEntry(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
