package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"termfolio/internal/model"
	"termfolio/internal/presence"
	"termfolio/internal/store"
)

type PresenceHandler struct {
	Store store.Store
	Now   func() time.Time
}

type upsertPresenceBody struct {
	SessionID   string  `json:"sessionId"`
	Username    string  `json:"username"`
	LastCommand *string `json:"lastCommand"`
	Location    *string `json:"location"`
}

// Upsert records a heartbeat. lastSeen is always the server's clock.
func (h *PresenceHandler) Upsert(c *gin.Context) {
	var body upsertPresenceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	p, err := h.Store.UpsertPresence(c.Request.Context(), model.Presence{
		SessionID:   body.SessionID,
		Username:    body.Username,
		LastCommand: body.LastCommand,
		Location:    body.Location,
		LastSeen:    now(h.Now),
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": p})
}

// List accepts ?since=<unix ms> or ?window=<duration>; without either every
// record is returned. A window is measured against the server's clock and
// keeps only records strictly younger than it.
func (h *PresenceHandler) List(c *gin.Context) {
	if raw := c.Query("window"); raw != "" {
		h.listWindow(c, raw)
		return
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since"})
			return
		}
		since = time.UnixMilli(ms)
	}

	records, err := h.Store.ListPresence(c.Request.Context(), since)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": records})
}

func (h *PresenceHandler) listWindow(c *gin.Context, raw string) {
	window, err := time.ParseDuration(raw)
	if err != nil || window <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid window"})
		return
	}

	at := now(h.Now)
	records, err := h.Store.ListPresence(c.Request.Context(), at.Add(-window))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": presence.FilterOnline(records, at, window)})
}

func (h *PresenceHandler) Delete(c *gin.Context) {
	if err := h.Store.RemovePresence(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func now(fn func() time.Time) time.Time {
	if fn == nil {
		return time.Now().UTC()
	}
	return fn().UTC()
}
