package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"termfolio/internal/model"
	"termfolio/internal/store"
)

type CanvasHandler struct {
	Store store.Store
	Now   func() time.Time
}

type putPixelBody struct {
	X     *int    `json:"x"`
	Y     *int    `json:"y"`
	Char  string  `json:"char"`
	Owner *string `json:"owner"`
}

func (h *CanvasHandler) Put(c *gin.Context) {
	var body putPixelBody
	if err := c.ShouldBindJSON(&body); err != nil || body.X == nil || body.Y == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	px, err := h.Store.PutPixel(c.Request.Context(), model.Pixel{
		X:         *body.X,
		Y:         *body.Y,
		Char:      body.Char,
		Owner:     body.Owner,
		UpdatedAt: now(h.Now),
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pixel": px})
}

func (h *CanvasHandler) List(c *gin.Context) {
	pixels, err := h.Store.ListPixels(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pixels": pixels})
}

type clearPixelsBody struct {
	Char string `json:"char"`
}

// Clear handles PATCH ?owner=name with {"char":" "}: every pixel owned by
// name goes blank.
func (h *CanvasHandler) Clear(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner is required"})
		return
	}
	var body clearPixelsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.Char != "" && body.Char != " " {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only clearing is supported"})
		return
	}

	n, err := h.Store.ClearPixels(c.Request.Context(), owner, now(h.Now))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}
