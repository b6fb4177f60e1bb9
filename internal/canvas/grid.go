package canvas

import (
	"strings"
	"sync"

	"termfolio/internal/model"
)

const (
	Width  = model.CanvasWidth
	Height = model.CanvasHeight
)

// Grid is the local snapshot of the shared canvas. It is a cache refreshed
// from the store, never the source of truth.
type Grid struct {
	mu     sync.RWMutex
	pixels map[string]model.Pixel
}

func NewGrid() *Grid {
	return &Grid{pixels: make(map[string]model.Pixel)}
}

// Char returns the character at (x, y); unset and out-of-range cells are a
// space.
func (g *Grid) Char(x, y int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if px, ok := g.pixels[model.PixelID(x, y)]; ok && px.Char != "" {
		return px.Char
	}
	return " "
}

func (g *Grid) Owner(x, y int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pixels[model.PixelID(x, y)].OwnerName()
}

func (g *Grid) Set(px model.Pixel) {
	if !model.InCanvas(px.X, px.Y) {
		return
	}
	px.ID = model.PixelID(px.X, px.Y)
	if px.Char == "" || px.Char == " " {
		px.Char = " "
		px.Owner = nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pixels[px.ID] = px
}

// Replace swaps the whole cache for pixels. Pixels with an unparsable id or
// outside the grid are dropped.
func (g *Grid) Replace(pixels []model.Pixel) {
	next := make(map[string]model.Pixel, len(pixels))
	for _, px := range pixels {
		x, y, err := model.ParsePixelID(px.ID)
		if err != nil {
			x, y = px.X, px.Y
		}
		if !model.InCanvas(x, y) {
			continue
		}
		px.X, px.Y, px.ID = x, y, model.PixelID(x, y)
		next[px.ID] = px
	}

	g.mu.Lock()
	g.pixels = next
	g.mu.Unlock()
}

// ClearOwner blanks every cell owned by owner and reports how many changed.
func (g *Grid) ClearOwner(owner string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for id, px := range g.pixels {
		if px.OwnerName() == owner {
			px.Char = " "
			px.Owner = nil
			g.pixels[id] = px
			n++
		}
	}
	return n
}

func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.pixels)
}

// Export renders the grid as Height lines of Width characters, dropping
// trailing rows that are entirely blank. Interior blank rows and columns are
// kept as is.
func (g *Grid) Export() string {
	g.mu.RLock()
	lines := make([]string, Height)
	var b strings.Builder
	for y := 0; y < Height; y++ {
		b.Reset()
		for x := 0; x < Width; x++ {
			ch := " "
			if px, ok := g.pixels[model.PixelID(x, y)]; ok && px.Char != "" {
				ch = px.Char
			}
			b.WriteString(ch)
		}
		lines[y] = b.String()
	}
	g.mu.RUnlock()

	for len(lines) > 0 && isBlankRow(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func isBlankRow(line string) bool {
	return strings.Trim(line, " ") == ""
}
