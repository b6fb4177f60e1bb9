package canvas

import (
	"fmt"
	"strings"
	"sync"
)

const (
	ansiReset   = "\x1b[0m"
	ansiReverse = "\x1b[7m"
	ansiOwn     = "\x1b[92m"
	ansiOther   = "\x1b[94m"
	ansiDim     = "\x1b[2m"
	ansiWarn    = "\x1b[91m"
)

// Overlay is the keyboard-driven editor over a Canvas. It is either closed
// or open; the cursor is clamped to the grid with no wraparound.
type Overlay struct {
	canvas *Canvas

	mu   sync.Mutex
	open bool
	x, y int
}

func NewOverlay(c *Canvas) *Overlay {
	return &Overlay{canvas: c, x: Width / 2, y: Height / 2}
}

func (o *Overlay) IsOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

func (o *Overlay) Open() {
	o.mu.Lock()
	o.open = true
	o.mu.Unlock()
}

func (o *Overlay) Close() {
	o.mu.Lock()
	o.open = false
	o.mu.Unlock()
}

// Toggle flips the overlay and reports whether it is now open.
func (o *Overlay) Toggle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = !o.open
	return o.open
}

func (o *Overlay) Cursor() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.x, o.y
}

func (o *Overlay) Move(dx, dy int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.x = clamp(o.x+dx, 0, Width-1)
	o.y = clamp(o.y+dy, 0, Height-1)
}

// Type writes r at the cursor and advances one column. Without a username
// nothing is written and false is returned.
func (o *Overlay) Type(r rune, username string) bool {
	if username == "" {
		return false
	}
	ch := string(r)
	if !ValidChar(ch) {
		return false
	}

	o.mu.Lock()
	x, y := o.x, o.y
	o.x = clamp(o.x+1, 0, Width-1)
	o.mu.Unlock()

	return o.canvas.Put(x, y, ch, username) == nil
}

// Erase blanks the cell under the cursor without moving it.
func (o *Overlay) Erase(username string) bool {
	if username == "" {
		return false
	}
	x, y := o.Cursor()
	return o.canvas.Put(x, y, " ", username) == nil
}

// Render draws the framed grid with the cursor and ownership colouring,
// followed by a status line.
func (o *Overlay) Render(username string) []string {
	cx, cy := o.Cursor()
	grid := o.canvas.Grid()

	lines := make([]string, 0, Height+6)
	lines = append(lines, fmt.Sprintf("═══ Collaborative ASCII Canvas (%dx%d) ═══   [ESC to close]", Width, Height))
	if username != "" {
		lines = append(lines, fmt.Sprintf("Drawing as %s • %s■%s your pixels • %s■%s others",
			username, ansiOwn, ansiReset, ansiOther, ansiReset))
	} else {
		lines = append(lines, ansiWarn+"Set a username to draw (type 'name <username>' in terminal)"+ansiReset)
	}
	lines = append(lines, ansiDim+"┌"+strings.Repeat("─", Width)+"┐"+ansiReset)

	var b strings.Builder
	for y := 0; y < Height; y++ {
		b.Reset()
		b.WriteString(ansiDim + "│" + ansiReset)
		for x := 0; x < Width; x++ {
			ch := grid.Char(x, y)
			owner := grid.Owner(x, y)
			switch {
			case x == cx && y == cy:
				b.WriteString(ansiReverse + ch + ansiReset)
			case owner != "" && owner == username:
				b.WriteString(ansiOwn + ch + ansiReset)
			case owner != "":
				b.WriteString(ansiOther + ch + ansiReset)
			default:
				b.WriteString(ch)
			}
		}
		b.WriteString(ansiDim + "│" + ansiReset)
		lines = append(lines, b.String())
	}
	lines = append(lines, ansiDim+"└"+strings.Repeat("─", Width)+"┘"+ansiReset)

	status := fmt.Sprintf("Cursor: (%d, %d)", cx, cy)
	if owner := grid.Owner(cx, cy); owner != "" {
		status += "    Pixel by: " + owner
	}
	lines = append(lines, status, "←↑↓→ move • type to draw • backspace to erase")
	return lines
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
