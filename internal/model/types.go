package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

const (
	CanvasWidth  = 64
	CanvasHeight = 32

	MaxGuestbookMessage = 200
)

type Presence struct {
	SessionID   string    `json:"sessionId"`
	Username    string    `json:"username"`
	LastCommand *string   `json:"lastCommand"`
	LastSeen    time.Time `json:"lastSeen"`
	Location    *string   `json:"location"`
}

type GuestbookEntry struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pixel is one cell of the shared canvas. Owner is nil whenever Char is a
// space.
type Pixel struct {
	ID        string    `json:"id"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Char      string    `json:"char"`
	Owner     *string   `json:"owner"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Visitor struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

func PixelID(x, y int) string {
	return strconv.Itoa(x) + "," + strconv.Itoa(y)
}

func ParsePixelID(id string) (int, int, error) {
	xs, ys, ok := strings.Cut(id, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid pixel id %q", id)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pixel id %q", id)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pixel id %q", id)
	}
	return x, y, nil
}

func InCanvas(x, y int) bool {
	return x >= 0 && x < CanvasWidth && y >= 0 && y < CanvasHeight
}

// pixelWidth measures runes with East Asian ambiguous runes as narrow, so the
// result does not depend on the process locale.
var pixelWidth = &runewidth.Condition{}

// ValidPixelChar reports whether ch is one printable rune filling exactly one
// terminal column. Wide runes such as CJK or emoji would shift the rest of the
// canvas row.
func ValidPixelChar(ch string) bool {
	r, size := utf8.DecodeRuneInString(ch)
	if size == 0 || size != len(ch) || r == utf8.RuneError {
		return false
	}
	if r != ' ' && !unicode.IsPrint(r) {
		return false
	}
	return pixelWidth.RuneWidth(r) == 1
}

// NewPixel builds a pixel at (x, y). A blank char clears the owner.
func NewPixel(x, y int, char, owner string, at time.Time) Pixel {
	if char == "" {
		char = " "
	}
	px := Pixel{ID: PixelID(x, y), X: x, Y: y, Char: char, UpdatedAt: at}
	if char != " " && owner != "" {
		o := owner
		px.Owner = &o
	}
	return px
}

func (p Pixel) OwnerName() string {
	if p.Owner == nil {
		return ""
	}
	return *p.Owner
}

func StringPtr(s string) *string {
	return &s
}
