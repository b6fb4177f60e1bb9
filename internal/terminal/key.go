package terminal

type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEsc
	KeyCtrlL
	KeyCtrlC
	KeyCtrlD
	// KeyFocusIn is reported when the terminal window regains focus.
	KeyFocusIn
)

// Key is one decoded keypress. Rune is set only for KeyRune.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Outcome tells the driver what to do after a key was handled.
type Outcome int

const (
	KeyNone Outcome = iota
	KeySubmit
	KeyQuit
)
