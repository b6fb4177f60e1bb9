package tui

import (
	"bufio"
	"io"
	"unicode"
	"unicode/utf8"

	"termfolio/internal/terminal"
)

// readKeys decodes raw terminal input into keys until r fails.
func readKeys(r io.Reader, out chan<- terminal.Key) {
	defer close(out)
	br := bufio.NewReader(r)
	lastWasCR := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case 0x1b:
			readEscape(br, out)
		case '\r':
			out <- terminal.Key{Kind: terminal.KeyEnter}
			lastWasCR = true
		case '\n':
			out <- terminal.Key{Kind: terminal.KeyEnter}
		case '\t':
			out <- terminal.Key{Kind: terminal.KeyTab}
		case 0x7f, 0x08:
			out <- terminal.Key{Kind: terminal.KeyBackspace}
		case 0x0c:
			out <- terminal.Key{Kind: terminal.KeyCtrlL}
		case 0x04:
			out <- terminal.Key{Kind: terminal.KeyCtrlD}
		case 0x03:
			out <- terminal.Key{Kind: terminal.KeyCtrlC}
		default:
			if b < utf8.RuneSelf {
				if b >= 0x20 {
					out <- terminal.Key{Kind: terminal.KeyRune, Rune: rune(b)}
				}
				continue
			}
			_ = br.UnreadByte()
			rn, _, err := br.ReadRune()
			if err != nil {
				return
			}
			out <- terminal.Key{Kind: terminal.KeyRune, Rune: rn}
		}
	}
}

// readEscape treats an ESC with nothing buffered behind it as the Escape key;
// sequences arrive from the terminal in a single read.
func readEscape(br *bufio.Reader, out chan<- terminal.Key) {
	if br.Buffered() == 0 {
		out <- terminal.Key{Kind: terminal.KeyEsc}
		return
	}
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case '[':
		readCSI(br, out)
	case 'O':
		readSS3(br, out)
	case 0x1b:
		out <- terminal.Key{Kind: terminal.KeyEsc}
		_ = br.UnreadByte()
	}
}

func readCSI(br *bufio.Reader, out chan<- terminal.Key) {
	seq := []byte{}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return
		}
	}
	switch string(seq) {
	case "A":
		out <- terminal.Key{Kind: terminal.KeyUp}
	case "B":
		out <- terminal.Key{Kind: terminal.KeyDown}
	case "C":
		out <- terminal.Key{Kind: terminal.KeyRight}
	case "D":
		out <- terminal.Key{Kind: terminal.KeyLeft}
	case "3~":
		out <- terminal.Key{Kind: terminal.KeyDelete}
	case "I":
		out <- terminal.Key{Kind: terminal.KeyFocusIn}
	}
}

func readSS3(br *bufio.Reader, out chan<- terminal.Key) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case 'A':
		out <- terminal.Key{Kind: terminal.KeyUp}
	case 'B':
		out <- terminal.Key{Kind: terminal.KeyDown}
	case 'C':
		out <- terminal.Key{Kind: terminal.KeyRight}
	case 'D':
		out <- terminal.Key{Kind: terminal.KeyLeft}
	}
}
