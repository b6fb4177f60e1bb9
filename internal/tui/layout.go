package tui

import (
	"strings"
	"unicode/utf8"

	"termfolio/internal/terminal"
)

const (
	styleReset   = "\x1b[0m"
	styleError   = "\x1b[31m"
	styleCommand = "\x1b[32m"
	styleNotice  = "\x1b[33m"
	styleDim     = "\x1b[2m"
)

// layout turns a view into at most height screen rows and returns the
// 1-based cursor position on the input line.
func layout(v terminal.View, width, height int) ([]string, int, int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	var body []string
	if len(v.Canvas) > 0 {
		body = append(body, v.Canvas...)
	} else {
		if v.Welcome != "" {
			body = append(body, wrapText(v.Welcome, width, "")...)
			body = append(body, "")
		}
		for _, e := range v.Entries {
			if e.Command != "" {
				body = append(body, wrapText(e.Command, width, styleCommand+"$ "+styleReset)...)
			}
			style := ""
			if e.Result.IsError {
				style = styleError
			}
			if e.Result.Output != "" {
				body = append(body, wrapText(e.Result.Output, width, style)...)
			}
		}
	}

	if v.Notice != "" {
		body = append(body, styleNotice+v.Notice+styleReset)
	}
	if v.PromptError != "" {
		body = append(body, styleError+v.PromptError+styleReset)
	}

	input := v.Prompt + v.Input
	if v.Busy {
		input = v.Prompt + styleDim + "..." + styleReset
	}
	if len(v.Canvas) > 0 {
		input = styleDim + "canvas open: ESC to close" + styleReset
	}

	if limit := height - 1; len(body) > limit {
		body = body[len(body)-limit:]
	}
	lines := append(body, input)

	col := utf8.RuneCountInString(v.Prompt) + utf8.RuneCountInString(v.Input) + 1
	if col > width {
		col = width
	}
	return lines, len(lines), col
}

// wrapText splits text on newlines and hard-wraps each line at width runes.
// A non-empty style prefixes every row.
func wrapText(text string, width int, style string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		if len(runes) == 0 {
			out = append(out, "")
			continue
		}
		for len(runes) > 0 {
			n := width
			if n > len(runes) {
				n = len(runes)
			}
			row := string(runes[:n])
			if style != "" {
				row = style + row + styleReset
			}
			out = append(out, row)
			runes = runes[n:]
		}
	}
	return out
}
