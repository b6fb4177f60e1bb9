package tui

import (
	"bytes"
	"strings"
	"testing"

	"termfolio/internal/command"
	"termfolio/internal/terminal"
)

func collectKeys(input string) []terminal.Key {
	keys := make(chan terminal.Key, 64)
	go readKeys(strings.NewReader(input), keys)
	var out []terminal.Key
	for k := range keys {
		out = append(out, k)
	}
	return out
}

func TestReadKeys_Sequences(t *testing.T) {
	keys := collectKeys("a\t\x1b[A\x1b[B\x1b[C\x1b[D\x1b[3~\x7f\r\n\x0c\x03\x04é\x1b[I")
	want := []terminal.Key{
		{Kind: terminal.KeyRune, Rune: 'a'},
		{Kind: terminal.KeyTab},
		{Kind: terminal.KeyUp},
		{Kind: terminal.KeyDown},
		{Kind: terminal.KeyRight},
		{Kind: terminal.KeyLeft},
		{Kind: terminal.KeyDelete},
		{Kind: terminal.KeyBackspace},
		{Kind: terminal.KeyEnter},
		{Kind: terminal.KeyCtrlL},
		{Kind: terminal.KeyCtrlC},
		{Kind: terminal.KeyCtrlD},
		{Kind: terminal.KeyRune, Rune: 'é'},
		{Kind: terminal.KeyFocusIn},
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d: %+v", len(want), len(keys), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key %d: expected %+v, got %+v", i, want[i], keys[i])
		}
	}
}

func TestReadKeys_LoneEscape(t *testing.T) {
	keys := collectKeys("\x1b")
	if len(keys) != 1 || keys[0].Kind != terminal.KeyEsc {
		t.Fatalf("expected a single Esc, got %+v", keys)
	}
}

func TestLayout_KeepsInputOnLastRow(t *testing.T) {
	v := terminal.View{Prompt: "guest@termfolio:~$ ", Input: "wor"}
	for i := 0; i < 40; i++ {
		v.Entries = append(v.Entries, terminal.Entry{Command: "help", Result: command.Result{Output: "line"}})
	}
	lines, row, col := layout(v, 80, 10)
	if len(lines) != 10 || row != 10 {
		t.Fatalf("expected 10 rows with cursor on the last, got %d rows, row %d", len(lines), row)
	}
	if lines[9] != "guest@termfolio:~$ wor" {
		t.Fatalf("unexpected input row %q", lines[9])
	}
	if col != len("guest@termfolio:~$ wor")+1 {
		t.Fatalf("unexpected cursor column %d", col)
	}
}

func TestLayout_WrapsLongOutput(t *testing.T) {
	rows := wrapText(strings.Repeat("x", 25)+"\n\nab", 10, "")
	if len(rows) != 5 || rows[2] != "xxxxx" || rows[3] != "" || rows[4] != "ab" {
		t.Fatalf("unexpected wrap %q", rows)
	}
}

func TestScreen_Render(t *testing.T) {
	var buf bytes.Buffer
	s := newScreen(&buf)
	if err := s.Render([]string{"one", "two"}, 2, 4); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "one\r\ntwo") || !strings.Contains(out, "\x1b[2;4H") {
		t.Fatalf("unexpected render output %q", out)
	}
}
