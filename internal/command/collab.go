package command

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"termfolio/internal/model"
	"termfolio/internal/presence"
	"termfolio/internal/session"
)

const (
	guestbookRendered = 20
	guestbookPreview  = 40
	guestbookEcho     = 50
)

func whoCommand(ctx context.Context, _ []string, env Env) Result {
	if env.Services == nil {
		return Result{Output: "Failed to fetch online users. Please try again.", IsError: true}
	}
	users, err := env.Services.OnlineUsers(ctx)
	if err != nil {
		return Result{Output: "Failed to fetch online users. Please try again.", IsError: true}
	}

	if len(users) == 0 {
		return Result{Output: strings.Join([]string{
			"",
			boxTop,
			"│  No users currently online",
			boxBottom,
			"",
			"You might be the first one here! Others will appear when they join.",
		}, "\n")}
	}

	lines := []string{
		"",
		boxTop,
		fmt.Sprintf("│  Online Users (%d)", len(users)),
		boxMid,
		"│  " + fmt.Sprintf("%-16s  %-8s  %-20s  %s", "USER", "TTY", "LAST_CMD", "IDLE"),
		"│  " + strings.Repeat("─", 60),
	}
	for _, u := range users {
		last := "-"
		if u.LastCommand != nil && *u.LastCommand != "" {
			last = *u.LastCommand
		}
		lines = append(lines, "│  "+fmt.Sprintf("%-16.16s  %-8s  %-20.20s  %s",
			u.Username, "pts/0", last, presence.IdleTime(u.LastSeen, env.Now)))
	}
	lines = append(lines, boxBottom)
	return Result{Output: strings.Join(lines, "\n")}
}

func guestbookCommand(ctx context.Context, args []string, env Env) Result {
	if len(args) > 0 && strings.EqualFold(args[0], "add") {
		return guestbookAdd(ctx, args[1:], env)
	}

	if env.Services == nil {
		return Result{Output: "Failed to fetch guestbook entries. Please try again.", IsError: true}
	}
	entries, err := env.Services.GuestbookEntries(ctx)
	if err != nil {
		return Result{Output: "Failed to fetch guestbook entries. Please try again.", IsError: true}
	}

	if len(entries) == 0 {
		return Result{Output: strings.Join([]string{
			"",
			boxTop,
			"│  Guestbook",
			boxMid,
			"│  No entries yet. Be the first!",
			"│",
			"│  Usage: guestbook add <message>",
			boxBottom,
		}, "\n")}
	}

	noun := "entries"
	if len(entries) == 1 {
		noun = "entry"
	}
	lines := []string{
		"",
		boxTop,
		fmt.Sprintf("│  Guestbook (%d %s)", len(entries), noun),
		boxMid,
	}
	shown := entries
	if len(shown) > guestbookRendered {
		shown = shown[:guestbookRendered]
	}
	for _, e := range shown {
		lines = append(lines, fmt.Sprintf("│  [%s] %s: %s",
			e.CreatedAt.Local().Format("Jan 2, 03:04 PM"), e.Username, truncate(e.Message, guestbookPreview)))
	}
	lines = append(lines, boxMid, "│  Leave a message: guestbook add <your message>", boxBottom)
	return Result{Output: strings.Join(lines, "\n")}
}

func guestbookAdd(ctx context.Context, words []string, env Env) Result {
	message := strings.TrimSpace(strings.Join(words, " "))
	if message == "" {
		return Result{
			Output:  "Usage: guestbook add <message>\n\nExample: guestbook add Hello from NYC!",
			IsError: true,
		}
	}
	if env.Username == "" {
		return Result{
			Output: "You need a username to add guestbook entries. Choose one now:",
			Action: PromptUsername{Retry: env.Line},
		}
	}
	if utf8.RuneCountInString(message) > model.MaxGuestbookMessage {
		return Result{
			Output:  fmt.Sprintf("Message too long. Maximum %d characters.", model.MaxGuestbookMessage),
			IsError: true,
		}
	}
	if env.Services == nil {
		return Result{Output: "Failed to add guestbook entry. Please try again.", IsError: true}
	}
	if err := env.Services.AddGuestbookEntry(ctx, message); err != nil {
		return Result{Output: "Failed to add guestbook entry. Please try again.", IsError: true}
	}

	return Result{Output: strings.Join([]string{
		"",
		boxTop,
		"│  Entry added to guestbook!",
		"│",
		"│  \"" + truncate(message, guestbookEcho) + "\"",
		"│  — " + env.Username,
		boxBottom,
		"",
		"Type 'guestbook' to see all entries.",
	}, "\n")}
}

func nameCommand(_ context.Context, args []string, env Env) Result {
	if len(args) == 0 {
		if env.Username != "" {
			return Result{Output: "Your current username: " + env.Username + "\n\nTo change it: name <new_username>"}
		}
		return Result{Output: "Usage: name <username>\n\nSet or change your username. 3-20 characters, letters, numbers, and underscores only."}
	}

	username := strings.ToLower(args[0])
	if err := session.ValidateUsername(username); err != nil {
		return Result{Output: err.Error() + ".", IsError: true}
	}
	return Result{Output: "Username set to: " + username, Action: SetUsername{Username: username}}
}

func drawCommand(_ context.Context, args []string, env Env) Result {
	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "export":
		ascii := ""
		if env.Services != nil {
			ascii = env.Services.CanvasASCII()
		}
		rule := strings.Repeat("─", model.CanvasWidth)
		lines := []string{fmt.Sprintf("Canvas Export (%dx%d):", model.CanvasWidth, model.CanvasHeight), "┌" + rule + "┐"}
		for _, row := range strings.Split(ascii, "\n") {
			lines = append(lines, "│"+padRunes(row, model.CanvasWidth)+"│")
		}
		lines = append(lines, "└"+rule+"┘", "", "Copy the above ASCII art!")
		return Result{Output: strings.Join(lines, "\n")}

	case "clear":
		if env.Username == "" {
			return Result{
				Output: "You need a username to clear pixels. Choose one now:",
				Action: PromptUsername{Retry: env.Line},
			}
		}
		return Result{Output: "Clearing your pixels from the canvas...", Action: ClearPixels{Username: env.Username}}
	}

	if env.Username == "" {
		return Result{
			Output: `Opening collaborative canvas...

You can view and navigate the canvas, but you'll need a username to draw.
Set one with: name <username>

Controls:
  • Arrow keys to move cursor
  • ESC or 'draw' again to close`,
			Action: ToggleCanvas{},
		}
	}
	return Result{
		Output: `Opening collaborative canvas...

Controls:
  • Arrow keys to move cursor
  • Type any character to place it
  • Backspace/Delete to erase
  • ESC or 'draw' again to close

Commands:
  draw          - Toggle canvas
  draw export   - Export as ASCII text
  draw clear    - Clear your pixels`,
		Action: ToggleCanvas{},
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func padRunes(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
