package command

import (
	"fmt"
	"strings"

	"termfolio/internal/resume"
)

const (
	boxTop    = "╭─────────────────────────────────────────────────────────────╮"
	boxMid    = "├─────────────────────────────────────────────────────────────┤"
	boxBottom = "╰─────────────────────────────────────────────────────────────╯"
	cardRule  = "─────────────────────────────────"
	cardEnd   = "└────────────────────────────────────────────────────────"
)

const helpText = `Available commands:

  PORTFOLIO
  ─────────────────────────────────────────────────────────
  whoami      - About me
  work        - Work experience
  education   - Education history
  skills      - Technical skills
  projects    - Project showcase
  activities  - Leadership & activities
  awards      - Honors & awards
  contact     - Contact information
  blog        - List blog posts
  cv          - Open PDF resume

  COLLABORATIVE
  ─────────────────────────────────────────────────────────
  name        - Set or change your username
  who         - See who's online right now
  guestbook   - View/add guestbook entries
  draw        - Open collaborative ASCII canvas

  SYSTEM
  ─────────────────────────────────────────────────────────
  clear       - Clear terminal
  help        - Show this help

Type any command to get started. Use ↑/↓ to navigate history.`

func helpCommand(_ []string, _ *resume.CV) Result {
	return Result{Output: helpText}
}

func whoamiCommand(_ []string, data *resume.CV) Result {
	p := data.Personal
	lines := []string{
		"",
		boxTop,
		"│  " + p.Name,
		"│  " + p.About,
		boxMid,
		fmt.Sprintf("│  Location: %s, %s", p.Location.City, p.Location.Country),
		"│  Email:    " + p.Email,
		"│  Website:  " + p.URL,
		boxBottom,
		"",
		"Type 'contact' for social links or 'work' to see my experience.",
	}
	return Result{Output: strings.Join(lines, "\n")}
}

// card renders one titled block with bullet highlights.
func card(title string, body []string, highlights []string) string {
	lines := []string{"", "┌─ " + title + " " + cardRule}
	for _, l := range body {
		lines = append(lines, "│  "+l)
	}
	lines = append(lines, "│")
	for _, h := range highlights {
		lines = append(lines, "│  • "+h)
	}
	lines = append(lines, cardEnd)
	return strings.Join(lines, "\n")
}

func dateRange(start, end resume.Date) string {
	return start.Format() + " - " + end.Format()
}

func workCommand(_ []string, data *resume.CV) Result {
	cards := make([]string, 0, len(data.Work))
	for _, job := range data.Work {
		cards = append(cards, card(job.Organization, []string{
			job.Position,
			job.Location + " | " + dateRange(job.StartDate, job.EndDate),
		}, job.Highlights))
	}
	return Result{Output: strings.Join(cards, "\n")}
}

func educationCommand(_ []string, data *resume.CV) Result {
	cards := make([]string, 0, len(data.Education))
	for _, edu := range data.Education {
		cards = append(cards, card(edu.Institution, []string{
			edu.StudyType + " in " + edu.Area,
			edu.Location + " | " + dateRange(edu.StartDate, edu.EndDate),
		}, edu.Highlights))
	}
	return Result{Output: strings.Join(cards, "\n")}
}

func skillsCommand(_ []string, data *resume.CV) Result {
	blocks := make([]string, 0, len(data.Skills))
	for _, cat := range data.Skills {
		blocks = append(blocks, "\n["+cat.Category+"]\n  "+strings.Join(cat.Skills, " • "))
	}
	return Result{Output: strings.Join(blocks, "\n")}
}

const maxProjects = 6

func projectsCommand(_ []string, data *resume.CV) Result {
	projects := data.Projects
	if len(projects) > maxProjects {
		projects = projects[:maxProjects]
	}
	cards := make([]string, 0, len(projects))
	for _, p := range projects {
		affiliation := "Personal Project"
		if p.Affiliation != "" && p.Affiliation != "none" {
			affiliation = "Affiliation: " + p.Affiliation
		}
		highlights := append([]string(nil), p.Highlights...)
		c := card(p.Name, []string{affiliation, p.URL}, highlights)
		// tags go inside the card, before its closing rule
		c = strings.TrimSuffix(c, cardEnd) + "│\n│  Tags: " + strings.Join(p.Keywords, ", ") + "\n" + cardEnd
		cards = append(cards, c)
	}
	return Result{Output: strings.Join(cards, "\n")}
}

func activitiesCommand(_ []string, data *resume.CV) Result {
	cards := make([]string, 0, len(data.Affiliations))
	for _, aff := range data.Affiliations {
		cards = append(cards, card(aff.Organization, []string{
			aff.Position,
			aff.Location + " | " + dateRange(aff.StartDate, aff.EndDate),
		}, aff.Highlights))
	}
	return Result{Output: strings.Join(cards, "\n")}
}

func awardsCommand(_ []string, data *resume.CV) Result {
	cards := make([]string, 0, len(data.Awards))
	for _, a := range data.Awards {
		cards = append(cards, card(a.Title, []string{
			"Issuer: " + a.Issuer,
			a.Location + " | " + a.Date.Format(),
		}, a.Highlights))
	}
	return Result{Output: strings.Join(cards, "\n")}
}

func contactCommand(_ []string, data *resume.CV) Result {
	p := data.Personal
	lines := []string{
		"",
		boxTop,
		"│  Contact Information",
		boxMid,
		"│  Email:    " + p.Email,
		"│  Website:  " + p.URL,
		fmt.Sprintf("│  Location: %s, %s", p.Location.City, p.Location.Country),
		boxMid,
		"│  Social Links:",
	}
	for _, prof := range p.Profiles {
		lines = append(lines, fmt.Sprintf("│    %-10s → %s", prof.Network, prof.URL))
	}
	lines = append(lines, boxBottom, "", "Feel free to reach out!")
	return Result{Output: strings.Join(lines, "\n")}
}

func blogCommand(args []string, _ *resume.CV) Result {
	if len(args) > 0 {
		return Result{Output: "Loading blog post: " + args[0] + "..."}
	}
	lines := []string{
		"",
		boxTop,
		"│  Blog Posts",
		boxMid,
		"│  No posts yet. Check back soon!",
		"│",
		"│  Or visit /blog for the full blog experience.",
		boxBottom,
		"",
		"Usage: blog <slug> - Read a specific post",
	}
	return Result{Output: strings.Join(lines, "\n")}
}
