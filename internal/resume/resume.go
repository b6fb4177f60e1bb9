// Package resume loads the static résumé the terminal renders. The data is
// read once and treated as immutable by every consumer.
package resume

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Profile struct {
	Network  string `yaml:"network"`
	Username string `yaml:"username"`
	URL      string `yaml:"url"`
}

type Location struct {
	City       string `yaml:"city"`
	Region     string `yaml:"region"`
	PostalCode string `yaml:"postalCode"`
	Country    string `yaml:"country"`
}

type Personal struct {
	Avatar   string    `yaml:"avatar"`
	Name     string    `yaml:"name"`
	Email    string    `yaml:"email"`
	Phone    string    `yaml:"phone"`
	URL      string    `yaml:"url"`
	Location Location  `yaml:"location"`
	Profiles []Profile `yaml:"profiles"`
	About    string    `yaml:"about"`
	Summary  string    `yaml:"summary"`
}

type Work struct {
	Organization string   `yaml:"organization"`
	Position     string   `yaml:"position"`
	URL          string   `yaml:"url"`
	Location     string   `yaml:"location"`
	StartDate    Date     `yaml:"startDate"`
	EndDate      Date     `yaml:"endDate"`
	Highlights   []string `yaml:"highlights"`
	Keywords     []string `yaml:"keywords"`
}

type Education struct {
	Institution string   `yaml:"institution"`
	URL         string   `yaml:"url"`
	Area        string   `yaml:"area"`
	StudyType   string   `yaml:"studyType"`
	StartDate   Date     `yaml:"startDate"`
	EndDate     Date     `yaml:"endDate"`
	Location    string   `yaml:"location"`
	Honors      []string `yaml:"honors"`
	Courses     []string `yaml:"courses"`
	Highlights  []string `yaml:"highlights"`
}

type Affiliation struct {
	Organization string   `yaml:"organization"`
	Position     string   `yaml:"position"`
	Location     string   `yaml:"location"`
	URL          string   `yaml:"url"`
	StartDate    Date     `yaml:"startDate"`
	EndDate      Date     `yaml:"endDate"`
	Highlights   []string `yaml:"highlights"`
}

type Award struct {
	Title      string   `yaml:"title"`
	Date       Date     `yaml:"date"`
	Issuer     string   `yaml:"issuer"`
	URL        string   `yaml:"url"`
	Location   string   `yaml:"location"`
	Highlights []string `yaml:"highlights"`
}

type Project struct {
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	Affiliation string   `yaml:"affiliation"`
	StartDate   Date     `yaml:"startDate"`
	EndDate     Date     `yaml:"endDate"`
	Highlights  []string `yaml:"highlights"`
	Keywords    []string `yaml:"keywords"`
}

type SkillCategory struct {
	Category string   `yaml:"category"`
	Skills   []string `yaml:"skills"`
}

type Language struct {
	Language string `yaml:"language"`
	Fluency  string `yaml:"fluency"`
}

type CV struct {
	Personal     Personal        `yaml:"personal"`
	Work         []Work          `yaml:"work"`
	Education    []Education     `yaml:"education"`
	Affiliations []Affiliation   `yaml:"affiliations"`
	Awards       []Award         `yaml:"awards"`
	Projects     []Project       `yaml:"projects"`
	Skills       []SkillCategory `yaml:"skills"`
	Languages    []Language      `yaml:"languages"`
	Interests    []string        `yaml:"interests"`
}

// Date is a calendar date or the open-ended "present".
type Date struct {
	Time    time.Time
	Present bool
}

var dateLayouts = []string{"2006-01-02", "2006-01", "2006", time.RFC3339}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Date{}
		return nil
	}
	if strings.EqualFold(raw, "present") {
		*d = Date{Present: true}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			*d = Date{Time: t}
			return nil
		}
	}
	return fmt.Errorf("line %d: invalid date %q", node.Line, raw)
}

// Format renders the date as "Jan 2006", or "Present".
func (d Date) Format() string {
	if d.Present {
		return "Present"
	}
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format("Jan 2006")
}

//go:embed default.yml
var defaultYAML []byte

func Parse(data []byte) (*CV, error) {
	var cv CV
	if err := yaml.Unmarshal(data, &cv); err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}
	return &cv, nil
}

// Load reads the résumé at path, falling back to the bundled sample when path
// is empty.
func Load(path string) (*CV, error) {
	if path == "" {
		return Parse(defaultYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	return Parse(data)
}
