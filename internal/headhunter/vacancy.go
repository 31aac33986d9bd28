package headhunter

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/spigell/hh-interviewer/internal/interview"
)

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		Name string `json:"name,omitempty"`
	} `json:"area,omitempty"`
	Experience struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"experience,omitempty"`
	Schedule struct {
		Name string `json:"name,omitempty"`
	} `json:"schedule,omitempty"`
	Employer struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	Description string `json:"description,omitempty"`
	KeySkills   []struct {
		Name string `json:"name,omitempty"`
	} `json:"key_skills,omitempty"`
	Languages []struct {
		Name  string `json:"name,omitempty"`
		Level struct {
			Name string `json:"name,omitempty"`
		} `json:"level,omitempty"`
	} `json:"languages,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
}

func (c *Client) GetVacancy(ctx context.Context, id string) (*Vacancy, error) {
	if id == "" {
		return nil, fmt.Errorf("vacancy id is required")
	}

	var vacancy Vacancy
	if err := c.getJSON(ctx, fmt.Sprintf("%s/vacancies/%s", c.APIURL, id), nil, &vacancy); err != nil {
		return nil, err
	}
	return &vacancy, nil
}

// Minimum years of experience for the experience ids of hh.ru.
var experienceYears = map[string]float64{
	"noExperience": 0,
	"between1And3": 1,
	"between3And6": 3,
	"moreThan6":    6,
}

// Profile converts the vacancy to the form used by the interview.
func (va *Vacancy) Profile() interview.VacancyProfile {
	skills := make([]string, 0, len(va.KeySkills))
	for _, skill := range va.KeySkills {
		if name := strings.TrimSpace(skill.Name); name != "" {
			skills = append(skills, name)
		}
	}

	var language string
	if len(va.Languages) > 0 {
		language = strings.TrimSpace(va.Languages[0].Name + " " + va.Languages[0].Level.Name)
	}

	return interview.VacancyProfile{
		Title:              strings.TrimSpace(va.Name),
		Description:        StripHTML(va.Description),
		RequiredSkills:     skills,
		MinExperienceYears: experienceYears[va.Experience.ID],
		MinLanguageLevel:   language,
		General:            va.general(),
	}
}

func (va *Vacancy) general() string {
	var parts []string
	if va.Employer.Name != "" {
		parts = append(parts, "Компания: "+va.Employer.Name)
	}
	if va.Area.Name != "" {
		parts = append(parts, "Город: "+va.Area.Name)
	}
	if va.Schedule.Name != "" {
		parts = append(parts, "График: "+va.Schedule.Name)
	}
	if va.Experience.Name != "" {
		parts = append(parts, "Опыт: "+va.Experience.Name)
	}
	return strings.Join(parts, "\n")
}

var (
	blockTags = regexp.MustCompile(`(?i)</?(p|br|li|ul|ol|h[1-6]|div)[^>]*>`)
	anyTag    = regexp.MustCompile(`<[^>]*>`)
	blankRuns = regexp.MustCompile(`\n\s*\n+`)
)

// StripHTML turns the HTML markup of hh.ru descriptions into plain text.
func StripHTML(s string) string {
	s = blockTags.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
