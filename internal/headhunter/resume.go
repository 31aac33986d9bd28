package headhunter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type Resumes struct {
	Items []*Resume
}

type Resume struct {
	Title string
	ID    string `json:"id,omitempty"`
}

type ResumeDetails struct {
	ID              string          `mapstructure:"id"`
	Title           string          `mapstructure:"title"`
	Skills          string          `mapstructure:"skills"`
	SkillSet        []string        `mapstructure:"skill_set"`
	TotalExperience TotalExperience `mapstructure:"total_experience"`
	Experience      []ResumeJob     `mapstructure:"experience"`
	Raw             map[string]any  `mapstructure:"-"`
}

type TotalExperience struct {
	Months int `mapstructure:"months"`
}

type ResumeJob struct {
	Company     string `mapstructure:"company"`
	Position    string `mapstructure:"position"`
	Start       string `mapstructure:"start"`
	End         string `mapstructure:"end"`
	Description string `mapstructure:"description"`
}

func (c *Client) getResumes(ctx context.Context, id string) (*Resumes, error) {
	apiURLMineResumes := fmt.Sprintf("%s/resumes/%s", c.APIURL, id)

	items, err := c.GetItems(ctx, apiURLMineResumes, nil)
	if err != nil {
		return nil, err
	}

	var resumes []*Resume
	if err = mapstructure.Decode(items, &resumes); err != nil {
		return nil, err
	}

	return &Resumes{
		Items: resumes,
	}, nil
}

func (r *Resumes) Len() int {
	return len(r.Items)
}

func (r *Resumes) Titles() []string {
	ids := make([]string, 0, len(r.Items))

	for _, v := range r.Items {
		ids = append(ids, v.Title)
	}

	return ids
}

func (r *Resumes) FindByTitle(title string) *Resume {
	for _, resume := range r.Items {
		if resume.Title == title {
			return resume
		}
	}

	return nil
}

func (c *Client) GetResumeDetails(ctx context.Context, id string) (*ResumeDetails, error) {
	if id == "" {
		return nil, fmt.Errorf("resume id is required")
	}

	apiURL := fmt.Sprintf("%s/resumes/%s", c.APIURL, id)

	var raw map[string]any
	if err := c.getJSON(ctx, apiURL, nil, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	details := &ResumeDetails{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           details,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding resume %s: %w", id, err)
	}
	details.Raw = raw

	return details, nil
}

// Context renders the résumé as the plain text the interview prompts are built from.
func (r *ResumeDetails) Context() string {
	var b strings.Builder

	if r.Title != "" {
		fmt.Fprintf(&b, "Желаемая должность: %s\n", r.Title)
	}
	if r.TotalExperience.Months > 0 {
		fmt.Fprintf(&b, "Общий опыт: %d лет %d мес.\n", r.TotalExperience.Months/12, r.TotalExperience.Months%12)
	}
	if len(r.SkillSet) > 0 {
		fmt.Fprintf(&b, "Навыки: %s\n", strings.Join(r.SkillSet, ", "))
	}
	if skills := StripHTML(r.Skills); skills != "" {
		fmt.Fprintf(&b, "О себе: %s\n", skills)
	}

	if len(r.Experience) > 0 {
		b.WriteString("Опыт работы:\n")
		for _, job := range r.Experience {
			end := job.End
			if end == "" {
				end = "по настоящее время"
			}
			fmt.Fprintf(&b, "- %s, %s (%s - %s)\n", job.Position, job.Company, job.Start, end)
			if desc := StripHTML(job.Description); desc != "" {
				fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(desc, "\n", "\n  "))
			}
		}
	}

	return strings.TrimSpace(b.String())
}
