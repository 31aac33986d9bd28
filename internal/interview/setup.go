package interview

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	GreetingTopicName    = "Приветствие"
	VacancyInfoTopicName = "Вопросы о вакансии"
)

// DefaultSoftTopics is used when neither the setup nor the planner supply soft skill topics.
var DefaultSoftTopics = []string{
	"Работа в команде",
	"Решение конфликтов",
}

// VacancyProfile is the vacancy as produced by the document parsing collaborators.
type VacancyProfile struct {
	Title              string   `yaml:"title" json:"title"`
	Description        string   `yaml:"description" json:"description"`
	RequiredSkills     []string `yaml:"required-skills" json:"required_skills"`
	MinExperienceYears float64  `yaml:"min-experience-years" json:"min_experience_years"`
	MinLanguageLevel   string   `yaml:"min-language-level" json:"min_language_level"`
	// General is read to the candidate as the first vacancy info question.
	General string `yaml:"general" json:"general"`
}

// Setup is everything the engine needs to run an interview.
type Setup struct {
	HRName        string         `yaml:"hr-name" json:"hr_name"`
	Vacancy       VacancyProfile `yaml:"vacancy" json:"vacancy"`
	ResumeContext string         `yaml:"resume" json:"resume_context"`
	Topics        []Topic        `yaml:"topics" json:"topics"`
	SoftTopics    []string       `yaml:"soft-topics" json:"soft_topics,omitempty"`
}

type setupFile struct {
	Setup      `yaml:",inline"`
	ResumeFile string `yaml:"resume-file"`
}

// LoadSetup reads a YAML setup file. A relative resume-file is resolved against the setup file directory.
func LoadSetup(path string) (*Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading setup file %q: %w", path, err)
	}

	var file setupFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing setup file %q: %w", path, err)
	}

	setup := file.Setup
	if resumeFile := strings.TrimSpace(file.ResumeFile); resumeFile != "" && strings.TrimSpace(setup.ResumeContext) == "" {
		if !filepath.IsAbs(resumeFile) {
			resumeFile = filepath.Join(filepath.Dir(path), resumeFile)
		}
		resume, err := os.ReadFile(resumeFile)
		if err != nil {
			return nil, fmt.Errorf("reading resume file %q: %w", resumeFile, err)
		}
		setup.ResumeContext = string(resume)
	}

	return &setup, nil
}

// Validate checks required fields and, when topics are present, the plan itself.
func (s *Setup) Validate() error {
	if strings.TrimSpace(s.HRName) == "" {
		return errors.New("hr name is required")
	}
	if strings.TrimSpace(s.Vacancy.Title) == "" {
		return errors.New("vacancy title is required")
	}
	if len(s.Topics) > 0 {
		if _, err := NewPlan(s.Topics); err != nil {
			return err
		}
	}
	return nil
}

// WithTopics returns a copy of s using the provided topics.
func (s Setup) WithTopics(topics []Topic) *Setup {
	s.Topics = append([]Topic(nil), topics...)
	return &s
}

// PlanFromVacancy builds a plan without a model: greeting, vacancy questions,
// one hard skill topic per required skill (up to maxHard) and the soft topics.
func PlanFromVacancy(vacancy VacancyProfile, softTopics []string, maxHard int) []Topic {
	if len(softTopics) == 0 {
		softTopics = DefaultSoftTopics
	}
	return assemblePlan(vacancy.RequiredSkills, softTopics, maxHard, 0)
}

// assemblePlan prepends the fixed greeting and vacancy topics and skips
// duplicate or blank names. A non-positive limit means no limit.
func assemblePlan(hard, soft []string, maxHard, maxSoft int) []Topic {
	topics := []Topic{
		{Name: GreetingTopicName, Kind: KindGreeting},
		{Name: VacancyInfoTopicName, Kind: KindVacancyInfo},
	}

	seen := map[string]struct{}{GreetingTopicName: {}, VacancyInfoTopicName: {}}
	add := func(names []string, kind TopicKind, limit int) {
		added := 0
		for _, name := range names {
			if limit > 0 && added >= limit {
				return
			}
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			topics = append(topics, Topic{Name: name, Kind: kind})
			added++
		}
	}

	add(hard, KindHardSkill, maxHard)
	add(soft, KindSoftSkill, maxSoft)

	return topics
}
