package interview

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed prompts/*.md
var promptFS embed.FS

func mustPrompt(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name + ".md")
	if err != nil {
		panic(fmt.Sprintf("missing embedded prompt %q: %v", name, err))
	}
	return strings.TrimSpace(string(data))
}

var (
	greetingTemplate         = mustPrompt("greeting")
	greetingAdaptiveTemplate = mustPrompt("greeting_adaptive")
	vacancyAdaptiveTemplate  = mustPrompt("vacancy_adaptive")
	hardFirstTemplate        = mustPrompt("hard_first")
	hardAdaptiveTemplate     = mustPrompt("hard_adaptive")
	softFirstTemplate        = mustPrompt("soft_first")
	softAdaptiveTemplate     = mustPrompt("soft_adaptive")
	endGreetingTemplate      = mustPrompt("end_greeting")
	endVacancyTemplate       = mustPrompt("end_vacancy")
	endHardTemplate          = mustPrompt("end_hard")
	endSoftTemplate          = mustPrompt("end_soft")
	hardSummaryTemplate      = mustPrompt("hard_summary")
	softSummaryTemplate      = mustPrompt("soft_summary")
	finalReportTemplate      = mustPrompt("final_report")
	planTemplate             = mustPrompt("plan")
)

// render replaces {{KEY}} placeholders with values.
func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// FormatHistory renders exchanges as numbered question/answer lines.
func FormatHistory(history []Exchange) string {
	lines := make([]string, 0, len(history)*2)
	for i, exchange := range history {
		n := strconv.Itoa(i + 1)
		lines = append(lines, "Вопрос "+n+": "+exchange.Question)
		lines = append(lines, "Ответ "+n+": "+exchange.Answer)
	}
	return strings.Join(lines, "\n")
}

// promptInput carries everything a topic prompt may refer to.
type promptInput struct {
	setup   *Setup
	topic   Topic
	history []Exchange
}

func (in promptInput) lastAnswer() string {
	if len(in.history) == 0 {
		return ""
	}
	return in.history[len(in.history)-1].Answer
}

func (in promptInput) values() map[string]string {
	return map[string]string{
		"HR_NAME":         in.setup.HRName,
		"VACANCY_NAME":    in.setup.Vacancy.Title,
		"VACANCY_GENERAL": in.setup.Vacancy.General,
		"RESUME":          in.setup.ResumeContext,
		"TOPIC":           in.topic.Name,
		"HISTORY":         FormatHistory(in.history),
		"LAST_ANSWER":     in.lastAnswer(),
		"ANSWER":          in.lastAnswer(),
	}
}

// questionRequest is either a fixed question or a prompt for the model.
type questionRequest struct {
	static string
	prompt string
}

// questionStyle is implemented once per topic kind.
type questionStyle interface {
	first(in promptInput) questionRequest
	adaptive(in promptInput) questionRequest
	endPrompt(in promptInput) string
}

func styleFor(kind TopicKind) questionStyle {
	switch kind {
	case KindGreeting:
		return greetingStyle{}
	case KindVacancyInfo:
		return vacancyInfoStyle{}
	case KindHardSkill:
		return hardSkillStyle{}
	case KindSoftSkill:
		return softSkillStyle{}
	default:
		panic(fmt.Sprintf("no question style for topic kind %q", kind))
	}
}

type greetingStyle struct{}

func (greetingStyle) first(in promptInput) questionRequest {
	return questionRequest{static: render(greetingTemplate, in.values())}
}

func (greetingStyle) adaptive(in promptInput) questionRequest {
	return questionRequest{prompt: render(greetingAdaptiveTemplate, in.values())}
}

func (greetingStyle) endPrompt(in promptInput) string {
	return render(endGreetingTemplate, in.values())
}

type vacancyInfoStyle struct{}

const vacancyQuestionSuffix = "У вас остались какие-то вопросы?"

func (vacancyInfoStyle) first(in promptInput) questionRequest {
	general := strings.TrimSpace(in.setup.Vacancy.General)
	if general == "" {
		general = strings.TrimSpace(in.setup.Vacancy.Description)
	}
	if general == "" {
		return questionRequest{static: vacancyQuestionSuffix}
	}
	return questionRequest{static: general + " " + vacancyQuestionSuffix}
}

func (vacancyInfoStyle) adaptive(in promptInput) questionRequest {
	return questionRequest{prompt: render(vacancyAdaptiveTemplate, in.values())}
}

func (vacancyInfoStyle) endPrompt(in promptInput) string {
	return render(endVacancyTemplate, in.values())
}

type hardSkillStyle struct{}

func (hardSkillStyle) first(in promptInput) questionRequest {
	return questionRequest{prompt: render(hardFirstTemplate, in.values())}
}

func (hardSkillStyle) adaptive(in promptInput) questionRequest {
	return questionRequest{prompt: render(hardAdaptiveTemplate, in.values())}
}

func (hardSkillStyle) endPrompt(in promptInput) string {
	return render(endHardTemplate, in.values())
}

type softSkillStyle struct{}

func (softSkillStyle) first(in promptInput) questionRequest {
	return questionRequest{prompt: render(softFirstTemplate, in.values())}
}

func (softSkillStyle) adaptive(in promptInput) questionRequest {
	return questionRequest{prompt: render(softAdaptiveTemplate, in.values())}
}

func (softSkillStyle) endPrompt(in promptInput) string {
	return render(endSoftTemplate, in.values())
}

func summaryPrompt(in promptInput) (string, error) {
	switch in.topic.Kind {
	case KindHardSkill:
		return render(hardSummaryTemplate, in.values()), nil
	case KindSoftSkill:
		return render(softSummaryTemplate, in.values()), nil
	default:
		return "", fmt.Errorf("%w: topics of kind %q are not summarized", ErrSchema, in.topic.Kind)
	}
}
