package interview

import (
	"strings"
	"testing"
)

func TestEveryKindHasQuestionStyle(t *testing.T) {
	t.Parallel()

	setup := testSetup()
	for _, kind := range AllKinds {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()
			in := promptInput{setup: setup, topic: Topic{Name: "Тема", Kind: kind}}

			style := styleFor(kind)
			first := style.first(in)
			if first.static == "" && first.prompt == "" {
				t.Fatalf("empty first question request")
			}
			if adaptive := style.adaptive(in); adaptive.prompt == "" {
				t.Fatalf("adaptive question must be generated")
			}
			if end := style.endPrompt(in); strings.Contains(end, "{{") {
				t.Fatalf("unrendered placeholder in end prompt: %q", end)
			}

			_, err := summaryPrompt(in)
			if kind.Summarized() != (err == nil) {
				t.Fatalf("summary prompt availability does not match Summarized(): %v", err)
			}
		})
	}
}

func TestStyleForUnknownKindPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown kind")
		}
	}()
	styleFor("trivia")
}

func TestTemplatesHaveNoUnknownPlaceholders(t *testing.T) {
	t.Parallel()

	in := promptInput{
		setup:   testSetup(),
		topic:   Topic{Name: "SQL", Kind: KindHardSkill},
		history: []Exchange{{Question: "q", Answer: "a"}},
	}
	values := in.values()
	values["EVALUATIONS"] = "e"
	values["VACANCY_JSON"] = "{}"
	values["MAX_HARD"] = "1"
	values["MAX_SOFT"] = "1"

	templates := map[string]string{
		"greeting":          greetingTemplate,
		"greeting_adaptive": greetingAdaptiveTemplate,
		"vacancy_adaptive":  vacancyAdaptiveTemplate,
		"hard_first":        hardFirstTemplate,
		"hard_adaptive":     hardAdaptiveTemplate,
		"soft_first":        softFirstTemplate,
		"soft_adaptive":     softAdaptiveTemplate,
		"end_greeting":      endGreetingTemplate,
		"end_vacancy":       endVacancyTemplate,
		"end_hard":          endHardTemplate,
		"end_soft":          endSoftTemplate,
		"hard_summary":      hardSummaryTemplate,
		"soft_summary":      softSummaryTemplate,
		"final_report":      finalReportTemplate,
		"plan":              planTemplate,
	}
	for name, template := range templates {
		if out := render(template, values); strings.Contains(out, "{{") {
			t.Fatalf("template %s has unknown placeholders: %q", name, out)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	t.Parallel()

	got := FormatHistory([]Exchange{
		{Question: "Готовы?", Answer: "Да"},
		{Question: "Опыт?", Answer: ""},
	})
	want := "Вопрос 1: Готовы?\nОтвет 1: Да\nВопрос 2: Опыт?\nОтвет 2: "
	if got != want {
		t.Fatalf("unexpected history:\n%q\nwant\n%q", got, want)
	}
}
