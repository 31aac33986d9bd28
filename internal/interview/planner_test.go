package interview

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestPlannerPlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		err   error
		want  []string
	}{
		{
			name:  "model topics are capped",
			reply: "```json\n{\"hard_interview_topics\": [\"Go concurrency\", \"PostgreSQL\", \"Kafka\"], \"soft_interview_topics\": [\"Конфликты\", \"Ответственность\", \"Лишняя\"]}\n```",
			want:  []string{GreetingTopicName, VacancyInfoTopicName, "Go concurrency", "PostgreSQL", "Конфликты", "Ответственность"},
		},
		{
			name:  "soft topics may be empty",
			reply: `{"hard_interview_topics": ["Go"], "soft_interview_topics": []}`,
			want:  []string{GreetingTopicName, VacancyInfoTopicName, "Go"},
		},
		{
			name:  "empty answer falls back",
			reply: `{"hard_interview_topics": [], "soft_interview_topics": []}`,
			want:  []string{GreetingTopicName, VacancyInfoTopicName, "Go", "SQL", DefaultSoftTopics[0], DefaultSoftTopics[1]},
		},
		{
			name:  "prose falls back",
			reply: "Не могу составить план",
			want:  []string{GreetingTopicName, VacancyInfoTopicName, "Go", "SQL", DefaultSoftTopics[0], DefaultSoftTopics[1]},
		},
		{
			name: "model error falls back",
			err:  errors.New("quota exceeded"),
			want: []string{GreetingTopicName, VacancyInfoTopicName, "Go", "SQL", DefaultSoftTopics[0], DefaultSoftTopics[1]},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			completer := &fakeCompleter{fn: func(context.Context, string) (string, error) { return tt.reply, tt.err }}
			planner := NewPlanner(completer, 2, 2, 0, nil)

			topics, err := planner.Plan(context.Background(), testSetup())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			names := make([]string, 0, len(topics))
			for _, topic := range topics {
				names = append(names, topic.Name)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Fatalf("unexpected plan %v, want %v", names, tt.want)
			}
			if _, err := NewPlan(topics); err != nil {
				t.Fatalf("plan is invalid: %v", err)
			}

			prompt := completer.last()
			if !strings.Contains(prompt, "Backend Go developer") || !strings.Contains(prompt, "не более 2 тем") {
				t.Fatalf("unexpected prompt %q", prompt)
			}
		})
	}
}

func TestPlannerCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completer := &fakeCompleter{fn: func(ctx context.Context, _ string) (string, error) { return "", ctx.Err() }}
	if _, err := NewPlanner(completer, 0, 0, 0, nil).Plan(ctx, testSetup()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPlannedSource(t *testing.T) {
	t.Parallel()

	base := func(_ context.Context, userID string) (*Setup, error) {
		if userID == "planned" {
			return testSetup(greetingAndSQL...), nil
		}
		return testSetup().WithTopics(nil), nil
	}
	names := func(topics []Topic) []string {
		out := make([]string, 0, len(topics))
		for _, topic := range topics {
			out = append(out, topic.Name)
		}
		return out
	}

	t.Run("existing plan is kept", func(t *testing.T) {
		t.Parallel()
		completer := &fakeCompleter{}
		setup, err := PlannedSource(base, NewPlanner(completer, 0, 0, 0, nil), 0)(context.Background(), "planned")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(setup.Topics) != len(greetingAndSQL) || completer.calls() != 0 {
			t.Fatalf("expected the stored plan without model calls, got %v", names(setup.Topics))
		}
	})

	t.Run("vacancy plan without planner", func(t *testing.T) {
		t.Parallel()
		setup, err := PlannedSource(base, nil, 1)(context.Background(), "new")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{GreetingTopicName, VacancyInfoTopicName, "Go", DefaultSoftTopics[0], DefaultSoftTopics[1]}
		if got := names(setup.Topics); !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("planner topics", func(t *testing.T) {
		t.Parallel()
		completer := &fakeCompleter{fn: func(context.Context, string) (string, error) {
			return `{"hard_interview_topics": ["Kafka"], "soft_interview_topics": ["Команда"]}`, nil
		}}
		setup, err := PlannedSource(base, NewPlanner(completer, 0, 0, 0, nil), 0)(context.Background(), "new")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{GreetingTopicName, VacancyInfoTopicName, "Kafka", "Команда"}
		if got := names(setup.Topics); !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})
}
