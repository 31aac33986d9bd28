package headhunter

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

const vacancyJSON = `{
	"id": "42",
	"name": "Backend Go developer",
	"area": {"name": "Москва"},
	"experience": {"id": "between3And6", "name": "От 3 до 6 лет"},
	"schedule": {"name": "Удаленная работа"},
	"employer": {"id": "7", "name": "Acme"},
	"description": "<p>Разработка <strong>платёжного</strong> шлюза.</p><ul><li>Go</li><li>PostgreSQL &amp; Kafka</li></ul>",
	"key_skills": [{"name": "Go"}, {"name": " SQL "}, {"name": ""}],
	"languages": [{"name": "Английский", "level": {"name": "B2"}}]
}`

const resumeJSON = `{
	"id": "r1",
	"title": "Go разработчик",
	"skills": "<p>Люблю <em>конкурентность</em></p>",
	"skill_set": ["Go", "PostgreSQL"],
	"total_experience": {"months": 62},
	"experience": [
		{"company": "Acme", "position": "Backend developer", "start": "2020-01-01", "end": null, "description": "Платежи"},
		{"company": "Globex", "position": "Intern", "start": "2019-01-01", "end": "2019-12-01", "description": ""}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(zap.NewNop(), "token")
	c.APIURL = srv.URL
	return c
}

func TestGetVacancyProfile(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vacancies/42" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer token")
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		fmt.Fprint(gz, vacancyJSON)
	})

	vacancy, err := c.GetVacancy(context.Background(), "42")
	if err != nil {
		t.Fatalf("get vacancy: %v", err)
	}

	profile := vacancy.Profile()
	if profile.Title != "Backend Go developer" {
		t.Fatalf("unexpected title %q", profile.Title)
	}
	if !reflect.DeepEqual(profile.RequiredSkills, []string{"Go", "SQL"}) {
		t.Fatalf("unexpected skills %v", profile.RequiredSkills)
	}
	if profile.MinExperienceYears != 3 || profile.MinLanguageLevel != "Английский B2" {
		t.Fatalf("unexpected requirements %+v", profile)
	}
	if profile.Description != "Разработка платёжного шлюза.\nGo\nPostgreSQL & Kafka" {
		t.Fatalf("unexpected description %q", profile.Description)
	}
	if !strings.Contains(profile.General, "Компания: Acme") || !strings.Contains(profile.General, "Город: Москва") {
		t.Fatalf("unexpected general info %q", profile.General)
	}
}

func TestGetVacancyNotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.NotFound)
	if _, err := c.GetVacancy(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := c.GetVacancy(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestResumeContext(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, resumeJSON)
	})

	resume, err := c.GetResumeDetails(context.Background(), "r1")
	if err != nil {
		t.Fatalf("get resume: %v", err)
	}
	if resume.ID != "r1" || resume.Raw["title"] != "Go разработчик" {
		t.Fatalf("unexpected resume %+v", resume)
	}

	text := resume.Context()
	for _, want := range []string{
		"Желаемая должность: Go разработчик",
		"Общий опыт: 5 лет 2 мес.",
		"Навыки: Go, PostgreSQL",
		"О себе: Люблю конкурентность",
		"- Backend developer, Acme (2020-01-01 - по настоящее время)",
		"  Платежи",
		"- Intern, Globex (2019-01-01 - 2019-12-01)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("resume context misses %q:\n%s", want, text)
		}
	}
}

func TestGetMineResumesFollowsPages(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, `{"items": [{"id": "1", "title": "Go"}], "pages": 2, "page": 0, "per_page": 1}`)
		case "1":
			fmt.Fprint(w, `{"items": [{"id": "2", "title": "Python"}], "pages": 2, "page": 1, "per_page": 1}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	resumes, err := c.GetMineResumes(context.Background())
	if err != nil {
		t.Fatalf("get resumes: %v", err)
	}
	if !reflect.DeepEqual(resumes.Titles(), []string{"Go", "Python"}) {
		t.Fatalf("unexpected titles %v", resumes.Titles())
	}
	if r := resumes.FindByTitle("Python"); r == nil || r.ID != "2" {
		t.Fatalf("unexpected lookup %+v", r)
	}
}

func TestSetupSourceUsesUserAsResume(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		resumePaths []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/vacancies/42":
			fmt.Fprint(w, vacancyJSON)
		case strings.HasPrefix(r.URL.Path, "/resumes/"):
			mu.Lock()
			resumePaths = append(resumePaths, r.URL.Path)
			mu.Unlock()
			fmt.Fprint(w, resumeJSON)
		default:
			http.NotFound(w, r)
		}
	})

	source := c.SetupSource(Config{VacancyID: "42"}, "Анна", []string{"Команда"})
	setup, err := source(context.Background(), "r1")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := setup.Validate(); err != nil {
		t.Fatalf("invalid setup: %v", err)
	}
	if setup.HRName != "Анна" || setup.Vacancy.Title != "Backend Go developer" || len(setup.Topics) != 0 {
		t.Fatalf("unexpected setup %+v", setup)
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(resumePaths, []string{"/resumes/r1"}) {
		t.Fatalf("unexpected resume requests %v", resumePaths)
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"plain":                       "plain",
		"<p>a</p><p>b</p>":            "a\nb",
		"a<br/>b":                     "a\nb",
		"<strong>&lt;go&gt;</strong>": "<go>",
		"<p> </p><p>x</p><p></p>":     "x",
	}
	for in, want := range cases {
		if got := StripHTML(in); got != want {
			t.Errorf("StripHTML(%q) = %q, want %q", in, got, want)
		}
	}
}
