package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/headhunter"
	"github.com/spigell/hh-interviewer/internal/interview"
)

const (
	defaultChatUser = "local"
	chatExitCommand = "/exit"
)

var errEmptyAnswer = errors.New("ответ не может быть пустым")

var chatCmd = &cobra.Command{
	Use:   "chat [user]",
	Short: "Run a text interview in the terminal",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		chat(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().BoolP("reset", "r", false, "drop the saved interview of the user and start over")
}

func chat(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Logs go to stderr so they do not mix with the dialogue.
	logger := newLogger("stderr")
	defer logger.Sync() //nolint:errcheck

	config := mustConfig(logger)

	client, err := newGenAIClient(ctx, config.AI)
	if err != nil {
		logger.Fatal("creating ai client", zap.Error(err))
	}
	generator, err := newGenerator(client, config.AI.Gemini, logger)
	if err != nil {
		logger.Fatal("creating text generator", zap.Error(err))
	}

	source, hh, err := newSetupSource(config, logger)
	if err != nil {
		logger.Fatal("preparing interview setup", zap.Error(err))
	}

	user := defaultChatUser
	switch {
	case len(args) > 0:
		user = args[0]
	case hh != nil && config.Headhunter.ResumeID == "":
		if user, err = selectResume(ctx, hh); err != nil {
			logger.Fatal("selecting resume", zap.Error(err))
		}
	}

	library, store, err := newInterviews(config, generator, source, logger)
	if err != nil {
		logger.Fatal("preparing interviews", zap.Error(err))
	}
	defer store.Close()

	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := library.Forget(ctx, user); err != nil {
			logger.Fatal("resetting interview", zap.Error(err))
		}
	}

	if err := runChat(ctx, library, user); err != nil && !errors.Is(err, promptui.ErrInterrupt) && !errors.Is(err, promptui.ErrEOF) {
		logger.Fatal("chat failed", zap.Error(err))
	}
}

// selectResume asks which of the user's hh.ru resumes to interview and returns its id.
func selectResume(ctx context.Context, hh *headhunter.Client) (string, error) {
	resumes, err := hh.GetMineResumes(ctx)
	if err != nil {
		return "", err
	}
	if resumes.Len() == 0 {
		return "", errors.New("no resumes found")
	}

	prompt := promptui.Select{
		Label: "Choose a resume and press ENTER",
		Items: resumes.Titles(),
	}
	_, title, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return resumes.FindByTitle(title).ID, nil
}

func runChat(ctx context.Context, library *interview.Library, user string) error {
	engine, err := library.Engine(ctx, user)
	if err != nil {
		return err
	}

	answer := ""
	if engine.Started() && !engine.Finished() {
		// A restored interview continues from its last question.
		if last, ok := lastQuestion(engine.State()); ok {
			printResponse(last)
			if answer, err = ask(); err != nil {
				return err
			}
		}
	}

	for {
		if strings.TrimSpace(answer) == chatExitCommand {
			return nil
		}

		resp, err := library.Respond(ctx, user, answer)
		if err != nil {
			return err
		}
		printResponse(resp)

		if resp.Status == interview.StatusReport {
			return nil
		}

		if answer, err = ask(); err != nil {
			return err
		}
	}
}

func ask() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Ответ",
		Validate: validateAnswer,
	}
	return prompt.Run()
}

func validateAnswer(input string) error {
	if strings.TrimSpace(input) == "" {
		return errEmptyAnswer
	}
	return nil
}

func lastQuestion(state *interview.State) (interview.Response, bool) {
	topic, err := state.CurrentTopic()
	if err != nil {
		return interview.Response{}, false
	}
	ts, err := state.CurrentTopicState()
	if err != nil || len(ts.History) == 0 {
		return interview.Response{}, false
	}
	return interview.Response{
		Status: interview.StatusQuestion,
		Text:   ts.History[len(ts.History)-1].Question,
		Topic:  topic.Name,
	}, true
}

func printResponse(resp interview.Response) {
	switch resp.Status {
	case interview.StatusReport:
		fmt.Printf("\n===== Итоговый отчёт =====\n%s\n", resp.Text)
	case interview.StatusError:
		fmt.Printf("\n[ошибка] %s\n", resp.Text)
	default:
		fmt.Printf("\n[%s] %s\n", resp.Topic, resp.Text)
	}
}
