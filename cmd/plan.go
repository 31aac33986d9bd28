package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
)

var planCmd = &cobra.Command{
	Use:   "plan [user]",
	Short: "Print the topic plan of an interview without running it",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		plan(args)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func plan(args []string) {
	ctx := context.Background()

	logger := newLogger("stderr")
	defer logger.Sync() //nolint:errcheck

	config := mustConfig(logger)

	source, _, err := newSetupSource(config, logger)
	if err != nil {
		logger.Fatal("preparing interview setup", zap.Error(err))
	}

	var planner *interview.Planner
	if config.Interview.UsePlanner {
		client, err := newGenAIClient(ctx, config.AI)
		if err != nil {
			logger.Fatal("creating ai client", zap.Error(err))
		}
		generator, err := newGenerator(client, config.AI.Gemini, logger)
		if err != nil {
			logger.Fatal("creating text generator", zap.Error(err))
		}
		planner = interview.NewPlanner(generator, config.Interview.MaxHardTopics, config.Interview.MaxSoftTopics, config.AI.Gemini.MaxLogLength, logger)
	}

	maxHard := config.Interview.MaxHardTopics
	if maxHard <= 0 {
		maxHard = interview.DefaultMaxHardTopics
	}

	user := defaultChatUser
	if len(args) > 0 {
		user = args[0]
	}

	setup, err := interview.PlannedSource(source, planner, maxHard)(ctx, user)
	if err != nil {
		logger.Fatal("planning interview", zap.Error(err))
	}

	printPlan(os.Stdout, setup)
}

func printPlan(w io.Writer, setup *interview.Setup) {
	fmt.Fprintf(w, "Вакансия: %s\nHR: %s\n\n", setup.Vacancy.Title, setup.HRName)
	for i, topic := range setup.Topics {
		fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, topic.Kind, topic.Name)
	}
}
