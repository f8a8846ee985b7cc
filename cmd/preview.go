package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/filtering"
	"github.com/spigell/job-alerter/internal/posting"
)

const PromptExit = "exit"

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the matches a user would get without sending anything",
	Run: func(cmd *cobra.Command, _ []string) {
		preview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().BoolP("include-sent", "a", false, "include jobs already sent to the user")
}

func preview(cmd *cobra.Command) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	c, err := build(ctx, config, false, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}
	defer c.close()

	users, err := c.store.FetchUsers(ctx)
	if err != nil {
		logger.Fatal("fetching users", zap.Error(err))
	}
	if len(users) == 0 {
		logger.Info("exiting", zap.String("reason", "no users found"), zap.String("hint", "add one with 'user add'"))
		return
	}

	recent, err := c.store.FetchRecentJobs(ctx, config.RecentJobsLimit)
	if err != nil {
		logger.Fatal("fetching recent jobs", zap.Error(err))
	}

	steps := filtering.Default(config.AI.TopK, config.AI.MinScore)
	if includeSent, _ := cmd.Flags().GetBool("include-sent"); includeSent {
		filtering.DisableByName(steps, filtering.SentHistoryName, "include-sent flag is set")
	}
	deps := filtering.Deps{Logger: logger, Tracker: c.tracker, Matcher: c.matcher}

	for {
		items := make([]string, 0, len(users)+1)
		for _, u := range users {
			items = append(items, fmt.Sprintf("%d %s / %s", u.UserID, u.Profession, u.Experience))
		}

		userPrompt := promptui.Select{
			Label: "Choose a user and press ENTER",
			Items: append(items, PromptExit),
		}

		_, selected, err := userPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if selected == PromptExit {
			return
		}

		user := findUser(users, selected)
		if user == nil {
			logger.Fatal("there is no such user", zap.String("selected", selected))
		}

		matches, err := filtering.Run(ctx, deps, steps, user, recent)
		if err != nil {
			logger.Error("matching failed", zap.Int64("user_id", user.UserID), zap.Error(err))
			continue
		}

		printMatches(logger, user, matches)
	}
}

func findUser(users []*posting.Profile, selected string) *posting.Profile {
	id, err := strconv.ParseInt(strings.Split(selected, " ")[0], 10, 64)
	if err != nil {
		return nil
	}
	for _, u := range users {
		if u.UserID == id {
			return u
		}
	}
	return nil
}

func printMatches(logger *zap.Logger, user *posting.Profile, matches []posting.Scored) {
	if len(matches) == 0 {
		logger.Info("no matches", zap.Int64("user_id", user.UserID))
		return
	}

	for i, m := range matches {
		logger.Info(fmt.Sprintf("%d. %s at %s", i+1, m.Job.Title, m.Job.Company),
			zap.Float64("score", m.Score),
			zap.String("field", m.Job.Field),
			zap.String("url", m.Job.URL),
		)
	}
}
