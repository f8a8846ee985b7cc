package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/posting"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage stored user profiles",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or replace a user profile",
	Run: func(cmd *cobra.Command, _ []string) {
		userAdd(cmd)
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored user profiles",
	Run: func(_ *cobra.Command, _ []string) {
		userList()
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd, userListCmd)

	userAddCmd.Flags().Int64("id", 0, "telegram user id (chat id for alerts)")
	userAddCmd.Flags().String("profession", "", "profession, e.g. Engineering")
	userAddCmd.Flags().String("experience", "", "experience level, e.g. Senior Level")
	userAddCmd.Flags().String("preferences", "", "free text preferences")
	userAddCmd.Flags().Float64("lat", 0, "latitude")
	userAddCmd.Flags().Float64("lon", 0, "longitude")

	_ = userAddCmd.MarkFlagRequired("id")
	_ = userAddCmd.MarkFlagRequired("profession")
}

func profileFromFlags(cmd *cobra.Command) (*posting.Profile, error) {
	flags := cmd.Flags()

	id, err := flags.GetInt64("id")
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, fmt.Errorf("user id is required")
	}

	p := &posting.Profile{UserID: id}
	p.Profession, _ = flags.GetString("profession")
	p.Experience, _ = flags.GetString("experience")
	p.Preferences, _ = flags.GetString("preferences")

	if flags.Changed("lat") || flags.Changed("lon") {
		lat, _ := flags.GetFloat64("lat")
		lon, _ := flags.GetFloat64("lon")
		p.Location = &posting.Location{Lat: lat, Lon: lon}
	}

	return p, nil
}

func userAdd(cmd *cobra.Command) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	profile, err := profileFromFlags(cmd)
	if err != nil {
		logger.Fatal("reading the profile", zap.Error(err))
	}

	s, err := openStore(ctx, config.Database, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}
	defer s.Close()

	if err := s.SaveUser(ctx, profile); err != nil {
		logger.Fatal("saving the user", zap.Error(err))
	}

	logger.Info("user saved", zap.Int64("user_id", profile.UserID), zap.String("profile", profile.Text()))
}

func userList() {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	s, err := openStore(ctx, config.Database, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}
	defer s.Close()

	users, err := s.FetchUsers(ctx)
	if err != nil {
		logger.Fatal("fetching users", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(users, "", "  ")
	logger.Info(string(pretty), zap.Int("users count", len(users)))
}
