package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userPostsNum int

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Read a user's profile and posted notes",
}

var userPostsCmd = &cobra.Command{
	Use:     "posts <user-id>",
	Short:   "Fetch notes a user has posted",
	Example: `  xhsclient user posts 5f1c2d3e000000000101abcd --num 60`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUserPosts,
}

var userProfileCmd = &cobra.Command{
	Use:     "profile <user-id>",
	Short:   "Show a user's profile",
	Example: `  xhsclient user profile 5f1c2d3e000000000101abcd --json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUserProfile,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userPostsCmd, userProfileCmd)

	userPostsCmd.Flags().IntVarP(&userPostsNum, "num", "n", 30, "number of notes to collect")
	addResumeFlags(userPostsCmd)
}

func runUserPosts(cmd *cobra.Command, args []string) error {
	userID := args[0]
	if userPostsNum < 1 {
		return fmt.Errorf("--num must be positive")
	}
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	run, opts, err := startCollection("user_posts:"+userID, userPostsNum)
	if err != nil {
		return err
	}
	remaining := run.Remaining(userPostsNum)
	if remaining == 0 {
		run.Finish(nil)
		printer.Success("Checkpoint already holds %d notes", userPostsNum)
		return nil
	}

	posts, err := client.UserPosts(ctx, userID, remaining, opts...)
	run.Finish(err)
	if err != nil && len(posts) == 0 {
		return describeError(err, cfg)
	}
	if err != nil {
		printer.Error("Stopped early", err)
	}
	return emit(client, posts, func() error { return printer.PostedNotes(posts) })
}

func runUserProfile(cmd *cobra.Command, args []string) error {
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	profile, err := client.UserProfile(ctx, args[0])
	if err != nil {
		return describeError(err, cfg)
	}
	return emit(client, profile, func() error { return printer.Profile(profile) })
}
