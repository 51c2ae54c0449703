package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"xhsclient/pkg/api"
	"xhsclient/pkg/xhs"
)

var (
	homefeedNum      int
	feedPages        int
	homefeedMinLikes int64
	searchNum        int
	searchMinLikes   int64
	commentsNum      int
	relatedNum       int
	searchSort       string
	noteToken        string
	browseAt         int
)

var homefeedCmd = &cobra.Command{
	Use:   "homefeed",
	Short: "Fetch recommended notes from the homefeed",
	Long: `Fetch recommended notes from the homefeed.

The first page is a fresh recommendation; later pages continue from the
cursor the platform returned. Collection stops early when a page is empty
or no cursor is returned.`,
	Example: `  # One page of 20 notes
  xhsclient homefeed

  # Three pages, saved as JSON
  xhsclient homefeed --pages 3 -o homefeed.json`,
	Args: cobra.NoArgs,
	RunE: runHomefeed,
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search notes by keyword",
	Long: `Search notes by keyword, paging until --num notes are collected or the
platform reports no more results. All pages share one search session.

Sort orders: general, time_descending, popularity_descending.`,
	Example: `  xhsclient search 咖啡 --num 50
  xhsclient search "city walk" --sort time_descending --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var commentsCmd = &cobra.Command{
	Use:   "comments <note-id>",
	Short: "Fetch comments of a note",
	Long: `Fetch up to --num top-level comments of a note.

The note's xsec_token (from a homefeed or search result) should be passed
with --token.`,
	Example: `  xhsclient comments 6650a1b2000000001e03c4d5 --token ABxyz --num 100`,
	Args:    cobra.ExactArgs(1),
	RunE:    runComments,
}

var relatedCmd = &cobra.Command{
	Use:   "related <note-id>",
	Short: "Fetch notes related to a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelated,
}

var browseCmd = &cobra.Command{
	Use:   "browse [note-id]",
	Short: "Open a note: its first comment page and related notes",
	Long: `Open a note the way the web page does, fetching its first comment page and
related notes concurrently.

Without a note id, the note at --index of a fresh homefeed page is opened,
so its tags are sent with the related-notes request.`,
	Example: `  xhsclient browse
  xhsclient browse --index 3
  xhsclient browse 6650a1b2000000001e03c4d5 --token ABxyz`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(homefeedCmd, searchCmd, commentsCmd, relatedCmd, browseCmd)

	homefeedCmd.Flags().IntVarP(&homefeedNum, "num", "n", api.DefaultHomefeedNum, fmt.Sprintf("notes per page (at most %d)", api.MaxHomefeedNum))
	homefeedCmd.Flags().IntVar(&feedPages, "pages", 1, "number of pages")
	homefeedCmd.Flags().Int64Var(&homefeedMinLikes, "min-likes", 0, "only show notes with at least this many likes")
	addResumeFlags(homefeedCmd)

	searchCmd.Flags().IntVarP(&searchNum, "num", "n", 20, "number of notes to collect")
	searchCmd.Flags().StringVar(&searchSort, "sort", api.SortGeneral, "sort order")
	searchCmd.Flags().Int64Var(&searchMinLikes, "min-likes", 0, "only show notes with at least this many likes (applied after collection)")
	addResumeFlags(searchCmd)

	commentsCmd.Flags().IntVarP(&commentsNum, "num", "n", 20, "number of comments to collect")
	commentsCmd.Flags().StringVarP(&noteToken, "token", "t", "", "xsec_token of the note")
	addResumeFlags(commentsCmd)

	relatedCmd.Flags().IntVarP(&relatedNum, "num", "n", xhs.DefaultRelatedNum, "number of related notes")
	relatedCmd.Flags().StringVarP(&noteToken, "token", "t", "", "xsec_token of the note")

	browseCmd.Flags().StringVarP(&noteToken, "token", "t", "", "xsec_token of the note")
	browseCmd.Flags().IntVar(&browseAt, "index", 1, "homefeed position to open when no note id is given")
}

func runHomefeed(cmd *cobra.Command, args []string) error {
	if homefeedNum < 1 || homefeedNum > api.MaxHomefeedNum {
		return fmt.Errorf("--num must be between 1 and %d", api.MaxHomefeedNum)
	}
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	run, opts, err := startCollection("homefeed", homefeedNum*feedPages)
	if err != nil {
		return err
	}
	pages := feedPages - run.PagesDone()
	if pages < 1 {
		run.Finish(nil)
		printer.Success("Checkpoint already covers %d pages", feedPages)
		return nil
	}

	items, err := client.HomefeedPosts(ctx, homefeedNum, pages, opts...)
	run.Finish(err)
	if err != nil && len(items) == 0 {
		return describeError(err, cfg)
	}
	if err != nil {
		printer.Error("Stopped early", err)
	}
	items = filterLikes(items, homefeedMinLikes)
	return emit(client, items, func() error { return printer.Notes(items) })
}

func filterLikes(items []api.NoteItem, min int64) []api.NoteItem {
	if min <= 0 {
		return items
	}
	kept := xhs.FilterByLikes(items, min)
	if dropped := len(items) - len(kept); dropped > 0 {
		printer.Info("Filtered", fmt.Sprintf("%d notes below %d likes", dropped, min))
	}
	return kept
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := strings.TrimSpace(strings.Join(args, " "))
	if searchNum < 1 {
		return fmt.Errorf("--num must be positive")
	}
	if !api.ValidSort(searchSort) {
		return fmt.Errorf("invalid sort %q", searchSort)
	}
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	printer.Info("Keyword", keyword)
	run, opts, err := startCollection("search:"+searchSort+":"+keyword, searchNum)
	if err != nil {
		return err
	}

	remaining := run.Remaining(searchNum)
	if remaining == 0 {
		run.Finish(nil)
		printer.Success("Checkpoint already holds %d notes", searchNum)
		return nil
	}

	items, err := client.SearchNotes(ctx, keyword, remaining, searchSort, opts...)
	run.Finish(err)
	if err != nil && len(items) == 0 {
		return describeError(err, cfg)
	}
	if err != nil {
		printer.Error("Stopped early", err)
	}
	items = filterLikes(items, searchMinLikes)
	return emit(client, items, func() error { return printer.Notes(items) })
}

func runComments(cmd *cobra.Command, args []string) error {
	noteID := args[0]
	if commentsNum < 1 {
		return fmt.Errorf("--num must be positive")
	}
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	if noteToken == "" {
		printer.Warn("No --token given; the platform may refuse the request")
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	run, opts, err := startCollection("comments:"+noteID, commentsNum)
	if err != nil {
		return err
	}

	remaining := run.Remaining(commentsNum)
	if remaining == 0 {
		run.Finish(nil)
		printer.Success("Checkpoint already holds %d comments", commentsNum)
		return nil
	}

	comments, err := client.NoteComments(ctx, noteID, noteToken, remaining, opts...)
	run.Finish(err)
	if err != nil && len(comments) == 0 {
		return describeError(err, cfg)
	}
	if err != nil {
		printer.Error("Stopped early", err)
	}
	return emit(client, comments, func() error { return printer.Comments(comments) })
}

func runRelated(cmd *cobra.Command, args []string) error {
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	items, err := client.RelatedPosts(ctx, args[0], noteToken, relatedNum)
	if err != nil {
		return describeError(err, cfg)
	}
	return emit(client, items, func() error { return printer.Notes(items) })
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var item api.NoteItem
	if len(args) == 1 {
		item = api.NoteItem{ID: args[0], XsecToken: noteToken}
	} else {
		resp, err := client.Homefeed(ctx, api.MaxHomefeedNum, "", api.RefreshTypeFirst)
		if err != nil {
			return describeError(err, cfg)
		}
		if browseAt < 1 || browseAt > len(resp.Data.Items) {
			return fmt.Errorf("homefeed returned %d notes, --index %d is out of range", len(resp.Data.Items), browseAt)
		}
		item = resp.Data.Items[browseAt-1]
	}

	detail, err := client.BrowseNote(ctx, item)
	if err != nil {
		return describeError(err, cfg)
	}

	return emit(client, detail, func() error {
		if printer.JSONMode() {
			return printer.JSON(detail)
		}
		if err := printer.Notes([]api.NoteItem{detail.Note}); err != nil {
			return err
		}
		printer.Info("Comments", fmt.Sprintf("%d on first page", len(detail.Comments.Comments)))
		if err := printer.Comments(xhs.ParseComments(detail.Comments.Comments)); err != nil {
			return err
		}
		printer.Info("Related", fmt.Sprintf("%d notes", len(detail.Related)))
		return printer.Notes(detail.Related)
	})
}
