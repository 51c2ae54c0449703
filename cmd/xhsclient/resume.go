package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xhsclient/pkg/checkpoint"
	"xhsclient/pkg/ui"
	"xhsclient/pkg/xhs"
)

var (
	resumeRun    bool
	forceRestart bool
)

// newCheckpointManager is replaced in tests
var newCheckpointManager = checkpoint.NewManager

func addResumeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&resumeRun, "resume", false, "resume from the last checkpoint")
	cmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard an existing checkpoint and start over")
}

// collection ties a paginated run to its checkpoint and progress line
type collection struct {
	mgr      *checkpoint.Manager
	cp       *checkpoint.Checkpoint
	progress *ui.PageProgress
	// prior counts items collected by earlier runs
	prior int
	// resumed is true when the run continues a checkpoint
	resumed bool
}

// startCollection opens the checkpoint of stream. The returned options
// resume the collection when --resume found an unfinished checkpoint and
// record every page. Remaining is what is left of target.
func startCollection(stream string, target int) (*collection, []xhs.CollectOption, error) {
	mgr, err := newCheckpointManager(stream)
	if err != nil {
		return nil, nil, err
	}

	if forceRestart && mgr.Exists() {
		if err := mgr.Backup(); err != nil {
			printer.Warn("Failed to back up checkpoint: %v", err)
		}
		if err := mgr.Delete(); err != nil {
			return nil, nil, err
		}
	}

	c := &collection{mgr: mgr, progress: printer.Progress(stream, target)}
	var opts []xhs.CollectOption

	existing, err := mgr.Load()
	if err != nil {
		return nil, nil, err
	}
	switch {
	case existing != nil && !existing.Done && resumeRun:
		c.cp = existing
		c.prior = existing.Collected
		c.resumed = true
		c.progress.Resume(existing.Collected, existing.Page)
		opts = append(opts,
			xhs.WithStartPage(existing.NextPage()),
			xhs.WithStartCursor(existing.Cursor),
			xhs.WithSearchID(existing.SearchID),
		)
		printer.Info("Resuming", formatResume(existing))
	case existing != nil && !existing.Done:
		printer.Warn("Found an unfinished checkpoint for %s. Use --resume to continue it", stream)
		fallthrough
	default:
		if c.cp, err = mgr.Create(target); err != nil {
			return nil, nil, err
		}
	}

	opts = append(opts, xhs.WithPageCallback(c.onPage))
	return c, opts, nil
}

func formatResume(cp *checkpoint.Checkpoint) string {
	return fmt.Sprintf("%s, page %d, %d collected", cp.UpdatedAt.Format("2006-01-02 15:04"), cp.Page, cp.Collected)
}

func (c *collection) onPage(info xhs.PageInfo) error {
	_ = c.progress.Update(info)
	if info.SearchID != "" {
		c.cp.SearchID = info.SearchID
	}
	return c.mgr.Update(c.cp, info.Page, info.Cursor, c.prior+info.Total, info.Done)
}

// Remaining is how much of target earlier runs left to collect
func (c *collection) Remaining(target int) int {
	if target <= 0 {
		return target
	}
	if r := target - c.prior; r > 0 {
		return r
	}
	return 0
}

// PagesDone is the number of pages earlier runs already fetched
func (c *collection) PagesDone() int {
	if !c.resumed {
		return 0
	}
	return c.cp.Page
}

// Finish removes the checkpoint of a completed run and keeps it otherwise
func (c *collection) Finish(err error) {
	c.progress.Finish()
	if err == nil {
		if derr := c.mgr.Delete(); derr != nil {
			printer.Warn("Failed to remove checkpoint: %v", derr)
		}
		return
	}
	if c.mgr.Exists() {
		printer.Warn("Progress saved. Run again with --resume to continue")
	}
}

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or clear saved collection progress",
	Long: `Inspect or clear saved collection progress.

Streams are named after the command that created them: "homefeed",
"search:<sort>:<keyword>", "comments:<note id>" and "user_posts:<user id>".`,
}

var checkpointShowCmd = &cobra.Command{
	Use:     "show <stream>",
	Short:   "Show a stream's checkpoint",
	Example: `  xhsclient checkpoint show "search:general:咖啡"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newCheckpointManager(args[0])
		if err != nil {
			return err
		}
		info, err := mgr.Info()
		if err != nil {
			return err
		}
		if info == nil {
			printer.Warn("No checkpoint for %s", args[0])
			return nil
		}
		if printer.JSONMode() {
			return printer.JSON(info)
		}
		for _, key := range []string{"stream", "page", "cursor", "collected", "target", "done", "updated_at", "age"} {
			if v, ok := info[key]; ok {
				printer.Info(key, fmt.Sprint(v))
			}
		}
		printer.Info("file", mgr.Path())
		return nil
	},
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear <stream>",
	Short: "Delete a stream's checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newCheckpointManager(args[0])
		if err != nil {
			return err
		}
		if !mgr.Exists() {
			printer.Warn("No checkpoint for %s", args[0])
			return nil
		}
		if err := mgr.Delete(); err != nil {
			return err
		}
		printer.Success("Checkpoint for %s removed", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd, checkpointClearCmd)
}
