package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xhsclient/internal/batch"
	"xhsclient/pkg/api"
	"xhsclient/pkg/ratelimit"
	"xhsclient/pkg/ui"
)

var (
	batchSearch  string
	batchNotes   int
	batchNum     int
	batchWorkers int
	batchOutDir  string
	batchPerMin  int
	batchNotify  bool
)

var batchCommentsCmd = &cobra.Command{
	Use:   "batch-comments [notes-file]",
	Short: "Collect comments of many notes concurrently",
	Long: `Collect comments of many notes with a pool of workers and save each
note's comments to <out>/<note id>_comments.json.

Notes come from a file or from a keyword search. The file may be the JSON
saved by 'search -o' or 'homefeed -o', or plain text with one
"<note id> <xsec_token>" per line. Notes whose comments file already
exists are skipped, so an interrupted run can simply be started again.`,
	Example: `  xhsclient search 露营 --num 40 -o notes.json
  xhsclient batch-comments notes.json --num 50 --workers 4

  xhsclient batch-comments --search 露营 --notes 40 --out ./comments`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatchComments,
}

func init() {
	rootCmd.AddCommand(batchCommentsCmd)

	f := batchCommentsCmd.Flags()
	f.StringVar(&batchSearch, "search", "", "collect notes with this keyword instead of reading a file")
	f.IntVar(&batchNotes, "notes", 20, "number of notes to take from --search")
	f.IntVarP(&batchNum, "num", "n", 20, "comments per note")
	f.IntVarP(&batchWorkers, "workers", "w", 3, "concurrent workers")
	f.StringVar(&batchOutDir, "out", "comments", "output directory")
	f.IntVar(&batchPerMin, "notes-per-minute", 0, "limit how fast notes are started (0 for no limit)")
	f.BoolVar(&batchNotify, "notify", false, "send a desktop notification when done")
}

func runBatchComments(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && batchSearch == "" {
		return fmt.Errorf("give a notes file or --search")
	}
	cfg, client, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var jobs []batch.Job
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read notes file: %w", err)
		}
		if jobs, err = parseJobs(data, batchNum); err != nil {
			return err
		}
	} else {
		printer.Info("Keyword", batchSearch)
		items, err := client.SearchNotes(ctx, batchSearch, batchNotes, api.SortGeneral)
		if err != nil && len(items) == 0 {
			return describeError(err, cfg)
		}
		jobs = jobsFromItems(items, batchNum)
	}
	if len(jobs) == 0 {
		printer.Warn("No notes to process")
		return nil
	}

	sink, err := batch.NewDirSink(batchOutDir)
	if err != nil {
		return err
	}
	var limiter ratelimit.Limiter
	if batchPerMin > 0 {
		limiter = ratelimit.PerMinute(batchPerMin)
	}

	printer.Info("Notes", fmt.Sprintf("%d, %d workers", len(jobs), batchWorkers))
	start := time.Now()
	results := batch.Run(ctx, batchWorkers, client, sink, limiter, nil, jobs)

	summary := summarize(results)
	summary.report(printer, time.Since(start))
	if !jsonOutput {
		printer.Info("Output", batchOutDir)
	} else if err := printer.JSON(summary); err != nil {
		return err
	}

	if batchNotify {
		n := ui.NewNotifier(printer)
		msg := fmt.Sprintf("%d saved, %d skipped, %d failed", summary.Saved, summary.Skipped, len(summary.Failed))
		if len(summary.Failed) > 0 {
			n.Failure("Batch comments finished with errors", msg)
		} else {
			n.Success("Batch comments finished", msg)
		}
	}

	if len(summary.Failed) > 0 {
		return &exitError{msg: fmt.Sprintf("%d notes failed", len(summary.Failed))}
	}
	return nil
}

// parseJobs reads a JSON list of note items or lines of "<id> [token]"
func parseJobs(data []byte, num int) ([]batch.Job, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []api.NoteItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to parse notes file: %w", err)
		}
		return jobsFromItems(items, num), nil
	}
	return parseJobLines(bytes.NewReader(data), num)
}

func parseJobLines(r io.Reader, num int) ([]batch.Job, error) {
	var jobs []batch.Job
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) > 2 {
			return nil, fmt.Errorf("line %d: expected \"<note id> [xsec_token]\"", line)
		}
		job := batch.Job{NoteID: fields[0], Num: num}
		if len(fields) == 2 {
			job.XsecToken = fields[1]
		}
		if !seen[job.NoteID] {
			seen[job.NoteID] = true
			jobs = append(jobs, job)
		}
	}
	return jobs, scanner.Err()
}

func jobsFromItems(items []api.NoteItem, num int) []batch.Job {
	jobs := make([]batch.Job, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		id := item.ID
		if id == "" {
			id = item.NoteCard.NoteID
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		jobs = append(jobs, batch.Job{NoteID: id, XsecToken: item.XsecToken, Num: num})
	}
	return jobs
}

type failedNote struct {
	NoteID string `json:"note_id"`
	Error  string `json:"error"`
}

type batchSummary struct {
	Saved    int          `json:"saved"`
	Skipped  int          `json:"skipped"`
	Comments int          `json:"comments"`
	Failed   []failedNote `json:"failed"`
}

func summarize(results []batch.Result) batchSummary {
	s := batchSummary{Failed: []failedNote{}}
	for _, r := range results {
		switch {
		case r.Error != nil:
			s.Failed = append(s.Failed, failedNote{NoteID: r.Job.NoteID, Error: r.Error.Error()})
		case r.Skipped:
			s.Skipped++
		default:
			s.Saved++
			s.Comments += len(r.Comments)
		}
	}
	return s
}

func (s batchSummary) report(p *ui.Printer, elapsed time.Duration) {
	p.Success("%d notes saved with %d comments in %s", s.Saved, s.Comments, elapsed.Round(time.Second))
	if s.Skipped > 0 {
		p.Info("Skipped", fmt.Sprintf("%d already saved", s.Skipped))
	}
	for _, f := range s.Failed {
		p.Error(f.NoteID, fmt.Errorf("%s", f.Error))
	}
}
