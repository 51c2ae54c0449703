package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"xhsclient/pkg/api"
	"xhsclient/pkg/tokens"
	"xhsclient/pkg/xhs"
)

const maxTitleWidth = 48

// Printer renders command output. In JSON mode every record is written as
// indented JSON and decoration is suppressed; quiet mode drops status lines
// but keeps results.
type Printer struct {
	out   io.Writer
	errW  io.Writer
	quiet bool
	json  bool
	st    styles
}

// NewPrinter writes results to out and status lines to errW
func NewPrinter(out, errW io.Writer, quiet, jsonMode bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errW == nil {
		errW = os.Stderr
	}
	return &Printer{out: out, errW: errW, quiet: quiet, json: jsonMode, st: newStyles(out)}
}

// JSONMode reports whether records are printed as JSON
func (p *Printer) JSONMode() bool { return p.json }

// Banner prints the program name and version
func (p *Printer) Banner(version string) {
	if p.quiet || p.json {
		return
	}
	fmt.Fprintln(p.errW, p.st.title.Render("XHS CLIENT")+" "+p.st.dim.Render(version))
}

func (p *Printer) status(style func(...string) string, msg string, args ...interface{}) {
	if p.quiet {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	fmt.Fprintln(p.errW, style(msg))
}

func (p *Printer) Success(msg string, args ...interface{}) {
	p.status(p.st.success.Render, "✓ "+msg, args...)
}

func (p *Printer) Warn(msg string, args ...interface{}) {
	p.status(p.st.warning.Render, "! "+msg, args...)
}

// Error is printed even in quiet mode
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.errW, p.st.failure.Render("✗ "+msg))
}

// Info prints a label/value pair
func (p *Printer) Info(label, value string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.errW, "%s: %s\n", p.st.label.Render(label), p.st.value.Render(value))
}

// JSON writes v as indented JSON, keeping non-ASCII text readable
func (p *Printer) JSON(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Notes prints one line per note with its author and counters
func (p *Printer) Notes(items []api.NoteItem) error {
	infos := make([]xhs.NoteInfo, len(items))
	for i, item := range items {
		infos[i] = xhs.ExtractNoteInfo(item)
	}
	if p.json {
		return p.JSON(infos)
	}
	for i, n := range infos {
		title := n.Title
		if title == "" {
			title = p.st.dim.Render("(untitled)")
		} else {
			title = truncate(title, maxTitleWidth)
		}
		fmt.Fprintf(p.out, "%3d. %s %s\n", i+1, p.st.accent.Render(n.ID), title)
		fmt.Fprintf(p.out, "     %s  ♥ %s  💬 %s  ★ %s  ↗ %s\n",
			p.st.label.Render("@"+n.Author.Nickname),
			n.Stats.Likes, n.Stats.Comments, n.Stats.Collects, n.Stats.Shares)
	}
	return nil
}

// PostedNotes prints a user's posted notes
func (p *Printer) PostedNotes(posts []api.PostedNote) error {
	items := make([]api.NoteItem, len(posts))
	for i := range posts {
		items[i] = posts[i].AsNoteItem()
	}
	return p.Notes(items)
}

// Comments prints flattened comments
func (p *Printer) Comments(comments []xhs.Comment) error {
	if p.json {
		if comments == nil {
			comments = []xhs.Comment{}
		}
		return p.JSON(comments)
	}
	for _, c := range comments {
		header := p.st.label.Render(c.UserNickname)
		if c.IPLocation != "" {
			header += " " + p.st.dim.Render(c.IPLocation)
		}
		fmt.Fprintf(p.out, "%s  ♥ %s  ↳ %s\n", header, c.LikeCount, c.SubCommentCount)
		fmt.Fprintf(p.out, "  %s\n", c.Content)
		for _, pic := range c.Pictures {
			if pic == "" {
				continue
			}
			fmt.Fprintf(p.out, "  %s\n", p.st.dim.Render(pic))
		}
	}
	return nil
}

// Profile prints a user profile inside a panel
func (p *Printer) Profile(u *xhs.UserProfile) error {
	if p.json {
		return p.JSON(u)
	}
	rows := [][2]string{
		{"User ID", u.UserID},
		{"Nickname", u.Nickname},
		{"Bio", u.Desc},
		{"Location", u.Location},
		{"Follows", u.Follows.String()},
		{"Fans", u.Fans.String()},
		{"Likes & collects", u.Interaction.String()},
	}
	if u.NoteCount != "" {
		rows = append(rows, [2]string{"Notes", u.NoteCount.String()})
	}
	fmt.Fprintln(p.out, p.st.panel.Render(p.table(rows)))
	return nil
}

// TokenStats prints the token service statistics
func (p *Printer) TokenStats(s *tokens.Stats) error {
	if p.json {
		return p.JSON(s)
	}
	cache := p.st.failure.Render("unavailable")
	if s.CacheAvailable {
		cache = p.st.success.Render("available")
	}
	rows := [][2]string{
		{"Client", s.Client},
		{"Rate limit", fmt.Sprintf("%d/h", s.RateLimit)},
		{"x-s-common cache", cache},
	}
	fmt.Fprintln(p.out, p.st.panel.Render(p.table(rows)))
	return nil
}

func (p *Printer) table(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		label := p.st.label.Render(r[0] + strings.Repeat(" ", width-len(r[0])))
		lines = append(lines, label+"  "+r[1])
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
