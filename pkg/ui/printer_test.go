package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xhsclient/pkg/api"
	"xhsclient/pkg/tokens"
	"xhsclient/pkg/xhs"
)

func sampleNotes() []api.NoteItem {
	return []api.NoteItem{
		{
			ID:        "n1",
			XsecToken: "tok",
			NoteCard: api.NoteCard{
				DisplayTitle: "周末去哪儿",
				User:         api.NoteUser{UserID: "u1", Nickname: "小红"},
				InteractInfo: api.InteractInfo{LikedCount: "1.2万", CommentCount: "8"},
			},
		},
		{ID: "n2"},
	}
}

func newTestPrinter(quiet, jsonMode bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, quiet, jsonMode), &out, &errOut
}

func TestNotesText(t *testing.T) {
	p, out, _ := newTestPrinter(false, false)
	require.NoError(t, p.Notes(sampleNotes()))

	text := out.String()
	assert.Contains(t, text, "1. n1 周末去哪儿")
	assert.Contains(t, text, "@小红")
	assert.Contains(t, text, "♥ 1.2万")
	assert.Contains(t, text, "(untitled)")
	assert.NotContains(t, text, "\x1b[", "no escape codes when not writing to a terminal")
}

func TestNotesJSON(t *testing.T) {
	p, out, _ := newTestPrinter(false, true)
	require.NoError(t, p.Notes(sampleNotes()))

	var infos []xhs.NoteInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "n1", infos[0].ID)
	assert.True(t, infos[0].HasToken)
	assert.False(t, infos[1].HasToken)
	assert.Contains(t, out.String(), "周末去哪儿", "non-ASCII text is not escaped")
}

func TestCommentsJSONEmptyIsArray(t *testing.T) {
	p, out, _ := newTestPrinter(false, true)
	require.NoError(t, p.Comments(nil))
	assert.Equal(t, "[]\n", out.String())
}

func TestCommentsText(t *testing.T) {
	p, out, _ := newTestPrinter(false, false)
	require.NoError(t, p.Comments([]xhs.Comment{{
		Content:      "好看",
		UserNickname: xhs.AnonymousNickname,
		IPLocation:   "上海",
		LikeCount:    "3",
		Pictures:     []string{"https://img/1.jpg", ""},
	}}))

	text := out.String()
	assert.Contains(t, text, "Anonymous 上海")
	assert.Contains(t, text, "♥ 3")
	assert.Contains(t, text, "↳ 0")
	assert.Contains(t, text, "  好看")
	assert.Contains(t, text, "https://img/1.jpg")
	assert.NotContains(t, text, "\n  \n", "missing pictures print no line")
}

func TestProfile(t *testing.T) {
	p, out, _ := newTestPrinter(false, false)
	require.NoError(t, p.Profile(&xhs.UserProfile{UserID: "u1", Nickname: "小红", Fans: "10万"}))

	text := out.String()
	assert.Contains(t, text, "Nickname")
	assert.Contains(t, text, "10万")
	assert.Contains(t, text, "╭", "profile is drawn in a panel")
	assert.NotContains(t, text, "Notes")
}

func TestTokenStats(t *testing.T) {
	p, out, _ := newTestPrinter(false, false)
	require.NoError(t, p.TokenStats(&tokens.Stats{Client: "mock", RateLimit: 1000, CacheAvailable: true}))
	assert.Contains(t, out.String(), "1000/h")
	assert.Contains(t, out.String(), "available")

	p, out, _ = newTestPrinter(false, true)
	require.NoError(t, p.TokenStats(&tokens.Stats{Client: "mock"}))
	assert.Contains(t, out.String(), `"client": "mock"`)
}

func TestQuietSuppressesStatus(t *testing.T) {
	p, out, errOut := newTestPrinter(true, false)
	p.Banner("v1")
	p.Success("saved %d", 3)
	p.Info("Keyword", "猫")
	p.Warn("slow")
	assert.Empty(t, errOut.String())

	p.Error("request failed", errors.New("boom"))
	assert.Contains(t, errOut.String(), "✗ request failed: boom")
	assert.Empty(t, out.String())
}

func TestStatusLines(t *testing.T) {
	p, _, errOut := newTestPrinter(false, false)
	p.Success("saved %d", 3)
	p.Info("Keyword", "猫")
	assert.Contains(t, errOut.String(), "✓ saved 3")
	assert.Contains(t, errOut.String(), "Keyword: 猫")
}

func TestPageProgress(t *testing.T) {
	p, _, errOut := newTestPrinter(false, false)
	pp := p.Progress("search", 40)
	pp.Resume(10, 1)

	require.NoError(t, pp.Update(xhs.PageInfo{Stream: "search", Page: 2, Items: 20}))
	assert.Equal(t, 30, pp.Collected())
	assert.Contains(t, errOut.String(), "page 2")
	assert.Contains(t, errOut.String(), "30/40")
	assert.Equal(t, 15, strings.Count(errOut.String(), ProgressBar))

	require.NoError(t, pp.Update(xhs.PageInfo{Items: 20}))
	assert.Contains(t, errOut.String(), "50/40")
	pp.Finish()
	assert.Contains(t, errOut.String(), "[DONE] 50 items in 3 pages")
}

func TestPageProgressSilentInJSONMode(t *testing.T) {
	p, _, errOut := newTestPrinter(false, true)
	pp := p.Progress("homefeed", 0)
	require.NoError(t, pp.Update(xhs.PageInfo{Items: 5}))
	pp.Finish()
	assert.Empty(t, errOut.String())
	assert.Equal(t, 5, pp.Collected())
}

type recordingSender struct{ titles []string }

func (r *recordingSender) Send(title, _ string) error {
	r.titles = append(r.titles, title)
	return errors.New("no notification daemon")
}

func TestNotifier(t *testing.T) {
	p, _, errOut := newTestPrinter(false, false)
	sender := &recordingSender{}
	n := NewNotifierWithSender(p, sender)

	n.Success("Batch complete", "12 notes")
	n.Failure("Batch failed", "3 errors")

	assert.Equal(t, []string{"Batch complete", "Batch failed"}, sender.titles)
	assert.Contains(t, errOut.String(), "Batch complete: 12 notes")
	assert.Contains(t, errOut.String(), "Batch failed: 3 errors")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "小红书…", truncate("小红书笔记标题", 4))
}

func TestAppleQuote(t *testing.T) {
	assert.Equal(t, `"say \"hi\""`, appleQuote(`say "hi"`))
}
