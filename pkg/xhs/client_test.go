package xhs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xhsclient/internal/mockserver"
	"xhsclient/pkg/api"
	"xhsclient/pkg/config"
	"xhsclient/pkg/cookies"
	errs "xhsclient/pkg/errors"
	"xhsclient/pkg/logger"
	"xhsclient/pkg/responselog"
	"xhsclient/pkg/tokens"
)

type testEnv struct {
	client *Client
	srv    *mockserver.Server
	logDir string
	log    *logger.TestLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := mockserver.New()
	t.Cleanup(srv.Close)

	tl := logger.NewTestLogger()
	tc := tokens.New(config.TokenServerConfig{
		URL:           srv.URL,
		APIKey:        srv.APIKey,
		CacheXSCommon: true,
	}, tokens.Options{Logger: tl})

	pcfg := config.DefaultConfig().Platform
	pcfg.BaseURL = srv.URL
	jar := cookies.NewJar(map[string]string{"a1": srv.DeviceID, "web_session": "s"})
	pc := api.NewClient(pcfg, jar, tc, api.Options{Logger: tl})

	dir := filepath.Join(t.TempDir(), "api_logs")
	rec, err := responselog.New(dir, true, tl)
	require.NoError(t, err)

	return &testEnv{
		client: NewWithDeps(pc, tc, rec, tl),
		srv:    srv,
		logDir: dir,
		log:    tl,
	}
}

func ids(items []api.NoteItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestHomefeedPostsFollowsCursor(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.HomefeedEndpoint,
		mockserver.Page{Items: mockserver.Notes("a", 2), Cursor: "c1"},
		mockserver.Page{Items: mockserver.Notes("b", 2), Cursor: "c2"},
		mockserver.Page{Items: mockserver.Notes("c", 1), Cursor: ""},
	)

	posts, err := env.client.HomefeedPosts(context.Background(), 20, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-0", "a-1", "b-0", "b-1", "c-0"}, ids(posts))
	assert.Equal(t, 3, env.srv.Calls(api.HomefeedEndpoint))

	payloads := env.srv.Payloads(api.HomefeedEndpoint)
	require.Len(t, payloads, 3)
	assert.Equal(t, float64(api.RefreshTypeFirst), payloads[0]["refresh_type"])
	assert.Equal(t, "", payloads[0]["cursor_score"])
	assert.Equal(t, float64(api.RefreshTypeMore), payloads[1]["refresh_type"])
	assert.Equal(t, "c1", payloads[1]["cursor_score"])
	assert.Equal(t, "c2", payloads[2]["cursor_score"])
}

func TestHomefeedPostsStopRules(t *testing.T) {
	t.Run("page limit", func(t *testing.T) {
		env := newTestEnv(t)
		env.srv.SetPages(api.HomefeedEndpoint,
			mockserver.Page{Items: mockserver.Notes("a", 2), Cursor: "c1"},
			mockserver.Page{Items: mockserver.Notes("b", 2), Cursor: "c2"},
			mockserver.Page{Items: mockserver.Notes("c", 2), Cursor: "c3"},
		)
		posts, err := env.client.HomefeedPosts(context.Background(), 20, 2)
		require.NoError(t, err)
		assert.Len(t, posts, 4)
		assert.Equal(t, 2, env.srv.Calls(api.HomefeedEndpoint))
	})

	t.Run("empty items", func(t *testing.T) {
		env := newTestEnv(t)
		env.srv.SetPages(api.HomefeedEndpoint,
			mockserver.Page{Items: mockserver.Notes("a", 3), Cursor: "c1"},
			mockserver.Page{Cursor: "c2"},
			mockserver.Page{Items: mockserver.Notes("never", 3)},
		)
		posts, err := env.client.HomefeedPosts(context.Background(), 20, 5)
		require.NoError(t, err)
		assert.Len(t, posts, 3)
		assert.Equal(t, 2, env.srv.Calls(api.HomefeedEndpoint))
	})

	t.Run("empty cursor", func(t *testing.T) {
		env := newTestEnv(t)
		env.srv.SetPages(api.HomefeedEndpoint,
			mockserver.Page{Items: mockserver.Notes("a", 3)},
			mockserver.Page{Items: mockserver.Notes("never", 3)},
		)
		posts, err := env.client.HomefeedPosts(context.Background(), 20, 5)
		require.NoError(t, err)
		assert.Len(t, posts, 3)
		assert.Equal(t, 1, env.srv.Calls(api.HomefeedEndpoint))
	})
}

func TestHomefeedPostsResumeFromCursor(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.HomefeedEndpoint,
		mockserver.Page{Items: mockserver.Notes("a", 2), Cursor: "c1"},
		mockserver.Page{Items: mockserver.Notes("b", 2), Cursor: ""},
	)

	posts, err := env.client.HomefeedPosts(context.Background(), 20, 3, WithStartCursor("c1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b-0", "b-1"}, ids(posts))

	payloads := env.srv.Payloads(api.HomefeedEndpoint)
	require.Len(t, payloads, 1)
	assert.Equal(t, float64(api.RefreshTypeMore), payloads[0]["refresh_type"])
}

func TestHomefeedPostsReturnsPartialResultsOnError(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.HomefeedEndpoint,
		mockserver.Page{Items: mockserver.Notes("a", 2), Cursor: "c1"},
		mockserver.Page{Items: mockserver.Notes("b", 2), Cursor: "c2"},
	)

	var seen []PageInfo
	posts, err := env.client.HomefeedPosts(context.Background(), 20, 3, WithPageCallback(func(p PageInfo) error {
		seen = append(seen, p)
		if p.Page == 1 {
			env.srv.FailNext(api.HomefeedEndpoint, http.StatusInternalServerError, 1)
		}
		return nil
	}))
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeServerError, errs.TypeOf(err))
	assert.Len(t, posts, 2)
	require.Len(t, seen, 1)
	assert.Equal(t, "c1", seen[0].Cursor)
	assert.Equal(t, 2, seen[0].Total)
}

func TestPageCallbackStop(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.HomefeedEndpoint,
		mockserver.Page{Items: mockserver.Notes("a", 2), Cursor: "c1"},
		mockserver.Page{Items: mockserver.Notes("b", 2), Cursor: "c2"},
	)

	posts, err := env.client.HomefeedPosts(context.Background(), 20, 5, WithPageCallback(func(PageInfo) error {
		return ErrStop
	}))
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, 1, env.srv.Calls(api.HomefeedEndpoint))

	boom := errors.New("boom")
	_, err = env.client.HomefeedPosts(context.Background(), 20, 5, WithPageCallback(func(PageInfo) error {
		return boom
	}))
	assert.ErrorIs(t, err, boom)
}

func TestSearchNotesReusesServerSearchID(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.SearchEndpoint,
		mockserver.Page{Items: mockserver.Notes("p1", 20), HasMore: true},
		mockserver.Page{Items: mockserver.Notes("p2", 20), HasMore: true},
		mockserver.Page{Items: mockserver.Notes("p3", 20), HasMore: false},
	)

	notes, err := env.client.SearchNotes(context.Background(), "咖啡", 30, api.SortPopularity)
	require.NoError(t, err)
	assert.Len(t, notes, 30)
	assert.Equal(t, "p2-9", notes[29].ID)

	payloads := env.srv.Payloads(api.SearchEndpoint)
	require.Len(t, payloads, 2)
	assert.Equal(t, float64(1), payloads[0]["page"])
	assert.Equal(t, float64(2), payloads[1]["page"])
	assert.Len(t, payloads[0]["search_id"], 32)
	assert.Equal(t, env.srv.SearchID, payloads[1]["search_id"])
	assert.Equal(t, "咖啡", payloads[1]["keyword"])
	assert.Equal(t, api.SortPopularity, payloads[1]["sort"])
}

func TestSearchNotesStopsWhenNoMore(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.SearchEndpoint,
		mockserver.Page{Items: mockserver.Notes("p1", 5), HasMore: false},
		mockserver.Page{Items: mockserver.Notes("p2", 5), HasMore: true},
	)

	notes, err := env.client.SearchNotes(context.Background(), "tea", 50, "")
	require.NoError(t, err)
	assert.Len(t, notes, 5)
	assert.Equal(t, 1, env.srv.Calls(api.SearchEndpoint))
}

func TestSearchNotesResumeAtPage(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.SearchEndpoint,
		mockserver.Page{Items: mockserver.Notes("p1", 20), HasMore: true},
		mockserver.Page{Items: mockserver.Notes("p2", 3), HasMore: false},
	)

	notes, err := env.client.SearchNotes(context.Background(), "tea", 50, "",
		WithStartPage(2), WithSearchID("abcdefabcdefabcdefabcdefabcdefab"))
	require.NoError(t, err)
	assert.Len(t, notes, 3)

	payloads := env.srv.Payloads(api.SearchEndpoint)
	require.Len(t, payloads, 1)
	assert.Equal(t, float64(2), payloads[0]["page"])
	assert.Equal(t, "abcdefabcdefabcdefabcdefabcdefab", payloads[0]["search_id"])
}

func TestSearchValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Search(context.Background(), "", 1, "")
	assert.Error(t, err)

	_, err = env.client.Search(context.Background(), "tea", 1, "random")
	assert.ErrorContains(t, err, "invalid sort")
	assert.Zero(t, env.srv.Calls(api.SearchEndpoint))
}

func TestNoteCommentsStopRules(t *testing.T) {
	tests := []struct {
		name      string
		pages     []mockserver.Page
		num       int
		wantLen   int
		wantCalls int
	}{
		{
			name: "has_more false",
			pages: []mockserver.Page{
				{Items: mockserver.Comments("a", 10), Cursor: "k1", HasMore: true},
				{Items: mockserver.Comments("b", 10), Cursor: "k2", HasMore: false},
				{Items: mockserver.Comments("c", 10)},
			},
			num:       100,
			wantLen:   20,
			wantCalls: 2,
		},
		{
			name: "empty cursor",
			pages: []mockserver.Page{
				{Items: mockserver.Comments("a", 10), Cursor: "", HasMore: true},
				{Items: mockserver.Comments("b", 10)},
			},
			num:       100,
			wantLen:   10,
			wantCalls: 1,
		},
		{
			name: "empty page",
			pages: []mockserver.Page{
				{Items: mockserver.Comments("a", 10), Cursor: "k1", HasMore: true},
				{Cursor: "k2", HasMore: true},
			},
			num:       100,
			wantLen:   10,
			wantCalls: 2,
		},
		{
			name: "trimmed to num",
			pages: []mockserver.Page{
				{Items: mockserver.Comments("a", 10), Cursor: "k1", HasMore: true},
				{Items: mockserver.Comments("b", 10), Cursor: "k2", HasMore: true},
			},
			num:       15,
			wantLen:   15,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.srv.SetCommentPages("note1", tt.pages...)

			comments, err := env.client.NoteComments(context.Background(), "note1", "tok-note1", tt.num)
			require.NoError(t, err)
			assert.Len(t, comments, tt.wantLen)
			assert.Equal(t, tt.wantCalls, env.srv.Calls(api.CommentsEndpoint))
		})
	}
}

func TestNoteCommentsReshapes(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetCommentPages("note1", mockserver.Page{
		Items: []map[string]interface{}{
			mockserver.Comment("c1", "好看", "小红"),
			mockserver.Comment("c2", "no name", ""),
		},
	})

	comments, err := env.client.NoteComments(context.Background(), "note1", "", 10)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "好看", comments[0].Content)
	assert.Equal(t, "小红", comments[0].UserNickname)
	assert.Equal(t, "u-c1", comments[0].UserID)
	assert.Equal(t, int64(3), comments[0].LikeCount.Int())
	assert.Equal(t, int64(1717000000000), comments[0].CreateTime)
	assert.Equal(t, "Shanghai", comments[0].IPLocation)
	assert.Equal(t, AnonymousNickname, comments[1].UserNickname)

	payload := env.srv.Payloads(api.CommentsEndpoint)[0]
	_, hasToken := payload["xsec_token"]
	assert.False(t, hasToken)
}

func TestRelatedPostsCapsAndTrims(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.FeedEndpoint, mockserver.Page{Items: mockserver.Notes("r", 40)})

	posts, err := env.client.RelatedPosts(context.Background(), "src", "tok-src", 50)
	require.NoError(t, err)
	assert.Len(t, posts, api.MaxFeedNum)

	posts, err = env.client.RelatedPosts(context.Background(), "src", "tok-src", 5)
	require.NoError(t, err)
	assert.Len(t, posts, 5)

	payloads := env.srv.Payloads(api.FeedEndpoint)
	require.Len(t, payloads, 2)
	assert.Equal(t, float64(api.MaxFeedNum), payloads[0]["num"])
	assert.Equal(t, float64(5), payloads[1]["num"])
	assert.Equal(t, "src", payloads[1]["source_note_id"])
	assert.Equal(t, api.XsecSourceFeed, payloads[1]["xsec_source"])
}

func TestUserPostsPageSizes(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.UserPostedEndpoint,
		mockserver.Page{Items: mockserver.PostedNotes("a", 30), Cursor: "u1", HasMore: true},
		mockserver.Page{Items: mockserver.PostedNotes("b", 30), Cursor: "u2", HasMore: true},
		mockserver.Page{Items: mockserver.PostedNotes("c", 30), Cursor: "u3", HasMore: true},
	)

	posts, err := env.client.UserPosts(context.Background(), "user1", 45)
	require.NoError(t, err)
	assert.Len(t, posts, 45)
	assert.Equal(t, "b-14", posts[44].NoteID)
	assert.Equal(t, "owner-nick", posts[0].AsNoteItem().NoteCard.User.DisplayName())
	assert.Equal(t, int64(11000), posts[0].InteractInfo.LikedCount.Int())

	payloads := env.srv.Payloads(api.UserPostedEndpoint)
	require.Len(t, payloads, 2)
	assert.Equal(t, float64(30), payloads[0]["num"])
	assert.Equal(t, float64(15), payloads[1]["num"])
	assert.Equal(t, "u1", payloads[1]["cursor"])
}

func TestUserPostsStopsWhenNoMore(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.UserPostedEndpoint,
		mockserver.Page{Items: mockserver.PostedNotes("a", 7), Cursor: "u1", HasMore: false},
		mockserver.Page{Items: mockserver.PostedNotes("b", 30)},
	)

	posts, err := env.client.UserPosts(context.Background(), "user1", 100)
	require.NoError(t, err)
	assert.Len(t, posts, 7)
	assert.Equal(t, 1, env.srv.Calls(api.UserPostedEndpoint))
}

func TestUserProfile(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetUserInfo(map[string]interface{}{
		"basic_info": map[string]interface{}{
			"nickname":    "旅行家",
			"desc":        "hello",
			"gender":      1,
			"images":      "https://img/avatar.jpg",
			"ip_location": "Beijing",
		},
		"interactions": []interface{}{
			map[string]interface{}{"type": "follows", "name": "关注", "count": "12"},
			map[string]interface{}{"type": "fans", "name": "粉丝", "count": "3.4万"},
			map[string]interface{}{"type": "interaction", "name": "获赞与收藏", "count": 99},
		},
	})

	p, err := env.client.UserProfile(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, "user1", p.UserID)
	assert.Equal(t, "旅行家", p.Nickname)
	assert.Equal(t, "hello", p.Desc)
	assert.Equal(t, 1, p.Gender)
	assert.Equal(t, "https://img/avatar.jpg", p.Avatar)
	assert.Equal(t, "Beijing", p.Location)
	assert.Equal(t, int64(12), p.Follows.Int())
	assert.Equal(t, int64(34000), p.Fans.Int())
	assert.Equal(t, api.Count("99"), p.Interaction)

	payloads := env.srv.Payloads(api.UserInfoEndpoint)
	require.Len(t, payloads, 1)
	assert.Equal(t, map[string]interface{}{"user_id": "user1"}, payloads[0])
}

func TestCollectorsWithoutQuota(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.SearchEndpoint, mockserver.Page{Items: mockserver.Notes("p", 5), HasMore: true})
	env.srv.SetCommentPages("note1", mockserver.Page{Items: mockserver.Comments("c", 5), Cursor: "k1", HasMore: true})
	env.srv.SetPages(api.UserPostedEndpoint, mockserver.Page{Items: mockserver.PostedNotes("a", 5), Cursor: "u1", HasMore: true})
	ctx := context.Background()

	for _, num := range []int{0, -3} {
		notes, err := env.client.SearchNotes(ctx, "tea", num, "")
		require.NoError(t, err)
		assert.NotNil(t, notes)
		assert.Empty(t, notes)

		comments, err := env.client.NoteComments(ctx, "note1", "tok", num)
		require.NoError(t, err)
		assert.NotNil(t, comments)
		assert.Empty(t, comments)

		posts, err := env.client.UserPosts(ctx, "user1", num)
		require.NoError(t, err)
		assert.NotNil(t, posts)
		assert.Empty(t, posts)
	}

	assert.Equal(t, 0, env.srv.Calls(api.SearchEndpoint))
	assert.Equal(t, 0, env.srv.Calls(api.CommentsEndpoint))
	assert.Equal(t, 0, env.srv.Calls(api.UserPostedEndpoint))
}

func TestBrowseNote(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetCommentPages("n1", mockserver.Page{Items: mockserver.Comments("c", 4), Cursor: "k1", HasMore: true})
	env.srv.SetPages(api.FeedEndpoint, mockserver.Page{Items: mockserver.Notes("r", 12)})

	var item api.NoteItem
	raw, _ := json.Marshal(mockserver.Note("n1", "source", "author"))
	require.NoError(t, json.Unmarshal(raw, &item))

	detail, err := env.client.BrowseNote(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, "n1", detail.Note.ID)
	assert.Equal(t, "source", detail.Info.Title)
	require.NotNil(t, detail.Comments)
	assert.Len(t, detail.Comments.Comments, 4)
	assert.True(t, detail.Comments.HasMore)
	assert.Len(t, detail.Related, DefaultRelatedNum)

	feed := env.srv.Payloads(api.FeedEndpoint)[0]
	tagInfo, ok := feed["tag_info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "normal", tagInfo["type"])
	assert.Equal(t, "tok-n1", env.srv.Payloads(api.CommentsEndpoint)[0]["xsec_token"])
}

func TestBrowseNoteRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.BrowseNote(context.Background(), api.NoteItem{ID: "n1"})
	assert.ErrorIs(t, err, ErrMissingNoteToken)

	_, err = env.client.BrowseNote(context.Background(), api.NoteItem{XsecToken: "t"})
	assert.ErrorIs(t, err, ErrMissingNoteToken)
	assert.Zero(t, env.srv.Calls(api.CommentsEndpoint))
}

func TestBrowseNoteFailsWhenOneSideFails(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetBusinessError(api.FeedEndpoint, -101, "no permission")

	_, err := env.client.BrowseNote(context.Background(), api.NoteItem{ID: "n1", XsecToken: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "related posts")
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
}

func TestResponsesAreLogged(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetPages(api.HomefeedEndpoint, mockserver.Page{Items: mockserver.Notes("a", 1)})
	env.srv.SetPages(api.FeedEndpoint, mockserver.Page{Items: mockserver.Notes("r", 2)})

	_, err := env.client.Homefeed(context.Background(), 5, "", api.RefreshTypeFirst)
	require.NoError(t, err)
	_, err = env.client.RelatedPosts(context.Background(), "src", "tok", 2)
	require.NoError(t, err)

	entries, err := os.ReadDir(env.logDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Len(t, names, 2)

	var homefeed, feed string
	for _, n := range names {
		switch {
		case strings.HasPrefix(n, "homefeed_"):
			homefeed = n
		case strings.HasPrefix(n, "feed_"):
			feed = n
		}
	}
	require.NotEmpty(t, homefeed)
	require.NotEmpty(t, feed)

	var entry responselog.Entry
	data, err := os.ReadFile(filepath.Join(env.logDir, homefeed))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "homefeed", entry.APIType)
	assert.Equal(t, float64(5), entry.Metadata["num"])
	assert.Equal(t, float64(api.RefreshTypeFirst), entry.Metadata["refresh_type"])

	data, err = os.ReadFile(filepath.Join(env.logDir, feed))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"items"`)
	assert.Contains(t, string(data), `"note_id": "src"`)
}

func TestTokenStatsAndHealth(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.client.TokenStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mock", stats.Client)
	assert.True(t, env.client.TokenHealthy(context.Background()))

	bare := NewWithDeps(nil, nil, nil, logger.NewNopLogger())
	_, err = bare.TokenStats(context.Background())
	assert.Error(t, err)
	assert.False(t, bare.TokenHealthy(context.Background()))
}

func TestSaveResponse(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "posts.json")

	require.NoError(t, env.client.SaveResponse([]NoteInfo{{ID: "n1", Title: "标题"}}, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "标题")
	assert.True(t, env.log.HasMessage("Response saved"))
}

func TestNewFailsWithoutCookies(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Platform.CookiesPath = filepath.Join(t.TempDir(), "missing.json")
	cfg.ResponseLog.Enabled = false

	_, err := New(cfg)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeCookie, errs.TypeOf(err))
}

func TestNewWiresStack(t *testing.T) {
	srv := mockserver.New()
	defer srv.Close()

	dir := t.TempDir()
	cookiesPath := filepath.Join(dir, "cookies.json")
	require.NoError(t, os.WriteFile(cookiesPath, []byte(`{"a1":"`+srv.DeviceID+`","webId":"w"}`), 0600))

	cfg := config.DefaultConfig()
	cfg.TokenServer.URL = srv.URL
	cfg.TokenServer.APIKey = srv.APIKey
	cfg.Platform.BaseURL = srv.URL
	cfg.Platform.CookiesPath = cookiesPath
	cfg.ResponseLog.Directory = filepath.Join(dir, "logs")
	cfg.Retry.Enabled = false
	srv.SetPages(api.HomefeedEndpoint, mockserver.Page{Items: mockserver.Notes("a", 2)})

	c, err := New(cfg)
	require.NoError(t, err)

	posts, err := c.HomefeedPosts(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.DirExists(t, cfg.ResponseLog.Directory)
}
