package xhs

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"xhsclient/pkg/api"
	"xhsclient/pkg/config"
	"xhsclient/pkg/cookies"
	"xhsclient/pkg/logger"
	"xhsclient/pkg/ratelimit"
	"xhsclient/pkg/responselog"
	"xhsclient/pkg/retry"
	"xhsclient/pkg/tokens"
)

// DefaultRelatedNum is how many related posts BrowseNote asks for
const DefaultRelatedNum = 10

// ErrMissingNoteToken is returned when a note item lacks the id or the
// xsec_token needed to open it.
var ErrMissingNoteToken = errors.New("missing note_id or xsec_token")

// Client is the high-level entry point: raw page calls, multi-page
// collectors and record reshaping on top of the platform client.
type Client struct {
	api      PlatformClient
	tokens   TokenService
	recorder Recorder
	logger   logger.Logger
}

// New builds the full client stack from configuration: cookies, token
// service, platform client and response log.
func New(cfg *config.Config) (*Client, error) {
	log := logger.GetLogger()

	jar, err := cookies.Load(cfg.Platform.CookiesPath)
	if err != nil {
		return nil, err
	}

	var tokenLimiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RateLimit.TokenRequestsPerHour > 0 {
		tokenLimiter = ratelimit.PerHour(cfg.RateLimit.TokenRequestsPerHour)
	}
	var platformLimiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RateLimit.PlatformRequestsPerMinute > 0 {
		platformLimiter = ratelimit.PerMinute(cfg.RateLimit.PlatformRequestsPerMinute)
	}

	tc := tokens.New(cfg.TokenServer, tokens.Options{
		Limiter: tokenLimiter,
		Retry:   retry.FromConfig(cfg.Retry, log),
		Logger:  log,
	})

	pc := api.NewClient(cfg.Platform, jar, tc, api.Options{
		Limiter: platformLimiter,
		Retry:   retry.FromConfig(cfg.Retry, log),
		Logger:  log,
	})

	rec, err := responselog.New(cfg.ResponseLog.Directory, cfg.ResponseLog.Enabled, log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up response log: %w", err)
	}

	fields := map[string]interface{}{
		"token_server": cfg.TokenServer.URL,
		"cookies":      jar.Len(),
	}
	if rec.Enabled() {
		fields["response_log"] = rec.Dir()
	}
	log.InfoWithFields("client ready", fields)

	return NewWithDeps(pc, tc, rec, log), nil
}

// NewWithDeps assembles a Client from existing collaborators. A nil recorder
// disables response logging.
func NewWithDeps(platform PlatformClient, tokenService TokenService, recorder Recorder, log logger.Logger) *Client {
	if recorder == nil {
		recorder = responselog.Disabled()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		api:      platform,
		tokens:   tokenService,
		recorder: recorder,
		logger:   log.WithField("component", "xhs"),
	}
}

// record writes a response log entry. Failures only cost the log entry.
func (c *Client) record(apiType string, response interface{}, metadata map[string]interface{}) {
	path, err := c.recorder.Record(apiType, response, metadata)
	if err != nil {
		c.logger.WithError(err).WithField("api_type", apiType).Warn("Failed to log response")
		return
	}
	if path != "" {
		c.logger.DebugWithFields("response logged", map[string]interface{}{"path": path})
	}
}

// rawOrValue prefers the undecoded body so logs keep every server field
func rawOrValue[T any](resp *api.Response[T]) interface{} {
	if len(resp.Raw) > 0 {
		return resp.Raw
	}
	return resp
}

// Homefeed fetches one homefeed page
func (c *Client) Homefeed(ctx context.Context, num int, cursor string, refreshType int) (*api.Response[api.HomefeedData], error) {
	c.logger.InfoWithFields("Fetching homefeed", map[string]interface{}{"num": num, "cursor": cursor})

	resp, err := c.api.FetchHomefeed(ctx, api.NewHomefeedRequest(cursor, num, refreshType))
	if err != nil {
		return nil, err
	}
	c.record("homefeed", rawOrValue(resp), map[string]interface{}{
		"num":          num,
		"cursor":       cursor,
		"refresh_type": refreshType,
	})
	return resp, nil
}

// HomefeedPosts fetches up to pages homefeed pages of num items each. The
// first request is a refresh, later ones load more. Collection stops early
// on an empty page or an empty cursor.
func (c *Client) HomefeedPosts(ctx context.Context, num, pages int, opts ...CollectOption) ([]api.NoteItem, error) {
	if pages < 1 {
		pages = 1
	}
	p := pager[api.NoteItem]{
		stream:   "homefeed",
		maxPages: pages,
		log:      c.logger,
		fetch: func(ctx context.Context, cursor string, _, _ int) (page[api.NoteItem], error) {
			refresh := api.RefreshTypeFirst
			if cursor != "" {
				refresh = api.RefreshTypeMore
			}
			resp, err := c.Homefeed(ctx, num, cursor, refresh)
			if err != nil {
				return page[api.NoteItem]{}, err
			}
			return page[api.NoteItem]{
				items:  resp.Data.Items,
				cursor: resp.Data.CursorScore,
				done:   resp.Data.CursorScore == "",
			}, nil
		},
	}
	return p.collect(ctx, buildOptions(opts))
}

// Search fetches one page of search results. An empty searchID starts a new
// search session.
func (c *Client) Search(ctx context.Context, keyword string, pageNum int, sort string) (*api.Response[api.SearchData], error) {
	return c.search(ctx, keyword, pageNum, sort, "")
}

func (c *Client) search(ctx context.Context, keyword string, pageNum int, sort, searchID string) (*api.Response[api.SearchData], error) {
	if keyword == "" {
		return nil, fmt.Errorf("search keyword is required")
	}
	if sort == "" {
		sort = api.SortGeneral
	}
	if !api.ValidSort(sort) {
		return nil, fmt.Errorf("invalid sort %q", sort)
	}
	c.logger.InfoWithFields("Searching", map[string]interface{}{"keyword": keyword, "page": pageNum})

	resp, err := c.api.FetchSearch(ctx, api.NewSearchRequest(keyword, pageNum, sort, searchID))
	if err != nil {
		return nil, err
	}
	c.record("search", rawOrValue(resp), map[string]interface{}{
		"keyword": keyword,
		"page":    pageNum,
		"sort":    sort,
	})
	return resp, nil
}

// SearchNotes collects up to num search results. The search_id the server
// hands back on the first page is reused for the rest of the session. A
// num of zero or less makes no request.
func (c *Client) SearchNotes(ctx context.Context, keyword string, num int, sort string, opts ...CollectOption) ([]api.NoteItem, error) {
	if num <= 0 {
		return []api.NoteItem{}, nil
	}
	o := buildOptions(opts)
	searchID := o.searchID
	if searchID == "" {
		searchID = api.NewSearchID()
	}

	p := pager[api.NoteItem]{
		stream: "search",
		limit:  num,
		log:    c.logger,
		fetch: func(ctx context.Context, _ string, pageNum, _ int) (page[api.NoteItem], error) {
			resp, err := c.search(ctx, keyword, pageNum, sort, searchID)
			if err != nil {
				return page[api.NoteItem]{}, err
			}
			if resp.Data.SearchID != "" {
				searchID = resp.Data.SearchID
			}
			return page[api.NoteItem]{
				items:    resp.Data.Items,
				searchID: searchID,
				done:     !resp.Data.HasMore,
			}, nil
		},
	}
	return p.collect(ctx, o)
}

// Comments fetches one page of a note's top-level comments
func (c *Client) Comments(ctx context.Context, noteID, xsecToken, cursor string) (*api.Response[api.CommentsData], error) {
	if noteID == "" {
		return nil, fmt.Errorf("note id is required")
	}
	c.logger.InfoWithFields("Fetching comments", map[string]interface{}{"note_id": noteID, "cursor": cursor})

	resp, err := c.api.FetchComments(ctx, api.NewCommentsRequest(noteID, xsecToken, cursor))
	if err != nil {
		return nil, err
	}
	c.record("comments", rawOrValue(resp), map[string]interface{}{
		"note_id": noteID,
		"cursor":  cursor,
	})
	return resp, nil
}

// NoteComments collects up to num comments of a note as records. A num of
// zero or less makes no request.
func (c *Client) NoteComments(ctx context.Context, noteID, xsecToken string, num int, opts ...CollectOption) ([]Comment, error) {
	raw, err := c.noteComments(ctx, noteID, xsecToken, num, opts...)
	return ParseComments(raw), err
}

func (c *Client) noteComments(ctx context.Context, noteID, xsecToken string, num int, opts ...CollectOption) ([]api.Comment, error) {
	if num <= 0 {
		return []api.Comment{}, nil
	}
	p := pager[api.Comment]{
		stream: "comments:" + noteID,
		limit:  num,
		log:    c.logger,
		fetch: func(ctx context.Context, cursor string, _, _ int) (page[api.Comment], error) {
			resp, err := c.Comments(ctx, noteID, xsecToken, cursor)
			if err != nil {
				return page[api.Comment]{}, err
			}
			return page[api.Comment]{
				items:  resp.Data.Comments,
				cursor: resp.Data.Cursor,
				done:   resp.Data.Cursor == "" || !resp.Data.HasMore,
			}, nil
		},
	}
	return p.collect(ctx, buildOptions(opts))
}

// RelatedPosts fetches posts related to a note in a single call. num is
// capped at api.MaxFeedNum.
func (c *Client) RelatedPosts(ctx context.Context, noteID, xsecToken string, num int) ([]api.NoteItem, error) {
	return c.relatedPosts(ctx, noteID, xsecToken, num, nil)
}

// RelatedPostsWithTags narrows the recommendation to the source item's tags
func (c *Client) RelatedPostsWithTags(ctx context.Context, item api.NoteItem, num int) ([]api.NoteItem, error) {
	tags := ExtractTagInfo(item)
	return c.relatedPosts(ctx, item.ID, item.XsecToken, num, &tags)
}

func (c *Client) relatedPosts(ctx context.Context, noteID, xsecToken string, num int, tags *api.TagInfo) ([]api.NoteItem, error) {
	if noteID == "" {
		return nil, fmt.Errorf("note id is required")
	}
	c.logger.InfoWithFields("Fetching related posts", map[string]interface{}{"note_id": noteID, "num": num})

	resp, err := c.api.FetchFeed(ctx, api.NewFeedRequest(noteID, xsecToken, num, tags))
	if err != nil {
		return nil, err
	}

	posts := resp.Data.Items
	if num > 0 && len(posts) > num {
		posts = posts[:num]
	}
	if posts == nil {
		posts = []api.NoteItem{}
	}

	c.record("feed", map[string]interface{}{"items": posts}, map[string]interface{}{
		"note_id": noteID,
		"num":     num,
	})
	return posts, nil
}

// UserPosts collects up to num notes from a user's profile. A num of zero
// or less makes no request.
func (c *Client) UserPosts(ctx context.Context, userID string, num int, opts ...CollectOption) ([]api.PostedNote, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if num <= 0 {
		return []api.PostedNote{}, nil
	}
	c.logger.InfoWithFields("Fetching user posts", map[string]interface{}{"user_id": userID, "num": num})

	p := pager[api.PostedNote]{
		stream: "user_posts:" + userID,
		limit:  num,
		log:    c.logger,
		fetch: func(ctx context.Context, cursor string, _, remaining int) (page[api.PostedNote], error) {
			perPage := api.MaxUserPostsNum
			if remaining > 0 && remaining < perPage {
				perPage = remaining
			}
			resp, err := c.api.FetchUserPosts(ctx, api.NewUserPostsRequest(userID, cursor, perPage))
			if err != nil {
				return page[api.PostedNote]{}, err
			}
			return page[api.PostedNote]{
				items:  resp.Data.Notes,
				cursor: resp.Data.Cursor,
				done:   resp.Data.Cursor == "" || !resp.Data.HasMore,
			}, nil
		},
	}

	posts, err := p.collect(ctx, buildOptions(opts))
	if posts == nil {
		posts = []api.PostedNote{}
	}
	c.record("user_posts", map[string]interface{}{"posts": posts}, map[string]interface{}{
		"user_id": userID,
		"num":     num,
	})
	return posts, err
}

// UserProfile fetches and flattens a user's profile
func (c *Client) UserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	c.logger.InfoWithFields("Fetching user profile", map[string]interface{}{"user_id": userID})

	resp, err := c.api.FetchUserInfo(ctx, api.UserInfoRequest{UserID: userID})
	if err != nil {
		return nil, err
	}

	profile := NewUserProfile(userID, resp.Data)
	c.record("user_profile", profile, map[string]interface{}{"user_id": userID})
	return &profile, nil
}

// NoteDetail bundles a note with its first comment page and related posts
type NoteDetail struct {
	Note     api.NoteItem      `json:"note"`
	Info     NoteInfo          `json:"info"`
	Comments *api.CommentsData `json:"comments"`
	Related  []api.NoteItem    `json:"related"`
}

// BrowseNote opens a note from a list: its first comment page and related
// posts are fetched concurrently.
func (c *Client) BrowseNote(ctx context.Context, item api.NoteItem) (*NoteDetail, error) {
	if item.ID == "" || item.XsecToken == "" {
		return nil, ErrMissingNoteToken
	}

	detail := &NoteDetail{Note: item, Info: ExtractNoteInfo(item)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := c.Comments(gctx, item.ID, item.XsecToken, "")
		if err != nil {
			return fmt.Errorf("comments: %w", err)
		}
		detail.Comments = &resp.Data
		return nil
	})
	g.Go(func() error {
		related, err := c.RelatedPostsWithTags(gctx, item, DefaultRelatedNum)
		if err != nil {
			return fmt.Errorf("related posts: %w", err)
		}
		detail.Related = related
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

// SaveResponse writes v as indented JSON to filename
func (c *Client) SaveResponse(v interface{}, filename string) error {
	if err := responselog.Save(v, filename); err != nil {
		return err
	}
	c.logger.InfoWithFields("Response saved", map[string]interface{}{"path": filename})
	return nil
}

// TokenStats reports the token service's statistics
func (c *Client) TokenStats(ctx context.Context) (*tokens.Stats, error) {
	if c.tokens == nil {
		return nil, fmt.Errorf("no token service configured")
	}
	return c.tokens.Stats(ctx)
}

// TokenHealthy reports whether the token service answers its health check
func (c *Client) TokenHealthy(ctx context.Context) bool {
	return c.tokens != nil && c.tokens.Health(ctx)
}
