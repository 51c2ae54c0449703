package api

import (
	"strings"

	"github.com/google/uuid"
)

const (
	HomefeedEndpoint   = "/api/sns/web/v1/homefeed"
	SearchEndpoint     = "/api/sns/web/v1/search/notes"
	CommentsEndpoint   = "/api/sns/web/v2/comment/page"
	FeedEndpoint       = "/api/sns/web/v1/feed"
	UserPostedEndpoint = "/api/sns/web/v1/user_posted"
	UserInfoEndpoint   = "/api/sns/web/v1/user/otherinfo"

	// RefreshTypeFirst asks for a fresh homefeed; RefreshTypeMore continues it
	RefreshTypeFirst = 1
	RefreshTypeMore  = 3

	DefaultHomefeedNum = 20
	MaxHomefeedNum     = 20
	SearchPageSize     = 20
	MaxFeedNum         = 30
	MaxUserPostsNum    = 30

	XsecSourceFeed = "pc_feed"
)

// Search sort orders
const (
	SortGeneral    = "general"
	SortNewest     = "time_descending"
	SortPopularity = "popularity_descending"
)

var (
	cardImageScenes   = []string{"CRD_PRV_WEBP", "CRD_WM_WEBP"}
	defaultImageFmts  = []string{"jpg", "webp", "avif"}
	searchImageScenes = "FD_PRV_WEBP,FD_WM_WEBP"
)

// ValidSort reports whether s is a sort order the search endpoint accepts
func ValidSort(s string) bool {
	switch s {
	case SortGeneral, SortNewest, SortPopularity:
		return true
	}
	return false
}

// NewSearchID returns a 32 character lowercase hex search session id
func NewSearchID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// newTraceID returns a 16 character hex id for x-b3-traceid
func newTraceID() string {
	return NewSearchID()[:16]
}

// HomefeedRequest is the homefeed payload. Field order is the wire order.
type HomefeedRequest struct {
	CursorScore string   `json:"cursor_score"`
	Num         int      `json:"num"`
	RefreshType int      `json:"refresh_type"`
	NoteIndex   int      `json:"note_index"`
	ImageScenes []string `json:"image_scenes"`
}

// NewHomefeedRequest fills in image scenes and a default page size
func NewHomefeedRequest(cursor string, num, refreshType int) HomefeedRequest {
	if num <= 0 {
		num = DefaultHomefeedNum
	}
	if refreshType == 0 {
		refreshType = RefreshTypeFirst
	}
	return HomefeedRequest{
		CursorScore: cursor,
		Num:         num,
		RefreshType: refreshType,
		ImageScenes: cardImageScenes,
	}
}

// SearchRequest is the note search payload
type SearchRequest struct {
	Keyword     string   `json:"keyword"`
	Page        int      `json:"page"`
	PageSize    int      `json:"page_size"`
	SearchID    string   `json:"search_id"`
	Sort        string   `json:"sort"`
	NoteType    int      `json:"note_type"`
	ExtFlags    []string `json:"ext_flags"`
	ImageScenes string   `json:"image_scenes"`
}

// NewSearchRequest generates a search id when searchID is empty
func NewSearchRequest(keyword string, page int, sort, searchID string) SearchRequest {
	if page < 1 {
		page = 1
	}
	if sort == "" {
		sort = SortGeneral
	}
	if searchID == "" {
		searchID = NewSearchID()
	}
	return SearchRequest{
		Keyword:     keyword,
		Page:        page,
		PageSize:    SearchPageSize,
		SearchID:    searchID,
		Sort:        sort,
		ExtFlags:    []string{},
		ImageScenes: searchImageScenes,
	}
}

// CommentsRequest is the comment page payload
type CommentsRequest struct {
	NoteID       string   `json:"note_id"`
	Cursor       string   `json:"cursor"`
	TopCommentID string   `json:"top_comment_id"`
	ImageFormats []string `json:"image_formats"`
	XsecToken    string   `json:"xsec_token,omitempty"`
}

func NewCommentsRequest(noteID, xsecToken, cursor string) CommentsRequest {
	return CommentsRequest{
		NoteID:       noteID,
		Cursor:       cursor,
		ImageFormats: defaultImageFmts,
		XsecToken:    xsecToken,
	}
}

// FeedRequest asks for notes related to SourceNoteID
type FeedRequest struct {
	SourceNoteID string   `json:"source_note_id"`
	ImageScenes  []string `json:"image_scenes"`
	Num          int      `json:"num"`
	AdsPerFlow   int      `json:"ads_per_flow"`
	XsecSource   string   `json:"xsec_source"`
	XsecToken    string   `json:"xsec_token"`
	TagInfo      *TagInfo `json:"tag_info,omitempty"`
}

// NewFeedRequest caps num at MaxFeedNum
func NewFeedRequest(noteID, xsecToken string, num int, tags *TagInfo) FeedRequest {
	if num <= 0 || num > MaxFeedNum {
		num = MaxFeedNum
	}
	return FeedRequest{
		SourceNoteID: noteID,
		ImageScenes:  cardImageScenes,
		Num:          num,
		XsecSource:   XsecSourceFeed,
		XsecToken:    xsecToken,
		TagInfo:      tags,
	}
}

// UserPostsRequest is the user_posted payload
type UserPostsRequest struct {
	UserID       string   `json:"user_id"`
	Cursor       string   `json:"cursor"`
	Num          int      `json:"num"`
	ImageFormats []string `json:"image_formats"`
}

// NewUserPostsRequest caps num at MaxUserPostsNum
func NewUserPostsRequest(userID, cursor string, num int) UserPostsRequest {
	if num <= 0 || num > MaxUserPostsNum {
		num = MaxUserPostsNum
	}
	return UserPostsRequest{
		UserID:       userID,
		Cursor:       cursor,
		Num:          num,
		ImageFormats: defaultImageFmts,
	}
}

type UserInfoRequest struct {
	UserID       string `json:"user_id"`
	TargetUserID string `json:"target_user_id,omitempty"`
}
