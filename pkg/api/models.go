package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Response is the envelope every platform endpoint returns
type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Data    T      `json:"data"`

	// Raw is the undecoded body, kept for response logging
	Raw json.RawMessage `json:"-"`
}

// Count is an interaction counter. The platform sends these as numbers or
// as display strings such as "1.2万", so the original text is kept.
type Count string

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Count(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Count(n.String())
	return nil
}

// Int converts the counter to a number, expanding the 万 (x10000) and 亿
// (x100000000) suffixes and ignoring a trailing "+".
// Unparseable values yield 0.
func (c Count) Int() int64 {
	s := strings.TrimSuffix(strings.TrimSpace(string(c)), "+")
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "万"):
		s = strings.TrimSuffix(s, "万")
		mult = 10000
	case strings.HasSuffix(s, "亿"):
		s = strings.TrimSuffix(s, "亿")
		mult = 100000000
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f * mult)
}

func (c Count) String() string {
	if c == "" {
		return "0"
	}
	return string(c)
}

// MarshalJSON writes numeric counters as numbers and display strings as strings
func (c Count) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("0"), nil
	}
	if _, err := strconv.ParseInt(string(c), 10, 64); err == nil {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

// NoteItem is one entry of homefeed, search and related-post lists. The
// original JSON is kept so re-encoding an item loses nothing.
type NoteItem struct {
	ID        string   `json:"id"`
	ModelType string   `json:"model_type,omitempty"`
	XsecToken string   `json:"xsec_token,omitempty"`
	NoteCard  NoteCard `json:"note_card"`

	raw json.RawMessage
}

type noteItemAlias NoteItem

func (n *NoteItem) UnmarshalJSON(data []byte) error {
	var a noteItemAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*n = NoteItem(a)
	n.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (n NoteItem) MarshalJSON() ([]byte, error) {
	if len(n.raw) > 0 {
		return n.raw, nil
	}
	return json.Marshal(noteItemAlias(n))
}

// NoteCard is the displayable part of a note
type NoteCard struct {
	NoteID       string       `json:"note_id,omitempty"`
	Type         string       `json:"type,omitempty"`
	DisplayTitle string       `json:"display_title,omitempty"`
	Desc         string       `json:"desc,omitempty"`
	User         NoteUser     `json:"user"`
	InteractInfo InteractInfo `json:"interact_info"`
	Cover        *Image       `json:"cover,omitempty"`
	TagList      []Tag        `json:"tag_list,omitempty"`
}

type NoteUser struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	// some endpoints send nick_name instead of nickname
	NickName string `json:"nick_name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// DisplayName returns whichever nickname field is populated
func (u NoteUser) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.NickName
}

type InteractInfo struct {
	Liked          bool  `json:"liked,omitempty"`
	LikedCount     Count `json:"liked_count"`
	CommentCount   Count `json:"comment_count,omitempty"`
	CollectedCount Count `json:"collected_count,omitempty"`
	ShareCount     Count `json:"share_count,omitempty"`
}

type Image struct {
	URLDefault string `json:"url_default,omitempty"`
	URLPre     string `json:"url_pre,omitempty"`
	URL        string `json:"url,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// TagInfo narrows related-post recommendations to a note's tags
type TagInfo struct {
	Tags []TagRef `json:"tags"`
	Type string   `json:"type"`
}

type TagRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type HomefeedData struct {
	CursorScore string     `json:"cursor_score"`
	Items       []NoteItem `json:"items"`
}

type SearchData struct {
	HasMore  bool       `json:"has_more"`
	Items    []NoteItem `json:"items"`
	SearchID string     `json:"search_id,omitempty"`
}

type CommentsData struct {
	Comments []Comment `json:"comments"`
	Cursor   string    `json:"cursor"`
	HasMore  bool      `json:"has_more"`
	Time     int64     `json:"time,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
}

// Comment is a top-level comment as the platform returns it
type Comment struct {
	ID                string      `json:"id"`
	NoteID            string      `json:"note_id,omitempty"`
	Content           string      `json:"content"`
	UserInfo          CommentUser `json:"user_info"`
	LikeCount         Count       `json:"like_count"`
	SubCommentCount   Count       `json:"sub_comment_count"`
	CreateTime        int64       `json:"create_time"`
	IPLocation        string      `json:"ip_location,omitempty"`
	Pictures          []Image     `json:"pictures,omitempty"`
	SubComments       []Comment   `json:"sub_comments,omitempty"`
	SubCommentCursor  string      `json:"sub_comment_cursor,omitempty"`
	SubCommentHasMore bool        `json:"sub_comment_has_more,omitempty"`
}

type CommentUser struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Image    string `json:"image,omitempty"`
}

type FeedData struct {
	CursorScore string     `json:"cursor_score,omitempty"`
	Items       []NoteItem `json:"items"`
}

type UserPostsData struct {
	Notes   []PostedNote `json:"notes"`
	Cursor  string       `json:"cursor"`
	HasMore bool         `json:"has_more"`
}

// PostedNote is a note from a user's profile grid. Unlike NoteItem its
// fields are not nested under note_card.
type PostedNote struct {
	NoteID       string       `json:"note_id"`
	XsecToken    string       `json:"xsec_token,omitempty"`
	Type         string       `json:"type,omitempty"`
	DisplayTitle string       `json:"display_title,omitempty"`
	User         NoteUser     `json:"user"`
	InteractInfo InteractInfo `json:"interact_info"`
	Cover        *Image       `json:"cover,omitempty"`
}

// AsNoteItem lifts a profile-grid note into the list item shape
func (p PostedNote) AsNoteItem() NoteItem {
	return NoteItem{
		ID:        p.NoteID,
		XsecToken: p.XsecToken,
		NoteCard: NoteCard{
			NoteID:       p.NoteID,
			Type:         p.Type,
			DisplayTitle: p.DisplayTitle,
			User:         p.User,
			InteractInfo: p.InteractInfo,
			Cover:        p.Cover,
		},
	}
}

// UserInfo is the otherinfo payload. Older responses are flat; newer ones
// nest the same facts under basic_info and interactions.
type UserInfo struct {
	UserID      string      `json:"user_id,omitempty"`
	Nickname    string      `json:"nickname,omitempty"`
	Desc        string      `json:"desc,omitempty"`
	Gender      int         `json:"gender,omitempty"`
	Follows     Count       `json:"follows,omitempty"`
	Fans        Count       `json:"fans,omitempty"`
	Interaction Count       `json:"interaction,omitempty"`
	Notes       Count       `json:"notes,omitempty"`
	Collected   Count       `json:"collected,omitempty"`
	Image       string      `json:"image,omitempty"`
	Level       *NamedValue `json:"level,omitempty"`
	Location    string      `json:"location,omitempty"`
	College     *NamedValue `json:"college,omitempty"`

	BasicInfo    *BasicInfo    `json:"basic_info,omitempty"`
	Interactions []Interaction `json:"interactions,omitempty"`
}

type NamedValue struct {
	Name string `json:"name"`
}

type BasicInfo struct {
	Nickname   string `json:"nickname"`
	Desc       string `json:"desc"`
	Gender     int    `json:"gender"`
	Images     string `json:"images"`
	IPLocation string `json:"ip_location"`
	RedID      string `json:"red_id"`
}

// Interaction is one labelled counter such as {"type": "fans", "count": "12"}
type Interaction struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Count Count  `json:"count"`
}
