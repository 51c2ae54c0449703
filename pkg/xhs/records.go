package xhs

import (
	"xhsclient/pkg/api"
)

// AnonymousNickname stands in for commenters without a nickname
const AnonymousNickname = "Anonymous"

// NoteInfo is the flattened summary of a note item
type NoteInfo struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Desc     string    `json:"desc"`
	Type     string    `json:"type"`
	Author   Author    `json:"author"`
	Stats    NoteStats `json:"stats"`
	HasToken bool      `json:"has_token"`
}

type Author struct {
	Nickname string `json:"nickname"`
	UserID   string `json:"user_id"`
}

type NoteStats struct {
	Likes    api.Count `json:"likes"`
	Comments api.Count `json:"comments"`
	Collects api.Count `json:"collects"`
	Shares   api.Count `json:"shares"`
}

// Comment is the flattened form of a platform comment
type Comment struct {
	ID              string    `json:"id"`
	Content         string    `json:"content"`
	UserNickname    string    `json:"user_nickname"`
	UserID          string    `json:"user_id"`
	LikeCount       api.Count `json:"like_count"`
	SubCommentCount api.Count `json:"sub_comment_count"`
	CreateTime      int64     `json:"create_time"`
	IPLocation      string    `json:"ip_location"`
	Pictures        []string  `json:"pictures"`
}

// UserProfile is the flattened form of a user's profile
type UserProfile struct {
	UserID         string    `json:"user_id"`
	Nickname       string    `json:"nickname"`
	Desc           string    `json:"desc"`
	Gender         int       `json:"gender"`
	Follows        api.Count `json:"follows"`
	Fans           api.Count `json:"fans"`
	Interaction    api.Count `json:"interaction"`
	NoteCount      api.Count `json:"note_count"`
	CollectedCount api.Count `json:"collected_count"`
	Avatar         string    `json:"avatar"`
	Level          string    `json:"level"`
	Location       string    `json:"location"`
	College        string    `json:"college"`
}

// ExtractNoteInfo summarises a homefeed, search or related-post item
func ExtractNoteInfo(item api.NoteItem) NoteInfo {
	card := item.NoteCard
	id := item.ID
	if id == "" {
		id = card.NoteID
	}
	return NoteInfo{
		ID:    id,
		Title: card.DisplayTitle,
		Desc:  card.Desc,
		Type:  card.Type,
		Author: Author{
			Nickname: card.User.DisplayName(),
			UserID:   card.User.UserID,
		},
		Stats: NoteStats{
			Likes:    card.InteractInfo.LikedCount,
			Comments: card.InteractInfo.CommentCount,
			Collects: card.InteractInfo.CollectedCount,
			Shares:   card.InteractInfo.ShareCount,
		},
		HasToken: item.XsecToken != "",
	}
}

// ParseComment flattens a platform comment
func ParseComment(c api.Comment) Comment {
	nickname := c.UserInfo.Nickname
	if nickname == "" {
		nickname = AnonymousNickname
	}

	// one entry per picture, "" where the default URL is missing
	pictures := make([]string, len(c.Pictures))
	for i, p := range c.Pictures {
		pictures[i] = p.URLDefault
	}

	return Comment{
		ID:              c.ID,
		Content:         c.Content,
		UserNickname:    nickname,
		UserID:          c.UserInfo.UserID,
		LikeCount:       c.LikeCount,
		SubCommentCount: c.SubCommentCount,
		CreateTime:      c.CreateTime,
		IPLocation:      c.IPLocation,
		Pictures:        pictures,
	}
}

// ParseComments flattens a page of comments
func ParseComments(cs []api.Comment) []Comment {
	out := make([]Comment, len(cs))
	for i, c := range cs {
		out[i] = ParseComment(c)
	}
	return out
}

// FilterByLikes keeps the items liked at least min times, in order.
// Display counts such as "1.2万" are expanded before comparing.
func FilterByLikes(items []api.NoteItem, min int64) []api.NoteItem {
	out := make([]api.NoteItem, 0, len(items))
	for _, item := range items {
		if item.NoteCard.InteractInfo.LikedCount.Int() >= min {
			out = append(out, item)
		}
	}
	return out
}

// ExtractTagInfo builds the tag hint for related-post requests. The type
// falls back to "normal".
func ExtractTagInfo(item api.NoteItem) api.TagInfo {
	tags := make([]api.TagRef, 0, len(item.NoteCard.TagList))
	for _, t := range item.NoteCard.TagList {
		tags = append(tags, api.TagRef{ID: t.ID, Name: t.Name})
	}

	typ := item.NoteCard.Type
	if typ == "" {
		typ = "normal"
	}
	return api.TagInfo{Tags: tags, Type: typ}
}

// NewUserProfile flattens an otherinfo payload. Flat fields win; the nested
// basic_info and interactions layout fills whatever they leave empty.
func NewUserProfile(userID string, u api.UserInfo) UserProfile {
	p := UserProfile{
		UserID:         u.UserID,
		Nickname:       u.Nickname,
		Desc:           u.Desc,
		Gender:         u.Gender,
		Follows:        u.Follows,
		Fans:           u.Fans,
		Interaction:    u.Interaction,
		NoteCount:      u.Notes,
		CollectedCount: u.Collected,
		Avatar:         u.Image,
		Location:       u.Location,
	}
	if u.Level != nil {
		p.Level = u.Level.Name
	}
	if u.College != nil {
		p.College = u.College.Name
	}
	if p.UserID == "" {
		p.UserID = userID
	}

	if b := u.BasicInfo; b != nil {
		if p.Nickname == "" {
			p.Nickname = b.Nickname
		}
		if p.Desc == "" {
			p.Desc = b.Desc
		}
		if p.Gender == 0 {
			p.Gender = b.Gender
		}
		if p.Avatar == "" {
			p.Avatar = b.Images
		}
		if p.Location == "" {
			p.Location = b.IPLocation
		}
	}

	for _, in := range u.Interactions {
		switch in.Type {
		case "follows":
			if p.Follows == "" {
				p.Follows = in.Count
			}
		case "fans":
			if p.Fans == "" {
				p.Fans = in.Count
			}
		case "interaction":
			if p.Interaction == "" {
				p.Interaction = in.Count
			}
		}
	}
	return p
}
