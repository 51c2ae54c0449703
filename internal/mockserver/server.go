// Package mockserver fakes the token service and the platform web API on a
// single httptest server so the client stack can be exercised end to end.
package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

const (
	homefeedPath   = "/api/sns/web/v1/homefeed"
	searchPath     = "/api/sns/web/v1/search/notes"
	commentsPath   = "/api/sns/web/v2/comment/page"
	feedPath       = "/api/sns/web/v1/feed"
	userPostedPath = "/api/sns/web/v1/user_posted"
	userInfoPath   = "/api/sns/web/v1/user/otherinfo"
)

// Page is one page the fake platform serves. Cursor is the next cursor the
// page reports; the page that follows is the one requested with it.
type Page struct {
	Items   []map[string]interface{}
	Cursor  string
	HasMore bool
}

type failure struct {
	status int
	times  int
}

// Server is a fake token service and platform API
type Server struct {
	*httptest.Server

	APIKey   string
	DeviceID string
	SearchID string
	// XSCommonTTL is how long issued x-s-common tokens stay valid
	XSCommonTTL time.Duration

	mu           sync.Mutex
	pages        map[string][]Page
	commentPages map[string][]Page
	userInfo     map[string]interface{}
	failures     map[string]*failure
	bizErrors    map[string][2]interface{}
	calls        map[string]int
	payloads     map[string][]map[string]interface{}
	xsCommonSeq  int
}

// New starts a server. Close it when done.
func New() *Server {
	s := &Server{
		APIKey:       "test-api-key",
		DeviceID:     "test-a1",
		SearchID:     "server0search0id0000000000000000",
		XSCommonTTL:  time.Hour,
		pages:        make(map[string][]Page),
		commentPages: make(map[string][]Page),
		failures:     make(map[string]*failure),
		bizErrors:    make(map[string][2]interface{}),
		calls:        make(map[string]int),
		payloads:     make(map[string][]map[string]interface{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/stats", s.requireKey(s.handleStats))
	mux.HandleFunc("/api/v1/tokens/xs", s.requireKey(s.handleXS))
	mux.HandleFunc("/api/v1/tokens/xs-common", s.requireKey(s.handleXSCommon))

	for _, p := range []string{homefeedPath, searchPath, commentsPath, feedPath, userPostedPath, userInfoPath} {
		mux.HandleFunc(p, s.handlePlatform)
	}

	s.Server = httptest.NewServer(mux)
	return s
}

// SetPages configures the pages served for a platform endpoint
func (s *Server) SetPages(endpoint string, pages ...Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[endpoint] = pages
}

// SetCommentPages configures the comment pages of one note
func (s *Server) SetCommentPages(noteID string, pages ...Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentPages[noteID] = pages
}

// SetUserInfo configures the otherinfo response data
func (s *Server) SetUserInfo(info map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userInfo = info
}

// FailNext makes the next n requests to path answer with status
func (s *Server) FailNext(path string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = &failure{status: status, times: n}
}

// SetBusinessError makes path answer 200 with success=false
func (s *Server) SetBusinessError(path string, code int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bizErrors[path] = [2]interface{}{code, msg}
}

// Calls returns how many requests reached path
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Payloads returns the JSON bodies received on path, in order
func (s *Server) Payloads(path string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, len(s.payloads[path]))
	copy(out, s.payloads[path])
	return out
}

func (s *Server) record(r *http.Request) (map[string]interface{}, *failure) {
	var body map[string]interface{}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r.URL.Path]++
	if body != nil {
		s.payloads[r.URL.Path] = append(s.payloads[r.URL.Path], body)
	}
	if f := s.failures[r.URL.Path]; f != nil && f.times > 0 {
		f.times--
		return body, f
	}
	return body, nil
}

func (s *Server) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"detail": "Invalid API key"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, f := s.record(r); f != nil {
		w.WriteHeader(f.status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"cache_available": true,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if _, f := s.record(r); f != nil {
		w.WriteHeader(f.status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"client":          "mock",
		"rate_limit":      1000,
		"cache_available": true,
	})
}

func (s *Server) handleXS(w http.ResponseWriter, r *http.Request) {
	body, f := s.record(r)
	if f != nil {
		w.WriteHeader(f.status)
		return
	}
	endpoint, _ := body["endpoint"].(string)
	if endpoint == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": "endpoint is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"x_s": "XYW_" + strings.Trim(strings.ReplaceAll(endpoint, "/", "_"), "_"),
		"x_t": time.Now().UnixMilli(),
	})
}

func (s *Server) handleXSCommon(w http.ResponseWriter, r *http.Request) {
	if _, f := s.record(r); f != nil {
		w.WriteHeader(f.status)
		return
	}
	s.mu.Lock()
	s.xsCommonSeq++
	seq := s.xsCommonSeq
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"x_s_common": fmt.Sprintf("common-%d", seq),
		"expires_at": time.Now().Add(s.XSCommonTTL).UnixMilli(),
	})
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	body, f := s.record(r)
	if f != nil {
		w.WriteHeader(f.status)
		return
	}

	if c, err := r.Cookie("a1"); err != nil || c.Value != s.DeviceID {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "code": -100, "msg": "login required"})
		return
	}
	if r.Header.Get("x-s") == "" || r.Header.Get("x-s-common") == "" || r.Header.Get("x-t") == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "code": 300015, "msg": "missing signature"})
		return
	}

	s.mu.Lock()
	biz, hasBiz := s.bizErrors[r.URL.Path]
	s.mu.Unlock()
	if hasBiz {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "code": biz[0], "msg": biz[1]})
		return
	}

	data := s.platformData(r.URL.Path, body)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"code":    0,
		"msg":     "成功",
		"data":    data,
	})
}

func (s *Server) platformData(path string, body map[string]interface{}) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	str := func(k string) string { v, _ := body[k].(string); return v }
	num := func(k string) int { v, _ := body[k].(float64); return int(v) }

	switch path {
	case homefeedPath:
		p := pageFor(s.pages[path], str("cursor_score"))
		return map[string]interface{}{"cursor_score": p.Cursor, "items": items(p)}
	case searchPath:
		pages := s.pages[path]
		p := Page{}
		if i := num("page") - 1; i >= 0 && i < len(pages) {
			p = pages[i]
		}
		return map[string]interface{}{"has_more": p.HasMore, "items": items(p), "search_id": s.SearchID}
	case commentsPath:
		p := pageFor(s.commentPages[str("note_id")], str("cursor"))
		return map[string]interface{}{"comments": items(p), "cursor": p.Cursor, "has_more": p.HasMore}
	case feedPath:
		p := pageFor(s.pages[path], "")
		list := items(p)
		if n := num("num"); n > 0 && n < len(list) {
			list = list[:n]
		}
		return map[string]interface{}{"items": list}
	case userPostedPath:
		p := pageFor(s.pages[path], str("cursor"))
		list := items(p)
		if n := num("num"); n > 0 && n < len(list) {
			list = list[:n]
		}
		return map[string]interface{}{"notes": list, "cursor": p.Cursor, "has_more": p.HasMore}
	case userInfoPath:
		if s.userInfo == nil {
			return map[string]interface{}{}
		}
		return s.userInfo
	}
	return map[string]interface{}{}
}

// pageFor finds the page requested with cursor. An empty cursor is the first
// page; an unknown cursor yields an empty page.
func pageFor(pages []Page, cursor string) Page {
	if len(pages) == 0 {
		return Page{}
	}
	if cursor == "" {
		return pages[0]
	}
	for i := 0; i < len(pages)-1; i++ {
		if pages[i].Cursor == cursor {
			return pages[i+1]
		}
	}
	return Page{}
}

func items(p Page) []map[string]interface{} {
	if p.Items == nil {
		return []map[string]interface{}{}
	}
	return p.Items
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Note builds a homefeed/search/feed item
func Note(id, title, nickname string) map[string]interface{} {
	return map[string]interface{}{
		"id":         id,
		"model_type": "note",
		"xsec_token": "tok-" + id,
		"note_card": map[string]interface{}{
			"type":          "normal",
			"display_title": title,
			"user":          map[string]interface{}{"user_id": "u-" + nickname, "nickname": nickname},
			"interact_info": map[string]interface{}{"liked": false, "liked_count": "10"},
			"tag_list":      []interface{}{map[string]interface{}{"id": "t1", "name": "travel"}},
		},
	}
}

// Comment builds a comment item
func Comment(id, content, nickname string) map[string]interface{} {
	c := map[string]interface{}{
		"id":                id,
		"content":           content,
		"like_count":        "3",
		"sub_comment_count": 1,
		"create_time":       1717000000000,
		"ip_location":       "Shanghai",
		"user_info":         map[string]interface{}{"user_id": "u-" + id},
	}
	if nickname != "" {
		c["user_info"].(map[string]interface{})["nickname"] = nickname
	}
	return c
}

// PostedNote builds a user_posted grid entry
func PostedNote(id, title string) map[string]interface{} {
	return map[string]interface{}{
		"note_id":       id,
		"xsec_token":    "tok-" + id,
		"type":          "video",
		"display_title": title,
		"user":          map[string]interface{}{"user_id": "owner", "nick_name": "owner-nick"},
		"interact_info": map[string]interface{}{"liked_count": "1.1万"},
	}
}

// Notes builds n items with ids prefix-0..prefix-(n-1)
func Notes(prefix string, n int) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", prefix, i)
		out[i] = Note(id, "title "+id, "author")
	}
	return out
}

// Comments builds n comments with ids prefix-0..prefix-(n-1)
func Comments(prefix string, n int) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", prefix, i)
		out[i] = Comment(id, "comment "+id, "nick")
	}
	return out
}

// PostedNotes builds n grid entries
func PostedNotes(prefix string, n int) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", prefix, i)
		out[i] = PostedNote(id, "post "+id)
	}
	return out
}
