// Package cookies loads the logged-in browser session used to call the
// platform web API.
//
// Two file layouts are accepted: a browser extension export
// (`[{"name": "a1", "value": "...", "domain": ".xiaohongshu.com"}, ...]`) and
// a flat object (`{"a1": "...", "web_session": "..."}`). The session must
// contain the device identifier cookie a1.
package cookies

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	errs "xhsclient/pkg/errors"
)

// DeviceIDCookie names the cookie that carries the persistent device id
const DeviceIDCookie = "a1"

// Entry is one cookie of a browser export. Only Name and Value are sent.
type Entry struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expirationDate,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// Jar holds the session cookies. It is safe for concurrent use.
type Jar struct {
	mu      sync.RWMutex
	values  map[string]string
	entries []Entry // non-nil when loaded from a browser export
}

// NewJar builds a jar from name/value pairs
func NewJar(values map[string]string) *Jar {
	j := &Jar{values: make(map[string]string, len(values))}
	for k, v := range values {
		j.values[k] = v
	}
	return j
}

// Load reads a cookie file and checks that it carries a device id
func Load(path string) (*Jar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.ErrorTypeCookie, 0, "cookies file not found: %s", path)
		}
		return nil, errs.Wrap(err, errs.ErrorTypeCookie, 0, "failed to read cookies file")
	}

	jar, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if jar.DeviceID() == "" {
		return nil, errs.New(errs.ErrorTypeCookie, 0, "device id (%s) not found in cookies file %s", DeviceIDCookie, path)
	}
	return jar, nil
}

// Parse decodes either supported cookie layout without validating content
func Parse(data []byte) (*Jar, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.ErrorTypeCookie, 0, "cookies file is empty")
	}

	if trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, errs.Wrap(err, errs.ErrorTypeCookie, 0, "invalid cookie list")
		}
		j := &Jar{values: make(map[string]string, len(entries)), entries: entries}
		for _, e := range entries {
			if e.Name == "" {
				continue
			}
			j.values[e.Name] = e.Value
		}
		return j, nil
	}

	var flat map[string]string
	if err := json.Unmarshal(trimmed, &flat); err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeCookie, 0, "invalid cookie object")
	}
	return NewJar(flat), nil
}

// DeviceID returns the a1 cookie value
func (j *Jar) DeviceID() string {
	return j.Get(DeviceIDCookie)
}

// Get returns a cookie value or ""
func (j *Jar) Get(name string) string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.values[name]
}

// Set adds or replaces a cookie
func (j *Jar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.values[name] = value
	for i := range j.entries {
		if j.entries[i].Name == name {
			j.entries[i].Value = value
			return
		}
	}
	if j.entries != nil {
		j.entries = append(j.entries, Entry{Name: name, Value: value})
	}
}

// Len returns the number of cookies
func (j *Jar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.values)
}

// Names returns the cookie names in sorted order
func (j *Jar) Names() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	names := make([]string, 0, len(j.values))
	for k := range j.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Header renders the jar as a Cookie header value with names sorted
func (j *Jar) Header() string {
	names := j.Names()

	j.mu.RLock()
	defer j.mu.RUnlock()

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+j.values[name])
	}
	return strings.Join(parts, "; ")
}

// Apply sets the Cookie header on req
func (j *Jar) Apply(req *http.Request) {
	if h := j.Header(); h != "" {
		req.Header.Set("Cookie", h)
	}
}

// Save writes the jar in the layout it was loaded from
func (j *Jar) Save(path string) error {
	j.mu.RLock()
	var v interface{} = j.values
	if j.entries != nil {
		v = j.entries
	}
	data, err := json.MarshalIndent(v, "", "  ")
	j.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create cookies directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookies: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}
