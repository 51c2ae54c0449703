package responselog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"xhsclient/pkg/logger"
)

// Entry is the on-disk shape of one logged response
type Entry struct {
	Timestamp int64                  `json:"timestamp"`
	APIType   string                 `json:"api_type"`
	Metadata  map[string]interface{} `json:"metadata"`
	Response  interface{}            `json:"response"`
}

// Recorder writes API responses to <dir>/<api_type>_<unix_ms>.json
type Recorder struct {
	dir     string
	enabled bool
	logger  logger.Logger
	now     func() time.Time

	mu    sync.Mutex
	count int
}

// New creates a recorder. A disabled recorder never touches the filesystem.
func New(dir string, enabled bool, log logger.Logger) (*Recorder, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	r := &Recorder{
		dir:     dir,
		enabled: enabled,
		logger:  log.WithField("component", "responselog"),
		now:     time.Now,
	}
	if !enabled {
		return r, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create response log directory: %w", err)
	}
	n, err := countExisting(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan response log directory: %w", err)
	}
	r.count = n
	return r, nil
}

// Disabled returns a recorder that drops everything
func Disabled() *Recorder {
	return &Recorder{logger: logger.NewNopLogger(), now: time.Now}
}

func countExisting(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n, nil
}

// Enabled reports whether Record writes files
func (r *Recorder) Enabled() bool {
	return r.enabled
}

// Dir returns the directory responses are written to
func (r *Recorder) Dir() string {
	return r.dir
}

// Count returns the number of log files in the directory, including those
// present before the recorder was created.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Record writes one response and returns the file path, or "" when disabled.
// Two records of the same type in the same millisecond get consecutive
// timestamps rather than overwriting each other.
func (r *Recorder) Record(apiType string, response interface{}, metadata map[string]interface{}) (string, error) {
	if !r.enabled {
		return "", nil
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().UnixMilli()
	path := r.pathFor(apiType, ts)
	for exists(path) {
		ts++
		path = r.pathFor(apiType, ts)
	}

	entry := Entry{
		Timestamp: ts,
		APIType:   apiType,
		Metadata:  metadata,
		Response:  response,
	}
	if err := Save(entry, path); err != nil {
		r.logger.WithError(err).WarnWithFields("failed to log response", map[string]interface{}{
			"api_type": apiType,
		})
		return "", err
	}

	r.count++
	r.logger.DebugWithFields("response logged", map[string]interface{}{
		"api_type": apiType,
		"path":     path,
	})
	return path, nil
}

func (r *Recorder) pathFor(apiType string, ts int64) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%d.json", sanitize(apiType), ts))
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "response"
	}
	return name
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Save writes v as indented JSON through a temp file and rename. HTML
// characters and non-ASCII text are written as-is.
func Save(v interface{}, path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
