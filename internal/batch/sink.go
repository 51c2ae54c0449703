package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"xhsclient/pkg/responselog"
	"xhsclient/pkg/xhs"
)

const commentsSuffix = "_comments.json"

// DirSink stores each note's comments as <dir>/<note id>_comments.json
type DirSink struct {
	dir   string
	mu    sync.RWMutex
	saved map[string]bool
}

// NewDirSink creates dir if needed and indexes the comment files already in it
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	s := &DirSink{dir: dir, saved: make(map[string]bool)}
	if err := s.scanExisting(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return s, nil
}

func (s *DirSink) scanExisting() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasSuffix(name, commentsSuffix) {
			s.saved[strings.TrimSuffix(name, commentsSuffix)] = true
		}
	}
	return nil
}

func safeName(noteID string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(noteID)
}

// Path returns where a note's comments are written
func (s *DirSink) Path(noteID string) string {
	return filepath.Join(s.dir, safeName(noteID)+commentsSuffix)
}

func (s *DirSink) Done(noteID string) bool {
	s.mu.RLock()
	done := s.saved[safeName(noteID)]
	s.mu.RUnlock()
	if done {
		return true
	}

	// another process may have written it since the scan
	if _, err := os.Stat(s.Path(noteID)); err == nil {
		s.mu.Lock()
		s.saved[safeName(noteID)] = true
		s.mu.Unlock()
		return true
	}
	return false
}

func (s *DirSink) Save(noteID string, comments []xhs.Comment) error {
	if comments == nil {
		comments = []xhs.Comment{}
	}
	err := responselog.Save(map[string]interface{}{
		"note_id":  noteID,
		"count":    len(comments),
		"comments": comments,
	}, s.Path(noteID))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.saved[safeName(noteID)] = true
	s.mu.Unlock()
	return nil
}

// Count returns the number of notes with saved comments
func (s *DirSink) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.saved)
}
