package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"xhsclient/pkg/logger"
)

const (
	appName        = "xhsclient"
	currentVersion = 1
)

// Checkpoint is the resume point of one paginated stream such as
// "search:咖啡" or "comments:<note id>"
type Checkpoint struct {
	Stream string `json:"stream"`
	// Page is the last page fully collected
	Page int `json:"page"`
	// Cursor continues cursor-paginated streams after Page
	Cursor string `json:"cursor"`
	// SearchID keeps a search session alive across runs
	SearchID  string    `json:"search_id,omitempty"`
	Collected int       `json:"collected"`
	Target    int       `json:"target"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// NextPage is the page number a resumed search should request
func (c *Checkpoint) NextPage() int {
	return c.Page + 1
}

// Manager reads and writes the checkpoint of a single stream
type Manager struct {
	stream         string
	checkpointPath string
	logger         logger.Logger
	mu             sync.Mutex
}

// NewManager creates a manager storing its file under the user data
// directory
func NewManager(stream string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerInDir(filepath.Join(dataDir, "checkpoints"), stream)
}

// NewManagerInDir creates a manager storing its file in dir
func NewManagerInDir(dir, stream string) (*Manager, error) {
	if stream == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		stream:         stream,
		checkpointPath: filepath.Join(dir, fileName(stream)),
		logger:         logger.GetLogger().WithField("stream", stream),
	}, nil
}

// fileName escapes the stream so keywords with separators or non-ASCII text
// map to distinct, portable names
func fileName(stream string) string {
	return url.QueryEscape(stream) + ".checkpoint.json"
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create starts a fresh checkpoint, replacing any existing one
func (m *Manager) Create(target int) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		Stream:    m.stream,
		Target:    target,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   currentVersion,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"path":   m.checkpointPath,
		"target": target,
	})
	return cp, nil
}

// Load reads the checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Stream != m.stream {
		return nil, fmt.Errorf("checkpoint belongs to stream %q, not %q", cp.Stream, m.stream)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"page":       cp.Page,
		"cursor":     cp.Cursor,
		"collected":  cp.Collected,
		"updated_at": cp.UpdatedAt,
	})
	return &cp, nil
}

// Save writes the checkpoint atomically
func (m *Manager) Save(cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"page":      cp.Page,
		"cursor":    cp.Cursor,
		"collected": cp.Collected,
	})
	return nil
}

// Update records a collected page
func (m *Manager) Update(cp *Checkpoint, page int, cursor string, collected int, done bool) error {
	cp.Page = page
	cp.Cursor = cursor
	cp.Collected = collected
	cp.Done = done
	return m.Save(cp)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Info returns a summary of the checkpoint, or nil when none exists
func (m *Manager) Info() (map[string]interface{}, error) {
	cp, err := m.Load()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"stream":     cp.Stream,
		"page":       cp.Page,
		"cursor":     cp.Cursor,
		"collected":  cp.Collected,
		"target":     cp.Target,
		"done":       cp.Done,
		"created_at": cp.CreatedAt,
		"updated_at": cp.UpdatedAt,
		"age":        time.Since(cp.UpdatedAt),
	}, nil
}

// Backup copies the checkpoint next to itself with a .backup suffix
func (m *Manager) Backup() error {
	if !m.Exists() {
		return nil
	}

	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(m.checkpointPath + ".backup")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}

	m.logger.Debug("Checkpoint backed up")
	return nil
}

// getDataDirectory returns the per-user data directory for this OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, appName)
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, appName)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", appName)
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
