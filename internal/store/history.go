package store

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/models"
)

// MaxHistoryEntries is how many downloads the history keeps
const MaxHistoryEntries = 100

// History is the list of completed downloads, oldest first
type History struct {
	mu   sync.Mutex
	path string
}

// NewHistory creates a History stored in <dir>/history.json
func NewHistory(dir string) *History {
	return &History{path: filepath.Join(dir, historyFile)}
}

// Path returns the backing file
func (h *History) Path() string {
	return h.path
}

// List returns every entry, oldest first. A corrupt file reads as empty.
func (h *History) List() ([]models.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Add appends entry and drops the oldest entries beyond MaxHistoryEntries
func (h *History) Add(entry models.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if len(entries) > MaxHistoryEntries {
		entries = entries[len(entries)-MaxHistoryEntries:]
	}
	return writeJSON(h.path, entries)
}

// Clear removes every entry
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return writeJSON(h.path, []models.HistoryEntry{})
}

func (h *History) load() ([]models.HistoryEntry, error) {
	entries := []models.HistoryEntry{}
	if err := readJSON(h.path, &entries); err != nil {
		if !errors.Is(err, errCorrupt) {
			return nil, err
		}
		logger := config.GetLogger()
		logger.Warn().Err(err).Str("path", h.path).Msg("Ignoring unreadable download history")
		return []models.HistoryEntry{}, nil
	}
	return entries, nil
}
