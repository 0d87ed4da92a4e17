package store

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/models"
)

// Preferences stores the user's remembered choices
type Preferences struct {
	mu   sync.Mutex
	path string
}

// NewPreferences creates a Preferences store in <dir>/preferences.json
func NewPreferences(dir string) *Preferences {
	return &Preferences{path: filepath.Join(dir, preferencesFile)}
}

// Path returns the backing file
func (p *Preferences) Path() string {
	return p.path
}

// Get returns the saved preferences, all nil when none were saved
func (p *Preferences) Get() (models.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

// Save merges the non-nil fields of update into the stored preferences and returns the result
func (p *Preferences) Save(update models.Preferences) (models.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.load()
	if err != nil {
		return models.Preferences{}, err
	}
	if update.OutputDir != nil {
		current.OutputDir = update.OutputDir
	}
	if update.BitrateKbps != nil {
		current.BitrateKbps = update.BitrateKbps
	}
	if update.LastURL != nil {
		current.LastURL = update.LastURL
	}
	if err := writeJSON(p.path, current); err != nil {
		return models.Preferences{}, err
	}
	return current, nil
}

func (p *Preferences) load() (models.Preferences, error) {
	var prefs models.Preferences
	if err := readJSON(p.path, &prefs); err != nil {
		if !errors.Is(err, errCorrupt) {
			return models.Preferences{}, err
		}
		logger := config.GetLogger()
		logger.Warn().Err(err).Str("path", p.path).Msg("Ignoring unreadable preferences")
		return models.Preferences{}, nil
	}
	return prefs, nil
}
