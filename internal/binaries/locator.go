package binaries

import (
	"path/filepath"

	"github.com/Belphemur/TubeMP3/internal/models"
)

// packagedSuffixes are the compressed or archived forms a resource may ship in,
// tried in order after the plain executable.
var packagedSuffixes = []string{".zst", ".gz", ".br", ".zip", ".rar"}

// Locator maps tools to their packaged-resource and per-user cache paths.
// It has no side effects.
type Locator struct {
	resourceRoot string
	dataDir      string
	target       models.Target
}

// NewLocator creates a Locator for the host platform
func NewLocator(resourceRoot, dataDir string) *Locator {
	return NewLocatorForTarget(resourceRoot, dataDir, models.HostTarget())
}

// NewLocatorForTarget creates a Locator for an explicit platform/architecture
func NewLocatorForTarget(resourceRoot, dataDir string, target models.Target) *Locator {
	return &Locator{
		resourceRoot: resourceRoot,
		dataDir:      dataDir,
		target:       target,
	}
}

// Target returns the platform/architecture the locator resolves for
func (l *Locator) Target() models.Target {
	return l.target
}

// ResourcePath returns <resource-root>/binaries/<platform>/<arch>/<tool>[.exe]
func (l *Locator) ResourcePath(tool models.Tool) string {
	return filepath.Join(l.resourceRoot, "binaries", l.target.Platform, l.target.Arch, l.target.ExecutableName(tool))
}

// ResourceCandidates lists every path the tool may be packaged under, plain file first
func (l *Locator) ResourceCandidates(tool models.Tool) []string {
	base := l.ResourcePath(tool)
	candidates := make([]string, 0, len(packagedSuffixes)+1)
	candidates = append(candidates, base)
	for _, suffix := range packagedSuffixes {
		candidates = append(candidates, base+suffix)
	}
	return candidates
}

// CacheDir returns <data-dir>/bin
func (l *Locator) CacheDir() string {
	return filepath.Join(l.dataDir, "bin")
}

// CachePath returns <data-dir>/bin/<tool>[.exe]
func (l *Locator) CachePath(tool models.Tool) string {
	return filepath.Join(l.CacheDir(), l.target.ExecutableName(tool))
}
