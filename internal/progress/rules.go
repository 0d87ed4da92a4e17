package progress

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Belphemur/TubeMP3/internal/models"
)

// The fetcher's diagnostic output is not a stable interface. Every pattern
// that depends on its wording lives in this file.

// epsilon is the smallest percentage change worth reporting
const epsilon = 0.1

// convertingWatermark is the item fraction reported once audio extraction starts
const convertingWatermark = 95.0

// nearComplete is the item fraction above which an item counts as finished
// when the next item starts without an explicit completion line
const nearComplete = 99.0

var (
	percentPattern     = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	postProcessPattern = regexp.MustCompile(`^\[(?:ExtractAudio|Merger)\]`)
	itemStartPattern   = regexp.MustCompile(`^\[download\] Downloading (?:item|video) \d+ of \d+|^\[[\w:.-]+\] [\w-]+: Downloading webpage`)
	movePattern        = regexp.MustCompile(`^\[MoveFiles\]`)
	destinationPattern = regexp.MustCompile(`Destination:\s+(.+)$`)
)

const (
	alreadyDownloadedMarker = "has already been downloaded"
	deletingOriginalMarker  = "Deleting original file"
)

// rule is one (predicate, transition) pair. apply reports whether externally
// visible state changed.
type rule struct {
	name  string
	match func(line string) bool
	apply func(m *Machine, line string) bool
}

// rules are evaluated in order, the first match wins
var rules = []rule{
	{name: "percent", match: percentPattern.MatchString, apply: applyPercent},
	{name: "post-process", match: isPostProcess, apply: applyPostProcess},
	{name: "item-start", match: itemStartPattern.MatchString, apply: applyItemStart},
	{name: "item-done", match: isItemDone, apply: applyItemDone},
}

func applyPercent(m *Machine, line string) bool {
	match := percentPattern.FindStringSubmatch(line)
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return false
	}
	value = clamp(value)
	if m.phase == models.PhaseDownloading && abs(value-m.item) <= epsilon {
		return false
	}
	m.item = value
	m.phase = models.PhaseDownloading
	return true
}

func isPostProcess(line string) bool {
	return postProcessPattern.MatchString(line) && !strings.Contains(line, deletingOriginalMarker)
}

func applyPostProcess(m *Machine, _ string) bool {
	changed := m.phase != models.PhaseConverting
	m.phase = models.PhaseConverting
	if m.item < convertingWatermark {
		m.item = convertingWatermark
		changed = true
	}
	return changed
}

// applyItemStart resets the item to Preparing. Unlike a plain reset on every
// match, the title is cleared only when the item index advances: yt-dlp prints
// "Downloading webpage" again for retries and format probes of the same item,
// and the title captured from Destination must survive those.
func applyItemStart(m *Machine, _ string) bool {
	advanced := false
	if m.current == 0 {
		m.current = 1
		advanced = true
	}
	if m.item >= nearComplete {
		m.closeItem()
		m.current++
		m.counted = false
		m.title = ""
		advanced = true
	}
	changed := advanced || m.item != 0 || m.phase != models.PhasePreparing
	m.item = 0
	m.phase = models.PhasePreparing
	return changed
}

func isItemDone(line string) bool {
	return strings.Contains(line, alreadyDownloadedMarker) ||
		strings.Contains(line, deletingOriginalMarker) ||
		movePattern.MatchString(line)
}

func applyItemDone(m *Machine, line string) bool {
	if m.item >= 100 {
		return false
	}
	m.item = 100
	m.closeItem()
	if strings.Contains(line, alreadyDownloadedMarker) {
		m.phase = models.PhaseSkipped
	} else {
		m.phase = models.PhaseComplete
	}
	return true
}

// titleFromLine extracts the file stem of a "Destination:" marker
func titleFromLine(line string) (string, bool) {
	match := destinationPattern.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	path := strings.TrimSpace(match[1])
	// Windows paths arrive unchanged on every platform.
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	if stem == "" {
		return "", false
	}
	return stem, true
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
