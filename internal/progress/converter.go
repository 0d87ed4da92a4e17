package progress

import (
	"regexp"
	"strconv"
)

var (
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	timePattern     = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// ConverterParser derives a percentage from ffmpeg's "Duration:" header and
// its periodic "time=" status lines.
type ConverterParser struct {
	duration float64
	last     float64
}

// Duration returns the input duration in seconds, 0 until the header was seen
func (p *ConverterParser) Duration() float64 {
	return p.duration
}

// Feed returns the new percentage when line advances the conversion
func (p *ConverterParser) Feed(line string) (float64, bool) {
	if p.duration == 0 {
		if m := durationPattern.FindStringSubmatch(line); m != nil {
			p.duration = toSeconds(m[1:])
			return 0, false
		}
	}
	m := timePattern.FindStringSubmatch(line)
	if m == nil || p.duration <= 0 {
		return 0, false
	}
	pct := clamp(toSeconds(m[1:]) / p.duration * 100)
	if pct-p.last <= epsilon {
		return 0, false
	}
	p.last = pct
	return pct, true
}

func toSeconds(parts []string) float64 {
	h, _ := strconv.ParseFloat(parts[0], 64)
	mins, _ := strconv.ParseFloat(parts[1], 64)
	sec, _ := strconv.ParseFloat(parts[2], 64)
	return h*3600 + mins*60 + sec
}
