package process

import (
	psprocess "github.com/shirou/gopsutil/v3/process"
)

// killTree kills pid and every descendant, children first, so that ffmpeg
// processes spawned by yt-dlp do not outlive a cancelled download.
func killTree(pid int) error {
	p, err := psprocess.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return killProcess(p)
}

func killProcess(p *psprocess.Process) error {
	// ErrorNoChildren and lookup failures both leave nothing to recurse into.
	children, _ := p.Children()
	for _, child := range children {
		_ = killProcess(child)
	}
	return p.Kill()
}
