package services

import (
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
)

// freeBytes reports the space available to unprivileged users on the volume holding path
func freeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// ensureFreeSpace fails with ErrInsufficientSpace when the output volume is below min.
// A volume whose size cannot be read is not treated as full.
func (d *DefaultDownloader) ensureFreeSpace(dir string) error {
	if d.opts.MinFreeBytes == 0 {
		return nil
	}
	free, err := d.freeSpace(dir)
	if err != nil {
		d.logger.Warn().Err(err).Str("dir", dir).Msg("Could not read free disk space")
		return nil
	}
	if free < d.opts.MinFreeBytes {
		return apperrors.NewInsufficientSpaceError(dir, free, d.opts.MinFreeBytes)
	}
	return nil
}
