package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"vesflix/internal/metrics"
)

// Sweep removes plaintext files older than maxAge. It catches files a crashed
// process left behind; files of the running process are normally released
// long before maxAge.
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read temp dir: %w", err)
	}

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Suffix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				m.logger.Warn().Err(err).Str("temp_path", path).Msg("sweep failed to remove temp file")
			}
			continue
		}
		removed++
		metrics.IncTempFileRemoved(TriggerSweep)
	}

	if removed > 0 {
		m.logger.Info().Int("removed", removed).Msg("swept orphaned temp files")
	}
	return removed, nil
}

// StartSweeper sweeps once immediately, then on schedule (standard cron spec
// or descriptors such as "@every 10m"). The returned func stops the schedule.
func (m *Manager) StartSweeper(schedule string, maxAge time.Duration) (func(), error) {
	if _, err := m.Sweep(maxAge); err != nil {
		m.logger.Warn().Err(err).Msg("initial temp sweep failed")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := m.Sweep(maxAge); err != nil {
			m.logger.Warn().Err(err).Msg("temp sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()

	return func() {
		<-c.Stop().Done()
	}, nil
}
