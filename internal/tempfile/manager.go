// Package tempfile owns the lifecycle of decrypted plaintext files. Every file
// it hands out is removed exactly once: by its consumer, by a fallback timer,
// or by the orphan sweeper.
package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vesflix/internal/metrics"
)

const (
	// Suffix marks files owned by the manager; the sweeper only touches these.
	Suffix = ".dec.mp4"

	DefaultFallback = 2 * time.Hour
)

// Release triggers.
const (
	TriggerComplete = "complete"
	TriggerError    = "error"
	TriggerAbort    = "abort"
	TriggerFallback = "fallback"
	TriggerSweep    = "sweep"
)

type Manager struct {
	dir      string
	fallback time.Duration
	logger   zerolog.Logger
	active   atomic.Int64
	now      func() time.Time
}

// NewManager prepares dir (mode 0700, plaintext lives there) and returns a
// manager whose files are force-removed after fallback if never released.
func NewManager(dir string, fallback time.Duration, logger zerolog.Logger) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "vesflix")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create temp dir %s: %w", dir, err)
	}
	if fallback <= 0 {
		fallback = DefaultFallback
	}
	return &Manager{
		dir:      dir,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Dir returns the directory holding plaintext files.
func (m *Manager) Dir() string {
	return m.dir
}

// Active returns the number of files created and not yet released.
func (m *Manager) Active() int64 {
	return m.active.Load()
}

// Create opens a new empty plaintext file for videoID. The name combines the
// video id, the request timestamp and a random suffix so concurrent requests
// for one video never collide.
func (m *Manager) Create(videoID string) (*File, error) {
	name := fmt.Sprintf("%s_%d_%s%s",
		sanitize(videoID), m.now().UnixNano(), uuid.NewString()[:8], Suffix)
	path := filepath.Join(m.dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	tf := &File{
		File:    f,
		path:    path,
		manager: m,
	}
	tf.timer = time.AfterFunc(m.fallback, func() {
		if tf.release(TriggerFallback) {
			m.logger.Warn().Str("temp_path", path).Msg("temp file removed by fallback timer")
		}
	})

	m.active.Add(1)
	metrics.TempFilesActive.Inc()
	return tf, nil
}

// File is one decrypted plaintext file. The embedded *os.File is valid until
// Release.
type File struct {
	*os.File
	path    string
	manager *Manager
	timer   *time.Timer

	once     sync.Once
	released atomic.Bool
}

// Path returns the on-disk location.
func (f *File) Path() string {
	return f.path
}

// Size returns the current file size.
func (f *File) Size() (int64, error) {
	info, err := f.File.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Released reports whether the file has been removed.
func (f *File) Released() bool {
	return f.released.Load()
}

// Release closes and deletes the file. Safe to call any number of times from
// any goroutine; only the first call acts.
func (f *File) Release(trigger string) {
	f.release(trigger)
}

func (f *File) release(trigger string) bool {
	acted := false
	f.once.Do(func() {
		acted = true
		f.released.Store(true)
		f.timer.Stop()
		_ = f.File.Close()
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			f.manager.logger.Error().Err(err).Str("temp_path", f.path).Msg("failed to remove temp file")
		}
		f.manager.active.Add(-1)
		metrics.TempFilesActive.Dec()
		metrics.IncTempFileRemoved(trigger)
	})
	return acted
}

// sanitize keeps video ids safe for use in a file name.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= 64 {
			break
		}
	}
	if b.Len() == 0 {
		return "video"
	}
	return b.String()
}
