// Package screenshot persists PNG captures under timestamped names.
package screenshot

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/kornev-zhora/anti-detect-browsing/internal/config"
)

const timestampLayout = "2006-01-02_15-04-05"

// Sink writes screenshots to a directory on an afero filesystem.
type Sink struct {
	fs     afero.Fs
	root   string
	dir    string
	prefix string
	now    func() time.Time
}

// New creates a Sink writing into dir on fs. root is only used to report the
// resolved path of saved files.
func New(fs afero.Fs, root, dir, prefix string) *Sink {
	return &Sink{fs: fs, root: root, dir: dir, prefix: prefix, now: time.Now}
}

// FromConfig opens the disk named in c, rooted at storageRoot.
func FromConfig(storageRoot string, c config.ScreenshotConfig) (*Sink, error) {
	var fs afero.Fs
	switch c.Disk {
	case config.DiskLocal, "":
		fs = afero.NewBasePathFs(afero.NewOsFs(), storageRoot)
	case config.DiskMemory:
		fs = afero.NewMemMapFs()
	default:
		return nil, fmt.Errorf("unknown screenshot disk %q", c.Disk)
	}
	return New(fs, storageRoot, c.Path, c.Prefix), nil
}

// Filename returns the file name a step captured at t is stored under.
func (s *Sink) Filename(step string, t time.Time) string {
	name := t.Format(timestampLayout) + "_" + step + ".png"
	if s.prefix != "" {
		name = s.prefix + "_" + name
	}
	return name
}

// Save writes png for the given step and returns the resolved full path.
func (s *Sink) Save(step string, png []byte) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	rel := filepath.Join(s.dir, s.Filename(step, s.now()))
	if err := afero.WriteFile(s.fs, rel, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	return filepath.Join(s.root, rel), nil
}
