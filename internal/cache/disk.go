package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/codecheck/internal/analysis"
)

const entryExt = ".msgpack"

// record is the on-disk form of a cached entry.
type record struct {
	Fingerprint string         `msgpack:"fp"`
	Entry       analysis.Entry `msgpack:"entry"`
	CreatedAt   time.Time      `msgpack:"created"`
	TTL         int            `msgpack:"ttl"`
}

// Disk persists entries across processes, one msgpack file per fingerprint.
type Disk struct {
	dir        string
	ttlSeconds int
	enabled    bool
}

// NewDisk creates a disk store. If dir is empty, uses the default cache
// directory. A ttlSeconds of 0 never expires entries.
func NewDisk(enabled bool, dir string, ttlSeconds int) (*Disk, error) {
	if !enabled {
		return &Disk{enabled: false}, nil
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Disk{
		dir:        dir,
		ttlSeconds: ttlSeconds,
		enabled:    true,
	}, nil
}

// Get retrieves a cached entry. Expired or unreadable files are misses.
func (d *Disk) Get(fingerprint string) (analysis.Entry, bool) {
	if !d.enabled {
		return analysis.Entry{}, false
	}
	path := d.entryPath(fingerprint)
	rec, err := readRecord(path)
	if err != nil || rec.Fingerprint != fingerprint {
		return analysis.Entry{}, false
	}
	if d.expired(rec) {
		os.Remove(path)
		return analysis.Entry{}, false
	}
	return rec.Entry, true
}

// Put stores an entry.
func (d *Disk) Put(fingerprint string, entry analysis.Entry) error {
	if !d.enabled {
		return nil
	}
	data, err := msgpack.Marshal(record{
		Fingerprint: fingerprint,
		Entry:       entry,
		CreatedAt:   time.Now(),
		TTL:         d.ttlSeconds,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	path := d.entryPath(fingerprint)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// Clear removes all cache entries.
func (d *Disk) Clear() error {
	if !d.enabled || d.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if isEntryFile(e.Name()) {
			if err := os.Remove(filepath.Join(d.dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

// Prune removes expired entries and unreadable files left by interrupted
// writes, returning how many files were removed. Live entries are kept.
func (d *Disk) Prune() (int, error) {
	if !d.enabled || d.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if !isEntryFile(e.Name()) || e.IsDir() {
			continue
		}
		path := filepath.Join(d.dir, e.Name())
		if filepath.Ext(e.Name()) == entryExt {
			if rec, err := readRecord(path); err == nil && !d.expired(rec) {
				continue
			}
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Stats describes the disk store.
type Stats struct {
	Dir        string `json:"dir" yaml:"dir"`
	Entries    int    `json:"entries" yaml:"entries"`
	TotalBytes int64  `json:"totalBytes" yaml:"totalBytes"`
	Expired    int    `json:"expired" yaml:"expired"`
}

// GetStats returns information about the cache.
func (d *Disk) GetStats() (Stats, error) {
	stats := Stats{Dir: d.dir}
	if !d.enabled || d.dir == "" {
		return stats, nil
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != entryExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()

		rec, err := readRecord(filepath.Join(d.dir, e.Name()))
		if err != nil {
			continue
		}
		if d.expired(rec) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (d *Disk) Dir() string {
	return d.dir
}

// Enabled returns whether the disk layer is active.
func (d *Disk) Enabled() bool {
	return d.enabled
}

// isEntryFile matches cache entries and temp files left by an interrupted Put.
func isEntryFile(name string) bool {
	return strings.HasSuffix(name, entryExt) || strings.HasSuffix(name, entryExt+".tmp")
}

func (d *Disk) expired(rec record) bool {
	return d.ttlSeconds > 0 && time.Since(rec.CreatedAt) > time.Duration(d.ttlSeconds)*time.Second
}

func (d *Disk) entryPath(fingerprint string) string {
	return filepath.Join(d.dir, analysis.HashKey(fingerprint)+entryExt)
}

func readRecord(path string) (record, error) {
	var rec record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// DefaultDir returns the OS-appropriate cache directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "codecheck"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "codecheck"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "codecheck", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "codecheck", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "codecheck"), nil
	}
}
