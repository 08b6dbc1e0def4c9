package tle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache keeps the last few fetched records per key on disk, msgpack-encoded, so a
// restart can serve last-good elements before the catalog answers.
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache creates a Cache that stores files in dir and keeps at most maxFiles per key.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 3
	}
	return &Cache{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Write saves rec to a file named after its key and fetch time, then prunes old files
// for that key.
func (c *Cache) Write(rec *Record) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.Key, err)
	}

	name := fmt.Sprintf("tle_%s_%d.msgpack", rec.Key, rec.FetchedAt.Unix())
	// Write-then-rename so a reader never sees a partial file.
	tmp := filepath.Join(c.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(c.dir, name)); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}

	return c.prune(rec.Key)
}

// LoadLatest returns the newest cached record for key.
func (c *Cache) LoadLatest(key string) (*Record, error) {
	files, err := c.listFiles(key)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no cache files for %s", key)
	}

	// Sorted oldest first.
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding cache file %s: %w", latest.name, err)
	}
	if rec.Key != key {
		return nil, fmt.Errorf("cache file %s holds key %q", latest.name, rec.Key)
	}
	return &rec, nil
}

type cacheFile struct {
	name string
	unix int64
}

func (c *Cache) listFiles(key string) ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	prefix := "tle_" + key + "_"
	var files []cacheFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".msgpack") {
			continue
		}
		ts := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".msgpack")
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, unix: unix})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].unix < files[j].unix
	})
	return files, nil
}

func (c *Cache) prune(key string) error {
	files, err := c.listFiles(key)
	if err != nil {
		return err
	}
	if len(files) <= c.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil {
			return fmt.Errorf("pruning cache file %s: %w", f.name, err)
		}
	}
	return nil
}
