// Package corpus discovers the reference recordings clips are cut from.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"github.com/himanishpuri/dnabench/pkg/models"
)

// NormalizeExt returns ext lowercased with a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// SongID derives a song identifier from a file path: the base name without
// its extension.
func SongID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Scan walks src recursively and returns every regular file whose extension
// matches ext, sorted by path. Directories listed in skip (other than src
// itself) are not descended into. The whole listing is built before returning.
func Scan(src, ext string, skip ...string) ([]models.CorpusEntry, error) {
	want := NormalizeExt(ext)
	if want == "" {
		return nil, fmt.Errorf("empty extension")
	}
	root := absPath(src)
	pruned := make(map[string]bool, len(skip))
	for _, dir := range skip {
		if dir != "" {
			pruned[absPath(dir)] = true
		}
	}

	var entries []models.CorpusEntry
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs := absPath(path); abs != root && pruned[abs] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fileExt := filepath.Ext(path)
		if !strings.EqualFold(fileExt, want) {
			return nil
		}
		entries = append(entries, models.CorpusEntry{
			SongID: SongID(path),
			Path:   path,
			Ext:    fileExt,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", src, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// List scans src once for each extension, in order, and reads the embedded
// tags of every entry. Duplicate extensions are listed once.
func List(src string, exts []string, skip ...string) ([]models.CorpusEntry, error) {
	var all []models.CorpusEntry
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		norm := NormalizeExt(ext)
		if seen[norm] {
			continue
		}
		seen[norm] = true

		entries, err := Scan(src, ext, skip...)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	for i := range all {
		ReadTags(&all[i])
	}
	return all, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// ReadTags fills Title and Artist from the file's embedded tags. Files
// without readable tags are left untouched.
func ReadTags(entry *models.CorpusEntry) {
	f, err := os.Open(entry.Path)
	if err != nil {
		return
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return
	}
	entry.Title = strings.TrimSpace(meta.Title())
	entry.Artist = strings.TrimSpace(meta.Artist())
}

// Label is the human-facing name of an entry: "Artist - Title" when tags are
// present, the song ID otherwise.
func Label(entry models.CorpusEntry) string {
	switch {
	case entry.Title != "" && entry.Artist != "":
		return entry.Artist + " - " + entry.Title
	case entry.Title != "":
		return entry.Title
	default:
		return entry.SongID
	}
}
