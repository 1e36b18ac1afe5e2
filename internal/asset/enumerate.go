package asset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source describes where a set of assets comes from.
type Source struct {
	Dir  string
	Kind Kind
	// Files lists filenames relative to Dir. When empty Dir is walked.
	Files     []string
	Recursive bool
	// Ignore holds base names skipped during a walk, compared case-insensitively.
	Ignore []string
}

func (s Source) ignored(name string) bool {
	for _, ig := range s.Ignore {
		if strings.EqualFold(ig, name) {
			return true
		}
	}
	return false
}

// Enumerate lists the assets of a source sorted by path. Explicitly listed
// files must exist; a walked directory that does not exist yields no assets.
func Enumerate(src Source) ([]Asset, error) {
	if len(src.Files) > 0 {
		return enumerateFiles(src)
	}
	return enumerateDir(src)
}

func enumerateFiles(src Source) ([]Asset, error) {
	assets := make([]Asset, 0, len(src.Files))
	for _, f := range src.Files {
		path := filepath.Join(src.Dir, filepath.FromSlash(f))
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("source asset %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("source asset %s is a directory", path)
		}
		assets = append(assets, Asset{Path: path, Name: info.Name(), Kind: src.Kind, ModTime: info.ModTime()})
	}
	return assets, nil
}

func enumerateDir(src Source) ([]Asset, error) {
	if _, err := os.Stat(src.Dir); os.IsNotExist(err) {
		return nil, nil
	}
	var assets []Asset
	err := filepath.WalkDir(src.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != src.Dir && !src.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if src.ignored(d.Name()) || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		assets = append(assets, Asset{Path: path, Name: d.Name(), Kind: src.Kind, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", src.Dir, err)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	return assets, nil
}
