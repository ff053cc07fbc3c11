package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Prefix and Suffix bracket the API identifier in a config file name:
	// artman_<api>.yaml.
	Prefix = "artman_"
	Suffix = ".yaml"
)

// Pattern is the file name glob every artman config matches.
const Pattern = Prefix + "*" + Suffix

// Scan walks root recursively and returns every file matching Pattern in
// traversal order. A missing root yields no files and no error; unreadable
// subdirectories are skipped.
func Scan(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(Pattern, d.Name()); ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}

// APIName derives the API identifier from a config path.
func APIName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimPrefix(base, Prefix), Suffix)
}

// FileName is the inverse of APIName for a bare base name.
func FileName(api string) string {
	return Prefix + api + Suffix
}
