package discovery

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownAPI is returned when a requested API has no discovered config.
var ErrUnknownAPI = errors.New("unknown api")

// Registry maps API identifiers to config file paths.
type Registry map[string]string

// Selection is one API picked for a batch run.
type Selection struct {
	API    string
	Config string
}

// FilterExclusion drops files whose base name is in excluded, preserving order.
func FilterExclusion(files []string, excluded []string) []string {
	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[name] = struct{}{}
	}
	out := make([]string, 0, len(files))
	for _, file := range files {
		if _, ok := skip[filepath.Base(file)]; ok {
			continue
		}
		out = append(out, file)
	}
	return out
}

// NewRegistry maps each file to its API name. When two files share an API
// name the later one wins; use Duplicates to report them.
func NewRegistry(files []string) Registry {
	reg := make(Registry, len(files))
	for _, file := range files {
		reg[APIName(file)] = file
	}
	return reg
}

// Duplicates returns API names derived from more than one file, sorted.
func Duplicates(files []string) []string {
	seen := make(map[string]int, len(files))
	for _, file := range files {
		seen[APIName(file)]++
	}
	var dups []string
	for api, n := range seen {
		if n > 1 {
			dups = append(dups, api)
		}
	}
	sort.Strings(dups)
	return dups
}

// APIs returns every registered API name, sorted.
func (r Registry) APIs() []string {
	names := make([]string, 0, len(r))
	for api := range r {
		names = append(names, api)
	}
	sort.Strings(names)
	return names
}

// Select resolves apis against the registry in the given order. Any name
// missing from the registry fails the whole selection.
func (r Registry) Select(apis []string) ([]Selection, error) {
	out := make([]Selection, 0, len(apis))
	for _, api := range apis {
		path, ok := r[api]
		if !ok {
			return nil, fmt.Errorf("%w %q: no %s found", ErrUnknownAPI, api, FileName(api))
		}
		out = append(out, Selection{API: api, Config: path})
	}
	return out, nil
}

// SplitList parses a comma-separated list, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
