package usage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	CategoryOld           = "old"
	CategoryNew           = "new"
	CategoryUncategorized = "uncategorized"
)

// Category assigns input files to a tracker by file name substring
type Category struct {
	Name  string `yaml:"name"`
	Match string `yaml:"match"`
}

// DefaultCategories maps *_old* files to the old tracker and *_new* files to the new one
func DefaultCategories() []Category {
	return []Category{
		{Name: CategoryOld, Match: "_old"},
		{Name: CategoryNew, Match: "_new"},
	}
}

// Source is one input file and the tracker category it belongs to
type Source struct {
	Path     string
	Category string
}

// Name returns the file's base name without its extension
func (s Source) Name() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Discover finds the .csv files in dir whose name contains pattern.
func Discover(dir, pattern string, categories []Category) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	var sources []Source
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") || !strings.Contains(name, pattern) {
			continue
		}
		sources = append(sources, Source{
			Path:     filepath.Join(dir, name),
			Category: Categorize(name, categories),
		})
	}

	if len(sources) == 0 {
		return nil, &EmptyInputError{Dir: dir, Pattern: pattern}
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}

// Categorize returns the first category whose match string appears in name
func Categorize(name string, categories []Category) string {
	name = filepath.Base(name)
	for _, c := range categories {
		if c.Match != "" && strings.Contains(name, c.Match) {
			return c.Name
		}
	}
	return CategoryUncategorized
}
