package search

import (
	"os"
	"strings"
)

// StatFunc returns file information for a path.
type StatFunc func(path string) (os.FileInfo, error)

// Matcher evaluates filesystem entries against Criteria. The zero value uses
// os.Stat for size lookups.
type Matcher struct {
	Stat StatFunc
}

// Match reports whether a file matches c. Checks run cheapest first; the file
// is only stat'ed when a size bound is set, and a failed stat is a non-match.
func (m Matcher) Match(name, path string, c Criteria) bool {
	lower := normalize(name)

	if len(c.Extensions) > 0 && !hasAnySuffix(lower, c.Extensions) {
		return false
	}

	if !containsAll(lower, c.Terms) {
		return false
	}

	if c.hasSizeBound() {
		stat := m.Stat
		if stat == nil {
			stat = os.Stat
		}
		info, err := stat(path)
		if err != nil {
			return false
		}
		size := float64(info.Size())
		if c.MinSize != nil && !(size > *c.MinSize) {
			return false
		}
		if c.MaxSize != nil && !(size < *c.MaxSize) {
			return false
		}
	}

	return true
}

// MatchFolder reports whether a folder matches c. Folders are only matched on
// terms, and never when c carries an extension or size filter.
func (m Matcher) MatchFolder(name string, c Criteria) bool {
	if c.HasFileFilter() {
		return false
	}
	return containsAll(normalize(name), c.Terms)
}

// Match reports whether a file matches c using the default Matcher.
func Match(name, path string, c Criteria) bool {
	return Matcher{}.Match(name, path, c)
}

func containsAll(s string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(s, term) {
			return false
		}
	}
	return true
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
