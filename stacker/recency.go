package stacker

import (
	"fmt"
	"sort"
)

// MostRecent returns the subset of paths whose publication timestamp is the
// lexicographic maximum of the set. The stamp format is fixed-width and
// zero-padded, so string comparison is chronological comparison. Files with
// identical stamps are all returned; ties are not broken arbitrarily.
func MostRecent(paths []string) ([]string, error) {
	var max string
	for _, p := range paths {
		if stamp := ParseFileName(p).Stamp; stamp > max {
			max = stamp
		}
	}
	if max == "" {
		return nil, fmt.Errorf("selecting most recent of %d files: %w", len(paths), ErrUnresolvableRecency)
	}
	var recent []string
	for _, p := range paths {
		if ParseFileName(p).Stamp == max {
			recent = append(recent, p)
		}
	}
	return recent, nil
}

// mostRecentOne is MostRecent narrowed to a single file, for dedup keys
// where exactly one publication is authoritative.
func mostRecentOne(paths []string) (string, error) {
	recent, err := MostRecent(paths)
	if err != nil {
		return "", err
	}
	return recent[0], nil
}

// LabNames returns the unique laboratory identifiers referenced by a set of
// lab-published file paths, sorted for deterministic iteration.
func LabNames(paths []string) []string {
	seen := make(map[string]struct{})
	for _, p := range paths {
		if lab := ParseFileName(p).LabName(); lab != "" {
			seen[lab] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Sites returns the unique 4-letter site codes referenced by a set of file
// paths, sorted for deterministic iteration.
func Sites(paths []string) []string {
	seen := make(map[string]struct{})
	for _, p := range paths {
		if site := ParseFileName(p).Site; site != "" {
			seen[site] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
