package stacker

import (
	"sort"
	"strings"
)

// TableType is the file-republication policy of one logical table, inferred
// from the shape of its member file names.
type TableType int

const (
	// TypeSiteDate tables publish one file per site per month; files are
	// disjoint in time and all of them are stacked.
	TypeSiteDate TableType = iota
	// TypeSiteAll tables republish one file per site in full; only the most
	// recent publication per site is valid.
	TypeSiteAll
	// TypeLab tables republish one file per originating laboratory in full;
	// only the most recent publication per lab is valid.
	TypeLab
)

func (t TableType) String() string {
	switch t {
	case TypeSiteDate:
		return "site-date"
	case TypeSiteAll:
		return "site-all"
	case TypeLab:
		return "lab"
	}
	return "unknown"
}

// tableTypeFormat classifies one file name shape: lab files carry too few
// dot fields to name a site-month, site-date files carry a YYYY-MM token.
func tableTypeFormat(fn FileName) TableType {
	if len(fn.Fields) <= 6 {
		return TypeLab
	}
	if fn.Month != "" {
		return TypeSiteDate
	}
	return TypeSiteAll
}

// FindTableTypes groups file names into logical tables and classifies each
// table's republication policy. sensor_positions and science_review_flags
// are always site-all and site-date respectively, regardless of shape.
//
// Tables whose member files disagree on policy are omitted from the result
// and reported through an *AmbiguousScheduleError; the remaining tables are
// still returned so the caller can stack what is unambiguous.
func FindTableTypes(names []string) (map[string]TableType, error) {
	parsed := make([]FileName, 0, len(names))
	tables := make(map[string]struct{})
	for _, n := range names {
		fn := ParseFileName(n)
		parsed = append(parsed, fn)
		for _, tok := range fn.TableTokens() {
			tables[tok] = struct{}{}
		}
	}

	types := make(map[string]TableType)
	var ambiguous []string
	for table := range tables {
		seen := make(map[TableType]struct{})
		var tt TableType
		for _, fn := range parsed {
			if !fn.HasTable(table) {
				continue
			}
			tt = tableTypeFormat(fn)
			seen[tt] = struct{}{}
		}
		if len(seen) > 1 {
			ambiguous = append(ambiguous, table)
			continue
		}
		types[table] = tt
	}

	// well-known exceptions to the shape inference
	for _, fn := range parsed {
		if strings.Contains(fn.Base, "sensor_positions") {
			types["sensor_positions"] = TypeSiteAll
		}
		if strings.Contains(fn.Base, "science_review_flags") {
			types["science_review_flags"] = TypeSiteDate
		}
	}

	if len(ambiguous) > 0 {
		sort.Strings(ambiguous)
		return types, &AmbiguousScheduleError{Tables: ambiguous}
	}
	return types, nil
}
