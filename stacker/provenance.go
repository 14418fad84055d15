package stacker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spatialbytes/neonstack/core"
)

// appendProvenance derives the provenance columns of a stacked table from
// its source-file column: publication date and release tag always, domain,
// site and position indexes when the files are the only place they are
// recorded. Returns the variables rows documenting the columns added, split
// into the block prepended to the table's field list and the block appended
// after it.
func appendProvenance(t *core.Table, name string, tt TableType, releaseLookup map[string]string) (front, back []FieldSchema) {
	pubs := make([]any, len(t.Rows))
	rels := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		path, _ := row[fileColumn].(string)
		fn := ParseFileName(path)
		if fn.Stamp != "" {
			pubs[i] = fn.Stamp
		}
		if rel, ok := releaseLookup[path]; ok {
			rels[i] = rel
		} else if rel := releaseTag(path); rel != "" {
			rels[i] = rel
		}
	}
	t.AppendColumn("publicationDate", pubs)
	t.AppendColumn("release", rels)
	back = []FieldSchema{
		provenanceField(name, "publicationDate", "Date of data publication on the NEON data portal", "dateTime", "yyyyMMdd'T'HHmmss'Z'"),
		provenanceField(name, "release", "Identifier for data release", "string", "asIs"),
	}

	if t.HasColumn("siteID") || tt == TypeLab {
		return front, back
	}

	domains := make([]any, len(t.Rows))
	sites := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		path, _ := row[fileColumn].(string)
		fn := ParseFileName(path)
		if fn.Domain != "" {
			domains[i] = fn.Domain
		}
		if fn.Site != "" {
			sites[i] = fn.Site
		}
	}
	t.InsertColumn(0, "domainID", domains)
	t.InsertColumn(1, "siteID", sites)
	front = []FieldSchema{
		provenanceField(name, "domainID", "Unique identifier of the NEON domain", "string", "asIs"),
		provenanceField(name, "siteID", "NEON site code", "string", "asIs"),
	}

	// sensor position indexes live only in the file name, and only the
	// sensor streams carry them
	if name == "sensor_positions" {
		return front, back
	}
	hors := make([]any, len(t.Rows))
	vers := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		path, _ := row[fileColumn].(string)
		fn := ParseFileName(path)
		if fn.Horizontal == "" || fn.Vertical == "" {
			return front, back
		}
		hors[i] = fn.Horizontal
		vers[i] = fn.Vertical
	}
	t.InsertColumn(2, "horizontalPosition", hors)
	t.InsertColumn(3, "verticalPosition", vers)
	front = append(front,
		provenanceField(name, "horizontalPosition", "Index of horizontal location at a site", "string", "asIs"),
		provenanceField(name, "verticalPosition", "Index of vertical location at a site", "string", "asIs"))

	return front, back
}

func provenanceField(table, field, desc, dataType, pubFormat string) FieldSchema {
	return FieldSchema{
		Table:       table,
		FieldName:   field,
		Description: desc,
		DataType:    dataType,
		Units:       "NA",
		DownloadPkg: "appended by stacking",
		PubFormat:   pubFormat,
	}
}

// sortDateColumns is the probe order for the date column used as the final
// sort key. Tables carry at most a few of these; the first present wins.
var sortDateColumns = []string{
	"collectDate", "endDate", "startDate", "date", "endDateTime", "startDateTime",
}

// sortRows orders a stacked table by site, position indexes when present,
// and the table's characteristic date column. Tables without any of those
// columns are left in file order.
func sortRows(t *core.Table) {
	var keys []string
	if t.HasColumn("siteID") {
		keys = append(keys, "siteID")
		if t.HasColumn("horizontalPosition") {
			keys = append(keys, "horizontalPosition", "verticalPosition")
		}
	}
	for _, c := range sortDateColumns {
		if t.HasColumn(c) {
			keys = append(keys, c)
			break
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		for _, k := range keys {
			if c := compareValues(t.Rows[i][k], t.Rows[j][k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// compareValues orders the engine's value set. Nulls sort first; values of
// mismatched kinds fall back to their string forms so sorting never fails.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int64:
		switch bv := b.(type) {
		case int64:
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		case float64:
			return compareFloats(float64(av), bv)
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			return compareFloats(av, bv)
		case int64:
			return compareFloats(av, float64(bv))
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// dedupSRF keeps, for each science review flag identifier, only the record
// with the latest lastUpdateDateTime. Surviving rows keep their original
// order, so re-running the dedup over its own output is a no-op.
func dedupSRF(t *core.Table) *core.Table {
	if !t.HasColumn("srfID") || !t.HasColumn("lastUpdateDateTime") {
		return t
	}
	winner := make(map[string]int)
	order := make([]string, 0, len(t.Rows))
	for i, row := range t.Rows {
		key := fmt.Sprint(row["srfID"])
		prev, seen := winner[key]
		if !seen {
			winner[key] = i
			order = append(order, key)
			continue
		}
		if compareValues(row["lastUpdateDateTime"], t.Rows[prev]["lastUpdateDateTime"]) > 0 {
			winner[key] = i
		}
	}
	out := core.NewTable(t.Columns)
	for _, key := range order {
		out.Rows = append(out.Rows, t.Rows[winner[key]])
	}
	return out
}

// alignSensorCols reconciles the two generations of sensor position
// columns. Legacy columns that carry data are folded into their current
// counterparts where the current value is null, then dropped.
func alignSensorCols(t *core.Table) {
	for legacy, current := range legacySensorColumns {
		if !t.HasColumn(legacy) {
			continue
		}
		empty := true
		for _, row := range t.Rows {
			if !isNull(row[legacy]) {
				empty = false
				break
			}
		}
		if !empty && t.HasColumn(current) {
			for _, row := range t.Rows {
				if isNull(row[current]) {
					row[current] = row[legacy]
				}
			}
		}
		t.DropColumn(legacy)
	}
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
