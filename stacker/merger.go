package stacker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spatialbytes/neonstack/core"
)

// metadataPaths filters the file set down to one metadata kind. Metadata
// files carry the kind token in place of a table name, directly followed by
// the publication timestamp.
func metadataPaths(filepaths []string, token string) []string {
	var out []string
	for _, p := range filepaths {
		if strings.Contains(p, token) {
			out = append(out, p)
		}
	}
	return out
}

// loadVariables resolves the most recent variables file across the whole
// download and patches in the internal field blocks for tables the
// published file omits. Returns nil when the download has no variables
// file at all.
func (s *Stacker) loadVariables(ctx context.Context, filepaths []string) (*Variables, error) {
	varpaths := metadataPaths(filepaths, "variables.20")
	if len(varpaths) == 0 {
		return nil, nil
	}
	varpath, err := mostRecentOne(varpaths)
	if err != nil {
		return nil, fmt.Errorf("variables file: %w", err)
	}
	tab, err := s.readCSV(ctx, buildReadCSVQuery([]string{varpath}, nil, nil, true))
	if err != nil {
		return nil, fmt.Errorf("reading variables file: %w", err)
	}
	tab.DropColumn(fileColumn)
	vars := VariablesFromTable(tab)

	// science review flags and sensor positions predate their variables
	// entries in older publications
	if !vars.HasTable("science_review_flags") && anyPathContains(filepaths, "science_review_flags") {
		vars.Append(scienceReviewVariables)
	}
	if !vars.HasTable("sensor_positions") && anyPathContains(filepaths, "sensor_positions") {
		vars.Append(publishedSensorVariables())
	}
	return vars, nil
}

func anyPathContains(filepaths []string, token string) bool {
	for _, p := range filepaths {
		if strings.Contains(p, token) {
			return true
		}
	}
	return false
}

// publishedSensorVariables is the variables-file form of the sensor
// positions schema: current-era columns only, since the legacy columns are
// reconciled away during assembly.
func publishedSensorVariables() []FieldSchema {
	var out []FieldSchema
	for _, f := range sensorPositionsVariables {
		if _, legacy := legacySensorColumns[f.FieldName]; legacy {
			continue
		}
		out = append(out, f)
	}
	return out
}

// mergeMetadata adds the auxiliary tables to the bundle after all table
// assembly has completed: the augmented variables table, the most recent
// validation and categoricalCodes files, and the reformatted readme.
func (s *Stacker) mergeMetadata(ctx context.Context, bundle *core.Bundle, vars *Variables,
	results []*tableResult, filepaths []string, dpnum string) error {

	if vars != nil {
		bundle.Tables["variables_"+dpnum] = mergedVariables(vars, results)
	}

	for _, kind := range []string{"validation", "categoricalCodes"} {
		paths := metadataPaths(filepaths, kind)
		if len(paths) == 0 {
			continue
		}
		path, err := mostRecentOne(paths)
		if err != nil {
			return fmt.Errorf("%s file: %w", kind, err)
		}
		tab, err := s.readCSV(ctx, buildReadCSVQuery([]string{path}, nil, nil, true))
		if err != nil {
			return fmt.Errorf("reading %s file: %w", kind, err)
		}
		tab.DropColumn(fileColumn)
		bundle.Tables[kind+"_"+dpnum] = tab
	}

	readmepaths := metadataPaths(filepaths, "readme.20")
	if len(readmepaths) > 0 {
		path, err := mostRecentOne(readmepaths)
		if err != nil {
			return fmt.Errorf("readme file: %w", err)
		}
		lines, err := s.readTextLines(ctx, path)
		if err != nil {
			core.Infof(ctx, "Readme file could not be read: %v", err)
		} else {
			var names []string
			for _, r := range results {
				names = append(names, r.name)
			}
			sort.Strings(names)
			bundle.Texts["readme_"+dpnum] = strings.Join(formatReadme(lines, names), "\n")
		}
	}
	return nil
}

// mergedVariables rebuilds the variables table with each stacked table's
// provenance rows folded in, so the output documents every column that
// actually appears in the stacked tables. Rows for tables that were not
// stacked are kept unaltered.
func mergedVariables(vars *Variables, results []*tableResult) *core.Table {
	front := make(map[string][]FieldSchema)
	back := make(map[string][]FieldSchema)
	for _, r := range results {
		front[r.name] = r.addedFront
		back[r.name] = r.addedBack
	}

	groups := make(map[string][]FieldSchema)
	for _, row := range vars.Rows() {
		groups[row.Table] = append(groups[row.Table], row)
	}
	// stacked tables missing from the published file still get their
	// provenance columns documented
	for _, r := range results {
		if _, ok := groups[r.name]; !ok {
			groups[r.name] = nil
		}
	}

	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)

	var rows []FieldSchema
	for _, n := range names {
		rows = append(rows, front[n]...)
		rows = append(rows, groups[n]...)
		rows = append(rows, back[n]...)
	}
	return variablesTable(rows)
}

// mergeReleases unions the per-table release tags into one sorted set.
func mergeReleases(results []*tableResult) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		for _, rel := range r.releases {
			seen[rel] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

var readmeDisclaimer = []string{
	"###################################",
	"########### Disclaimer ############",
	"This is the most recent readme publication based on all site-date combinations used during stacking.",
	"Information specific to the query, including sites and dates, has been removed. The remaining content reflects general metadata for the data product.",
	"##################################",
}

// formatReadme strips the site and date specific narrative out of a readme
// and replaces it with a disclaimer plus the list of tables actually
// produced. The input readme describes one arbitrary constituent file, so
// its query-specific sections would be misleading in the stacked output.
func formatReadme(lines []string, tables []string) []string {
	if len(tables) == 0 {
		return lines
	}
	contents := indexContaining(lines, "CONTENTS")
	query := indexContaining(lines, "QUERY")
	downpack := indexContaining(lines, "Basic download package")
	if query < 0 || contents <= query || downpack <= contents+2 {
		return append(append([]string{}, readmeDisclaimer...), lines...)
	}

	out := make([]string, 0, len(lines)+len(tables)+len(readmeDisclaimer))
	out = append(out, readmeDisclaimer...)
	out = append(out, lines[:query]...)
	out = append(out, lines[contents:contents+2]...)
	out = append(out, fmt.Sprintf("This data product contains up to %d data tables:", len(tables)))
	out = append(out, tables...)
	out = append(out, "If data are unavailable for the particular sites and dates queried, some tables may be absent.")
	out = append(out, lines[downpack:]...)

	kept := out[:0]
	for _, l := range out {
		if strings.Contains(l, "Date-Time") {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

func indexContaining(lines []string, token string) int {
	for i, l := range lines {
		if strings.Contains(l, token) {
			return i
		}
	}
	return -1
}
