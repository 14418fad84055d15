package stacker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spatialbytes/neonstack/core"
)

// tableResult is the output of one table assembly: the stacked table, the
// release tags observed in its input files, and the synthetic variables
// rows documenting the provenance columns that were added.
type tableResult struct {
	name       string
	outName    string
	table      *core.Table
	releases   []string
	addedFront []FieldSchema
	addedBack  []FieldSchema
}

// assembleTable runs the full stacking pipeline for one logical table:
// select input files per the table's policy, ingest them under the built
// schema, derive provenance columns, sort, and post-process.
func (s *Stacker) assembleTable(ctx context.Context, name string, tt TableType,
	filepaths []string, vars *Variables, pkg, dpnum string) (*tableResult, error) {

	tablepaths := make([]string, 0, len(filepaths))
	for _, p := range filepaths {
		if ParseFileName(p).HasTable(name) {
			tablepaths = append(tablepaths, p)
		}
	}
	if len(tablepaths) == 0 {
		return nil, fmt.Errorf("no files found for table %s", name)
	}

	// lab and site-all tables are republished in full; keep only the most
	// recent publication per dedup key
	switch tt {
	case TypeLab:
		var recent []string
		for _, lab := range LabNames(tablepaths) {
			var labpaths []string
			for _, p := range tablepaths {
				if ParseFileName(p).LabName() == lab {
					labpaths = append(labpaths, p)
				}
			}
			r, err := mostRecentOne(labpaths)
			if err != nil {
				return nil, fmt.Errorf("table %s, lab %s: %w", name, lab, err)
			}
			recent = append(recent, r)
		}
		tablepaths = recent
	case TypeSiteAll:
		var recent []string
		for _, site := range Sites(tablepaths) {
			var sitepaths []string
			for _, p := range tablepaths {
				if ParseFileName(p).Site == site {
					sitepaths = append(sitepaths, p)
				}
			}
			r, err := mostRecentOne(sitepaths)
			if err != nil {
				return nil, fmt.Errorf("table %s, site %s: %w", name, site, err)
			}
			recent = append(recent, r)
		}
		tablepaths = recent
	}
	sort.Strings(tablepaths)

	var schema TableSchema
	if vars != nil {
		schema = vars.Schema(name, pkg)
	}
	if schema == nil {
		core.Infof(ctx, "Variables file not found for table %s. Data types will be inferred if possible.", name)
	}

	tab, stringset, err := s.ingest(ctx, name, tablepaths, schema)
	if err != nil {
		return nil, err
	}
	if stringset && schema != nil {
		castColumns(tab, schema)
	}

	res := &tableResult{name: name, outName: name, table: tab}
	res.addedFront, res.addedBack = appendProvenance(tab, name, tt, s.ReleaseLookup)
	res.releases = releaseSet(tab)

	if name != "sensor_positions" {
		sortRows(tab)
	}
	switch name {
	case "science_review_flags":
		res.table = dedupSRF(tab)
		res.outName = fmt.Sprintf("%s_%s", name, dpnum)
	case "sensor_positions":
		alignSensorCols(tab)
		res.outName = fmt.Sprintf("%s_%s", name, dpnum)
	}
	res.table.DropColumn(fileColumn)

	return res, nil
}

const fileColumn = "__filename"

// ingest reads the selected files into one table. The typed attempt runs
// first, pinned to the schema when one exists and type-inferred otherwise;
// if it fails, every field is re-read as string and the caller re-casts
// column by column. Both phases are explicit so each is testable.
func (s *Stacker) ingest(ctx context.Context, name string, paths []string, schema TableSchema) (*core.Table, bool, error) {
	var present map[string]bool
	if schema != nil {
		var err error
		present, err = s.sniffColumns(ctx, paths)
		if err != nil {
			return nil, false, fmt.Errorf("reading header of table %s: %w", name, err)
		}
	}

	tab, err := s.readCSV(ctx, buildReadCSVQuery(paths, schema, present, false))
	if err == nil {
		return tab, false, nil
	}
	core.Infof(ctx, "Table %s schema did not match data; all variable types set to string. Data type casting will be attempted after stacking step.", name)

	tab, err = s.readCSV(ctx, buildReadCSVQuery(paths, schema, present, true))
	if err != nil {
		return nil, false, fmt.Errorf("failed to stack table %s: %w", name, err)
	}
	return tab, true, nil
}

// sniffColumns reads just the union header of the file set, so the typed
// query can be restricted to columns that actually occur.
func (s *Stacker) sniffColumns(ctx context.Context, paths []string) (map[string]bool, error) {
	query := fmt.Sprintf(
		"DESCRIBE SELECT * FROM read_csv([%s], union_by_name=true, all_varchar=true, header=true)",
		fileList(paths))
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		if name, ok := values[0].(string); ok {
			present[name] = true
		}
	}
	return present, rows.Err()
}

// fileList renders file paths as a quoted DuckDB list body, the same way
// the query engine passes its selected file set into read_parquet.
func fileList(paths []string) string {
	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("'")
		b.WriteString(strings.ReplaceAll(p, "'", "''"))
		b.WriteString("'")
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// buildReadCSVQuery builds one stacking query over the selected file set.
// With a schema, output columns are exactly the schema columns (absent ones
// null) plus the synthetic source-file column; without one, columns are
// whatever the files carry, type-inferred.
func buildReadCSVQuery(paths []string, schema TableSchema, present map[string]bool, allVarchar bool) string {
	opts := "union_by_name=true, filename=true, header=true, sample_size=-1"
	if allVarchar {
		opts += ", all_varchar=true"
	}

	if schema == nil {
		return fmt.Sprintf(
			"SELECT * EXCLUDE (filename), filename AS %s FROM read_csv([%s], %s)",
			quoteIdent(fileColumn), fileList(paths), opts)
	}

	var sel strings.Builder
	for _, c := range schema {
		if present[c.Name] {
			sel.WriteString(quoteIdent(c.Name))
		} else {
			fmt.Fprintf(&sel, "CAST(NULL AS %s) AS %s", c.Type.duckdbType(), quoteIdent(c.Name))
		}
		sel.WriteString(", ")
	}
	fmt.Fprintf(&sel, "filename AS %s", quoteIdent(fileColumn))

	if !allVarchar {
		var types []string
		for _, c := range schema {
			if present[c.Name] {
				types = append(types, fmt.Sprintf("'%s': '%s'",
					strings.ReplaceAll(c.Name, "'", "''"), c.Type.duckdbType()))
			}
		}
		if len(types) > 0 {
			opts += fmt.Sprintf(", types={%s}", strings.Join(types, ", "))
		}
		opts += ", timestampformat='%Y-%m-%dT%H:%M:%SZ', dateformat='%Y-%m-%d'"
	}

	return fmt.Sprintf("SELECT %s FROM read_csv([%s], %s)", sel.String(), fileList(paths), opts)
}

// readCSV executes a stacking query and scans the result into a table.
func (s *Stacker) readCSV(ctx context.Context, query string) (*core.Table, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	tab := core.NewTable(columns)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i], colTypes[i].DatabaseTypeName())
		}
		tab.Rows = append(tab.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tab, nil
}

// normalizeValue settles scanned values into the engine's value set:
// string, int64, float64, time.Time (UTC) and nil. DATE columns become
// plain yyyy-MM-dd strings, matching how they are published.
func normalizeValue(v any, dbType string) any {
	switch tv := v.(type) {
	case nil:
		return nil
	case time.Time:
		if dbType == "DATE" {
			return tv.UTC().Format("2006-01-02")
		}
		return tv.UTC()
	case int32:
		return int64(tv)
	case float32:
		return float64(tv)
	case []byte:
		return string(tv)
	default:
		return v
	}
}

// castColumns re-casts an all-string table to the target schema, column by
// column. A column with any value that fails to cast is left as string
// rather than aborting the stack.
func castColumns(t *core.Table, schema TableSchema) {
	for _, col := range schema {
		if col.Type == FieldString || !t.HasColumn(col.Name) {
			continue
		}
		cast := make([]any, len(t.Rows))
		ok := true
		for i, row := range t.Rows {
			v, valid := castValue(row[col.Name], col.Type)
			if !valid {
				ok = false
				break
			}
			cast[i] = v
		}
		if !ok {
			continue
		}
		for i, row := range t.Rows {
			row[col.Name] = cast[i]
		}
	}
}

func castValue(v any, ft FieldType) (any, bool) {
	if v == nil {
		return nil, true
	}
	s, isStr := v.(string)
	if !isStr {
		// already typed from a previous pass
		return v, true
	}
	if s == "" {
		return nil, true
	}
	switch ft {
	case FieldFloat:
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case FieldInt:
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	case FieldTimestamp:
		t, ok := parseDateTime(s)
		return t, ok
	case FieldDate:
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s, true
		}
		return nil, false
	}
	return s, true
}

// parseDateTime accepts the progressively truncated ISO forms NEON has
// published over time.
func parseDateTime(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02T15",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// releaseSet collects the distinct release tags present in a stacked table.
func releaseSet(t *core.Table) []string {
	seen := make(map[string]struct{})
	for _, row := range t.Rows {
		if rel, ok := row["release"].(string); ok && rel != "" {
			seen[rel] = struct{}{}
		}
	}
	return sortedKeys(seen)
}
