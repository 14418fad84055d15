package stacker

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/spatialbytes/neonstack/core"
)

// WriteBundle persists a bundle under a stackedFiles directory inside
// folder, one CSV per table and one text file per text artifact.
func WriteBundle(fs afero.Fs, bundle *core.Bundle, folder string) error {
	outdir := filepath.Join(folder, "stackedFiles")
	if err := fs.MkdirAll(outdir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outdir, err)
	}

	for _, name := range bundle.Names() {
		tab, ok := bundle.Tables[name]
		if !ok {
			continue
		}
		if err := writeTable(fs, tab, filepath.Join(outdir, name+".csv")); err != nil {
			return err
		}
	}
	for name, text := range bundle.Texts {
		path := filepath.Join(outdir, name+".txt")
		if err := afero.WriteFile(fs, path, []byte(text+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func writeTable(fs afero.Fs, tab *core.Table, path string) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tab.Columns); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	record := make([]string, len(tab.Columns))
	for _, row := range tab.Rows {
		for i, col := range tab.Columns {
			record[i] = formatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// formatValue renders one cell the way the portal publishes it: nulls
// empty, floats at full precision without trailing zeros, timestamps in
// UTC with a Z suffix.
func formatValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'g', 15, 64)
	case int64:
		return strconv.FormatInt(tv, 10)
	case bool:
		return strconv.FormatBool(tv)
	case time.Time:
		return tv.UTC().Format("2006-01-02T15:04:05Z")
	}
	return fmt.Sprint(v)
}
