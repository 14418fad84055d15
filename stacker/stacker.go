// Package stacker joins the partitioned per-site, per-month CSV files of a
// downloaded NEON data product into one table per logical table, with
// publication metadata merged in.
package stacker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/spatialbytes/neonstack/core"
	"github.com/spatialbytes/neonstack/neonapi"
)

// Stacker stacks one downloaded data product into a bundle of tables.
// Fields may be adjusted between New and Initialize; the struct must not
// be copied once Initialize has run.
type Stacker struct {
	Fs afero.Fs
	// Package selects "basic" or "expanded"; empty means detect from the
	// file names, preferring expanded when both are present.
	Package string
	// Parallelism caps concurrent table assembly; zero means NumCPU.
	Parallelism int
	// API enables issue log and citation retrieval; nil skips both.
	API *neonapi.Client
	// ReleaseLookup maps file URL to release tag in cloud mode, where the
	// enclosing-folder naming convention does not carry the tag.
	ReleaseLookup map[string]string

	DB *sql.DB
}

var _ core.Stacker = (*Stacker)(nil)

func New() *Stacker {
	return &Stacker{Fs: afero.NewOsFs()}
}

// Initialize opens the embedded database the engine stacks through.
func (s *Stacker) Initialize() error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	s.DB = db
	return nil
}

func (s *Stacker) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Stack walks folder recursively and stacks every data and metadata file
// found under it.
func (s *Stacker) Stack(ctx context.Context, folder string) (*core.Bundle, error) {
	var filepaths []string
	err := afero.Walk(s.Fs, folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".csv") || strings.HasSuffix(path, ".txt") {
			filepaths = append(filepaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", folder, err)
	}
	return s.StackFiles(ctx, filepaths)
}

// StackFiles stacks an explicit file set, local paths or remote URLs. The
// set must belong to a single data product.
func (s *Stacker) StackFiles(ctx context.Context, filepaths []string) (*core.Bundle, error) {
	hasNEON := false
	for _, p := range filepaths {
		if reNEONFile.MatchString(p) {
			hasNEON = true
			break
		}
	}
	if !hasNEON {
		return nil, ErrNoDataFiles
	}

	dpid, err := detectDPID(filepaths)
	if err != nil {
		return nil, err
	}
	dpnum := dpid[4:9]
	pkg := s.Package
	if pkg == "" {
		pkg = detectPackage(filepaths)
	}
	pkg = normalizePkg(pkg)

	if dpid[4] == '3' && dpid != "DP1.30012.001" {
		return nil, fmt.Errorf("%s is an AOP data product and cannot be stacked; download files or tiles directly", dpid)
	}
	if dpid == "DP4.00200.001" {
		return nil, fmt.Errorf("the eddy covariance bundle %s is published in HDF5 format and cannot be stacked here", dpid)
	}
	if dpid == "DP1.10017.001" && pkg == "expanded" {
		core.Infof(ctx, "Note: Digital hemispheric photos (in NEF format) cannot be stacked; only the CSV metadata files will be stacked.")
	}
	if (dpid == "DP1.00094.001" || dpid == "DP1.00041.001") && len(filepaths) > 24 {
		core.Infof(ctx, "Warning! Attempting to stack soil sensor data. Data volume is very high for these data; consider dividing processing into chunks.")
	}

	// per-sample frame files are published outside the portal naming
	// grammar and are stacked separately
	var framepaths []string
	fspec, frameProduct := frameKindFor(dpid)
	if frameProduct {
		var rest []string
		for _, p := range filepaths {
			if isNEONFile(p) {
				rest = append(rest, p)
			} else {
				framepaths = append(framepaths, p)
			}
		}
		filepaths = rest
	}

	var csvpaths []string
	for _, p := range filepaths {
		if strings.HasSuffix(p, ".csv") {
			csvpaths = append(csvpaths, p)
		}
	}
	if len(csvpaths) == 0 && len(framepaths) == 0 {
		return nil, ErrNoDataFiles
	}

	tableTypes, err := FindTableTypes(csvpaths)
	if err != nil {
		var ambig *AmbiguousScheduleError
		if !errors.As(err, &ambig) {
			return nil, err
		}
		// ambiguity is fatal to the affected tables, not the job
		core.Infof(ctx, "Skipping tables with conflicting publication schedules: %v. Stack released and provisional data separately.", ambig.Tables)
	}

	vars, err := s.loadVariables(ctx, csvpaths)
	if err != nil {
		return nil, err
	}

	core.Infof(ctx, "Stacking data files")
	results := s.assembleTables(ctx, tableTypes, csvpaths, vars, pkg, dpnum)

	if len(framepaths) > 0 {
		core.Infof(ctx, "Stacking per-sample files. These files may be very large; download data in smaller subsets if performance problems are encountered.")
		frames, err := s.stackFrames(ctx, fspec, framepaths)
		if err != nil {
			core.Errorf(ctx, "%v", err)
		} else {
			results = append(results, frames...)
		}
	}

	bundle := core.NewBundle()
	for _, r := range results {
		bundle.Tables[r.outName] = r.table
	}
	if err := s.mergeMetadata(ctx, bundle, vars, results, filepaths, dpnum); err != nil {
		return nil, err
	}
	s.addExternalMetadata(ctx, bundle, dpid, dpnum, mergeReleases(results))

	return bundle, nil
}

// assembleTables runs table assembly concurrently. Tables touch disjoint
// files and the schema lookup is read-only by this point, so the only
// coordination needed is collecting per-table results.
func (s *Stacker) assembleTables(ctx context.Context, tableTypes map[string]TableType,
	csvpaths []string, vars *Variables, pkg, dpnum string) []*tableResult {

	names := make([]string, 0, len(tableTypes))
	for name := range tableTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	limit := s.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	var mu sync.Mutex
	var results []*tableResult
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, name := range names {
		g.Go(func() error {
			res, err := s.assembleTable(gctx, name, tableTypes[name], csvpaths, vars, pkg, dpnum)
			if err != nil {
				// a failed table does not block the rest of the job
				core.Errorf(gctx, "Failed to stack table %s: %v", name, err)
				return nil
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].outName < results[j].outName })
	return results
}

// addExternalMetadata fetches the issue log and citations. Failures here
// never block the data bundle.
func (s *Stacker) addExternalMetadata(ctx context.Context, bundle *core.Bundle, dpid, dpnum string, releases []string) {
	if s.API == nil {
		return
	}

	if issues, err := s.API.IssueLog(ctx, dpid); err != nil {
		core.Infof(ctx, "Error in issue log retrieval for %s: %v", dpid, err)
	} else {
		bundle.Tables["issueLog_"+dpnum] = issues
	}

	for _, rel := range releases {
		if rel != "PROVISIONAL" {
			continue
		}
		if cit, err := s.API.Citation(ctx, dpid, "PROVISIONAL"); err != nil {
			core.Infof(ctx, "Error in citation retrieval for %s: %v", dpid, err)
		} else {
			bundle.Texts[fmt.Sprintf("citation_%s_PROVISIONAL", dpnum)] = cit
		}
	}

	var tagged []string
	for _, rel := range releases {
		if m := reRelease.FindString(rel); m != "" {
			tagged = append(tagged, m)
		}
	}
	switch {
	case len(tagged) == 1:
		if cit, err := s.API.Citation(ctx, dpid, tagged[0]); err != nil {
			core.Infof(ctx, "Error in citation retrieval for %s: %v", dpid, err)
		} else {
			bundle.Texts[fmt.Sprintf("citation_%s_%s", dpnum, tagged[0])] = cit
		}
	case len(tagged) > 1:
		core.Infof(ctx, "Multiple data releases were stacked together. This is not appropriate, check your input data.")
	}
}

// detectDPID finds the single data product ID named by the file set.
func detectDPID(filepaths []string) (string, error) {
	seen := make(map[string]struct{})
	for _, p := range filepaths {
		for _, m := range reDPID.FindAllString(p, -1) {
			seen[m] = struct{}{}
		}
	}
	ids := sortedKeys(seen)
	if len(ids) != 1 {
		return "", fmt.Errorf("data product ID could not be determined; found %v, input must contain data files from a single NEON data product", ids)
	}
	return ids[0], nil
}

// detectPackage reports the download package of the file set. A mixed set
// stacks as expanded, which is a superset of basic.
func detectPackage(filepaths []string) string {
	for _, p := range filepaths {
		if strings.Contains(p, "expanded") {
			return "expanded"
		}
	}
	return "basic"
}

// readTextLines loads a text file from disk or, in cloud mode, from its
// published URL.
func (s *Stacker) readTextLines(ctx context.Context, path string) ([]string, error) {
	var content string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if s.API == nil {
			return nil, fmt.Errorf("no API client configured for remote file %s", path)
		}
		text, err := s.API.GetText(ctx, path, "text/plain")
		if err != nil {
			return nil, err
		}
		content = text
	} else {
		b, err := afero.ReadFile(s.Fs, path)
		if err != nil {
			return nil, err
		}
		content = string(b)
	}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	return lines, nil
}
