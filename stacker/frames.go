package stacker

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/spatialbytes/neonstack/core"
)

// FrameKind identifies the handful of products that publish oversized
// per-observation "data frame" files outside the normal monthly-partition
// pipeline. These bypass table-type inference and are stacked by plain
// concatenation under a fixed output name.
type FrameKind int

const (
	FrameNone FrameKind = iota
	FrameFieldSpectra
	FrameMicrobeCommunity
	FrameMicrobeTaxonomy
	FrameReaerationConductivity
	FrameStreamConductivity
	FrameSonar
)

type frameSpec struct {
	kind FrameKind
	// output table name, or a prefix completed per sample type and
	// marker gene for the microbe kinds
	out string
}

var frameSpecs = map[string]frameSpec{
	"DP1.30012.001": {FrameFieldSpectra, "fsp_rawSpectra"},
	"DP1.10081.001": {FrameMicrobeCommunity, "mcc_soilPerSampleTaxonomy"},
	"DP1.20086.001": {FrameMicrobeCommunity, "mcc_benthicPerSampleTaxonomy"},
	"DP1.20141.001": {FrameMicrobeCommunity, "mcc_surfaceWaterPerSampleTaxonomy"},
	"DP1.10081.002": {FrameMicrobeTaxonomy, "mct_soilPerSampleTaxonomy"},
	"DP1.20086.002": {FrameMicrobeTaxonomy, "mct_benthicPerSampleTaxonomy"},
	"DP1.20141.002": {FrameMicrobeTaxonomy, "mct_surfaceWaterPerSampleTaxonomy"},
	"DP1.20190.001": {FrameReaerationConductivity, "rea_conductivityRawData"},
	"DP1.20193.001": {FrameStreamConductivity, "sbd_conductivityRawData"},
	"DP4.00132.001": {FrameSonar, "bat_processedSonarFile"},
}

// frameKindFor reports whether a data product publishes frame files.
func frameKindFor(dpid string) (frameSpec, bool) {
	fs, ok := frameSpecs[dpid]
	return fs, ok
}

var reMarkerGene = regexp.MustCompile(`[_](16S|ITS)[_]`)

// frameOutName resolves the output table for one frame file. The microbe
// products publish separate 16S and ITS marker-gene files that must not be
// concatenated together, so the marker becomes part of the output name.
func frameOutName(fs frameSpec, path string) string {
	switch fs.kind {
	case FrameMicrobeCommunity, FrameMicrobeTaxonomy:
		if m := reMarkerGene.FindStringSubmatch(path); len(m) == 2 {
			return fmt.Sprintf("%s_%s", fs.out, m[1])
		}
	}
	return fs.out
}

// stackFrames concatenates frame files into their fixed output tables.
// Frame files carry no variables entries, so columns are read as typed
// only as far as inference allows; an inference failure falls back to
// all-string, mirroring the two-phase ingestion of regular tables.
func (s *Stacker) stackFrames(ctx context.Context, fs frameSpec, paths []string) ([]*tableResult, error) {
	groups := make(map[string][]string)
	for _, p := range paths {
		out := frameOutName(fs, p)
		groups[out] = append(groups[out], p)
	}

	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)

	var results []*tableResult
	for _, out := range names {
		group := groups[out]
		sort.Strings(group)
		tab, err := s.readCSV(ctx, buildReadCSVQuery(group, nil, nil, false))
		if err != nil {
			core.Infof(ctx, "Frame table %s could not be read with inferred types, re-reading as string", out)
			tab, err = s.readCSV(ctx, buildReadCSVQuery(group, nil, nil, true))
			if err != nil {
				return nil, fmt.Errorf("failed to stack frame table %s: %w", out, err)
			}
		}
		res := &tableResult{name: out, outName: out, table: tab}
		// frame files published outside the naming grammar carry nothing
		// to derive provenance columns from
		if framesCarryProvenance(group, s.ReleaseLookup) {
			res.addedFront, res.addedBack = appendProvenance(tab, out, TypeSiteAll, s.ReleaseLookup)
			res.releases = releaseSet(tab)
		}
		tab.DropColumn(fileColumn)
		results = append(results, res)
	}
	return results, nil
}

// framesCarryProvenance reports whether any file in the group names a site,
// a publication stamp, or a release the lookup knows, i.e. whether
// provenance columns would hold anything but nulls.
func framesCarryProvenance(paths []string, lookup map[string]string) bool {
	for _, p := range paths {
		fn := ParseFileName(p)
		if fn.Site != "" || fn.Stamp != "" {
			return true
		}
		if releaseTag(p) != "" {
			return true
		}
		if _, ok := lookup[p]; ok {
			return true
		}
	}
	return false
}
