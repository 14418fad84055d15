package stacker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataPaths(t *testing.T) {
	paths := []string{
		"/dl/NEON.D10.ARIK.DP1.00041.001.variables.20210617T000000Z.csv",
		"/dl/NEON.D10.ARIK.DP1.00041.001.validation.20210617T000000Z.csv",
		"/dl/NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.20210617T000000Z.csv",
	}
	assert.Len(t, metadataPaths(paths, "variables.20"), 1)
	assert.Len(t, metadataPaths(paths, "validation"), 1)
	assert.Empty(t, metadataPaths(paths, "categoricalCodes"))
}

func TestMergeReleases(t *testing.T) {
	results := []*tableResult{
		{releases: []string{"RELEASE-2022"}},
		{releases: []string{"PROVISIONAL", "RELEASE-2022"}},
		{releases: nil},
	}
	assert.Equal(t, []string{"PROVISIONAL", "RELEASE-2022"}, mergeReleases(results))
}

func TestMergedVariables(t *testing.T) {
	vars := &Variables{rows: []FieldSchema{
		{Table: "brd_countdata", FieldName: "taxonID", DownloadPkg: "basic"},
		{Table: "brd_perpoint", FieldName: "pointID", DownloadPkg: "basic"},
		{Table: "brd_references", FieldName: "refID", DownloadPkg: "expanded"},
	}}
	results := []*tableResult{
		{
			name:      "brd_countdata",
			addedBack: []FieldSchema{{Table: "brd_countdata", FieldName: "release"}},
		},
		{
			name:       "brd_rawsound",
			addedFront: []FieldSchema{{Table: "brd_rawsound", FieldName: "siteID"}},
			addedBack:  []FieldSchema{{Table: "brd_rawsound", FieldName: "release"}},
		},
	}

	tab := mergedVariables(vars, results)

	type entry struct{ table, field string }
	var got []entry
	for _, row := range tab.Rows {
		got = append(got, entry{row["table"].(string), row["fieldName"].(string)})
	}
	assert.Equal(t, []entry{
		{"brd_countdata", "taxonID"},
		{"brd_countdata", "release"},
		{"brd_perpoint", "pointID"},
		// stacked but absent from the published file
		{"brd_rawsound", "siteID"},
		{"brd_rawsound", "release"},
		// not stacked, so its published rows pass through untouched
		{"brd_references", "refID"},
	}, got)
}

func TestFormatReadme(t *testing.T) {
	readme := []string{
		"This data package was produced by NEON.",
		"",
		"QUERY",
		"Site: ARIK",
		"Date range: 2021-05",
		"",
		"CONTENTS",
		"",
		"This package contains the following files:",
		"NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.csv",
		"",
		"Basic download package definition: the basic package contains the data.",
		"",
		"Date-Time of query: 2021-06-17T00:00:00Z",
		"Additional information about the product.",
	}

	out := formatReadme(readme, []string{"ST_1_minute", "ST_30_minute"})

	// the disclaimer leads
	assert.Equal(t, readmeDisclaimer, out[:len(readmeDisclaimer)])

	joined := ""
	for _, l := range out {
		joined += l + "\n"
	}
	// query specifics are gone, the generated table list is in
	assert.NotContains(t, joined, "Site: ARIK")
	assert.NotContains(t, joined, "Date range: 2021-05")
	assert.NotContains(t, joined, "Date-Time")
	assert.Contains(t, joined, "This data product contains up to 2 data tables:")
	assert.Contains(t, joined, "ST_1_minute\nST_30_minute\n")
	assert.Contains(t, joined, "some tables may be absent")
	assert.Contains(t, joined, "Basic download package definition")
	assert.Contains(t, joined, "Additional information about the product.")

	// general narrative before the query section survives
	assert.Contains(t, joined, "This data package was produced by NEON.")
}

func TestFormatReadmeFallbacks(t *testing.T) {
	t.Run("no tables leaves the readme alone", func(t *testing.T) {
		lines := []string{"a", "b"}
		assert.Equal(t, lines, formatReadme(lines, nil))
	})

	t.Run("missing markers prepend the disclaimer only", func(t *testing.T) {
		lines := []string{"no structure here", "at all"}
		out := formatReadme(lines, []string{"tab_one"})
		assert.Equal(t, readmeDisclaimer, out[:len(readmeDisclaimer)])
		assert.Equal(t, lines, out[len(readmeDisclaimer):])
	})
}
