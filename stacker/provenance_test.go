package stacker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatialbytes/neonstack/core"
)

func tableFromRows(columns []string, rows ...map[string]any) *core.Table {
	t := core.NewTable(columns)
	t.Rows = append(t.Rows, rows...)
	return t
}

func TestAppendProvenance(t *testing.T) {
	path := "/dl/NEON.D10.ARIK.DP1.00041.001.2021-05.basic.20210617T000000Z.RELEASE-2022/" +
		"NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.20210617T000000Z.csv"
	tab := tableFromRows([]string{"startDateTime", fileColumn},
		map[string]any{"startDateTime": "2021-05-01T00:00:00Z", fileColumn: path},
		map[string]any{"startDateTime": "2021-05-01T00:01:00Z", fileColumn: path},
	)

	front, back := appendProvenance(tab, "ST_1_minute", TypeSiteDate, nil)

	assert.Equal(t, []string{
		"domainID", "siteID", "horizontalPosition", "verticalPosition",
		"startDateTime", fileColumn, "publicationDate", "release",
	}, tab.Columns)
	assert.Equal(t, "D10", tab.Rows[0]["domainID"])
	assert.Equal(t, "ARIK", tab.Rows[0]["siteID"])
	assert.Equal(t, "000", tab.Rows[0]["horizontalPosition"])
	assert.Equal(t, "050", tab.Rows[0]["verticalPosition"])
	assert.Equal(t, "20210617T000000Z", tab.Rows[0]["publicationDate"])
	assert.Equal(t, "RELEASE-2022", tab.Rows[0]["release"])

	require.Len(t, front, 4)
	assert.Equal(t, "domainID", front[0].FieldName)
	assert.Equal(t, "horizontalPosition", front[2].FieldName)
	require.Len(t, back, 2)
	assert.Equal(t, "publicationDate", back[0].FieldName)
	assert.Equal(t, "release", back[1].FieldName)
}

func TestAppendProvenanceKeepsExistingSite(t *testing.T) {
	// OS tables already carry siteID in the data; only publication
	// provenance is added
	path := "NEON.D07.GRSM.DP1.10003.001.brd_countdata.2021-06.basic.20211222T023112Z.csv"
	tab := tableFromRows([]string{"siteID", fileColumn},
		map[string]any{"siteID": "GRSM", fileColumn: path})

	front, back := appendProvenance(tab, "brd_countdata", TypeSiteDate, nil)
	assert.Empty(t, front)
	assert.Len(t, back, 2)
	assert.Equal(t, []string{"siteID", fileColumn, "publicationDate", "release"}, tab.Columns)
}

func TestAppendProvenanceReleaseLookup(t *testing.T) {
	url := "https://storage.googleapis.com/neon-publication/NEON.D10.ARIK.DP1.00041.001.sensor_positions.20210617T000000Z.csv"
	tab := tableFromRows([]string{"HOR.VER", fileColumn},
		map[string]any{"HOR.VER": "000.050", fileColumn: url})

	_, _ = appendProvenance(tab, "sensor_positions", TypeSiteAll, map[string]string{url: "RELEASE-2023"})
	assert.Equal(t, "RELEASE-2023", tab.Rows[0]["release"])
	// position indexes are never derived for the positions table itself
	assert.False(t, tab.HasColumn("horizontalPosition"))
}

func TestSortRows(t *testing.T) {
	tab := tableFromRows([]string{"siteID", "collectDate", "value"},
		map[string]any{"siteID": "GRSM", "collectDate": "2021-06-02", "value": int64(1)},
		map[string]any{"siteID": "ARIK", "collectDate": "2021-06-03", "value": int64(2)},
		map[string]any{"siteID": "ARIK", "collectDate": "2021-06-01", "value": int64(3)},
	)
	sortRows(tab)
	assert.Equal(t, int64(3), tab.Rows[0]["value"])
	assert.Equal(t, int64(2), tab.Rows[1]["value"])
	assert.Equal(t, int64(1), tab.Rows[2]["value"])
}

func TestSortRowsStable(t *testing.T) {
	// rows with equal keys keep their input order, so re-sorting sorted
	// output is a no-op
	rows := []map[string]any{
		{"siteID": "ARIK", "collectDate": "2021-06-01", "seq": 1},
		{"siteID": "ARIK", "collectDate": "2021-06-01", "seq": 2},
		{"siteID": "ARIK", "collectDate": "2021-06-01", "seq": 3},
	}
	tab := tableFromRows([]string{"siteID", "collectDate", "seq"}, rows...)
	sortRows(tab)
	for i, row := range tab.Rows {
		assert.Equal(t, i+1, row["seq"])
	}
}

func TestSortRowsWithoutKeyColumns(t *testing.T) {
	tab := tableFromRows([]string{"value"},
		map[string]any{"value": "b"},
		map[string]any{"value": "a"},
	)
	sortRows(tab)
	assert.Equal(t, "b", tab.Rows[0]["value"])
}

func TestCompareValues(t *testing.T) {
	early := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"nulls sort first", nil, "x", -1},
		{"both null", nil, nil, 0},
		{"strings", "a", "b", -1},
		{"ints", int64(2), int64(1), 1},
		{"floats", 1.5, 2.5, -1},
		{"mixed numerics", int64(1), 1.5, -1},
		{"timestamps", early, late, -1},
		{"mismatched kinds fall back to string order", int64(10), "2", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareValues(tt.a, tt.b))
		})
	}
}

func TestDedupSRF(t *testing.T) {
	tab := tableFromRows([]string{"srfID", "lastUpdateDateTime", "userComment"},
		map[string]any{"srfID": "X", "lastUpdateDateTime": "2021-01-01", "userComment": "first"},
		map[string]any{"srfID": "Y", "lastUpdateDateTime": "2021-03-01", "userComment": "other"},
		map[string]any{"srfID": "X", "lastUpdateDateTime": "2021-06-01", "userComment": "edited"},
	)

	out := dedupSRF(tab)
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, "edited", out.Rows[0]["userComment"])
	assert.Equal(t, "other", out.Rows[1]["userComment"])

	// running the dedup over its own output is a no-op
	again := dedupSRF(out)
	assert.Equal(t, out.Rows, again.Rows)
}

func TestAlignSensorCols(t *testing.T) {
	t.Run("legacy values fill current nulls", func(t *testing.T) {
		tab := tableFromRows([]string{"sensorLocationID", "name"},
			map[string]any{"sensorLocationID": nil, "name": "CFGLOC100"},
			map[string]any{"sensorLocationID": "CFGLOC200", "name": "old"},
		)
		alignSensorCols(tab)
		assert.False(t, tab.HasColumn("name"))
		assert.Equal(t, "CFGLOC100", tab.Rows[0]["sensorLocationID"])
		assert.Equal(t, "CFGLOC200", tab.Rows[1]["sensorLocationID"])
	})

	t.Run("all-null legacy column is dropped without filling", func(t *testing.T) {
		tab := tableFromRows([]string{"sensorLocationID", "name"},
			map[string]any{"sensorLocationID": "CFGLOC100", "name": nil},
		)
		alignSensorCols(tab)
		assert.False(t, tab.HasColumn("name"))
		assert.Equal(t, "CFGLOC100", tab.Rows[0]["sensorLocationID"])
	})

	t.Run("absent legacy columns are ignored", func(t *testing.T) {
		tab := tableFromRows([]string{"sensorLocationID"},
			map[string]any{"sensorLocationID": "CFGLOC100"},
		)
		alignSensorCols(tab)
		assert.True(t, tab.HasColumn("sensorLocationID"))
	})
}
