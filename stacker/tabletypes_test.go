package stacker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTableTypes(t *testing.T) {
	names := []string{
		"NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.20210617T000000Z.csv",
		"NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-06.basic.20210717T000000Z.csv",
		"NEON.D10.ARIK.DP1.00041.001.sensor_positions.20210617T000000Z.csv",
		"NEON.D07.GRSM.DP1.10003.001.brd_references.expanded.20211222T023112Z.csv",
		"NEON.BATTELLE.bgc_CNiso_externalSummary.csv",
	}

	types, err := FindTableTypes(names)
	require.NoError(t, err)

	assert.Equal(t, TypeSiteDate, types["ST_1_minute"])
	assert.Equal(t, TypeSiteAll, types["brd_references"])
	assert.Equal(t, TypeLab, types["bgc_CNiso_externalSummary"])
	assert.Equal(t, TypeSiteAll, types["sensor_positions"])
}

func TestFindTableTypesAmbiguous(t *testing.T) {
	// the same table published both with and without a month token
	names := []string{
		"NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.20210617T000000Z.csv",
		"NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.basic.20210617T000000Z.csv",
		"NEON.D07.GRSM.DP1.10003.001.brd_countdata.2021-06.basic.20211222T023112Z.csv",
	}

	types, err := FindTableTypes(names)
	require.Error(t, err)

	var ambig *AmbiguousScheduleError
	require.True(t, errors.As(err, &ambig))
	assert.Equal(t, []string{"ST_1_minute"}, ambig.Tables)

	// the unambiguous table is still classified
	_, ok := types["ST_1_minute"]
	assert.False(t, ok)
	assert.Equal(t, TypeSiteDate, types["brd_countdata"])
}

func TestForcedTableTypes(t *testing.T) {
	// science_review_flags files never carry a month token, but the table
	// is partitioned by site and date and must stack as such
	names := []string{
		"NEON.D10.ARIK.DP1.00041.001.science_review_flags.20210617T000000Z.csv",
		"NEON.D10.ARIK.DP1.00041.001.sensor_positions.20210617T000000Z.csv",
	}
	types, err := FindTableTypes(names)
	require.NoError(t, err)
	assert.Equal(t, TypeSiteDate, types["science_review_flags"])
	assert.Equal(t, TypeSiteAll, types["sensor_positions"])
}

func TestTableTypeString(t *testing.T) {
	assert.Equal(t, "site-date", TypeSiteDate.String())
	assert.Equal(t, "site-all", TypeSiteAll.String())
	assert.Equal(t, "lab", TypeLab.String())
}
