package stacker

import (
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableToArrow(t *testing.T) {
	tab := tableFromRows(
		[]string{"siteID", "tempMean", "qfCount", "startDateTime"},
		map[string]any{
			"siteID":        "ARIK",
			"tempMean":      10.5,
			"qfCount":       int64(3),
			"startDateTime": time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		map[string]any{
			"siteID":        "ARIK",
			"tempMean":      nil,
			"qfCount":       int64(0),
			"startDateTime": time.Date(2021, 5, 1, 0, 1, 0, 0, time.UTC),
		},
	)

	rec, err := tableToArrow(tab, memory.DefaultAllocator)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(2), rec.NumRows())
	schema := rec.Schema()
	assert.Equal(t, "siteID", schema.Field(0).Name)
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(0).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, schema.Field(1).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(2).Type)
	assert.Equal(t, arrow.TIMESTAMP, schema.Field(3).Type.ID())

	// nulls survive the conversion
	assert.True(t, rec.Column(1).IsNull(1))
	assert.False(t, rec.Column(1).IsNull(0))
}

func TestColumnArrowTypeAllNull(t *testing.T) {
	tab := tableFromRows([]string{"empty"},
		map[string]any{"empty": nil},
	)
	assert.Equal(t, arrow.BinaryTypes.String, columnArrowType(tab, "empty"))
}
