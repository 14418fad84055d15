package stacker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDPID(t *testing.T) {
	t.Run("single product", func(t *testing.T) {
		dpid, err := detectDPID([]string{
			"/dl/NEON.D10.ARIK.DP1.00041.001.2021-05.basic.20210617T000000Z.RELEASE-2022/NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.20210617T000000Z.csv",
			"/dl/NEON.D10.ARIK.DP1.00041.001.variables.20210617T000000Z.csv",
		})
		require.NoError(t, err)
		assert.Equal(t, "DP1.00041.001", dpid)
	})

	t.Run("mixed products", func(t *testing.T) {
		_, err := detectDPID([]string{
			"/dl/NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.20210617T000000Z.csv",
			"/dl/NEON.D10.ARIK.DP1.00094.001.000.501.001.SWS_1_minute.2021-05.basic.20210617T000000Z.csv",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "single NEON data product")
	})

	t.Run("no product", func(t *testing.T) {
		_, err := detectDPID([]string{"/dl/notes.csv"})
		assert.Error(t, err)
	})
}

func TestDetectPackage(t *testing.T) {
	assert.Equal(t, "basic", detectPackage([]string{
		"/dl/NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.csv",
	}))
	// a mixed set stacks as expanded
	assert.Equal(t, "expanded", detectPackage([]string{
		"/dl/NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.basic.csv",
		"/dl/NEON.D10.ARIK.DP1.00041.001.000.050.001.ST_1_minute.2021-05.expanded.csv",
	}))
}

func TestStackFilesGuards(t *testing.T) {
	s := New()
	ctx := context.Background()

	t.Run("no NEON files", func(t *testing.T) {
		_, err := s.StackFiles(ctx, []string{"/dl/notes.csv", "/dl/readme.txt"})
		assert.ErrorIs(t, err, ErrNoDataFiles)
	})

	t.Run("AOP products are rejected", func(t *testing.T) {
		_, err := s.StackFiles(ctx, []string{
			"/dl/NEON.D10.ARIK.DP1.30010.001.2021-05.basic.20210617T000000Z.RELEASE-2022/NEON.D10.ARIK.DP1.30010.001.ortho.2021-05.basic.csv",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AOP data product")
	})

	t.Run("eddy covariance bundle is rejected", func(t *testing.T) {
		_, err := s.StackFiles(ctx, []string{
			"/dl/NEON.D10.ARIK.DP4.00200.001.2021-05.basic.20210617T000000Z.RELEASE-2022/NEON.D10.ARIK.DP4.00200.001.nsae.2021-05.basic.csv",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HDF5")
	})
}
