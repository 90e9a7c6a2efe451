package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/forecast"
)

func TestDeriveStressInputs(t *testing.T) {
	t.Run("takes latest values", func(t *testing.T) {
		rows := []domain.PanelRow{
			{Date: day(2024, 1, 1), HDDMedian: domain.Float(10), StorageBcf: domain.Float(3000), ActiveNoticeCount: 1},
			{Date: day(2024, 1, 2), HDDMedian: domain.Float(25), StorageBcf: domain.Float(2990), ActiveNoticeCount: 3, CapacityAvailMedian: 120},
		}

		x, err := DeriveStressInputs(rows)

		require.NoError(t, err)
		assert.Equal(t, 25.0, x[FeatHDDLag])
		assert.Equal(t, 2990.0, x[FeatStorageLag])
		assert.Equal(t, 3.0, x[FeatNoticesLag])
		assert.Equal(t, 120.0, x[FeatCapacityLag])
	})

	t.Run("null columns are omitted not zeroed", func(t *testing.T) {
		rows := []domain.PanelRow{{Date: day(2024, 1, 1)}}

		x, err := DeriveStressInputs(rows)

		require.NoError(t, err)
		_, hasHDD := x[FeatHDDLag]
		_, hasStorage := x[FeatStorageLag]
		assert.False(t, hasHDD)
		assert.False(t, hasStorage)
	})

	t.Run("empty panel", func(t *testing.T) {
		_, err := DeriveStressInputs(nil)
		require.ErrorIs(t, err, forecast.ErrNotEnoughData)
	})
}

func TestDeriveVolInputs(t *testing.T) {
	base := func() []domain.PanelRow {
		return []domain.PanelRow{
			{Date: day(2024, 1, 1), StressEvent: 1, PriceReturn: domain.Float(0.01), HDDMedian: domain.Float(12), StorageBcf: domain.Float(3100)},
			{Date: day(2024, 1, 2), StressEvent: 0, PriceReturn: domain.Float(-0.02), HDDMedian: domain.Float(14), StorageBcf: domain.Float(3050)},
			{Date: day(2024, 1, 3), StressEvent: 1, PriceReturn: domain.Float(0.03), HDDMedian: domain.Float(16), StorageBcf: domain.Float(3000)},
		}
	}

	t.Run("rolling means over the trailing window", func(t *testing.T) {
		x, err := DeriveVolInputs(base())

		require.NoError(t, err)
		assert.InDelta(t, 2.0/3.0, x[FeatOpStress], 1e-12)
		assert.InDelta(t, 0.02, x[FeatPersist], 1e-12)
		assert.Equal(t, 16.0, x[FeatHDD5d])
		// Storage deviation from the panel mean (3050).
		assert.InDelta(t, -50.0, x[FeatStorageZ], 1e-9)
	})

	t.Run("panel shorter than window", func(t *testing.T) {
		_, err := DeriveVolInputs(base()[:2])
		require.ErrorIs(t, err, forecast.ErrNotEnoughData)
	})

	t.Run("window days without a return are skipped", func(t *testing.T) {
		rows := base()
		rows[1].PriceReturn = nil

		x, err := DeriveVolInputs(rows)

		require.NoError(t, err)
		// Mean of |0.01| and |0.03| over the two days that printed.
		assert.InDelta(t, 0.02, x[FeatPersist], 1e-12)
	})

	t.Run("no return anywhere in the window", func(t *testing.T) {
		rows := base()
		for i := range rows {
			rows[i].PriceReturn = nil
		}

		_, err := DeriveVolInputs(rows)

		require.ErrorIs(t, err, forecast.ErrMissingColumn)
	})

	t.Run("missing latest HDD", func(t *testing.T) {
		rows := base()
		rows[2].HDDMedian = nil

		_, err := DeriveVolInputs(rows)

		require.ErrorIs(t, err, forecast.ErrMissingColumn)
	})

	t.Run("missing latest storage", func(t *testing.T) {
		rows := base()
		rows[2].StorageBcf = nil

		_, err := DeriveVolInputs(rows)

		require.ErrorIs(t, err, forecast.ErrMissingColumn)
	})
}
