package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardFillDaily(t *testing.T) {
	t.Run("weekly storage fills daily", func(t *testing.T) {
		weekly := []Observation{
			{Date: day(2024, 1, 1), Value: 100},
			{Date: day(2024, 1, 8), Value: 90},
		}

		filled := ForwardFillDaily(weekly)

		require.Len(t, filled, 8)
		for i := 0; i < 7; i++ {
			assert.Equal(t, day(2024, 1, 1+i), filled[i].Date)
			assert.Equal(t, 100.0, filled[i].Value)
		}
		assert.Equal(t, day(2024, 1, 8), filled[7].Date)
		assert.Equal(t, 90.0, filled[7].Value)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, ForwardFillDaily(nil))
		assert.Empty(t, ForwardFillDaily([]Observation{}))
	})

	t.Run("no value emitted before first observation", func(t *testing.T) {
		filled := ForwardFillDaily([]Observation{
			{Date: day(2024, 3, 10), Value: 55},
		})

		require.Len(t, filled, 1)
		assert.Equal(t, day(2024, 3, 10), filled[0].Date)
	})

	t.Run("unsorted input is sorted before filling", func(t *testing.T) {
		filled := ForwardFillDaily([]Observation{
			{Date: day(2024, 1, 8), Value: 90},
			{Date: day(2024, 1, 1), Value: 100},
		})

		require.Len(t, filled, 8)
		assert.Equal(t, 100.0, filled[0].Value)
		assert.Equal(t, 90.0, filled[7].Value)
	})

	t.Run("duplicate dates keep last occurrence", func(t *testing.T) {
		filled := ForwardFillDaily([]Observation{
			{Date: day(2024, 1, 1), Value: 100},
			{Date: day(2024, 1, 1), Value: 101},
			{Date: day(2024, 1, 3), Value: 95},
		})

		require.Len(t, filled, 3)
		assert.Equal(t, 101.0, filled[0].Value)
		assert.Equal(t, 101.0, filled[1].Value)
		assert.Equal(t, 95.0, filled[2].Value)
	})

	t.Run("intraday timestamps floor to day", func(t *testing.T) {
		filled := ForwardFillDaily([]Observation{
			{Date: time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC), Value: 42},
			{Date: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), Value: 43},
		})

		require.Len(t, filled, 3)
		assert.Equal(t, day(2024, 1, 1), filled[0].Date)
		assert.Equal(t, 42.0, filled[1].Value)
		assert.Equal(t, 43.0, filled[2].Value)
	})
}
