package aggregate

import (
	"testing"

	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
	"github.com/stretchr/testify/require"
)

func TestEquipment(t *testing.T) {
	videos := []metadata.VideoRecord{
		{VideoID: "A", Country: "US", TimeOfDay: "day", DurationSeconds: 120, FPS: 30},
		{VideoID: "B", Country: "US", TimeOfDay: "day", DurationSeconds: 60, FPS: 30},
		{VideoID: "C", Country: "US", TimeOfDay: "night", DurationSeconds: 30, FPS: 30},
		{VideoID: "D", Country: "BR", DurationSeconds: 60, FPS: 30},
		{VideoID: "A", Country: "US", TimeOfDay: "day", DurationSeconds: 120, FPS: 30}, // listed twice
	}
	events := []crossing.Event{
		{VideoID: "A", InstrumentSeen: true},
		{VideoID: "A"},
		{VideoID: "B", InstrumentSeen: true},
		{VideoID: "C"},
	}
	instruments := map[string]int{"A": 2, "B": 1, "C": 0}

	rows, err := Equipment(events, videos, instruments)
	require.NoError(t, err)
	require.Equal(t, []EquipmentRow{
		{Country: "BR", TimeOfDay: "", NumVideos: 1, TotalDurationSeconds: 60},
		{Country: "US", TimeOfDay: "day", NumVideos: 2, TotalDurationSeconds: 180, Instruments: 3, InstrumentsPerMinute: 1, Crossings: 3, CrossingsWithInstrument: 2},
		{Country: "US", TimeOfDay: "night", NumVideos: 1, TotalDurationSeconds: 30, Crossings: 1},
	}, rows)

	_, err = Equipment([]crossing.Event{{VideoID: "Z"}}, videos, instruments)
	require.ErrorIs(t, err, dataerr.ErrNotFound)
}
