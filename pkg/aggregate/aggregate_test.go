package aggregate

import (
	"testing"

	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
	"github.com/stretchr/testify/require"
)

func usVideos() []metadata.VideoRecord {
	return []metadata.VideoRecord{
		{VideoID: "V1", Country: "US", HasTrafficLight: true, DurationSeconds: 120, FPS: 30},
		{VideoID: "V2", Country: "US", DurationSeconds: 60, FPS: 30},
	}
}

func events(videoID string, n int) []crossing.Event {
	out := []crossing.Event{}
	for i := 0; i < n; i++ {
		out = append(out, crossing.Event{VideoID: videoID, TrackID: int64(i + 1), StartFrame: i * 100, EndFrame: i*100 + 59})
	}
	return out
}

func TestUSScenario(t *testing.T) {
	all := append(events("V1", 1), events("V2", 3)...)
	rows, err := Aggregate(all, usVideos())
	require.NoError(t, err)
	require.Equal(t, []Row{
		{Country: "US", Condition: crossing.ConditionWithEquipment, RawCount: 1, TotalDurationSeconds: 120, Rate: 1.0 / 120},
		{Country: "US", Condition: crossing.ConditionWithoutEquipment, RawCount: 3, TotalDurationSeconds: 60, Rate: 3.0 / 60},
	}, rows)
	require.InDelta(t, 3.0, rows[1].RatePerMinute(), 1e-9)
}

func TestNoDoubleCounting(t *testing.T) {
	videos := []metadata.VideoRecord{
		{VideoID: "A", Country: "DE", DurationSeconds: 100, FPS: 25},
		{VideoID: "B", Country: "DE", DurationSeconds: 50, FPS: 25},
	}
	all := append(events("A", 7), events("B", 2)...)
	rows, err := Aggregate(all, videos)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 9, rows[0].RawCount)
	require.Equal(t, 150.0, rows[0].TotalDurationSeconds)

	// Listing a video twice does not count its duration twice
	rows, err = Aggregate(all, append(videos, videos[0]))
	require.NoError(t, err)
	require.Equal(t, 150.0, rows[0].TotalDurationSeconds)
}

func TestVideosWithoutEvents(t *testing.T) {
	videos := append(usVideos(), metadata.VideoRecord{VideoID: "V3", Country: "BR", HasTrafficSign: true, DurationSeconds: 30, FPS: 30})
	rows, err := Aggregate(events("V1", 2), videos)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// sorted by country, then condition
	require.Equal(t, "BR", rows[0].Country)
	require.Equal(t, 0, rows[0].RawCount)
	require.Equal(t, 0.0, rows[0].Rate)
	require.Equal(t, 30.0, rows[0].TotalDurationSeconds)
	require.Equal(t, crossing.ConditionWithEquipment, rows[1].Condition)
	require.Equal(t, crossing.ConditionWithoutEquipment, rows[2].Condition)
}

func TestEmptyGroupsOmitted(t *testing.T) {
	rows, err := Aggregate(nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 0)

	// Only WITHOUT_EQUIPMENT videos, so there is no WITH_EQUIPMENT row
	rows, err = Aggregate(nil, usVideos()[1:])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, crossing.ConditionWithoutEquipment, rows[0].Condition)
}

func TestUnknownVideo(t *testing.T) {
	_, err := Aggregate(events("V9", 1), usVideos())
	require.ErrorIs(t, err, dataerr.ErrNotFound)
	require.Equal(t, "V9", dataerr.VideoID(err))

	_, err = CrossingTimes(events("V9", 1), usVideos())
	require.ErrorIs(t, err, dataerr.ErrNotFound)
}

func TestCrossingTimes(t *testing.T) {
	all := []crossing.Event{
		{VideoID: "V2", StartFrame: 0, EndFrame: 59},    // 2 seconds
		{VideoID: "V2", StartFrame: 100, EndFrame: 219}, // 4 seconds
		{VideoID: "V1", StartFrame: 0, EndFrame: 89},    // 3 seconds
	}
	times, err := CrossingTimes(all, usVideos())
	require.NoError(t, err)
	require.Len(t, times, 2)
	require.Equal(t, crossing.ConditionWithEquipment, times[0].Condition)
	require.Equal(t, 1, times[0].NumEvents)
	require.InDelta(t, 3.0, times[0].MeanSeconds, 1e-9)
	require.InDelta(t, 0.0, times[0].StdDevSeconds, 1e-9)
	require.Equal(t, 2, times[1].NumEvents)
	require.InDelta(t, 3.0, times[1].MeanSeconds, 1e-9)
	require.InDelta(t, 1.0, times[1].StdDevSeconds, 1e-9)
}
