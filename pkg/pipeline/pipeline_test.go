package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/geom"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
	"github.com/cyclopcam/crosswalk/pkg/storage"
	"github.com/cyclopcam/crosswalk/pkg/track"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

const usTracks = `video_id,track_id,frame_index,x,y
V1,1,0,0.1,0.5
V1,1,30,0.45,0.5
V1,1,60,0.8,0.5
V1,7,0,0.5,0.9
V1,7,60,0.55,0.9
V2,1,0,0.9,0.2
V2,1,50,0.2,0.2
V2,2,100,0.1,0.5
V2,2,110,0.2,0.5
V2,2,120,0.3,0.5
V2,2,130,0.4,0.5
V2,3,125,0.36,0.5
V2,3,140,0.6,0.5
V2,3,160,0.9,0.5
V2,4,500,0.05,0.8
V2,4,560,0.95,0.8
`

func usTable(t *testing.T, extra ...metadata.VideoRecord) *metadata.Table {
	records := []metadata.VideoRecord{
		{VideoID: "V1", Country: "US", HasTrafficLight: true, DurationSeconds: 120, FPS: 30},
		{VideoID: "V2", Country: "US", DurationSeconds: 60, FPS: 30},
	}
	table, err := metadata.NewTable(append(records, extra...))
	require.NoError(t, err)
	return table
}

func usSource(t *testing.T) MemorySource {
	src, err := NewMemorySource(strings.NewReader(usTracks), track.ReadOptions{})
	require.NoError(t, err)
	return src
}

func TestRunUSScenario(t *testing.T) {
	log := logs.NewTestingLog(t)
	table := usTable(t)
	res, err := Run(log, DefaultConfig(), table, usSource(t))
	require.NoError(t, err)

	require.Len(t, res.Events, 4)
	require.Len(t, res.Skipped, 0)
	require.Len(t, res.Videos, 2)

	// The two fragments in V2 are a single crossing
	merged := res.Events[2]
	require.Equal(t, "V2", merged.VideoID)
	require.Equal(t, []int64{2, 3}, merged.TrackIDs)
	require.Equal(t, 100, merged.StartFrame)
	require.Equal(t, 160, merged.EndFrame)

	for _, ev := range res.Events {
		_, err := table.Lookup(ev.VideoID)
		require.NoError(t, err)
		require.NotEqual(t, crossing.ConditionUnclassified, ev.Condition)
	}

	require.Len(t, res.Rows, 2)
	require.Equal(t, "US", res.Rows[0].Country)
	require.Equal(t, crossing.ConditionWithEquipment, res.Rows[0].Condition)
	require.Equal(t, 1, res.Rows[0].RawCount)
	require.Equal(t, 120.0, res.Rows[0].TotalDurationSeconds)
	require.Equal(t, 1.0/120, res.Rows[0].Rate)
	require.Equal(t, crossing.ConditionWithoutEquipment, res.Rows[1].Condition)
	require.Equal(t, 3, res.Rows[1].RawCount)
	require.Equal(t, 60.0, res.Rows[1].TotalDurationSeconds)
	require.Equal(t, 3.0/60, res.Rows[1].Rate)
}

func TestRunIsDeterministic(t *testing.T) {
	log := logs.NewTestingLog(t)
	table := usTable(t)
	src := usSource(t)

	cfg := DefaultConfig()
	cfg.Workers = 1
	first, err := Run(log, cfg, table, src)
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 3, 16} {
		cfg.Workers = workers
		again, err := Run(log, cfg, table, src)
		require.NoError(t, err)
		require.Equal(t, first, again, "workers = %v", workers)
	}
}

type failingSource struct {
	Source
	fail map[string]error
}

func (f *failingSource) Points(videoID string) ([]track.RawPoint, error) {
	if err := f.fail[videoID]; err != nil {
		return nil, err
	}
	return f.Source.Points(videoID)
}

var errUnreadable = errors.New("unreadable")

func TestFailurePolicy(t *testing.T) {
	log := logs.NewTestingLog(t)
	// V0 is one second long, but has a crossing at frame 100
	table := usTable(t,
		metadata.VideoRecord{VideoID: "V0", Country: "BR", DurationSeconds: 1, FPS: 30},
		metadata.VideoRecord{VideoID: "V3", Country: "BR", HasTrafficSign: true, DurationSeconds: 30, FPS: 30},
	)
	mem := usSource(t)
	mem["V0"] = []track.RawPoint{
		{TrackID: 1, FrameIndex: 100, X: 0.1, Y: 0.5},
		{TrackID: 1, FrameIndex: 130, X: 0.9, Y: 0.5},
	}
	src := &failingSource{Source: mem, fail: map[string]error{"V3": errUnreadable}}

	// abort reports the first failure in video order
	cfg := DefaultConfig()
	for _, workers := range []int{1, 4} {
		cfg.Workers = workers
		_, err := Run(log, cfg, table, src)
		require.ErrorIs(t, err, dataerr.ErrInvalidRange)
		require.Contains(t, err.Error(), "V0")
	}

	// skip excludes both videos, including their duration
	cfg.FailurePolicy = SkipAndLog
	res, err := Run(log, cfg, table, src)
	require.NoError(t, err)
	require.Equal(t, []string{"V0", "V3"}, []string{res.Skipped[0].VideoID, res.Skipped[1].VideoID})
	require.Contains(t, res.Skipped[1].Reason, "unreadable")
	require.Len(t, res.Videos, 2)
	require.Len(t, res.Events, 4)
	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		require.Equal(t, "US", row.Country)
	}
}

func TestTracksWithoutMetadata(t *testing.T) {
	log := logs.NewTestingLog(t)
	mem := usSource(t)
	// V9 has a crossing, but no metadata record
	mem["V9"] = []track.RawPoint{
		{TrackID: 1, FrameIndex: 0, X: 0.05, Y: 0.5},
		{TrackID: 1, FrameIndex: 60, X: 0.95, Y: 0.5},
	}

	cfg := DefaultConfig()
	_, err := Run(log, cfg, usTable(t), mem)
	require.ErrorIs(t, err, dataerr.ErrNotFound)
	require.Contains(t, err.Error(), "V9")

	cfg.FailurePolicy = SkipAndLog
	res, err := Run(log, cfg, usTable(t), mem)
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	require.Equal(t, "V9", res.Skipped[0].VideoID)
	require.Contains(t, res.Skipped[0].Reason, "no metadata record")
	require.Len(t, res.Events, 4)
	require.Len(t, res.Videos, 2)
	for _, ev := range res.Events {
		require.NotEqual(t, "V9", ev.VideoID)
	}
}

func TestInstrumentSightings(t *testing.T) {
	log := logs.NewTestingLog(t)
	mem := usSource(t)
	// A stop sign in V2, visible from frame 140 onwards
	mem["V2"] = append(mem["V2"],
		track.RawPoint{TrackID: 90, FrameIndex: 140, X: 0.5, Y: 0.1, Instrument: true},
		track.RawPoint{TrackID: 90, FrameIndex: 400, X: 0.5, Y: 0.1, Instrument: true},
	)
	res, err := Run(log, DefaultConfig(), usTable(t), mem)
	require.NoError(t, err)
	require.Len(t, res.Events, 4)

	seen := map[int64]bool{}
	for _, ev := range res.Events {
		if ev.VideoID == "V2" {
			seen[ev.TrackID] = ev.InstrumentSeen
		}
	}
	// [0,50] is before the sign appears, [100,160] overlaps it, and [500,560] is after it was last seen
	require.Equal(t, map[int64]bool{1: false, 2: true, 4: false}, seen)

	require.Len(t, res.Equipment, 1)
	require.Equal(t, 1, res.Equipment[0].Instruments)
	require.Equal(t, 4, res.Equipment[0].Crossings)
	require.Equal(t, 1, res.Equipment[0].CrossingsWithInstrument)
}

func TestVideoWithoutTracks(t *testing.T) {
	log := logs.NewTestingLog(t)
	table := usTable(t, metadata.VideoRecord{VideoID: "V5", Country: "US", DurationSeconds: 40, FPS: 30})
	res, err := Run(log, DefaultConfig(), table, usSource(t))
	require.NoError(t, err)
	require.Len(t, res.Videos, 3)
	// V5 has no crossings, but it still adds exposure time
	require.Equal(t, 100.0, res.Rows[1].TotalDurationSeconds)
	require.Equal(t, 3, res.Rows[1].RawCount)
}

func TestStorageSource(t *testing.T) {
	log := logs.NewTestingLog(t)
	store, err := storage.NewStorageFS(log, t.TempDir())
	require.NoError(t, err)
	v1 := "Unique Id,frame,X-center,Y-center,YOLO_id\n1,0,0.1,0.5,0\n1,60,0.8,0.5,0\n2,0,0.1,0.7,2\n2,60,0.9,0.7,2\n"
	require.NoError(t, storage.WriteFile(store, "tracks/V1.csv", strings.NewReader(v1)))

	src := &StorageSource{Store: store, Prefix: "tracks", PersonClass: track.COCOPerson}
	points, err := src.Points("V1")
	require.NoError(t, err)
	require.Len(t, points, 2) // the car (class 2) is ignored

	_, err = src.Points("V2")
	require.ErrorIs(t, err, storage.ErrNotExist)

	small := &StorageSource{Store: store, Prefix: "tracks", MaxFileSize: 16}
	_, err = small.Points("V1")
	require.ErrorIs(t, err, dataerr.ErrRange)

	cfg := DefaultConfig()
	cfg.FailurePolicy = SkipAndLog
	res, err := Run(log, cfg, usTable(t), src)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	require.Len(t, res.Skipped, 1)
	require.Equal(t, "V2", res.Skipped[0].VideoID)
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.NoError(t, json.Unmarshal([]byte(`{"displacementThreshold": 0.5, "axis": "y", "failurePolicy": "skip", "workers": 2}`), &cfg))
	require.Equal(t, float32(0.5), cfg.DisplacementThreshold)
	require.Equal(t, geom.AxisY, cfg.Axis)
	require.Equal(t, SkipAndLog, cfg.FailurePolicy)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, 15, cfg.MergeFrameGap)
	require.NoError(t, cfg.Validate())

	require.Error(t, json.Unmarshal([]byte(`{"failurePolicy": "maybe"}`), &cfg))

	cfg = DefaultConfig()
	cfg.Workers = 0
	require.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.FailurePolicy = ""
	require.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	require.Equal(t, []int{track.COCOTrafficLight, track.COCOStopSign}, cfg.InstrumentClasses)
	cfg.InstrumentClasses = append(cfg.InstrumentClasses, cfg.PersonClass)
	require.Error(t, cfg.Validate())
}
