package resultdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/crosswalk/pkg/aggregate"
	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
	"github.com/cyclopcam/crosswalk/pkg/pipeline"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func createTestDB(t *testing.T) *ResultDB {
	db, err := Open(logs.NewTestingLog(t), dbh.MakeSqliteConfig(filepath.Join(t.TempDir(), "results.sqlite")))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func testResult() *pipeline.Result {
	return &pipeline.Result{
		Events: []crossing.Event{
			{VideoID: "V1", TrackID: 1, TrackIDs: []int64{1}, StartFrame: 0, EndFrame: 60, Condition: crossing.ConditionWithEquipment},
			{VideoID: "V2", TrackID: 2, TrackIDs: []int64{2, 3}, StartFrame: 100, EndFrame: 160, Condition: crossing.ConditionWithoutEquipment, InstrumentSeen: true},
		},
		Rows: []aggregate.Row{
			{Country: "US", Condition: crossing.ConditionWithEquipment, RawCount: 1, TotalDurationSeconds: 120, Rate: 1.0 / 120},
			{Country: "US", Condition: crossing.ConditionWithoutEquipment, RawCount: 1, TotalDurationSeconds: 60, Rate: 1.0 / 60},
		},
		Times: []aggregate.TimeStats{
			{Country: "US", Condition: crossing.ConditionWithEquipment, NumEvents: 1, MeanSeconds: 2.0333, StdDevSeconds: 0},
		},
		Equipment: []aggregate.EquipmentRow{
			{Country: "US", TimeOfDay: "day", NumVideos: 2, TotalDurationSeconds: 180, Instruments: 3, InstrumentsPerMinute: 1, Crossings: 2, CrossingsWithInstrument: 1},
		},
		Skipped: []pipeline.Skipped{
			{VideoID: "V3", Reason: "file does not exist"},
		},
		Videos: []metadata.VideoRecord{
			{VideoID: "V1", Country: "US", HasTrafficLight: true, DurationSeconds: 120, FPS: 30},
			{VideoID: "V2", Country: "US", DurationSeconds: 60, FPS: 30},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	db := createTestDB(t)
	cfg := pipeline.DefaultConfig()
	cfg.FailurePolicy = pipeline.SkipAndLog
	res := testResult()
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	run, err := db.SaveRun(cfg, res, createdAt)
	require.NoError(t, err)
	require.NotEqual(t, int64(0), run.ID)

	loaded, err := db.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.NumVideos)
	require.Equal(t, 1, loaded.NumSkipped)
	require.Equal(t, 2, loaded.NumEvents)
	require.Equal(t, createdAt.Unix(), loaded.CreatedAt.Get().Unix())
	require.Equal(t, pipeline.SkipAndLog, loaded.Config.Data.FailurePolicy)
	require.Equal(t, cfg.DisplacementThreshold, loaded.Config.Data.DisplacementThreshold)

	rows, err := db.GetAggregates(run.ID)
	require.NoError(t, err)
	require.Equal(t, res.Rows, rows)

	times, err := db.GetCrossingTimes(run.ID)
	require.NoError(t, err)
	require.Equal(t, res.Times, times)

	equipment, err := db.GetEquipment(run.ID)
	require.NoError(t, err)
	require.Equal(t, res.Equipment, equipment)

	skipped, err := db.GetSkipped(run.ID)
	require.NoError(t, err)
	require.Equal(t, res.Skipped, skipped)

	events, err := db.GetEvents(run.ID, "")
	require.NoError(t, err)
	require.Equal(t, res.Events, events)

	events, err = db.GetEvents(run.ID, "V2")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, []int64{2, 3}, events[0].TrackIDs)
}

func TestListRuns(t *testing.T) {
	db := createTestDB(t)
	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 0)

	empty := &pipeline.Result{}
	first, err := db.SaveRun(pipeline.DefaultConfig(), empty, time.Now())
	require.NoError(t, err)
	second, err := db.SaveRun(pipeline.DefaultConfig(), testResult(), time.Now())
	require.NoError(t, err)

	runs, err = db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second.ID, runs[0].ID)
	require.Equal(t, first.ID, runs[1].ID)

	// Runs do not see each other's rows
	rows, err := db.GetAggregates(first.ID)
	require.NoError(t, err)
	require.Len(t, rows, 0)
}

func TestRunNotFound(t *testing.T) {
	db := createTestDB(t)
	_, err := db.GetRun(99)
	require.ErrorIs(t, err, ErrRunNotFound)
	require.ErrorIs(t, err, dataerr.ErrNotFound)
	_, err = db.GetEvents(99, "")
	require.ErrorIs(t, err, ErrRunNotFound)
	_, err = db.GetAggregates(99)
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestDeleteRun(t *testing.T) {
	db := createTestDB(t)
	keep, err := db.SaveRun(pipeline.DefaultConfig(), testResult(), time.Now())
	require.NoError(t, err)
	drop, err := db.SaveRun(pipeline.DefaultConfig(), testResult(), time.Now())
	require.NoError(t, err)

	require.NoError(t, db.DeleteRun(drop.ID))
	_, err = db.GetRun(drop.ID)
	require.ErrorIs(t, err, ErrRunNotFound)
	var remaining int64
	require.NoError(t, db.DB.Model(&CrossingEvent{}).Where("run_id = ?", drop.ID).Count(&remaining).Error)
	require.Equal(t, int64(0), remaining)

	events, err := db.GetEvents(keep.ID, "")
	require.NoError(t, err)
	require.Len(t, events, 2)
}
