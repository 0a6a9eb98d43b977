// Package resultdb stores the output of pipeline runs, so that they can be served and compared later.
package resultdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/cyclopcam/crosswalk/pkg/aggregate"
	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/pipeline"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

var ErrRunNotFound = fmt.Errorf("run %w", dataerr.ErrNotFound)

type ResultDB struct {
	log logs.Log
	DB  *gorm.DB
}

// Open or create the result DB
func Open(log logs.Log, cfg dbh.DBConfig) (*ResultDB, error) {
	log.Infof("Opening result DB %v", cfg.Database)
	db, err := dbh.OpenDB(log, cfg, Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open result database %v: %w", cfg.Database, err)
	}
	return &ResultDB{
		log: log,
		DB:  db,
	}, nil
}

func (r *ResultDB) Close() {
	if sqlDB, err := r.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// SaveRun stores the complete result of a run, and returns the new run record
func (r *ResultDB) SaveRun(cfg pipeline.Config, res *pipeline.Result, createdAt time.Time) (*Run, error) {
	run := &Run{
		CreatedAt:  dbh.MakeIntTime(createdAt),
		Config:     &dbh.JSONField[pipeline.Config]{Data: cfg},
		NumVideos:  len(res.Videos),
		NumSkipped: len(res.Skipped),
		NumEvents:  len(res.Events),
	}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}

		rows := make([]AggregateRow, 0, len(res.Rows))
		for _, row := range res.Rows {
			rows = append(rows, AggregateRow{
				RunID:                run.ID,
				Country:              row.Country,
				Condition:            row.Condition.String(),
				RawCount:             row.RawCount,
				TotalDurationSeconds: row.TotalDurationSeconds,
				Rate:                 row.Rate,
			})
		}
		if err := createAll(tx, rows); err != nil {
			return err
		}

		skipped := make([]SkippedVideo, 0, len(res.Skipped))
		for _, s := range res.Skipped {
			skipped = append(skipped, SkippedVideo{RunID: run.ID, VideoID: s.VideoID, Reason: s.Reason})
		}
		if err := createAll(tx, skipped); err != nil {
			return err
		}

		events := make([]CrossingEvent, 0, len(res.Events))
		for _, ev := range res.Events {
			events = append(events, CrossingEvent{
				RunID:      run.ID,
				VideoID:    ev.VideoID,
				TrackID:    ev.TrackID,
				StartFrame: ev.StartFrame,
				EndFrame:   ev.EndFrame,
				Condition:  ev.Condition.String(),
				TrackIDs:   &dbh.JSONField[[]int64]{Data: ev.TrackIDs},

				InstrumentSeen: ev.InstrumentSeen,
			})
		}
		if err := createAll(tx, events); err != nil {
			return err
		}

		times := make([]CrossingTime, 0, len(res.Times))
		for _, t := range res.Times {
			times = append(times, CrossingTime{
				RunID:         run.ID,
				Country:       t.Country,
				Condition:     t.Condition.String(),
				NumEvents:     t.NumEvents,
				MeanSeconds:   t.MeanSeconds,
				StdDevSeconds: t.StdDevSeconds,
			})
		}
		if err := createAll(tx, times); err != nil {
			return err
		}

		equipment := make([]EquipmentRow, 0, len(res.Equipment))
		for _, e := range res.Equipment {
			equipment = append(equipment, EquipmentRow{
				RunID:                   run.ID,
				Country:                 e.Country,
				TimeOfDay:               e.TimeOfDay,
				NumVideos:               e.NumVideos,
				TotalDurationSeconds:    e.TotalDurationSeconds,
				Instruments:             e.Instruments,
				InstrumentsPerMinute:    e.InstrumentsPerMinute,
				Crossings:               e.Crossings,
				CrossingsWithInstrument: e.CrossingsWithInstrument,
			})
		}
		return createAll(tx, equipment)
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to save run: %w", err)
	}
	r.log.Infof("Saved run %v (%v events, %v groups)", run.ID, run.NumEvents, len(res.Rows))
	return run, nil
}

// DeleteRun removes a run and everything that was stored with it
func (r *ResultDB) DeleteRun(id int64) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&AggregateRow{}, &SkippedVideo{}, &CrossingEvent{}, &CrossingTime{}, &EquipmentRow{}} {
			if err := tx.Where("run_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Run{}, id).Error
	})
}

// GORM refuses to insert an empty slice
func createAll[T any](tx *gorm.DB, records []T) error {
	if len(records) == 0 {
		return nil
	}
	return tx.CreateInBatches(records, 500).Error
}

// ListRuns returns all runs, newest first
func (r *ResultDB) ListRuns() ([]Run, error) {
	runs := []Run{}
	err := r.DB.Order("id DESC").Find(&runs).Error
	return runs, err
}

func (r *ResultDB) GetRun(id int64) (*Run, error) {
	run := Run{}
	if err := r.DB.First(&run, id).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrRunNotFound, id)
	} else if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *ResultDB) GetAggregates(runID int64) ([]aggregate.Row, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}
	records := []AggregateRow{}
	if err := r.DB.Where("run_id = ?", runID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	rows := make([]aggregate.Row, 0, len(records))
	for _, rec := range records {
		cond, err := crossing.ParseCondition(rec.Condition)
		if err != nil {
			return nil, err
		}
		rows = append(rows, aggregate.Row{
			Country:              rec.Country,
			Condition:            cond,
			RawCount:             rec.RawCount,
			TotalDurationSeconds: rec.TotalDurationSeconds,
			Rate:                 rec.Rate,
		})
	}
	return rows, nil
}

func (r *ResultDB) GetCrossingTimes(runID int64) ([]aggregate.TimeStats, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}
	records := []CrossingTime{}
	if err := r.DB.Where("run_id = ?", runID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	times := make([]aggregate.TimeStats, 0, len(records))
	for _, rec := range records {
		cond, err := crossing.ParseCondition(rec.Condition)
		if err != nil {
			return nil, err
		}
		times = append(times, aggregate.TimeStats{
			Country:       rec.Country,
			Condition:     cond,
			NumEvents:     rec.NumEvents,
			MeanSeconds:   rec.MeanSeconds,
			StdDevSeconds: rec.StdDevSeconds,
		})
	}
	return times, nil
}

func (r *ResultDB) GetEquipment(runID int64) ([]aggregate.EquipmentRow, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}
	records := []EquipmentRow{}
	if err := r.DB.Where("run_id = ?", runID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	rows := make([]aggregate.EquipmentRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, aggregate.EquipmentRow{
			Country:                 rec.Country,
			TimeOfDay:               rec.TimeOfDay,
			NumVideos:               rec.NumVideos,
			TotalDurationSeconds:    rec.TotalDurationSeconds,
			Instruments:             rec.Instruments,
			InstrumentsPerMinute:    rec.InstrumentsPerMinute,
			Crossings:               rec.Crossings,
			CrossingsWithInstrument: rec.CrossingsWithInstrument,
		})
	}
	return rows, nil
}

func (r *ResultDB) GetSkipped(runID int64) ([]pipeline.Skipped, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}
	records := []SkippedVideo{}
	if err := r.DB.Where("run_id = ?", runID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	skipped := make([]pipeline.Skipped, 0, len(records))
	for _, rec := range records {
		skipped = append(skipped, pipeline.Skipped{VideoID: rec.VideoID, Reason: rec.Reason})
	}
	return skipped, nil
}

// GetEvents returns the events of a run. If videoID is not empty, only that video's events are returned.
func (r *ResultDB) GetEvents(runID int64, videoID string) ([]crossing.Event, error) {
	if _, err := r.GetRun(runID); err != nil {
		return nil, err
	}
	q := r.DB.Where("run_id = ?", runID)
	if videoID != "" {
		q = q.Where("video_id = ?", videoID)
	}
	records := []CrossingEvent{}
	if err := q.Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	events := make([]crossing.Event, 0, len(records))
	for _, rec := range records {
		cond, err := crossing.ParseCondition(rec.Condition)
		if err != nil {
			return nil, err
		}
		ev := crossing.Event{
			VideoID:    rec.VideoID,
			TrackID:    rec.TrackID,
			StartFrame: rec.StartFrame,
			EndFrame:   rec.EndFrame,
			Condition:  cond,

			InstrumentSeen: rec.InstrumentSeen,
		}
		if rec.TrackIDs != nil {
			ev.TrackIDs = rec.TrackIDs.Data
		}
		events = append(events, ev)
	}
	return events, nil
}
