package server

import (
	"fmt"
	"time"

	"github.com/cyclopcam/crosswalk/pkg/kibi"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
	"github.com/cyclopcam/crosswalk/pkg/pipeline"
	"github.com/cyclopcam/crosswalk/pkg/storage"
	"github.com/cyclopcam/crosswalk/server/report"
	"github.com/cyclopcam/crosswalk/server/resultdb"
	"github.com/cyclopcam/logs"
)

// Runner executes the pipeline over the configured inputs, and stores the results
type Runner struct {
	Log     logs.Log
	Config  *Config
	Store   storage.Storage
	Results *resultdb.ResultDB
}

// Execute performs one complete run: load inputs, run the pipeline, write reports, save to the DB.
func (r *Runner) Execute() (*resultdb.Run, *pipeline.Result, error) {
	cfg := r.Config
	start := time.Now()

	metaFile, err := r.Store.ReadFile(cfg.Input.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("Failed to open metadata %v: %w", r.Store.Describe(cfg.Input.Metadata), err)
	}
	table, err := metadata.Load(metaFile.Reader)
	metaFile.Reader.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("Failed to load metadata %v: %w", r.Store.Describe(cfg.Input.Metadata), err)
	}

	source, err := r.openSource()
	if err != nil {
		return nil, nil, err
	}

	res, err := pipeline.Run(r.Log, cfg.Pipeline, table, source)
	if err != nil {
		return nil, nil, err
	}

	run, err := r.Results.SaveRun(cfg.Pipeline, res, start)
	if err != nil {
		return nil, nil, err
	}

	// The report location depends on the run ID, so the run must be saved first.
	// A run without its reports is removed again.
	if err := report.WriteAll(r.Log, r.Store, r.ReportPrefix(run.ID), res); err != nil {
		if errDel := r.Results.DeleteRun(run.ID); errDel != nil {
			r.Log.Errorf("Failed to delete run %v, whose reports could not be written: %v", run.ID, errDel)
		}
		return nil, nil, fmt.Errorf("Failed to write reports of run %v: %w", run.ID, err)
	}

	r.Log.Infof("Run %v complete in %.1f seconds", run.ID, time.Since(start).Seconds())
	return run, res, nil
}

// ReportPrefix is the location in storage of the reports of a run
func (r *Runner) ReportPrefix(runID int64) string {
	return fmt.Sprintf("%v/run-%v", r.Config.OutputDir, runID)
}

func (r *Runner) openSource() (pipeline.Source, error) {
	cfg := r.Config
	if cfg.Input.Tracks == "" {
		r.Log.Infof("Reading per-video track files from %v", r.Store.Describe(cfg.Input.TracksPrefix))
		return &pipeline.StorageSource{
			Store:             r.Store,
			Prefix:            cfg.Input.TracksPrefix,
			PersonClass:       cfg.Pipeline.PersonClass,
			InstrumentClasses: cfg.Pipeline.InstrumentClasses,
			MaxFileSize:       int64(cfg.Input.MaxFileSize),
		}, nil
	}
	f, err := r.Store.ReadFile(cfg.Input.Tracks)
	if err != nil {
		return nil, fmt.Errorf("Failed to open track file %v: %w", r.Store.Describe(cfg.Input.Tracks), err)
	}
	defer f.Reader.Close()
	if cfg.Input.MaxFileSize != 0 && f.Size > int64(cfg.Input.MaxFileSize) {
		return nil, fmt.Errorf("Track file %v is %v, which exceeds the limit of %v", r.Store.Describe(cfg.Input.Tracks), kibi.FormatBytes(f.Size), kibi.FormatBytes(int64(cfg.Input.MaxFileSize)))
	}
	src, err := pipeline.NewMemorySource(f.Reader, cfg.Pipeline.ReadOptions(""))
	if err != nil {
		return nil, fmt.Errorf("Failed to read track file %v: %w", r.Store.Describe(cfg.Input.Tracks), err)
	}
	r.Log.Infof("Read tracks of %v videos from %v (%v)", len(src.VideoIDs()), r.Store.Describe(cfg.Input.Tracks), kibi.FormatBytes(f.Size))
	return src, nil
}
