package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/crosswalk/pkg/pipeline"
	"github.com/cyclopcam/crosswalk/pkg/storage"
	"github.com/cyclopcam/crosswalk/server"
	"github.com/cyclopcam/crosswalk/server/resultdb"
	"github.com/cyclopcam/logs"
)

type runFlags struct {
	metadata     *string
	tracks       *string
	tracksPrefix *string
	output       *string
	policy       *string
	workers      *int
	threshold    *float64
	axis         *string
	gap          *int
	proximity    *float64
	minPoints    *int
	maxFileSize  *string
}

// Flags override the config file, but only when they are given
func (f *runFlags) apply(cfg *server.Config) error {
	if *f.metadata != "" {
		cfg.Input.Metadata = *f.metadata
	}
	if *f.tracks != "" {
		cfg.Input.Tracks = *f.tracks
	}
	if *f.tracksPrefix != "" {
		cfg.Input.TracksPrefix = *f.tracksPrefix
		cfg.Input.Tracks = ""
	}
	if *f.output != "" {
		cfg.OutputDir = *f.output
	}
	if *f.policy != "" {
		cfg.Pipeline.FailurePolicy = pipeline.FailurePolicy(*f.policy)
	}
	if *f.workers != 0 {
		cfg.Pipeline.Workers = *f.workers
	}
	if *f.threshold != 0 {
		cfg.Pipeline.DisplacementThreshold = float32(*f.threshold)
	}
	if *f.axis != "" {
		if err := cfg.Pipeline.Axis.UnmarshalText([]byte(*f.axis)); err != nil {
			return err
		}
	}
	if *f.gap != 0 {
		cfg.Pipeline.MergeFrameGap = *f.gap
	}
	if *f.proximity != 0 {
		cfg.Pipeline.MergeProximity = float32(*f.proximity)
	}
	if *f.minPoints != 0 {
		cfg.Pipeline.MinTrackPoints = *f.minPoints
	}
	if *f.maxFileSize != "" {
		if err := cfg.Input.MaxFileSize.UnmarshalText([]byte(*f.maxFileSize)); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func main() {
	parser := argparse.NewParser("crosswalk", "Pedestrian street-crossing extraction and normalization")
	configFilePath := parser.String("c", "config", &argparse.Options{Help: "Config file path", Default: "crosswalk.json"})

	runCmd := parser.NewCommand("run", "Run the pipeline, write reports, and store the results")
	flags := runFlags{
		metadata:     runCmd.String("m", "metadata", &argparse.Options{Help: "Metadata CSV, relative to the storage root"}),
		tracks:       runCmd.String("t", "tracks", &argparse.Options{Help: "Single track CSV with a video_id column, relative to the storage root"}),
		tracksPrefix: runCmd.String("", "tracks-prefix", &argparse.Options{Help: "Directory of per-video track files, relative to the storage root"}),
		output:       runCmd.String("o", "output", &argparse.Options{Help: "Report directory, relative to the storage root"}),
		policy:       runCmd.Selector("", "policy", []string{string(pipeline.FailFast), string(pipeline.SkipAndLog)}, &argparse.Options{Help: "What to do when a video fails"}),
		workers:      runCmd.Int("w", "workers", &argparse.Options{Help: "Number of videos to process concurrently"}),
		threshold:    runCmd.Float("", "threshold", &argparse.Options{Help: "Minimum displacement across the frame for a crossing (0..1)"}),
		axis:         runCmd.Selector("", "axis", []string{"x", "y"}, &argparse.Options{Help: "Axis of the frame that crosses the road"}),
		gap:          runCmd.Int("", "merge-gap", &argparse.Options{Help: "Max frames between two fragments of one crossing"}),
		proximity:    runCmd.Float("", "merge-proximity", &argparse.Options{Help: "Max distance between two fragments of one crossing (0..1)"}),
		minPoints:    runCmd.Int("", "min-points", &argparse.Options{Help: "Discard tracks with fewer observations than this"}),
		maxFileSize:  runCmd.String("", "max-file-size", &argparse.Options{Help: "Reject track files larger than this, eg '256 MB'. Zero disables the limit."}),
	}

	serveCmd := parser.NewCommand("serve", "Serve stored runs over HTTP")
	listen := serveCmd.String("l", "listen", &argparse.Options{Help: "Listen address, eg :8080"})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	cfg, err := server.LoadConfig(*configFilePath)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		panic(err)
	}

	results, err := resultdb.Open(logger, cfg.DB)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	if runCmd.Happened() {
		if err := flags.apply(cfg); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		if err := runPipeline(logger, cfg, results); err != nil {
			logger.Errorf("%v", err)
			results.Close()
			os.Exit(1)
		}
		results.Close()
	} else if serveCmd.Happened() {
		if *listen != "" {
			cfg.Listen = *listen
		}
		s := server.NewServer(logger, cfg, results)
		s.ListenForKillSignals()
		if err := s.ListenHTTP(cfg.Listen); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	}
}

func runPipeline(logger logs.Log, cfg *server.Config, results *resultdb.ResultDB) error {
	logger.Infof("Displacement threshold %v along %v, merge gap %v frames, merge proximity %v, failure policy '%v'",
		cfg.Pipeline.DisplacementThreshold, cfg.Pipeline.Axis, cfg.Pipeline.MergeFrameGap, cfg.Pipeline.MergeProximity, cfg.Pipeline.FailurePolicy)

	store, err := storage.Open(logger, cfg.Storage)
	if err != nil {
		return err
	}
	runner := &server.Runner{
		Log:     logger,
		Config:  cfg,
		Store:   store,
		Results: results,
	}
	run, res, err := runner.Execute()
	if err != nil {
		return err
	}

	fmt.Printf("Run %v: %v crossings in %v videos\n", run.ID, len(res.Events), len(res.Videos))
	for _, row := range res.Rows {
		fmt.Printf("  %-6v %-18v %5v crossings  %8.0f s  %.3f /min\n", row.Country, row.Condition, row.RawCount, row.TotalDurationSeconds, row.RatePerMinute())
	}
	if len(res.Skipped) != 0 {
		fmt.Printf("Skipped %v videos:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Printf("  %v: %v\n", s.VideoID, s.Reason)
		}
	}
	fmt.Printf("Reports written to %v\n", store.Describe(runner.ReportPrefix(run.ID)))
	return nil
}
