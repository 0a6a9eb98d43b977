// Package pipeline runs crossing extraction over every video in a metadata table,
// and reduces the results into normalized crossing rates.
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/crosswalk/pkg/aggregate"
	"github.com/cyclopcam/crosswalk/pkg/classify"
	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
	"github.com/cyclopcam/crosswalk/pkg/perfstats"
	"github.com/cyclopcam/crosswalk/pkg/track"
	"github.com/cyclopcam/logs"
)

// Skipped is a video that was excluded from a run, under the SkipAndLog policy
type Skipped struct {
	VideoID string `json:"videoID"`
	Reason  string `json:"reason"`
}

// Result is the complete output of a run
type Result struct {
	Events    []crossing.Event         `json:"events"` // Classified, sorted by (VideoID, StartFrame)
	Rows      []aggregate.Row          `json:"rows"`
	Times     []aggregate.TimeStats    `json:"times"`
	Equipment []aggregate.EquipmentRow `json:"equipment"`
	Skipped   []Skipped                `json:"skipped"`
	Videos    []metadata.VideoRecord   `json:"videos"` // Videos that were processed successfully
}

type videoResult struct {
	events      []crossing.Event
	instruments int
	err         error
	done        bool
}

// Run processes every video in table. Videos are processed concurrently,
// but the result does not depend on the number of workers, or the order in which they finish.
func Run(log logs.Log, cfg Config, table *metadata.Table, source Source) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid pipeline config: %w", err)
	}

	summary := table.Summary()
	log.Infof("Pipeline: %v videos, %.0f seconds of footage, %v countries (%v)", summary.NumVideos, summary.TotalSeconds, len(summary.Countries), strings.Join(summary.Countries, ", "))

	orphans, err := unknownVideos(table, source)
	if err != nil {
		return nil, err
	}
	if len(orphans) != 0 && cfg.FailurePolicy == FailFast {
		return nil, fmt.Errorf("Video %v: %w", orphans[0], dataerr.NotFound(orphans[0]))
	}

	videos := table.Records()
	results := make([]videoResult, len(videos))

	queue := make(chan int, len(videos))
	for i := range videos {
		queue <- i
	}
	close(queue)

	// Under FailFast, videos after the earliest failure are not processed.
	// Every video before it still is, so the failure we report does not depend on scheduling.
	var firstFailure atomic.Int64
	firstFailure.Store(int64(len(videos)))

	timing := perfstats.NewStages("read", "extract", "classify")
	nWorkers := min(cfg.Workers, max(len(videos), 1))
	workerDone := make(chan bool, nWorkers)
	worker := func() {
		for i := range queue {
			if int64(i) > firstFailure.Load() {
				continue
			}
			events, instruments, err := processVideo(cfg, table, source, &videos[i], timing)
			results[i] = videoResult{events: events, instruments: instruments, err: err, done: true}
			if err != nil && cfg.FailurePolicy == FailFast {
				for {
					prev := firstFailure.Load()
					if int64(i) >= prev || firstFailure.CompareAndSwap(prev, int64(i)) {
						break
					}
				}
			}
		}
		workerDone <- true
	}
	for i := 0; i < nWorkers; i++ {
		go worker()
	}
	for i := 0; i < nWorkers; i++ {
		<-workerDone
	}
	log.Debugf("Pipeline: %v workers. Per video: %v", nWorkers, timing.Summary())

	res := &Result{
		Events:  []crossing.Event{},
		Skipped: []Skipped{},
		Videos:  []metadata.VideoRecord{},
	}
	instruments := map[string]int{}
	for i, r := range results {
		if !r.done {
			continue
		}
		if r.err != nil {
			if cfg.FailurePolicy == FailFast {
				return nil, fmt.Errorf("Video %v: %w", videos[i].VideoID, r.err)
			}
			log.Warnf("Pipeline: Skipping video %v: %v", videos[i].VideoID, r.err)
			res.Skipped = append(res.Skipped, Skipped{VideoID: videos[i].VideoID, Reason: r.err.Error()})
			continue
		}
		res.Events = append(res.Events, r.events...)
		res.Videos = append(res.Videos, videos[i])
		instruments[videos[i].VideoID] = r.instruments
	}
	for _, id := range orphans {
		notFound := dataerr.NotFound(id)
		log.Warnf("Pipeline: Ignoring tracks of video %v: %v", id, notFound)
		res.Skipped = append(res.Skipped, Skipped{VideoID: id, Reason: notFound.Error()})
	}
	sort.SliceStable(res.Skipped, func(i, j int) bool { return res.Skipped[i].VideoID < res.Skipped[j].VideoID })
	crossing.SortEvents(res.Events)

	if res.Rows, err = aggregate.Aggregate(res.Events, res.Videos); err != nil {
		return nil, err
	}
	if res.Times, err = aggregate.CrossingTimes(res.Events, res.Videos); err != nil {
		return nil, err
	}
	if res.Equipment, err = aggregate.Equipment(res.Events, res.Videos, instruments); err != nil {
		return nil, err
	}

	log.Infof("Pipeline: %v crossings in %v videos (%v skipped), %v groups", len(res.Events), len(res.Videos), len(res.Skipped), len(res.Rows))
	return res, nil
}

// unknownVideos returns the videos in source that have no metadata record, sorted
func unknownVideos(table *metadata.Table, source Source) ([]string, error) {
	lister, ok := source.(Lister)
	if !ok {
		return nil, nil
	}
	unknown := []string{}
	for _, id := range lister.VideoIDs() {
		if _, err := table.Lookup(id); err != nil {
			if !errors.Is(err, dataerr.ErrNotFound) {
				return nil, err
			}
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

// processVideo is the unit of work for a single video: ingest -> extract -> classify.
// It also returns the number of pieces of traffic equipment tracked in the video.
func processVideo(cfg Config, table *metadata.Table, source Source, rec *metadata.VideoRecord, timing *perfstats.Stages) ([]crossing.Event, int, error) {
	start := time.Now()
	raw, err := source.Points(rec.VideoID)
	if err != nil {
		return nil, 0, err
	}
	people, instruments := track.SplitInstruments(raw)
	tracks, err := track.Ingest(rec.VideoID, people, cfg.MinTrackPoints)
	if err != nil {
		return nil, 0, err
	}
	sightings := track.NewSightings(instruments)
	start = timing.Since("read", start)
	events, err := crossing.Extract(rec.VideoID, rec.FrameCount(), tracks, cfg.Config)
	if err != nil {
		return nil, 0, err
	}
	start = timing.Since("extract", start)
	events, err = classify.ClassifyAll(events, table)
	if err != nil {
		return nil, 0, err
	}
	classify.MarkInstruments(events, sightings)
	timing.Since("classify", start)
	return events, sightings.NumObjects(), nil
}
