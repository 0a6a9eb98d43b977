package report

import (
	"bytes"
	"io"
	"path"

	"github.com/cyclopcam/crosswalk/pkg/kibi"
	"github.com/cyclopcam/crosswalk/pkg/pipeline"
	"github.com/cyclopcam/crosswalk/pkg/storage"
	"github.com/cyclopcam/logs"
)

// Output file names, relative to the output prefix
const (
	AggregatesFile    = "aggregates.csv"
	EventsFile        = "events.csv"
	CrossingTimesFile = "crossing_times.csv"
	EquipmentFile     = "equipment.csv"
	SkippedFile       = "skipped.csv"
	RateChartFile     = "rate_chart.png"
)

// WriteAll writes every report for res into store, under prefix
func WriteAll(log logs.Log, store storage.Storage, prefix string, res *pipeline.Result) error {
	write := func(name string, render func(w io.Writer) error) error {
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return err
		}
		full := path.Join(prefix, name)
		size := int64(buf.Len())
		if err := storage.WriteFile(store, full, &buf); err != nil {
			return err
		}
		log.Infof("Wrote %v (%v)", store.Describe(full), kibi.FormatBytes(size))
		return nil
	}

	if err := write(AggregatesFile, func(w io.Writer) error { return WriteAggregates(w, res.Rows) }); err != nil {
		return err
	}
	if err := write(EventsFile, func(w io.Writer) error { return WriteEvents(w, res.Events) }); err != nil {
		return err
	}
	if err := write(CrossingTimesFile, func(w io.Writer) error { return WriteCrossingTimes(w, res.Times) }); err != nil {
		return err
	}
	if err := write(EquipmentFile, func(w io.Writer) error { return WriteEquipment(w, res.Equipment) }); err != nil {
		return err
	}
	if err := write(SkippedFile, func(w io.Writer) error { return WriteSkipped(w, res.Skipped) }); err != nil {
		return err
	}
	return write(RateChartFile, func(w io.Writer) error {
		png, err := RenderRateChart(res.Rows)
		if err != nil {
			return err
		}
		_, err = w.Write(png)
		return err
	})
}
