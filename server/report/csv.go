// Package report writes pipeline results as CSV tables and charts.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/cyclopcam/crosswalk/pkg/aggregate"
	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/pipeline"
)

// Floats are written in their shortest exact form, so that identical results produce identical files
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func WriteAggregates(w io.Writer, rows []aggregate.Row) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Country,
			r.Condition.String(),
			strconv.Itoa(r.RawCount),
			formatFloat(r.TotalDurationSeconds),
			formatFloat(r.Rate),
		})
	}
	return writeCSV(w, []string{"country", "condition", "raw_count", "total_duration_seconds", "rate"}, out)
}

// WriteEvents writes one line per crossing. merged_track_ids is a semicolon separated list.
func WriteEvents(w io.Writer, events []crossing.Event) error {
	out := make([][]string, 0, len(events))
	for _, ev := range events {
		ids := make([]string, 0, len(ev.TrackIDs))
		for _, id := range ev.TrackIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		out = append(out, []string{
			ev.VideoID,
			strconv.FormatInt(ev.TrackID, 10),
			strconv.Itoa(ev.StartFrame),
			strconv.Itoa(ev.EndFrame),
			ev.Condition.String(),
			strings.Join(ids, ";"),
			strconv.FormatBool(ev.InstrumentSeen),
		})
	}
	return writeCSV(w, []string{"video_id", "track_id", "start_frame", "end_frame", "condition", "merged_track_ids", "instrument_seen"}, out)
}

func WriteCrossingTimes(w io.Writer, times []aggregate.TimeStats) error {
	out := make([][]string, 0, len(times))
	for _, t := range times {
		out = append(out, []string{
			t.Country,
			t.Condition.String(),
			strconv.Itoa(t.NumEvents),
			formatFloat(t.MeanSeconds),
			formatFloat(t.StdDevSeconds),
		})
	}
	return writeCSV(w, []string{"country", "condition", "num_events", "mean_seconds", "std_dev_seconds"}, out)
}

func WriteEquipment(w io.Writer, rows []aggregate.EquipmentRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Country,
			r.TimeOfDay,
			strconv.Itoa(r.NumVideos),
			formatFloat(r.TotalDurationSeconds),
			strconv.Itoa(r.Instruments),
			formatFloat(r.InstrumentsPerMinute),
			strconv.Itoa(r.Crossings),
			strconv.Itoa(r.CrossingsWithInstrument),
		})
	}
	header := []string{"country", "time_of_day", "num_videos", "total_duration_seconds", "instruments", "instruments_per_minute", "crossings", "crossings_with_instrument"}
	return writeCSV(w, header, out)
}

func WriteSkipped(w io.Writer, skipped []pipeline.Skipped) error {
	out := make([][]string, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, []string{s.VideoID, s.Reason})
	}
	return writeCSV(w, []string{"video_id", "reason"}, out)
}
