// Package aggregate reduces classified crossing events into per-group rates.
//
// A group is a (Country, Condition) pair. Every video contributes its duration
// to exactly one group, whether or not any crossings were seen in it, and every
// event is attributed to the group of the video it came from.
package aggregate

import (
	"sort"

	"github.com/cyclopcam/crosswalk/pkg/classify"
	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
	"github.com/cyclopcam/crosswalk/pkg/stats"
)

// Row is the normalized crossing frequency of one group.
type Row struct {
	Country              string             `json:"country"`
	Condition            crossing.Condition `json:"condition"`
	RawCount             int                `json:"rawCount"`
	TotalDurationSeconds float64            `json:"totalDurationSeconds"`
	Rate                 float64            `json:"rate"` // crossings per second
}

// RatePerMinute is the number of crossings per minute of footage
func (r *Row) RatePerMinute() float64 {
	return r.Rate * 60
}

// TimeStats summarizes how long crossings took in one group.
type TimeStats struct {
	Country       string             `json:"country"`
	Condition     crossing.Condition `json:"condition"`
	NumEvents     int                `json:"numEvents"`
	MeanSeconds   float64            `json:"meanSeconds"`
	StdDevSeconds float64            `json:"stdDevSeconds"`
}

type groupKey struct {
	country   string
	condition crossing.Condition
}

func lessKey(a, b groupKey) bool {
	if a.country != b.country {
		return a.country < b.country
	}
	return a.condition < b.condition
}

func keyOf(v *metadata.VideoRecord) groupKey {
	return groupKey{v.Country, classify.ConditionOf(v)}
}

func indexVideos(videos []metadata.VideoRecord) map[string]*metadata.VideoRecord {
	byID := make(map[string]*metadata.VideoRecord, len(videos))
	for i := range videos {
		byID[videos[i].VideoID] = &videos[i]
	}
	return byID
}

// Aggregate counts events per group, and divides by the total duration of the
// distinct videos in each group. videos must hold exactly the videos that were
// processed successfully. A video listed more than once is counted once.
// An event from a video that is not in videos is an ErrNotFound error.
func Aggregate(events []crossing.Event, videos []metadata.VideoRecord) ([]Row, error) {
	byID := indexVideos(videos)

	groups := map[groupKey]*Row{}
	seen := map[string]bool{}
	for i := range videos {
		v := &videos[i]
		if seen[v.VideoID] {
			continue
		}
		seen[v.VideoID] = true
		k := keyOf(v)
		row := groups[k]
		if row == nil {
			row = &Row{Country: k.country, Condition: k.condition}
			groups[k] = row
		}
		row.TotalDurationSeconds += v.DurationSeconds
	}

	for _, ev := range events {
		v, ok := byID[ev.VideoID]
		if !ok {
			return nil, dataerr.NotFound(ev.VideoID)
		}
		groups[keyOf(v)].RawCount++
	}

	rows := make([]Row, 0, len(groups))
	for _, row := range groups {
		if row.TotalDurationSeconds <= 0 {
			continue
		}
		row.Rate = float64(row.RawCount) / row.TotalDurationSeconds
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return lessKey(groupKey{rows[i].Country, rows[i].Condition}, groupKey{rows[j].Country, rows[j].Condition})
	})
	return rows, nil
}

// CrossingTimes returns the mean and standard deviation of crossing duration per group.
// Groups without any events are omitted.
func CrossingTimes(events []crossing.Event, videos []metadata.VideoRecord) ([]TimeStats, error) {
	byID := indexVideos(videos)
	samples := map[groupKey][]float64{}
	for _, ev := range events {
		v, ok := byID[ev.VideoID]
		if !ok {
			return nil, dataerr.NotFound(ev.VideoID)
		}
		k := keyOf(v)
		samples[k] = append(samples[k], ev.CrossingSeconds(v.FPS))
	}

	keys := make([]groupKey, 0, len(samples))
	for k := range samples {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	out := make([]TimeStats, 0, len(keys))
	for _, k := range keys {
		mean, std := stats.MeanStdDev(samples[k])
		out = append(out, TimeStats{
			Country:       k.country,
			Condition:     k.condition,
			NumEvents:     len(samples[k]),
			MeanSeconds:   mean,
			StdDevSeconds: std,
		})
	}
	return out, nil
}
