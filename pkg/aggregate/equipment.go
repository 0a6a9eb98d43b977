package aggregate

import (
	"sort"

	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
)

// EquipmentRow describes the traffic equipment that the tracker detected in one
// (Country, TimeOfDay) group, and how many crossings happened in sight of it.
type EquipmentRow struct {
	Country                 string  `json:"country"`
	TimeOfDay               string  `json:"timeOfDay"`
	NumVideos               int     `json:"numVideos"`
	TotalDurationSeconds    float64 `json:"totalDurationSeconds"`
	Instruments             int     `json:"instruments"` // Distinct traffic lights and signs
	InstrumentsPerMinute    float64 `json:"instrumentsPerMinute"`
	Crossings               int     `json:"crossings"`
	CrossingsWithInstrument int     `json:"crossingsWithInstrument"`
}

type equipmentKey struct {
	country   string
	timeOfDay string
}

// Equipment groups videos by country and time of day. instruments holds the
// number of distinct pieces of equipment tracked in each video; a video that
// is absent from it had none.
func Equipment(events []crossing.Event, videos []metadata.VideoRecord, instruments map[string]int) ([]EquipmentRow, error) {
	keyOf := func(v *metadata.VideoRecord) equipmentKey {
		return equipmentKey{v.Country, v.TimeOfDay}
	}

	byID := indexVideos(videos)
	groups := map[equipmentKey]*EquipmentRow{}
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
			row = &EquipmentRow{Country: k.country, TimeOfDay: k.timeOfDay}
			groups[k] = row
		}
		row.NumVideos++
		row.TotalDurationSeconds += v.DurationSeconds
		row.Instruments += instruments[v.VideoID]
	}

	for _, ev := range events {
		v, ok := byID[ev.VideoID]
		if !ok {
			return nil, dataerr.NotFound(ev.VideoID)
		}
		row := groups[keyOf(v)]
		row.Crossings++
		if ev.InstrumentSeen {
			row.CrossingsWithInstrument++
		}
	}

	rows := make([]EquipmentRow, 0, len(groups))
	for _, row := range groups {
		if row.TotalDurationSeconds <= 0 {
			continue
		}
		row.InstrumentsPerMinute = float64(row.Instruments) * 60 / row.TotalDurationSeconds
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Country != rows[j].Country {
			return rows[i].Country < rows[j].Country
		}
		return rows[i].TimeOfDay < rows[j].TimeOfDay
	})
	return rows, nil
}
