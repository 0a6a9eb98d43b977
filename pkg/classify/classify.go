// Package classify labels crossing events with the traffic-control condition of their location.
package classify

import (
	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/metadata"
	"github.com/cyclopcam/crosswalk/pkg/track"
)

// Lookup resolves a video's metadata. *metadata.Table satisfies it.
type Lookup interface {
	Lookup(videoID string) (metadata.VideoRecord, error)
}

// ConditionOf returns the condition of the location filmed in rec
func ConditionOf(rec *metadata.VideoRecord) crossing.Condition {
	if rec.HasEquipment() {
		return crossing.ConditionWithEquipment
	}
	return crossing.ConditionWithoutEquipment
}

// Classify returns a copy of ev with its Condition set.
// An event from a video that has no metadata is an error. We never guess a label.
func Classify(ev crossing.Event, lookup Lookup) (crossing.Event, error) {
	rec, err := lookup.Lookup(ev.VideoID)
	if err != nil {
		return ev, err
	}
	ev.Condition = ConditionOf(&rec)
	return ev, nil
}

// ClassifyAll classifies every event, stopping at the first failure
func ClassifyAll(events []crossing.Event, lookup Lookup) ([]crossing.Event, error) {
	out := make([]crossing.Event, 0, len(events))
	for _, ev := range events {
		c, err := Classify(ev, lookup)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MarkInstruments sets InstrumentSeen on every event during which equipment was visible.
// events must all come from the video that sightings describes.
func MarkInstruments(events []crossing.Event, sightings *track.Sightings) {
	for i := range events {
		events[i].InstrumentSeen = sightings.SeenBetween(events[i].StartFrame, events[i].EndFrame)
	}
}
