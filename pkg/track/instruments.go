package track

import "sort"

// SplitInstruments separates pedestrian observations from traffic equipment observations
func SplitInstruments(raw []RawPoint) (people, instruments []RawPoint) {
	for _, rp := range raw {
		if rp.Instrument {
			instruments = append(instruments, rp)
		} else {
			people = append(people, rp)
		}
	}
	return
}

// Sightings records when traffic equipment was visible in a video
type Sightings struct {
	frames []int // sorted, with duplicates
	tracks map[int64]bool
}

func NewSightings(instruments []RawPoint) *Sightings {
	s := &Sightings{
		frames: make([]int, 0, len(instruments)),
		tracks: map[int64]bool{},
	}
	for _, rp := range instruments {
		s.frames = append(s.frames, rp.FrameIndex)
		s.tracks[rp.TrackID] = true
	}
	sort.Ints(s.frames)
	return s
}

// NumObjects is the number of distinct pieces of equipment that were tracked
func (s *Sightings) NumObjects() int {
	return len(s.tracks)
}

// SeenBetween is true if any equipment was observed in the inclusive frame range [start, end]
func (s *Sightings) SeenBetween(start, end int) bool {
	i := sort.SearchInts(s.frames, start)
	return i < len(s.frames) && s.frames[i] <= end
}
