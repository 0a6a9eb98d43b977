// Package crossing turns pedestrian tracks into street-crossing events.
//
// A crossing is a traversal of the road, which we detect as displacement along
// the road-transverse axis of the frame. Trackers frequently lose a pedestrian
// and pick them up again under a new identity, so a single physical crossing
// can be split over several tracks. We join such fragments with a union-find
// over pairwise merge relations, and emit one event per joined group.
//
// Tracks that cross the road on their own (candidates) merge with each other
// directly. Shorter fragments are first joined among themselves, and a fragment
// group is then attached to a candidate group only if it touches exactly one.
// A fragment never bridges two separate crossings.
package crossing

import (
	"fmt"
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/gen"
	"github.com/cyclopcam/crosswalk/pkg/geom"
	"github.com/cyclopcam/crosswalk/pkg/track"
)

// Absorbs float32 rounding when comparing a span against the displacement threshold
const spanEpsilon = 1e-5

// Condition is the traffic-control condition of the location where a crossing happened
type Condition int

const (
	ConditionUnclassified Condition = iota
	ConditionWithEquipment
	ConditionWithoutEquipment
)

func (c Condition) String() string {
	switch c {
	case ConditionWithEquipment:
		return "WITH_EQUIPMENT"
	case ConditionWithoutEquipment:
		return "WITHOUT_EQUIPMENT"
	}
	return "UNCLASSIFIED"
}

func (c Condition) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Condition) UnmarshalText(b []byte) error {
	v, err := ParseCondition(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func ParseCondition(s string) (Condition, error) {
	switch s {
	case "WITH_EQUIPMENT":
		return ConditionWithEquipment, nil
	case "WITHOUT_EQUIPMENT":
		return ConditionWithoutEquipment, nil
	case "UNCLASSIFIED", "":
		return ConditionUnclassified, nil
	}
	return ConditionUnclassified, fmt.Errorf("Unknown condition '%v'", s)
}

// Config controls crossing detection and fragment merging.
type Config struct {
	DisplacementThreshold float32   `json:"displacementThreshold"` // Minimum span along Axis, as a fraction of the frame (0..1)
	Axis                  geom.Axis `json:"axis"`                  // Road-transverse axis of the frame
	MergeFrameGap         int       `json:"mergeFrameGap"`         // Max number of frames between the end of one fragment and the start of the next
	MergeProximity        float32   `json:"mergeProximity"`        // Max distance between fragment end/start positions, as a fraction of the frame
}

func DefaultConfig() Config {
	return Config{
		DisplacementThreshold: 0.6,
		Axis:                  geom.AxisX,
		MergeFrameGap:         15,
		MergeProximity:        0.1,
	}
}

func (c *Config) Validate() error {
	if !(c.DisplacementThreshold > 0 && c.DisplacementThreshold <= 1) {
		return fmt.Errorf("displacementThreshold must be in (0, 1], but is %v", c.DisplacementThreshold)
	}
	if c.MergeFrameGap < 0 {
		return fmt.Errorf("mergeFrameGap may not be negative (%v)", c.MergeFrameGap)
	}
	if c.MergeProximity < 0 {
		return fmt.Errorf("mergeProximity may not be negative (%v)", c.MergeProximity)
	}
	return nil
}

// Event is a single inferred street crossing.
type Event struct {
	VideoID    string    `json:"videoID"`
	TrackID    int64     `json:"trackID"`  // Lowest track ID in the group
	TrackIDs   []int64   `json:"trackIDs"` // Every track merged into this event, ascending
	StartFrame int       `json:"startFrame"`
	EndFrame   int       `json:"endFrame"` // Inclusive
	Condition  Condition `json:"condition"`

	// True if the tracker saw a traffic light or sign at any time during the crossing.
	// This is independent of Condition, which comes from the video's metadata.
	InstrumentSeen bool `json:"instrumentSeen"`
}

// IsMerged is true if the event was reconstructed from more than one track
func (e *Event) IsMerged() bool {
	return len(e.TrackIDs) > 1
}

// CrossingSeconds is the time spent crossing, for a video recorded at fps
func (e *Event) CrossingSeconds(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(e.EndFrame-e.StartFrame+1) / fps
}

// Less orders events by (VideoID, StartFrame), with EndFrame and TrackID as tie breakers.
func Less(a, b *Event) bool {
	if a.VideoID != b.VideoID {
		return a.VideoID < b.VideoID
	}
	if a.StartFrame != b.StartFrame {
		return a.StartFrame < b.StartFrame
	}
	if a.EndFrame != b.EndFrame {
		return a.EndFrame < b.EndFrame
	}
	return a.TrackID < b.TrackID
}

// SortEvents sorts events into their canonical output order
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return Less(&events[i], &events[j])
	})
}

// Extract finds the crossing events in the tracks of a single video.
// frameCount is the number of frames in the video's observation window.
// Events are returned ordered by StartFrame.
func Extract(videoID string, frameCount int, tracks map[int64]*track.Track, cfg Config) ([]Event, error) {
	// Single point and zero-length tracks are never crossings
	list := make([]*track.Track, 0, len(tracks))
	for _, id := range track.SortedIDs(tracks) {
		t := tracks[id]
		if len(t.Points) < 2 || t.StartFrame() == t.EndFrame() {
			continue
		}
		list = append(list, t)
	}
	if len(list) == 0 {
		return nil, nil
	}

	uf := mergeGroups(list, cfg)

	events := []Event{}
	for _, members := range uf.groups() {
		ev, isCrossing := groupToEvent(videoID, list, members, cfg)
		if !isCrossing {
			continue
		}
		if ev.EndFrame < 0 || ev.StartFrame >= frameCount {
			return nil, dataerr.InvalidRangef(videoID, "event from track %v spans frames [%v, %v], which is outside of [0, %v)", ev.TrackID, ev.StartFrame, ev.EndFrame, frameCount)
		}
		ev.StartFrame = gen.Clamp(ev.StartFrame, 0, frameCount-1)
		ev.EndFrame = gen.Clamp(ev.EndFrame, 0, frameCount-1)
		events = append(events, ev)
	}

	SortEvents(events)
	return events, nil
}

// mergeGroups joins tracks that are pieces of the same crossing
func mergeGroups(list []*track.Track, cfg Config) *unionFind {
	isCandidate := make([]bool, len(list))
	for i, t := range list {
		isCandidate[i] = Displacement(t, cfg.Axis)+spanEpsilon >= cfg.DisplacementThreshold
	}

	uf := newUnionFind(len(list))
	links := relatedPairs(list, cfg)

	// Candidates with candidates, and fragments with fragments
	for _, l := range links {
		if isCandidate[l[0]] == isCandidate[l[1]] {
			uf.union(l[0], l[1])
		}
	}

	// The candidate groups that each fragment group touches
	touches := map[int]map[int]bool{}
	for _, l := range links {
		a, b := l[0], l[1]
		if isCandidate[a] == isCandidate[b] {
			continue
		}
		if isCandidate[a] {
			a, b = b, a
		}
		frag := uf.find(a)
		if touches[frag] == nil {
			touches[frag] = map[int]bool{}
		}
		touches[frag][uf.find(b)] = true
	}

	// Resolve against the roots found above, before any of the unions below change them
	attach := [][2]int{}
	for frag, cands := range touches {
		if len(cands) != 1 {
			continue
		}
		for c := range cands {
			attach = append(attach, [2]int{frag, c})
		}
	}
	for _, a := range attach {
		uf.union(a[0], a[1])
	}
	return uf
}

// relatedPairs returns every pair of tracks (i, j) where track j continues track i.
func relatedPairs(list []*track.Track, cfg Config) [][2]int {
	// Spatial index on the first position of every track, so that we can find
	// tracks that begin close to where another track was.
	fb := flatbush.NewFlatbush[float32]()
	fb.Reserve(len(list))
	for _, t := range list {
		p := t.First()
		fb.Add(p.X, p.Y, p.X, p.Y)
	}
	fb.Finish()

	pairs := [][2]int{}
	nearby := []int{}
	for i, a := range list {
		search := a.Bounds().Buffered(cfg.MergeProximity)
		nearby = fb.SearchFast(search.X1, search.Y1, search.X2, search.Y2, nearby[:0])
		for _, j := range nearby {
			if i == j || !startsBefore(a, list[j]) {
				continue
			}
			if isContinuation(a, list[j], cfg) {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// startsBefore imposes a total order on tracks, so that each pair is evaluated once
func startsBefore(a, b *track.Track) bool {
	if a.StartFrame() != b.StartFrame() {
		return a.StartFrame() < b.StartFrame()
	}
	return a.ID < b.ID
}

// isContinuation returns true if b (which starts no earlier than a) continues a.
// The tracks must overlap in time, or be separated by no more than MergeFrameGap frames.
// If they overlap, b's first position is compared to a's position at that same moment.
// Otherwise, b's first position is compared to a's last position.
func isContinuation(a, b *track.Track, cfg Config) bool {
	if b.StartFrame() > a.EndFrame()+cfg.MergeFrameGap {
		return false
	}
	var ref geom.Point
	if b.StartFrame() <= a.EndFrame() {
		ref = a.NearestTo(b.StartFrame()).Pos
	} else {
		ref = a.Last()
	}
	return ref.Distance(b.First()) <= cfg.MergeProximity
}

// groupToEvent builds the event for a group of merged tracks, and reports
// whether the group as a whole traverses the road.
func groupToEvent(videoID string, list []*track.Track, members []int, cfg Config) (Event, bool) {
	ev := Event{
		VideoID:    videoID,
		TrackIDs:   make([]int64, 0, len(members)),
		StartFrame: list[members[0]].StartFrame(),
		EndFrame:   list[members[0]].EndFrame(),
	}
	bounds := geom.EmptyRect()
	for _, m := range members {
		t := list[m]
		ev.TrackIDs = append(ev.TrackIDs, t.ID)
		ev.StartFrame = min(ev.StartFrame, t.StartFrame())
		ev.EndFrame = max(ev.EndFrame, t.EndFrame())
		tb := t.Bounds()
		bounds.Expand(geom.Point{X: tb.X1, Y: tb.Y1})
		bounds.Expand(geom.Point{X: tb.X2, Y: tb.Y2})
	}
	sort.Slice(ev.TrackIDs, func(i, j int) bool { return ev.TrackIDs[i] < ev.TrackIDs[j] })
	ev.TrackID = ev.TrackIDs[0]
	isCrossing := bounds.Span(cfg.Axis)+spanEpsilon >= cfg.DisplacementThreshold
	return ev, isCrossing
}

// Displacement returns the span of a track along the given axis
func Displacement(t *track.Track, axis geom.Axis) float32 {
	return t.Bounds().Span(axis)
}
