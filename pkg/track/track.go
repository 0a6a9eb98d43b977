// Package track groups raw per-frame observations from an external
// tracker into per-object timelines.
package track

import (
	"fmt"
	"sort"

	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/geom"
)

// DefaultMinPoints is the minimum number of observations for a track to be kept
const DefaultMinPoints = 2

// RawPoint is a single observation of a tracked object, as read from the tracker output.
type RawPoint struct {
	TrackID    int64
	FrameIndex int
	X          float32 // normalized 0..1 across the frame width
	Y          float32 // normalized 0..1 across the frame height
	Instrument bool    // A traffic light or sign, rather than a pedestrian
}

// Point is one observation of one tracked pedestrian in one video.
type Point struct {
	VideoID    string
	TrackID    int64
	FrameIndex int
	Pos        geom.Point
}

// Track is the time-ordered list of observations that share (VideoID, TrackID).
type Track struct {
	VideoID string
	ID      int64
	Points  []Point // sorted by FrameIndex, no duplicate frames
}

func (t *Track) StartFrame() int {
	return t.Points[0].FrameIndex
}

func (t *Track) EndFrame() int {
	return t.Points[len(t.Points)-1].FrameIndex
}

func (t *Track) First() geom.Point {
	return t.Points[0].Pos
}

func (t *Track) Last() geom.Point {
	return t.Points[len(t.Points)-1].Pos
}

// Bounds returns the bounding box of all positions in the track
func (t *Track) Bounds() geom.Rect {
	r := geom.EmptyRect()
	for _, p := range t.Points {
		r.Expand(p.Pos)
	}
	return r
}

// NearestTo returns the observation whose frame is closest to frame.
// On a tie, the earlier observation wins.
func (t *Track) NearestTo(frame int) Point {
	i := sort.Search(len(t.Points), func(i int) bool {
		return t.Points[i].FrameIndex >= frame
	})
	if i == 0 {
		return t.Points[0]
	}
	if i == len(t.Points) {
		return t.Points[len(t.Points)-1]
	}
	before := t.Points[i-1]
	after := t.Points[i]
	if frame-before.FrameIndex <= after.FrameIndex-frame {
		return before
	}
	return after
}

// Ingest groups raw points by track ID, and sorts each track by frame index.
// Tracks with fewer than minPoints observations are discarded as noise.
// If a track has more than one observation on the same frame, the first one is kept.
func Ingest(videoID string, raw []RawPoint, minPoints int) (map[int64]*Track, error) {
	if minPoints < 1 {
		minPoints = 1
	}
	grouped := map[int64]*Track{}
	for _, rp := range raw {
		if rp.FrameIndex < 0 {
			return nil, &dataerr.Error{
				Kind:    dataerr.ErrRange,
				VideoID: videoID,
				Msg:     fmt.Sprintf("negative frame_index %v in track %v", rp.FrameIndex, rp.TrackID),
			}
		}
		t := grouped[rp.TrackID]
		if t == nil {
			t = &Track{
				VideoID: videoID,
				ID:      rp.TrackID,
			}
			grouped[rp.TrackID] = t
		}
		t.Points = append(t.Points, Point{
			VideoID:    videoID,
			TrackID:    rp.TrackID,
			FrameIndex: rp.FrameIndex,
			Pos:        geom.Point{X: rp.X, Y: rp.Y},
		})
	}

	for id, t := range grouped {
		sort.SliceStable(t.Points, func(i, j int) bool {
			return t.Points[i].FrameIndex < t.Points[j].FrameIndex
		})
		t.Points = dedupFrames(t.Points)
		if len(t.Points) < minPoints {
			delete(grouped, id)
		}
	}

	return grouped, nil
}

// SortedIDs returns the keys of tracks in ascending order
func SortedIDs(tracks map[int64]*Track) []int64 {
	ids := make([]int64, 0, len(tracks))
	for id := range tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func dedupFrames(points []Point) []Point {
	out := points[:0]
	for i, p := range points {
		if i > 0 && p.FrameIndex == out[len(out)-1].FrameIndex {
			continue
		}
		out = append(out, p)
	}
	return out
}
