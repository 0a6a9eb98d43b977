package track

import (
	"encoding/csv"
	"errors"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/cyclopcam/crosswalk/pkg/dataerr"
)

// COCO class indices
const (
	COCOPerson       = 0
	COCOTrafficLight = 9
	COCOStopSign     = 11
)

// DefaultInstrumentClasses are the classes that count as traffic-control equipment
var DefaultInstrumentClasses = []int{COCOTrafficLight, COCOStopSign}

// Canonical column names, followed by the names used by the tracker's own CSV export
var columnAliases = map[string]string{
	"video_id":    "video_id",
	"track_id":    "track_id",
	"frame_index": "frame_index",
	"x":           "x",
	"y":           "y",
	"class":       "class",
	"unique id":   "track_id",
	"unique_id":   "track_id",
	"frame":       "frame_index",
	"x-center":    "x",
	"y-center":    "y",
	"yolo_id":     "class",
}

type ReadOptions struct {
	DefaultVideoID    string // Video that rows belong to when the file has no video_id column
	PersonClass       int    // When the file has a class column, rows of this class are pedestrians
	InstrumentClasses []int  // Rows of these classes are read as traffic equipment. Rows of any other class are ignored.
}

// ReadCSV reads raw tracker output. The result is keyed by video ID.
// If the file has no video_id column, every row belongs to opts.DefaultVideoID.
func ReadCSV(r io.Reader, opts ReadOptions) (map[string][]RawPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, dataerr.Schemaf("track file is empty")
	} else if err != nil {
		return nil, dataerr.Schemaf("failed to read track header: %v", err)
	}

	colMap := map[string]int{}
	for i, col := range header {
		if canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(col))]; ok {
			if _, exists := colMap[canonical]; !exists {
				colMap[canonical] = i
			}
		}
	}
	for _, col := range []string{"track_id", "frame_index", "x", "y"} {
		if _, ok := colMap[col]; !ok {
			return nil, dataerr.Schemaf("track file is missing column '%v'", col)
		}
	}
	videoCol, hasVideoCol := colMap["video_id"]
	_, hasClassCol := colMap["class"]
	if !hasVideoCol && opts.DefaultVideoID == "" {
		return nil, dataerr.Schemaf("track file has no video_id column, and no default video was given")
	}

	field := func(row []string, col string) string {
		idx := colMap[col]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	out := map[string][]RawPoint{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, dataerr.Schemaf("line %v: %v", line, err)
		}
		instrument := false
		if hasClassCol {
			class, err := strconv.Atoi(field(row, "class"))
			if err != nil {
				return nil, dataerr.Schemaf("line %v: invalid class '%v'", line, field(row, "class"))
			}
			if class != opts.PersonClass {
				if !slices.Contains(opts.InstrumentClasses, class) {
					continue
				}
				instrument = true
			}
		}
		videoID := opts.DefaultVideoID
		if hasVideoCol && videoCol < len(row) && strings.TrimSpace(row[videoCol]) != "" {
			videoID = strings.TrimSpace(row[videoCol])
		}
		if videoID == "" {
			return nil, dataerr.Schemaf("line %v: empty video_id", line)
		}
		trackID, err := strconv.ParseInt(field(row, "track_id"), 10, 64)
		if err != nil {
			return nil, dataerr.Schemaf("line %v: invalid track_id '%v'", line, field(row, "track_id"))
		}
		frame, err := strconv.Atoi(field(row, "frame_index"))
		if err != nil {
			return nil, dataerr.Schemaf("line %v: invalid frame_index '%v'", line, field(row, "frame_index"))
		}
		x, err := strconv.ParseFloat(field(row, "x"), 32)
		if err != nil {
			return nil, dataerr.Schemaf("line %v: invalid x '%v'", line, field(row, "x"))
		}
		y, err := strconv.ParseFloat(field(row, "y"), 32)
		if err != nil {
			return nil, dataerr.Schemaf("line %v: invalid y '%v'", line, field(row, "y"))
		}
		out[videoID] = append(out[videoID], RawPoint{
			TrackID:    trackID,
			FrameIndex: frame,
			X:          float32(x),
			Y:          float32(y),
			Instrument: instrument,
		})
	}
	return out, nil
}
