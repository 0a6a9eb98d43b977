// Package metadata loads the per-video mapping table: one row per video,
// giving its country, the traffic-control equipment visible in it, and how
// long it was observed for.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cyclopcam/crosswalk/pkg/dataerr"
)

// Column names of the mapping table
const (
	ColVideoID         = "video_id"
	ColCountry         = "country"
	ColHasTrafficLight = "has_traffic_light"
	ColHasTrafficSign  = "has_traffic_sign"
	ColDurationSeconds = "duration_seconds"
	ColFPS             = "fps"
	ColTimeOfDay       = "time_of_day"
	ColCity            = "city"
	ColState           = "state"
)

var requiredColumns = []string{
	ColVideoID,
	ColCountry,
	ColHasTrafficLight,
	ColHasTrafficSign,
	ColDurationSeconds,
	ColFPS,
}

// VideoRecord describes a single video. It is immutable once loaded.
type VideoRecord struct {
	VideoID         string  `json:"videoID"`
	Country         string  `json:"country"`
	HasTrafficLight bool    `json:"hasTrafficLight"`
	HasTrafficSign  bool    `json:"hasTrafficSign"`
	DurationSeconds float64 `json:"durationSeconds"`
	FPS             float64 `json:"fps"`
	TimeOfDay       string  `json:"timeOfDay"` // eg "day", "night". Empty if not specified.
	City            string  `json:"city"`
	State           string  `json:"state"`
}

// HasEquipment is true if any traffic-control equipment is present
func (v *VideoRecord) HasEquipment() bool {
	return v.HasTrafficLight || v.HasTrafficSign
}

// FrameCount is the number of frames covered by the video's observation window.
func (v *VideoRecord) FrameCount() int {
	return int(math.Ceil(v.DurationSeconds * v.FPS))
}

// Table is the validated set of video records, keyed by video ID.
type Table struct {
	records map[string]*VideoRecord
	sorted  []VideoRecord
}

// Summary is a description of the whole table, for logging
type Summary struct {
	TotalSeconds float64
	NumVideos    int
	Countries    []string
}

// NewTable builds a table from records, applying the same validation as Load.
func NewTable(records []VideoRecord) (*Table, error) {
	t := &Table{
		records: make(map[string]*VideoRecord, len(records)),
	}
	for i := range records {
		r := records[i]
		if err := validate(&r); err != nil {
			return nil, err
		}
		if _, exists := t.records[r.VideoID]; exists {
			return nil, dataerr.DuplicateKeyf("video_id '%v' appears more than once", r.VideoID)
		}
		t.records[r.VideoID] = &r
		t.sorted = append(t.sorted, r)
	}
	sort.Slice(t.sorted, func(i, j int) bool {
		return t.sorted[i].VideoID < t.sorted[j].VideoID
	})
	return t, nil
}

// Load reads a mapping table from CSV.
// The header row determines the column order. Unknown columns are ignored.
// Either the whole table validates, or an error is returned and no table is produced.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, dataerr.Schemaf("mapping table is empty")
	} else if err != nil {
		return nil, dataerr.Schemaf("failed to read header: %v", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[normalizeColumnName(col)] = i
	}
	missing := []string{}
	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) != 0 {
		return nil, dataerr.Schemaf("missing required columns: %v", strings.Join(missing, ", "))
	}

	records := []VideoRecord{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, dataerr.Schemaf("line %v: %v", line, err)
		}
		if isBlankRow(row) {
			continue
		}
		if len(row) != len(header) {
			return nil, dataerr.Schemaf("line %v: expected %v fields, but found %v", line, len(header), len(row))
		}
		rec, err := parseRow(row, colMap)
		if err != nil {
			return nil, fmt.Errorf("line %v: %w", line, err)
		}
		records = append(records, rec)
	}

	return NewTable(records)
}

// Lookup returns the record for the given video, or an ErrNotFound error
func (t *Table) Lookup(videoID string) (VideoRecord, error) {
	r, ok := t.records[videoID]
	if !ok {
		return VideoRecord{}, dataerr.NotFound(videoID)
	}
	return *r, nil
}

// Len returns the number of videos in the table
func (t *Table) Len() int {
	return len(t.sorted)
}

// Records returns a copy of all records, sorted by video ID
func (t *Table) Records() []VideoRecord {
	out := make([]VideoRecord, len(t.sorted))
	copy(out, t.sorted)
	return out
}

func (t *Table) Summary() Summary {
	s := Summary{
		NumVideos: len(t.sorted),
	}
	countries := map[string]bool{}
	for _, r := range t.sorted {
		s.TotalSeconds += r.DurationSeconds
		countries[r.Country] = true
	}
	for c := range countries {
		s.Countries = append(s.Countries, c)
	}
	sort.Strings(s.Countries)
	return s
}

func normalizeColumnName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isBlankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string, colMap map[string]int) (VideoRecord, error) {
	get := func(col string) string {
		if idx, ok := colMap[col]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	var err error
	rec := VideoRecord{
		VideoID:   get(ColVideoID),
		Country:   get(ColCountry),
		TimeOfDay: get(ColTimeOfDay),
		City:      get(ColCity),
		State:     get(ColState),
	}
	if rec.HasTrafficLight, err = ParseBool(get(ColHasTrafficLight)); err != nil {
		return rec, dataerr.Schemaf("%v: %v", ColHasTrafficLight, err)
	}
	if rec.HasTrafficSign, err = ParseBool(get(ColHasTrafficSign)); err != nil {
		return rec, dataerr.Schemaf("%v: %v", ColHasTrafficSign, err)
	}
	if rec.DurationSeconds, err = strconv.ParseFloat(get(ColDurationSeconds), 64); err != nil {
		return rec, dataerr.Schemaf("%v: %v", ColDurationSeconds, err)
	}
	if rec.FPS, err = strconv.ParseFloat(get(ColFPS), 64); err != nil {
		return rec, dataerr.Schemaf("%v: %v", ColFPS, err)
	}
	return rec, nil
}

func validate(r *VideoRecord) error {
	if r.VideoID == "" {
		return dataerr.Schemaf("empty video_id")
	}
	if r.Country == "" {
		return dataerr.Schemaf("video_id '%v' has no country", r.VideoID)
	}
	if !(r.DurationSeconds > 0) || math.IsInf(r.DurationSeconds, 0) {
		return dataerr.Rangef("video_id '%v' has duration_seconds %v, which must be positive", r.VideoID, r.DurationSeconds)
	}
	if !(r.FPS > 0) || math.IsInf(r.FPS, 0) {
		return dataerr.Rangef("video_id '%v' has fps %v, which must be positive", r.VideoID, r.FPS)
	}
	return nil
}

// ParseBool accepts the spellings found in hand-edited mapping files.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "t":
		return true, nil
	case "false", "0", "no", "n", "f":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean '%v'", s)
}
