package pipeline

import (
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/cyclopcam/crosswalk/pkg/dataerr"
	"github.com/cyclopcam/crosswalk/pkg/kibi"
	"github.com/cyclopcam/crosswalk/pkg/storage"
	"github.com/cyclopcam/crosswalk/pkg/track"
)

// Source supplies the raw tracker output of each video.
// Implementations must be safe for concurrent use.
type Source interface {
	Points(videoID string) ([]track.RawPoint, error)
}

// Lister is implemented by sources that know every video they hold.
// Run uses it to reject tracker output for videos that have no metadata record.
type Lister interface {
	VideoIDs() []string
}

// MemorySource holds the tracker output of many videos, keyed by video ID.
// A video with no entry has no observations.
type MemorySource map[string][]track.RawPoint

// NewMemorySource reads a single track file that has a video_id column
func NewMemorySource(r io.Reader, opts track.ReadOptions) (MemorySource, error) {
	all, err := track.ReadCSV(r, opts)
	if err != nil {
		return nil, err
	}
	return MemorySource(all), nil
}

func (m MemorySource) Points(videoID string) ([]track.RawPoint, error) {
	return m[videoID], nil
}

// VideoIDs returns every video in the source, sorted
func (m MemorySource) VideoIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StorageSource reads one track file per video from a blob store.
// The file for video V is <Prefix>/V.csv
type StorageSource struct {
	Store             storage.Storage
	Prefix            string
	PersonClass       int
	InstrumentClasses []int
	MaxFileSize       int64 // If non-zero, larger track files are rejected without being parsed
}

func (s *StorageSource) Filename(videoID string) string {
	return path.Join(s.Prefix, videoID+".csv")
}

func (s *StorageSource) Points(videoID string) ([]track.RawPoint, error) {
	name := s.Filename(videoID)
	f, err := s.Store.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("Failed to open track file %v: %w", s.Store.Describe(name), err)
	}
	defer f.Reader.Close()
	if s.MaxFileSize != 0 && f.Size > s.MaxFileSize {
		return nil, dataerr.Rangef("%v is %v, which exceeds the limit of %v", s.Store.Describe(name), kibi.FormatBytes(f.Size), kibi.FormatBytes(s.MaxFileSize))
	}
	all, err := track.ReadCSV(f.Reader, track.ReadOptions{DefaultVideoID: videoID, PersonClass: s.PersonClass, InstrumentClasses: s.InstrumentClasses})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", s.Store.Describe(name), err)
	}
	for id := range all {
		if id != videoID {
			return nil, dataerr.Schemaf("%v contains rows for video '%v'", s.Store.Describe(name), id)
		}
	}
	return all[videoID], nil
}
