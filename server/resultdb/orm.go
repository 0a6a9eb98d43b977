package resultdb

import (
	"github.com/cyclopcam/crosswalk/pkg/pipeline"
	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Run is a single execution of the pipeline
type Run struct {
	BaseModel
	CreatedAt  dbh.IntTime                     `json:"createdAt"`
	Config     *dbh.JSONField[pipeline.Config] `json:"config"`
	NumVideos  int                             `json:"numVideos"` // Videos processed successfully
	NumSkipped int                             `json:"numSkipped"`
	NumEvents  int                             `json:"numEvents"`
}

type AggregateRow struct {
	BaseModel
	RunID                int64
	Country              string
	Condition            string
	RawCount             int
	TotalDurationSeconds float64
	Rate                 float64
}

type SkippedVideo struct {
	BaseModel
	RunID   int64
	VideoID string
	Reason  string
}

type CrossingEvent struct {
	BaseModel
	RunID      int64
	VideoID    string
	TrackID    int64
	StartFrame int
	EndFrame   int
	Condition  string
	TrackIDs   *dbh.JSONField[[]int64]

	InstrumentSeen bool
}

type CrossingTime struct {
	BaseModel
	RunID         int64
	Country       string
	Condition     string
	NumEvents     int
	MeanSeconds   float64
	StdDevSeconds float64
}

type EquipmentRow struct {
	BaseModel
	RunID                   int64
	Country                 string
	TimeOfDay               string
	NumVideos               int
	TotalDurationSeconds    float64
	Instruments             int
	InstrumentsPerMinute    float64
	Crossings               int
	CrossingsWithInstrument int
}
