package pipeline

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/cyclopcam/crosswalk/pkg/track"
)

// FailurePolicy decides what happens when a single video cannot be processed
type FailurePolicy string

const (
	FailFast   FailurePolicy = "abort" // The whole run fails
	SkipAndLog FailurePolicy = "skip"  // The video is excluded from the results, and recorded in Result.Skipped
)

func (p *FailurePolicy) UnmarshalText(b []byte) error {
	switch FailurePolicy(b) {
	case FailFast, SkipAndLog:
		*p = FailurePolicy(b)
		return nil
	}
	return fmt.Errorf("Invalid failure policy '%v'. Valid values are '%v' and '%v'", string(b), FailFast, SkipAndLog)
}

// Config is the complete set of knobs for a pipeline run.
// The crossing detection parameters are embedded, so they appear at the top level of the JSON.
type Config struct {
	crossing.Config
	MinTrackPoints int           `json:"minTrackPoints"` // Tracks with fewer observations than this are discarded
	FailurePolicy  FailurePolicy `json:"failurePolicy"`
	Workers        int           `json:"workers"`     // Number of videos processed concurrently
	PersonClass    int           `json:"personClass"` // Class index of pedestrians, when tracker output contains other classes

	// Class indices of traffic lights and signs. Their tracks are counted, and
	// used to tell whether equipment was visible during each crossing.
	InstrumentClasses []int `json:"instrumentClasses"`
}

func DefaultConfig() Config {
	return Config{
		Config:         crossing.DefaultConfig(),
		MinTrackPoints: track.DefaultMinPoints,
		FailurePolicy:  FailFast,
		Workers:        runtime.NumCPU(),
		PersonClass:    track.COCOPerson,

		InstrumentClasses: slices.Clone(track.DefaultInstrumentClasses),
	}
}

func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.MinTrackPoints < 2 {
		return fmt.Errorf("minTrackPoints must be at least 2 (%v)", c.MinTrackPoints)
	}
	if c.FailurePolicy != FailFast && c.FailurePolicy != SkipAndLog {
		return fmt.Errorf("failurePolicy must be '%v' or '%v' (%v)", FailFast, SkipAndLog, c.FailurePolicy)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1 (%v)", c.Workers)
	}
	if slices.Contains(c.InstrumentClasses, c.PersonClass) {
		return fmt.Errorf("personClass %v may not also be an instrument class", c.PersonClass)
	}
	return nil
}

func (c *Config) ReadOptions(defaultVideoID string) track.ReadOptions {
	return track.ReadOptions{
		DefaultVideoID:    defaultVideoID,
		PersonClass:       c.PersonClass,
		InstrumentClasses: c.InstrumentClasses,
	}
}
