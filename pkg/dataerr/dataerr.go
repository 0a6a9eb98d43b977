// Package dataerr holds the error kinds raised while loading and processing
// crossing data. Every error produced by the pipeline wraps one of the
// sentinel kinds below, so callers can test with errors.Is.
package dataerr

import (
	"errors"
	"fmt"
)

var (
	ErrSchema       = errors.New("schema error")        // malformed or missing columns
	ErrDuplicateKey = errors.New("duplicate key")       // repeated video_id
	ErrRange        = errors.New("value out of range")  // non-positive duration, negative frame index
	ErrNotFound     = errors.New("not found")           // reference to an unknown video_id
	ErrInvalidRange = errors.New("invalid frame range") // malformed track/event frame bounds
)

// Error carries the kind of failure, plus the video it is attributable to (if any).
type Error struct {
	Kind    error
	VideoID string
	Msg     string
}

func (e *Error) Error() string {
	if e.VideoID != "" {
		return fmt.Sprintf("%v (video %v): %v", e.Kind, e.VideoID, e.Msg)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Schemaf(format string, args ...any) error {
	return &Error{Kind: ErrSchema, Msg: fmt.Sprintf(format, args...)}
}

func DuplicateKeyf(format string, args ...any) error {
	return &Error{Kind: ErrDuplicateKey, Msg: fmt.Sprintf(format, args...)}
}

func Rangef(format string, args ...any) error {
	return &Error{Kind: ErrRange, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a reference to a video that has no metadata record.
func NotFound(videoID string) error {
	return &Error{Kind: ErrNotFound, VideoID: videoID, Msg: "no metadata record"}
}

func InvalidRangef(videoID string, format string, args ...any) error {
	return &Error{Kind: ErrInvalidRange, VideoID: videoID, Msg: fmt.Sprintf(format, args...)}
}

// VideoID returns the video that err is attributable to, or "" if it is not
// attributable to a single video.
func VideoID(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.VideoID
	}
	return ""
}
