// Package kibi formats and parses byte sizes in powers of 1024
package kibi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidByteSize = errors.New("Invalid byte size")

var units = []struct {
	suffix string
	size   int64
}{
	{"PB", 1 << 50},
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
}

// FormatBytes rounds down to the largest whole unit, eg "35 MB"
func FormatBytes(b int64) string {
	for _, u := range units {
		if b >= u.size {
			return fmt.Sprintf("%v %v", b/u.size, u.suffix)
		}
	}
	return fmt.Sprintf("%v bytes", b)
}

// Parse reads sizes such as "64 MB", "64mb", "64m" or "512"
func Parse(v string) (int64, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("%w '%v'", ErrInvalidByteSize, v)
	}
	n, err := strconv.ParseInt(v[:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w '%v'", ErrInvalidByteSize, v)
	}
	suffix := strings.TrimSpace(v[end:])
	if suffix == "" || suffix == "B" || suffix == "BYTES" {
		return n, nil
	}
	for _, u := range units {
		if suffix == u.suffix || suffix == u.suffix[:1] {
			return n * u.size, nil
		}
	}
	return 0, fmt.Errorf("%w '%v'", ErrInvalidByteSize, v)
}

// Size is a byte count that is written as a human readable string in JSON, eg "64 MB"
type Size int64

func (s Size) MarshalText() ([]byte, error) {
	return []byte(FormatBytes(int64(s))), nil
}

func (s *Size) UnmarshalText(b []byte) error {
	n, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = Size(n)
	return nil
}
