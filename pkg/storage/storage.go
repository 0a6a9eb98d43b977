// Package storage abstracts the blob store that holds tracker output and reports.
package storage

import (
	"errors"
	"io"
	"time"
)

var ErrNotExist = errors.New("file does not exist")

// Storage is an abstraction of a blob store (eg GCS, or a directory on disk)
type Storage interface {
	// When finished, you must close the WriteCloser
	WriteFile(name string) (io.WriteCloser, error)

	// When finished, you must close File.Reader.
	// If the file does not exist, the error wraps ErrNotExist.
	ReadFile(name string) (*File, error)

	DeleteFile(name string) error

	// Describe returns a human readable location, for logs
	Describe(name string) string
}

// File is an element in blob storage.
type File struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

// Config selects a blob store. Exactly one of the options must be set.
type Config struct {
	Filesystem *ConfigFS  `json:"filesystem,omitempty"`
	GCS        *ConfigGCS `json:"gcs,omitempty"`
}

type ConfigFS struct {
	Root string `json:"root"` // Path to the root of the filesystem
}

type ConfigGCS struct {
	Bucket string `json:"bucket"` // Name of the GCS bucket
}

func WriteFile(s Storage, name string, content io.Reader) error {
	f, err := s.WriteFile(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, content)
	errClose := f.Close()
	if err != nil {
		return err
	}
	return errClose
}

func ReadFile(s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}
