package storage

import (
	"errors"

	"github.com/cyclopcam/logs"
)

// Open creates the blob store described by cfg
func Open(log logs.Log, cfg Config) (Storage, error) {
	if cfg.GCS != nil && cfg.Filesystem != nil {
		return nil, errors.New("Only one of the storage options may be configured ('filesystem' or 'gcs')")
	}
	if cfg.GCS != nil {
		return NewStorageGCS(log, cfg.GCS.Bucket)
	} else if cfg.Filesystem != nil {
		return NewStorageFS(log, cfg.Filesystem.Root)
	}
	return nil, errors.New("One of the storage options must be configured (i.e. either 'filesystem' or 'gcs')")
}
