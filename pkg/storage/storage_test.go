package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageFS(t *testing.T) {
	log := logs.NewTestingLog(t)
	root := filepath.Join(t.TempDir(), "blobs")
	s, err := Open(log, Config{Filesystem: &ConfigFS{Root: root}})
	require.NoError(t, err)

	require.NoError(t, WriteFile(s, "tracks/V1.csv", bytes.NewReader([]byte("track_id,frame_index,x,y\n"))))
	b, err := ReadFile(s, "tracks/V1.csv")
	require.NoError(t, err)
	require.Equal(t, "track_id,frame_index,x,y\n", string(b))
	require.Equal(t, filepath.Join(root, "tracks/V1.csv"), s.Describe("tracks/V1.csv"))

	_, err = ReadFile(s, "tracks/V2.csv")
	require.ErrorIs(t, err, ErrNotExist)

	_, err = ReadFile(s, "../secrets")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotExist)

	require.NoError(t, s.DeleteFile("tracks/V1.csv"))
	_, err = ReadFile(s, "tracks/V1.csv")
	require.ErrorIs(t, err, ErrNotExist)
}

func TestOpenConfig(t *testing.T) {
	log := logs.NewTestingLog(t)
	_, err := Open(log, Config{})
	require.Error(t, err)
	_, err = Open(log, Config{Filesystem: &ConfigFS{Root: t.TempDir()}, GCS: &ConfigGCS{Bucket: "b"}})
	require.Error(t, err)
}
