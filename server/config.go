package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cyclopcam/crosswalk/pkg/kibi"
	"github.com/cyclopcam/crosswalk/pkg/pipeline"
	"github.com/cyclopcam/crosswalk/pkg/storage"
	"github.com/cyclopcam/dbh"
)

type Config struct {
	DB        dbh.DBConfig    `json:"db"`
	Storage   storage.Config  `json:"storage"`
	Input     InputConfig     `json:"input"`
	Pipeline  pipeline.Config `json:"pipeline"`
	OutputDir string          `json:"outputDir"` // Reports of run N are written under <outputDir>/run-N
	Listen    string          `json:"listen"`    // eg ":8080"
	RateLimit int             `json:"rateLimit"` // Max API requests per minute, per client IP. Zero disables the limit.
}

// InputConfig locates the input data inside the blob store
type InputConfig struct {
	Metadata     string    `json:"metadata"`     // Metadata CSV
	Tracks       string    `json:"tracks"`       // A single track CSV with a video_id column
	TracksPrefix string    `json:"tracksPrefix"` // Directory of per-video track files (<video_id>.csv). Used when Tracks is empty.
	MaxFileSize  kibi.Size `json:"maxFileSize"`  // eg "256 MB". Zero means no limit.
}

func DefaultConfig() Config {
	return Config{
		DB: dbh.MakeSqliteConfig("crosswalk.sqlite"),
		Input: InputConfig{
			Metadata:     "metadata.csv",
			TracksPrefix: "tracks",
			MaxFileSize:  256 * 1024 * 1024,
		},
		Pipeline:  pipeline.DefaultConfig(),
		OutputDir: "reports",
		Listen:    ":8080",
		RateLimit: 120,
	}
}

// LoadConfig reads a JSON config file. Fields that are not in the file keep their defaults.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if cfgB, err := os.ReadFile(configFile); err != nil {
		return nil, err
	} else {
		if err := json.Unmarshal(cfgB, &cfg); err != nil {
			return nil, fmt.Errorf("Error parsing config file %v: %w", configFile, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid config file %v: %w", configFile, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Storage.Filesystem == nil && c.Storage.GCS == nil {
		return errors.New("One of the storage options must be configured (i.e. either 'filesystem' or 'gcs')")
	}
	if c.Input.Metadata == "" {
		return errors.New("input.metadata must be specified")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit may not be negative (%v)", c.RateLimit)
	}
	return c.Pipeline.Validate()
}
