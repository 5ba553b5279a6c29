package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/ristryder/mkvimport/containers/matroska"
)

// Demux holds the importer settings.
type Demux struct {
	AcceptedDocTypes []string `toml:"accepted_doc_types"`
	// ClusterResyncLimit bounds the bytes scanned for the next cluster after
	// corrupt cluster data.
	ClusterResyncLimit int64    `toml:"cluster_resync_limit"`
	FontMimeTypes      []string `toml:"font_mime_types"`
	MaxDecodeDelay     int      `toml:"max_decode_delay"`
	MaxReadVersion     uint64   `toml:"max_read_version"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mkvimport.
type Config struct {
	Demux   Demux   `toml:"demux"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load parses and validates the configuration file at path, or the default
// location when path is empty. A missing file yields the defaults. The
// resolved path and whether it existed are returned alongside the config.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, errors.Wrap(err, "failed to open config")
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, errors.Wrap(err, "failed to parse config")
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// ImportOptions converts the demux settings into importer options.
func (d Demux) ImportOptions() matroska.ImportOptions {
	options := matroska.DefaultImportOptions()
	options.AcceptedDocTypes = slices.Clone(d.AcceptedDocTypes)
	options.ClusterResyncLimit = d.ClusterResyncLimit
	options.FontMimeTypes = slices.Clone(d.FontMimeTypes)
	options.MaxDecodeDelay = d.MaxDecodeDelay
	options.MaxReadVersion = d.MaxReadVersion

	return options
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, errors.Wrap(err, "failed to stat config")
	}
	if info.IsDir() {
		return "", false, errors.Newf("config path %s is a directory", expanded)
	}

	return expanded, true, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to resolve home directory")
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve absolute path for %q", pathValue)
	}
	return absolute, nil
}
