package config

import (
	"slices"

	"github.com/ristryder/mkvimport/containers/matroska"
)

const (
	defaultConfigPath       = "~/.config/mkvimport/config.toml"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	maxSupportedReadVersion = matroska.DefaultMaxReadVersion
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Demux: Demux{
			AcceptedDocTypes:   []string{matroska.DefaultDocType},
			ClusterResyncLimit: matroska.DefaultClusterResyncLimit,
			FontMimeTypes:      slices.Clone(matroska.DefaultFontMimeTypes),
			MaxDecodeDelay:     matroska.DefaultMaxDecodeDelay,
			MaxReadVersion:     matroska.DefaultMaxReadVersion,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
