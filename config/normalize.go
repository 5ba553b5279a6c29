package config

import (
	"slices"
	"strings"
)

func (c *Config) normalize() {
	c.normalizeDemux()
	c.normalizeLogging()
}

func (c *Config) normalizeDemux() {
	defaults := Default().Demux

	c.Demux.AcceptedDocTypes = trimList(c.Demux.AcceptedDocTypes)
	if len(c.Demux.AcceptedDocTypes) == 0 {
		c.Demux.AcceptedDocTypes = defaults.AcceptedDocTypes
	}

	// An explicitly empty list disables font registration.
	if c.Demux.FontMimeTypes != nil {
		c.Demux.FontMimeTypes = trimList(c.Demux.FontMimeTypes)
		for i, mimeType := range c.Demux.FontMimeTypes {
			c.Demux.FontMimeTypes[i] = strings.ToLower(mimeType)
		}
	}

	if c.Demux.ClusterResyncLimit == 0 {
		c.Demux.ClusterResyncLimit = defaults.ClusterResyncLimit
	}
	if c.Demux.MaxDecodeDelay == 0 {
		c.Demux.MaxDecodeDelay = defaults.MaxDecodeDelay
	}
	if c.Demux.MaxReadVersion == 0 {
		c.Demux.MaxReadVersion = defaults.MaxReadVersion
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || slices.Contains(trimmed, value) {
			continue
		}
		trimmed = append(trimmed, value)
	}
	return trimmed
}
