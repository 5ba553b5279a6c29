package config

import (
	"github.com/cockroachdb/errors"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDemux(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDemux() error {
	if len(c.Demux.AcceptedDocTypes) == 0 {
		return errors.New("demux.accepted_doc_types must list at least one doc type")
	}
	if c.Demux.MaxDecodeDelay < 1 {
		return errors.New("demux.max_decode_delay must be at least 1")
	}
	if c.Demux.MaxReadVersion < 1 || c.Demux.MaxReadVersion > maxSupportedReadVersion {
		return errors.Newf("demux.max_read_version must be between 1 and %d", maxSupportedReadVersion)
	}
	if c.Demux.ClusterResyncLimit < 0 {
		return errors.New("demux.cluster_resync_limit must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return errors.Newf("logging.format must be console, json or auto, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
