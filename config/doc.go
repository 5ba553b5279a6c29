// Package config loads, normalizes, and validates mkvimport configuration.
//
// It supplies defaults for every demux knob, expands user paths, and reads
// TOML files. Settings that feed the importer are converted with
// Demux.ImportOptions so callers never assemble matroska.ImportOptions by
// hand.
package config
