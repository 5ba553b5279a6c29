package matroska

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

const (
	TrackTypeVideo    = 0x01
	TrackTypeAudio    = 0x02
	TrackTypeComplex  = 0x03
	TrackTypeLogo     = 0x10
	TrackTypeSubtitle = 0x11
	TrackTypeButtons  = 0x12
	TrackTypeControl  = 0x20

	defaultTrackLanguage = "eng"
)

type VideoEntry struct {
	DisplayHeight uint64
	DisplayWidth  uint64
	PixelHeight   uint64
	PixelWidth    uint64
}

type AudioEntry struct {
	BitDepth                uint64
	Channels                uint64
	OutputSamplingFrequency float64
	SamplingFrequency       float64
}

// TrackEntry is a TrackEntry element as stored in the file, before any sink
// resources exist for it.
type TrackEntry struct {
	Audio           *AudioEntry
	CodecId         string
	CodecPrivate    []byte
	DefaultDuration uint64
	Encodings       []ContentEncoding
	FlagDefault     bool
	FlagEnabled     bool
	FlagForced      bool
	FlagLacing      bool
	Language        string
	Name            string
	Number          uint64
	Type            uint64
	Uid             uint64
	Video           *VideoEntry
}

func (t *TrackEntry) String() string {
	return fmt.Sprintf("Track: %v , Type: %v , Codec: %v , Name: %v , Language: %v , Lacing? %v", t.Number, t.Type, t.CodecId, t.Name, t.Language, t.FlagLacing)
}

func (c *ElementCursor) readTrackEntryElement(trackEntryElement Element) (*TrackEntry, error) {
	track := &TrackEntry{FlagDefault: true, FlagEnabled: true, FlagLacing: true, Language: defaultTrackLanguage}

	childrenErr := c.readChildren(trackEntryElement, func(element Element) error {
		var readErr error
		var value uint64

		switch element.Id {
		case ElementTrackNumber:
			track.Number, readErr = c.ReadUInt(element.DataSize)
		case ElementTrackUid:
			track.Uid, readErr = c.ReadUInt(element.DataSize)
		case ElementTrackType:
			track.Type, readErr = c.ReadUInt(element.DataSize)
		case ElementDefaultDuration:
			track.DefaultDuration, readErr = c.ReadUInt(element.DataSize)
		case ElementName:
			track.Name, readErr = c.ReadString(element.DataSize)
		case ElementLanguage:
			track.Language, readErr = c.ReadString(element.DataSize)
		case ElementCodecId:
			track.CodecId, readErr = c.ReadString(element.DataSize)
		case ElementCodecPrivate:
			track.CodecPrivate, readErr = c.ReadBytes(element.DataSize)
		case ElementFlagEnabled:
			value, readErr = c.ReadUInt(element.DataSize)
			track.FlagEnabled = value != 0
		case ElementFlagDefault:
			value, readErr = c.ReadUInt(element.DataSize)
			track.FlagDefault = value != 0
		case ElementFlagForced:
			value, readErr = c.ReadUInt(element.DataSize)
			track.FlagForced = value != 0
		case ElementFlagLacing:
			value, readErr = c.ReadUInt(element.DataSize)
			track.FlagLacing = value != 0
		case ElementVideo:
			track.Video, readErr = c.readVideoElement(element)
		case ElementAudio:
			track.Audio, readErr = c.readAudioElement(element)
		case ElementContentEncodings:
			track.Encodings, readErr = c.readContentEncodingsElement(element)
		}

		if readErr != nil {
			return errors.Wrapf(readErr, "failed to read track entry child %s", element.Id)
		}

		return nil
	})
	if childrenErr != nil {
		return nil, errors.Wrap(childrenErr, "failed to read track entry element")
	}

	return track, nil
}

func (c *ElementCursor) readVideoElement(videoElement Element) (*VideoEntry, error) {
	video := &VideoEntry{}

	childrenErr := c.readChildren(videoElement, func(element Element) error {
		var readErr error

		switch element.Id {
		case ElementPixelWidth:
			video.PixelWidth, readErr = c.ReadUInt(element.DataSize)
		case ElementPixelHeight:
			video.PixelHeight, readErr = c.ReadUInt(element.DataSize)
		case ElementDisplayWidth:
			video.DisplayWidth, readErr = c.ReadUInt(element.DataSize)
		case ElementDisplayHeight:
			video.DisplayHeight, readErr = c.ReadUInt(element.DataSize)
		}

		return readErr
	})
	if childrenErr != nil {
		return nil, errors.Wrap(childrenErr, "failed to read video element")
	}

	return video, nil
}

func (c *ElementCursor) readAudioElement(audioElement Element) (*AudioEntry, error) {
	audio := &AudioEntry{Channels: 1, SamplingFrequency: 8000}

	childrenErr := c.readChildren(audioElement, func(element Element) error {
		var readErr error

		switch element.Id {
		case ElementSamplingFrequency:
			audio.SamplingFrequency, readErr = c.ReadFloat(element.DataSize)
		case ElementOutputSamplingFreq:
			audio.OutputSamplingFrequency, readErr = c.ReadFloat(element.DataSize)
		case ElementChannels:
			audio.Channels, readErr = c.ReadUInt(element.DataSize)
		case ElementBitDepth:
			audio.BitDepth, readErr = c.ReadUInt(element.DataSize)
		}

		return readErr
	})
	if childrenErr != nil {
		return nil, errors.Wrap(childrenErr, "failed to read audio element")
	}

	return audio, nil
}

// readTracksElement decodes every TrackEntry. A broken entry ends the list but
// keeps the entries before it.
func (c *ElementCursor) readTracksElement(tracksElement Element) ([]TrackEntry, error) {
	var entries []TrackEntry

	childrenErr := c.readChildren(tracksElement, func(element Element) error {
		if element.Id != ElementTrackEntry {
			return nil
		}

		entry, entryErr := c.readTrackEntryElement(element)
		if entryErr != nil {
			return errors.Wrap(entryErr, "failed to read tracks entry element")
		}

		entries = append(entries, *entry)

		return nil
	})

	return entries, childrenErr
}
