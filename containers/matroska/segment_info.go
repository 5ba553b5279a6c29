package matroska

import (
	"github.com/cockroachdb/errors"
)

// DefaultTimecodeScale is the nanoseconds per tick of a segment that does not
// declare one.
const DefaultTimecodeScale = 1000000

type SegmentInfo struct {
	// Duration is in ticks
	Duration      float64
	MuxingApp     string
	TimecodeScale uint64
	Title         string
	WritingApp    string
}

// DurationSeconds converts the segment duration to seconds.
func (s SegmentInfo) DurationSeconds() float64 {
	return s.Duration * float64(s.TimecodeScale) / 1e9
}

func (s SegmentInfo) MovieMetadata() MovieMetadata {
	return MovieMetadata{
		Duration:      s.DurationSeconds(),
		MuxingApp:     s.MuxingApp,
		TimecodeScale: s.TimecodeScale,
		Title:         s.Title,
		WritingApp:    s.WritingApp,
	}
}

func (c *ElementCursor) readInfoElement(infoElement Element) (SegmentInfo, error) {
	info := SegmentInfo{TimecodeScale: DefaultTimecodeScale}

	childrenErr := c.readChildren(infoElement, func(element Element) error {
		var readErr error

		switch element.Id {
		case ElementTimecodeScale:
			info.TimecodeScale, readErr = c.ReadUInt(element.DataSize)
		case ElementDuration:
			info.Duration, readErr = c.ReadFloat(element.DataSize)
		case ElementTitle:
			info.Title, readErr = c.ReadString(element.DataSize)
		case ElementMuxingApp:
			info.MuxingApp, readErr = c.ReadString(element.DataSize)
		case ElementWritingApp:
			info.WritingApp, readErr = c.ReadString(element.DataSize)
		}

		return readErr
	})
	if childrenErr != nil {
		return info, errors.Wrap(childrenErr, "failed to read info element")
	}

	if info.TimecodeScale == 0 {
		info.TimecodeScale = DefaultTimecodeScale
	}

	return info, nil
}
