package matroska

import "golang.org/x/text/language"

// TrackHandle is whatever the sink uses to identify a track it created.
type TrackHandle any

type PixelAspectRatio struct {
	HSpacing uint64
	VSpacing uint64
}

func (p PixelAspectRatio) IsSquare() bool {
	return p.HSpacing == p.VSpacing
}

type VideoFormat struct {
	CodecId     string
	Height      float64
	PixelAspect *PixelAspectRatio
	PixelHeight uint64
	PixelWidth  uint64
	Width       float64
}

type AudioFormat struct {
	BitDepth        uint64
	ChannelCount    uint64
	CodecId         string
	FramesPerPacket uint64
	SampleRate      float64
}

type SubtitleKind int

const (
	SubtitleBitmap SubtitleKind = iota
	SubtitleText
	SubtitleStyled
)

func (k SubtitleKind) String() string {
	switch k {
	case SubtitleBitmap:
		return "bitmap"
	case SubtitleText:
		return "text"
	case SubtitleStyled:
		return "styled"
	}

	return "unknown"
}

type Rect struct {
	Height float64
	Width  float64
}

func (r Rect) IsEmpty() bool {
	return r.Width == 0 || r.Height == 0
}

type CodecSetup struct {
	CodecId   string
	Encodings []ContentEncoding
	Private   []byte
}

type SampleFlags uint8

const (
	SampleNotSync SampleFlags = 1 << iota
	SampleDroppable
)

// Sample locates one frame inside the input. Times are in segment ticks.
type Sample struct {
	DTS      int64
	Duration int64
	Flags    SampleFlags
	Offset   int64
	PTS      int64
	Size     int64
}

func (s Sample) DisplayOffset() int64 {
	return s.PTS - s.DTS
}

type TrackMetadata struct {
	Enabled  bool
	Language language.Tag
	Name     string
}

type MovieMetadata struct {
	Duration      float64
	MuxingApp     string
	TimecodeScale uint64
	Title         string
	WritingApp    string
}

// MediaSink is the host media framework the importer feeds. Every call may fail
// independently; failures only affect the track or sample concerned.
type MediaSink interface {
	CreateVideoTrack(format VideoFormat) (TrackHandle, error)
	CreateAudioTrack(format AudioFormat) (TrackHandle, error)
	CreateSubtitleTrack(kind SubtitleKind, box Rect) (TrackHandle, error)
	CreateChapterTrack() (TrackHandle, error)
	FinishCodecSetup(track TrackHandle, setup CodecSetup) error
	SetTrackAlternate(primary TrackHandle, alternate TrackHandle) error
	AppendSampleReference(track TrackHandle, sample Sample) error
	AppendInlineSample(track TrackHandle, data []byte, start int64, duration int64) error
	AppendChapterCue(track TrackHandle, start int64, title string) error
	CommitPendingSamples(track TrackHandle, duration int64) error
	SetTrackMetadata(track TrackHandle, metadata TrackMetadata) error
	SetTrackEnabled(track TrackHandle, enabled bool) error
	AddChapterReference(track TrackHandle, chapterTrack TrackHandle) error
	SetMovieMetadata(metadata MovieMetadata) error
	RegisterFontAttachment(data []byte, mimeType string) error
}
