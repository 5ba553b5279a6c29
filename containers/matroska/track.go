package matroska

import (
	"log/slog"
	"math"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"
)

type TrackKind int

const (
	TrackUnsupported TrackKind = iota
	TrackVideo
	TrackAudio
	TrackSubtitle
)

func (k TrackKind) String() string {
	switch k {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	case TrackSubtitle:
		return "subtitle"
	}

	return "unsupported"
}

func trackKind(trackType uint64) TrackKind {
	switch trackType {
	case TrackTypeVideo:
		return TrackVideo
	case TrackTypeAudio:
		return TrackAudio
	case TrackTypeSubtitle:
		return TrackSubtitle
	}

	return TrackUnsupported
}

// TrackVariant carries what only one kind of track needs.
type TrackVariant interface {
	Kind() TrackKind
}

type VideoTrack struct {
	Format VideoFormat
}

func (VideoTrack) Kind() TrackKind { return TrackVideo }

type AudioTrack struct {
	Format AudioFormat
}

func (AudioTrack) Kind() TrackKind { return TrackAudio }

type SubtitleTrack struct {
	BitmapHeight int
	BitmapWidth  int
	Box          Rect
	Format       SubtitleKind
}

func (SubtitleTrack) Kind() TrackKind { return TrackSubtitle }

type TrackHeader struct {
	CodecId  string
	Enabled  bool
	Lacing   bool
	Language language.Tag
	Name     string
	Number   uint64
	Uid      uint64
}

// Track turns the blocks of one Matroska track into sink samples.
type Track struct {
	TrackHeader
	Variant TrackVariant

	defaultDuration   int64
	defaultDurationNs uint64
	encodings         []ContentEncoding
	engine            *FrameReorderEngine
	handle            TrackHandle
	logger            *slog.Logger
	seenFirstBlock    bool
	sink              MediaSink
	timecodeScale     uint64

	droppedSamples       int
	durationSinceZeroSum int64
	durationToAdd        int64
	displayOffsetSum     int64
	pendingSamples       int
}

func newTrack(header TrackHeader, variant TrackVariant, handle TrackHandle, entry TrackEntry, sink MediaSink, logger *slog.Logger, maxDecodeDelay int) *Track {
	track := &Track{
		TrackHeader:       header,
		Variant:           variant,
		defaultDurationNs: entry.DefaultDuration,
		encodings:         entry.Encodings,
		handle:            handle,
		logger:            logger.With(slog.Uint64("track", header.Number), slog.String("kind", variant.Kind().String())),
		sink:              sink,
	}

	reorder := variant.Kind() == TrackVideo && !header.Lacing
	track.engine = NewFrameReorderEngine(reorder, maxDecodeDelay, track.addFrame)
	track.SetTimecodeScale(DefaultTimecodeScale)

	return track
}

func (t *Track) Kind() TrackKind {
	return t.Variant.Kind()
}

func (t *Track) Handle() TrackHandle {
	return t.handle
}

func (t *Track) DefaultDuration() int64 {
	return t.defaultDuration
}

func (t *Track) DroppedSamples() int {
	return t.droppedSamples
}

// SetTimecodeScale sets the nanoseconds per tick and re-derives the default
// frame duration in ticks.
func (t *Track) SetTimecodeScale(scale uint64) {
	if scale == 0 {
		scale = DefaultTimecodeScale
	}

	t.timecodeScale = scale
	t.defaultDuration = int64(math.Round(float64(t.defaultDurationNs) / float64(scale)))
	t.engine.SetDefaultDuration(t.defaultDuration)
}

// addBlock queues the frames of one block. duration is the block's declared
// duration in ticks, zero when absent; every frame of the block carries it.
func (t *Track) addBlock(cursor *ElementCursor, block Block, context blockContext, duration int64, flags SampleFlags) {
	pts := context.clusterTimecode + int64(block.Timecode)

	if !t.seenFirstBlock {
		t.seenFirstBlock = true

		if t.engine.reorder && flags&SampleNotSync != 0 {
			t.logger.Warn("first frame of a reordering video track is not a keyframe; decode times assume it is",
				slog.Int64("pts", pts))
		}
	}

	frameDuration := duration
	if frameDuration <= 0 {
		frameDuration = t.defaultDuration
	}

	frames := make([]Frame, len(block.Frames))
	for i, reference := range block.Frames {
		frames[i] = Frame{DTS: pts, Duration: frameDuration, Flags: flags, Offset: reference.Offset, PTS: pts, Size: reference.Size}
	}

	if t.Kind() == TrackSubtitle {
		for _, frame := range frames {
			t.addSubtitleFrame(cursor, frame)
		}

		return
	}

	t.engine.AddBlock(frames)
}

func (t *Track) addFrame(frame Frame) {
	sample := Sample{DTS: frame.DTS, Duration: frame.Duration, Flags: frame.Flags, Offset: frame.Offset, PTS: frame.PTS, Size: frame.Size}

	appendErr := t.sink.AppendSampleReference(t.handle, sample)
	if appendErr != nil {
		t.dropSample(sample.PTS, appendErr)

		return
	}

	t.pendingSamples++
	t.durationSinceZeroSum += sample.Duration
	t.displayOffsetSum += sample.DisplayOffset()

	if t.displayOffsetSum == 0 {
		t.durationToAdd += t.durationSinceZeroSum
		t.durationSinceZeroSum = 0
	}
}

func (t *Track) addSubtitleFrame(cursor *ElementCursor, frame Frame) {
	subtitle, ok := t.Variant.(SubtitleTrack)
	if !ok {
		return
	}

	if subtitle.Format == SubtitleBitmap {
		sample := Sample{DTS: frame.PTS, Duration: frame.Duration, Flags: frame.Flags, Offset: frame.Offset, PTS: frame.PTS, Size: frame.Size}

		appendErr := t.sink.AppendSampleReference(t.handle, sample)
		if appendErr != nil {
			t.dropSample(frame.PTS, appendErr)
		}

		return
	}

	if frame.Size <= 0 {
		return
	}

	payload, payloadErr := t.readPayload(cursor, frame)
	if payloadErr != nil {
		t.dropSample(frame.PTS, payloadErr)

		return
	}

	text, textErr := subtitleText(payload)
	if textErr != nil {
		t.dropSample(frame.PTS, textErr)

		return
	}

	appendErr := t.sink.AppendInlineSample(t.handle, text, frame.PTS, frame.Duration)
	if appendErr != nil {
		t.dropSample(frame.PTS, appendErr)
	}
}

func (t *Track) readPayload(cursor *ElementCursor, frame Frame) ([]byte, error) {
	seekErr := cursor.SeekTo(frame.Offset)
	if seekErr != nil {
		return nil, seekErr
	}

	data, dataErr := cursor.ReadBytes(frame.Size)
	if dataErr != nil {
		return nil, errors.Wrap(dataErr, "failed to read subtitle frame")
	}

	decoded, decodeErr := decodeFramePayload(t.encodings, data)
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "failed to decode subtitle frame")
	}

	return decoded, nil
}

func (t *Track) dropSample(pts int64, cause error) {
	t.droppedSamples++

	t.logger.Warn("dropping sample",
		slog.Int64("pts", pts),
		slog.Any("error", errors.Mark(cause, ErrSampleCommitFailed)))
}

// commitSamples hands the sink everything added since the last commit, up to
// the last point where display offsets balance out.
func (t *Track) commitSamples() {
	if t.Kind() == TrackSubtitle {
		return
	}

	if t.pendingSamples == 0 && t.durationToAdd == 0 {
		return
	}

	commitErr := t.sink.CommitPendingSamples(t.handle, t.durationToAdd)
	if commitErr != nil {
		t.logger.Warn("failed to commit samples", slog.Int64("duration", t.durationToAdd), slog.Any("error", commitErr))
	}

	t.pendingSamples = 0
	t.durationToAdd = 0
}

// finish drains the reorder window and commits whatever is left.
func (t *Track) finish() {
	t.engine.Flush()

	t.durationToAdd += t.durationSinceZeroSum
	t.durationSinceZeroSum = 0
	t.displayOffsetSum = 0

	t.commitSamples()
}
