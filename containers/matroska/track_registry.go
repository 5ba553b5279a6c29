package matroska

import (
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"
)

// TrackRegistry owns every track created for a file, keyed by track number.
type TrackRegistry struct {
	byNumber       map[uint64]*Track
	chapterTrack   TrackHandle
	logger         *slog.Logger
	maxDecodeDelay int
	movieBox       Rect
	primaries      map[TrackKind]*Track
	rejected       int
	sink           MediaSink
	tracks         []*Track
}

func NewTrackRegistry(sink MediaSink, logger *slog.Logger, maxDecodeDelay int) *TrackRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	return &TrackRegistry{
		byNumber:       map[uint64]*Track{},
		logger:         logger,
		maxDecodeDelay: maxDecodeDelay,
		primaries:      map[TrackKind]*Track{},
		sink:           sink,
	}
}

// AddTrackEntries creates sink tracks for entries. Video and audio go first so
// subtitles can be sized to the video; enabling happens once all exist.
func (r *TrackRegistry) AddTrackEntries(entries []TrackEntry) {
	var created []*Track

	for _, pass := range [][]TrackKind{{TrackVideo, TrackAudio}, {TrackSubtitle}} {
		for _, entry := range entries {
			kind := trackKind(entry.Type)
			if !slices.Contains(pass, kind) {
				continue
			}

			track, trackErr := r.createTrack(entry, kind)
			if trackErr != nil {
				r.rejected++

				r.logger.Warn("rejecting track",
					slog.Uint64("track", entry.Number),
					slog.String("codec", entry.CodecId),
					slog.Any("error", errors.Mark(trackErr, ErrTrackRejected)))

				continue
			}

			created = append(created, track)
		}
	}

	for _, track := range created {
		enableErr := r.sink.SetTrackEnabled(track.handle, track.Enabled)
		if enableErr != nil {
			r.logger.Warn("failed to set track enabled", slog.Uint64("track", track.Number), slog.Any("error", enableErr))
		}
	}
}

func (r *TrackRegistry) createTrack(entry TrackEntry, kind TrackKind) (*Track, error) {
	var variant TrackVariant
	var handle TrackHandle
	var createErr error

	switch kind {
	case TrackVideo:
		if entry.Video == nil {
			return nil, errors.Wrap(ErrTrackRejected, "video track has no video settings")
		}

		format, formatErr := videoFormat(*entry.Video)
		if formatErr != nil {
			return nil, formatErr
		}

		format.CodecId = entry.CodecId
		handle, createErr = r.sink.CreateVideoTrack(format)
		variant = VideoTrack{Format: format}

		if createErr == nil {
			r.movieBox.Width = max(r.movieBox.Width, format.Width)
			r.movieBox.Height = max(r.movieBox.Height, format.Height)
		}
	case TrackAudio:
		audio := AudioEntry{Channels: 1, SamplingFrequency: 8000}
		if entry.Audio != nil {
			audio = *entry.Audio
		}

		format := AudioFormat{
			BitDepth:     audio.BitDepth,
			ChannelCount: audio.Channels,
			CodecId:      entry.CodecId,
			SampleRate:   audio.SamplingFrequency,
		}
		handle, createErr = r.sink.CreateAudioTrack(format)
		variant = AudioTrack{Format: format}
	case TrackSubtitle:
		format, formatErr := subtitleKind(entry.CodecId)
		if formatErr != nil {
			return nil, formatErr
		}

		subtitle := SubtitleTrack{Box: r.movieBox, Format: format}

		if format == SubtitleBitmap {
			width, height, sizeErr := bitmapSubtitleSize(entry.CodecPrivate)
			if sizeErr != nil {
				return nil, sizeErr
			}

			subtitle.BitmapWidth = width
			subtitle.BitmapHeight = height

			if subtitle.Box.IsEmpty() {
				subtitle.Box = Rect{Height: float64(height), Width: float64(width)}
			}
		}

		handle, createErr = r.sink.CreateSubtitleTrack(format, subtitle.Box)
		variant = subtitle
	default:
		return nil, errors.Wrapf(ErrTrackRejected, "unsupported track type %d", entry.Type)
	}

	if createErr != nil {
		return nil, errors.Wrapf(createErr, "failed to create %s track", kind)
	}

	setupErr := r.sink.FinishCodecSetup(handle, CodecSetup{CodecId: entry.CodecId, Encodings: entry.Encodings, Private: entry.CodecPrivate})
	if setupErr != nil {
		return nil, errors.Wrapf(setupErr, "failed to finish %s codec setup", entry.CodecId)
	}

	header := TrackHeader{
		CodecId:  entry.CodecId,
		Enabled:  entry.FlagEnabled && entry.FlagDefault,
		Lacing:   entry.FlagLacing,
		Language: trackLanguage(entry.Language),
		Name:     entry.Name,
		Number:   entry.Number,
		Uid:      entry.Uid,
	}

	track := newTrack(header, variant, handle, entry, r.sink, r.logger, r.maxDecodeDelay)

	if primary, found := r.primaries[kind]; found {
		alternateErr := r.sink.SetTrackAlternate(primary.handle, handle)
		if alternateErr != nil {
			r.logger.Warn("failed to register alternate track", slog.Uint64("track", entry.Number), slog.Any("error", alternateErr))
		}
	} else {
		r.primaries[kind] = track
	}

	metadataErr := r.sink.SetTrackMetadata(handle, TrackMetadata{Enabled: header.Enabled, Language: header.Language, Name: header.Name})
	if metadataErr != nil {
		r.logger.Warn("failed to set track metadata", slog.Uint64("track", entry.Number), slog.Any("error", metadataErr))
	}

	r.register(track)

	return track, nil
}

// register stores track under its number; a later track with the same number
// replaces the earlier one.
func (r *TrackRegistry) register(track *Track) {
	if existing, found := r.byNumber[track.Number]; found {
		r.logger.Warn("duplicate track number, keeping the later track", slog.Uint64("track", track.Number))

		index := slices.Index(r.tracks, existing)
		r.tracks[index] = track
	} else {
		r.tracks = append(r.tracks, track)
	}

	r.byNumber[track.Number] = track
}

// Track returns the track blocks with number should go to, or nil.
func (r *TrackRegistry) Track(number uint64) *Track {
	return r.byNumber[number]
}

func (r *TrackRegistry) Tracks() []*Track {
	return r.tracks
}

func (r *TrackRegistry) Rejected() int {
	return r.rejected
}

func (r *TrackRegistry) SetTimecodeScale(scale uint64) {
	for _, track := range r.tracks {
		track.SetTimecodeScale(scale)
	}
}

// AttachChapterTrack points every media track at the chapter track.
func (r *TrackRegistry) AttachChapterTrack(chapterTrack TrackHandle) {
	r.chapterTrack = chapterTrack

	for _, track := range r.tracks {
		referenceErr := r.sink.AddChapterReference(track.handle, chapterTrack)
		if referenceErr != nil {
			r.logger.Warn("failed to reference chapter track", slog.Uint64("track", track.Number), slog.Any("error", referenceErr))
		}
	}
}

func (r *TrackRegistry) ChapterTrack() TrackHandle {
	return r.chapterTrack
}

func (r *TrackRegistry) CommitAll() {
	for _, track := range r.tracks {
		track.commitSamples()
	}
}

// FinishAll flushes every track. A track that panics in the sink does not
// stop the others from being flushed.
func (r *TrackRegistry) FinishAll() {
	for _, track := range r.tracks {
		r.finishTrack(track)
	}
}

func (r *TrackRegistry) finishTrack(track *Track) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("failed to finish track", slog.Uint64("track", track.Number), slog.Any("panic", recovered))
		}
	}()

	track.finish()
}
