package matroska

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"

	"github.com/cockroachdb/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func concat(parts ...[]byte) []byte {
	var data []byte
	for _, part := range parts {
		data = append(data, part...)
	}

	return data
}

func encodeId(id ElementId) []byte {
	length := id.Length()
	data := make([]byte, length)
	for i := 0; i < length; i++ {
		data[i] = byte(uint32(id) >> (8 * (length - 1 - i)))
	}

	return data
}

func encodeSize(size int) []byte {
	length := 1
	for uint64(size) >= uint64(1)<<(7*length)-1 {
		length++
	}

	value := uint64(size) | uint64(1)<<(7*length)
	data := make([]byte, length)
	for i := 0; i < length; i++ {
		data[i] = byte(value >> (8 * (length - 1 - i)))
	}

	return data
}

func element(id ElementId, children ...[]byte) []byte {
	payload := concat(children...)

	return concat(encodeId(id), encodeSize(len(payload)), payload)
}

func unknownSizeElement(id ElementId, children ...[]byte) []byte {
	return concat(encodeId(id), []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, concat(children...))
}

func uintElement(id ElementId, value uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, value)

	start := 0
	for start < 7 && data[start] == 0 {
		start++
	}

	return element(id, data[start:])
}

// fixedUintElement always stores value in eight bytes so the element size does
// not depend on value.
func fixedUintElement(id ElementId, value uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, value)

	return element(id, data)
}

func floatElement(id ElementId, value float64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, math.Float64bits(value))

	return element(id, data)
}

func stringElement(id ElementId, value string) []byte {
	return element(id, []byte(value))
}

func ebmlHeader(docType string, readVersion uint64) []byte {
	return element(ElementEbml,
		uintElement(ElementEbmlVersion, 1),
		uintElement(ElementEbmlReadVersion, 1),
		stringElement(ElementDocType, docType),
		uintElement(ElementDocTypeVersion, 4),
		uintElement(ElementDocTypeReadVersion, readVersion),
	)
}

func seekEntry(id ElementId, position int) []byte {
	return element(ElementSeek,
		element(ElementSeekId, encodeId(id)),
		fixedUintElement(ElementSeekPosition, uint64(position)),
	)
}

func infoElement(timecodeScale uint64, duration float64, title string) []byte {
	return element(ElementInfo,
		uintElement(ElementTimecodeScale, timecodeScale),
		floatElement(ElementDuration, duration),
		stringElement(ElementTitle, title),
		stringElement(ElementMuxingApp, "libebml"),
		stringElement(ElementWritingApp, "mkvmerge"),
	)
}

func videoTrackEntry(number uint64, lacing bool, defaultDuration uint64, width, height uint64) []byte {
	lacingFlag := uint64(0)
	if lacing {
		lacingFlag = 1
	}

	return element(ElementTrackEntry,
		uintElement(ElementTrackNumber, number),
		uintElement(ElementTrackUid, number*100),
		uintElement(ElementTrackType, TrackTypeVideo),
		uintElement(ElementFlagLacing, lacingFlag),
		uintElement(ElementDefaultDuration, defaultDuration),
		stringElement(ElementCodecId, "V_MPEG4/ISO/AVC"),
		element(ElementVideo,
			uintElement(ElementPixelWidth, width),
			uintElement(ElementPixelHeight, height),
		),
	)
}

func audioTrackEntry(number uint64, language string) []byte {
	return element(ElementTrackEntry,
		uintElement(ElementTrackNumber, number),
		uintElement(ElementTrackUid, number*100),
		uintElement(ElementTrackType, TrackTypeAudio),
		stringElement(ElementCodecId, "A_AAC"),
		stringElement(ElementLanguage, language),
		element(ElementAudio,
			floatElement(ElementSamplingFrequency, 48000),
			uintElement(ElementChannels, 2),
		),
	)
}

func subtitleTrackEntry(number uint64, codecId string, private []byte) []byte {
	return element(ElementTrackEntry,
		uintElement(ElementTrackNumber, number),
		uintElement(ElementTrackType, TrackTypeSubtitle),
		stringElement(ElementCodecId, codecId),
		element(ElementCodecPrivate, private),
	)
}

// blockPayload builds the body of a Block or SimpleBlock for a track number
// below 127.
func blockPayload(track uint64, timecode int16, flags byte, data ...[]byte) []byte {
	header := []byte{0x80 | byte(track), byte(uint16(timecode) >> 8), byte(uint16(timecode)), flags}

	return concat(header, concat(data...))
}

func simpleBlock(track uint64, timecode int16, keyframe bool, data []byte) []byte {
	flags := byte(0)
	if keyframe {
		flags |= blockFlagKeyframe
	}

	return element(ElementSimpleBlock, blockPayload(track, timecode, flags, data))
}

func cluster(timecode uint64, blocks ...[]byte) []byte {
	return element(ElementCluster, append([][]byte{uintElement(ElementTimecode, timecode)}, blocks...)...)
}

type inlineSample struct {
	data     string
	duration int64
	start    int64
}

type chapterCue struct {
	start int64
	title string
}

type recordedTrack struct {
	alternateOf int
	audio       AudioFormat
	box         Rect
	chapterRefs []int
	commits     []int64
	cues        []chapterCue
	enabled     []bool
	inline      []inlineSample
	kind        string
	metadata    TrackMetadata
	samples     []Sample
	setup       CodecSetup
	subtitle    SubtitleKind
	video       VideoFormat
}

// recordingSink keeps every call it receives. Handles are indexes into tracks.
type recordingSink struct {
	calls  []string
	fonts  []string
	movie  MovieMetadata
	tracks []*recordedTrack

	failAppend func(track int, sample Sample) bool
	failCreate map[string]bool
	failSetup  map[string]bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{failCreate: map[string]bool{}, failSetup: map[string]bool{}}
}

func (s *recordingSink) create(kind string) (TrackHandle, *recordedTrack, error) {
	s.calls = append(s.calls, "create "+kind)

	if s.failCreate[kind] {
		return nil, nil, errors.Newf("%s tracks are not supported", kind)
	}

	track := &recordedTrack{alternateOf: -1, kind: kind}
	s.tracks = append(s.tracks, track)

	return len(s.tracks) - 1, track, nil
}

func (s *recordingSink) track(handle TrackHandle) *recordedTrack {
	return s.tracks[handle.(int)]
}

func (s *recordingSink) byKind(kind string) []*recordedTrack {
	var tracks []*recordedTrack
	for _, track := range s.tracks {
		if track.kind == kind {
			tracks = append(tracks, track)
		}
	}

	return tracks
}

func (s *recordingSink) CreateVideoTrack(format VideoFormat) (TrackHandle, error) {
	handle, track, err := s.create("video")
	if track != nil {
		track.video = format
	}

	return handle, err
}

func (s *recordingSink) CreateAudioTrack(format AudioFormat) (TrackHandle, error) {
	handle, track, err := s.create("audio")
	if track != nil {
		track.audio = format
	}

	return handle, err
}

func (s *recordingSink) CreateSubtitleTrack(kind SubtitleKind, box Rect) (TrackHandle, error) {
	handle, track, err := s.create("subtitle")
	if track != nil {
		track.subtitle = kind
		track.box = box
	}

	return handle, err
}

func (s *recordingSink) CreateChapterTrack() (TrackHandle, error) {
	handle, _, err := s.create("chapter")

	return handle, err
}

func (s *recordingSink) FinishCodecSetup(handle TrackHandle, setup CodecSetup) error {
	if s.failSetup[setup.CodecId] {
		return errors.Newf("codec %s is not supported", setup.CodecId)
	}

	s.track(handle).setup = setup

	return nil
}

func (s *recordingSink) SetTrackAlternate(primary TrackHandle, alternate TrackHandle) error {
	s.track(alternate).alternateOf = primary.(int)

	return nil
}

func (s *recordingSink) AppendSampleReference(handle TrackHandle, sample Sample) error {
	if s.failAppend != nil && s.failAppend(handle.(int), sample) {
		return errors.New("sample refused")
	}

	track := s.track(handle)
	track.samples = append(track.samples, sample)

	return nil
}

func (s *recordingSink) AppendInlineSample(handle TrackHandle, data []byte, start int64, duration int64) error {
	track := s.track(handle)
	track.inline = append(track.inline, inlineSample{data: string(data), duration: duration, start: start})

	return nil
}

func (s *recordingSink) AppendChapterCue(handle TrackHandle, start int64, title string) error {
	track := s.track(handle)
	track.cues = append(track.cues, chapterCue{start: start, title: title})

	return nil
}

func (s *recordingSink) CommitPendingSamples(handle TrackHandle, duration int64) error {
	track := s.track(handle)
	track.commits = append(track.commits, duration)

	return nil
}

func (s *recordingSink) SetTrackMetadata(handle TrackHandle, metadata TrackMetadata) error {
	s.track(handle).metadata = metadata

	return nil
}

func (s *recordingSink) SetTrackEnabled(handle TrackHandle, enabled bool) error {
	s.calls = append(s.calls, "enable")

	track := s.track(handle)
	track.enabled = append(track.enabled, enabled)

	return nil
}

func (s *recordingSink) AddChapterReference(handle TrackHandle, chapterTrack TrackHandle) error {
	track := s.track(handle)
	track.chapterRefs = append(track.chapterRefs, chapterTrack.(int))

	return nil
}

func (s *recordingSink) SetMovieMetadata(metadata MovieMetadata) error {
	s.movie = metadata

	return nil
}

func (s *recordingSink) RegisterFontAttachment(data []byte, mimeType string) error {
	s.fonts = append(s.fonts, mimeType+":"+string(data))

	return nil
}
