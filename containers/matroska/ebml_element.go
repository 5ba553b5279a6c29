package matroska

import "fmt"

type Element struct {
	DataPosition int64
	DataSize     int64
	Id           ElementId
	Position     int64
	UnknownSize  bool
}

type ElementId uint32

const (
	ElementNone ElementId = 0

	ElementEbml               ElementId = 0x1A45DFA3
	ElementEbmlVersion        ElementId = 0x4286
	ElementEbmlReadVersion    ElementId = 0x42F7
	ElementDocType            ElementId = 0x4282
	ElementDocTypeVersion     ElementId = 0x4287
	ElementDocTypeReadVersion ElementId = 0x4285

	ElementVoid  ElementId = 0xEC
	ElementCrc32 ElementId = 0xBF

	ElementSegment ElementId = 0x18538067

	ElementSeekHead     ElementId = 0x114D9B74
	ElementSeek         ElementId = 0x4DBB
	ElementSeekId       ElementId = 0x53AB
	ElementSeekPosition ElementId = 0x53AC

	ElementInfo          ElementId = 0x1549A966
	ElementTimecodeScale ElementId = 0x2AD7B1
	ElementDuration      ElementId = 0x4489
	ElementTitle         ElementId = 0x7BA9
	ElementMuxingApp     ElementId = 0x4D80
	ElementWritingApp    ElementId = 0x5741

	ElementTracks      ElementId = 0x1654AE6B
	ElementTrackEntry  ElementId = 0xAE
	ElementTrackNumber ElementId = 0xD7
	ElementTrackUid    ElementId = 0x73C5
	ElementTrackType   ElementId = 0x83
	ElementFlagEnabled ElementId = 0xB9
	ElementFlagDefault ElementId = 0x88
	ElementFlagForced  ElementId = 0x55AA
	ElementFlagLacing  ElementId = 0x9C

	ElementDefaultDuration      ElementId = 0x23E383
	ElementName                 ElementId = 0x536E
	ElementLanguage             ElementId = 0x22B59C
	ElementCodecId              ElementId = 0x86
	ElementCodecPrivate         ElementId = 0x63A2
	ElementVideo                ElementId = 0xE0
	ElementPixelWidth           ElementId = 0xB0
	ElementPixelHeight          ElementId = 0xBA
	ElementDisplayWidth         ElementId = 0x54B0
	ElementDisplayHeight        ElementId = 0x54BA
	ElementAudio                ElementId = 0xE1
	ElementSamplingFrequency    ElementId = 0xB5
	ElementOutputSamplingFreq   ElementId = 0x78B5
	ElementChannels             ElementId = 0x9F
	ElementBitDepth             ElementId = 0x6264
	ElementContentEncodings     ElementId = 0x6D80
	ElementContentEncoding      ElementId = 0x6240
	ElementContentEncodingOrder ElementId = 0x5031
	ElementContentEncodingScope ElementId = 0x5032
	ElementContentEncodingType  ElementId = 0x5033
	ElementContentCompression   ElementId = 0x5034
	ElementContentCompAlgo      ElementId = 0x4254
	ElementContentCompSettings  ElementId = 0x4255

	ElementCues ElementId = 0x1C53BB6B
	ElementTags ElementId = 0x1254C367

	ElementCluster        ElementId = 0x1F43B675
	ElementTimecode       ElementId = 0xE7
	ElementSimpleBlock    ElementId = 0xA3
	ElementBlockGroup     ElementId = 0xA0
	ElementBlock          ElementId = 0xA1
	ElementBlockDuration  ElementId = 0x9B
	ElementReferenceBlock ElementId = 0xFB

	ElementChapters           ElementId = 0x1043A770
	ElementEditionEntry       ElementId = 0x45B9
	ElementEditionFlagHidden  ElementId = 0x45BD
	ElementEditionFlagDefault ElementId = 0x45DB
	ElementChapterAtom        ElementId = 0xB6
	ElementChapterTimeStart   ElementId = 0x91
	ElementChapterFlagHidden  ElementId = 0x98
	ElementChapterDisplay     ElementId = 0x80
	ElementChapString         ElementId = 0x85

	ElementAttachments  ElementId = 0x1941A469
	ElementAttachedFile ElementId = 0x61A7
	ElementFileName     ElementId = 0x466E
	ElementFileMimeType ElementId = 0x4660
	ElementFileData     ElementId = 0x465C
)

var levelOneElements = map[ElementId]bool{
	ElementSeekHead:    true,
	ElementInfo:        true,
	ElementTracks:      true,
	ElementCues:        true,
	ElementChapters:    true,
	ElementAttachments: true,
	ElementTags:        true,
	ElementCluster:     true,
	ElementVoid:        true,
	ElementCrc32:       true,
}

// IsLevelOne reports whether id may appear as a direct child of a Segment.
func (id ElementId) IsLevelOne() bool {
	return levelOneElements[id]
}

// Length is the encoded size of the id in bytes, marker bits included.
func (id ElementId) Length() int {
	switch {
	case id > 0xFFFFFF:
		return 4
	case id > 0xFFFF:
		return 3
	case id > 0xFF:
		return 2
	default:
		return 1
	}
}

func (id ElementId) String() string {
	return fmt.Sprintf("0x%X", uint32(id))
}

func (e *Element) EndPosition() int64 {
	return e.DataPosition + e.DataSize
}

// IsDummy reports an element whose header could not be decoded.
func (e *Element) IsDummy() bool {
	return e.Id == ElementNone
}

func NewElement(id ElementId, position int64, dataPosition int64, dataSize int64) *Element {
	return &Element{DataPosition: dataPosition, DataSize: dataSize, Id: id, Position: position}
}

func (e *Element) String() string {
	return fmt.Sprintf("%s @%d (%d)", e.Id, e.Position, e.DataSize)
}
