package matroska

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ristryder/mkvimport/common"
)

const DefaultClusterResyncLimit = 5000000

type ImportOptions struct {
	AcceptedDocTypes []string
	// ClusterResyncLimit is how many bytes may be scanned for the next
	// cluster after corrupt cluster data.
	ClusterResyncLimit int64
	FontMimeTypes      []string
	Logger             *slog.Logger
	MaxDecodeDelay     int
	MaxReadVersion     uint64
	// Progress is called after each level-1 element of the cluster phase
	// with the current position and the stream size.
	Progress func(int64, int64)
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		AcceptedDocTypes:   []string{DefaultDocType},
		ClusterResyncLimit: DefaultClusterResyncLimit,
		FontMimeTypes:      slices.Clone(DefaultFontMimeTypes),
		Logger:             slog.Default(),
		MaxDecodeDelay:     DefaultMaxDecodeDelay,
		MaxReadVersion:     DefaultMaxReadVersion,
	}
}

func (o ImportOptions) withDefaults() ImportOptions {
	defaults := DefaultImportOptions()

	if len(o.AcceptedDocTypes) == 0 {
		o.AcceptedDocTypes = defaults.AcceptedDocTypes
	}

	if o.ClusterResyncLimit <= 0 {
		o.ClusterResyncLimit = defaults.ClusterResyncLimit
	}

	if o.FontMimeTypes == nil {
		o.FontMimeTypes = defaults.FontMimeTypes
	}

	if o.Logger == nil {
		o.Logger = defaults.Logger
	}

	if o.MaxDecodeDelay < 1 {
		o.MaxDecodeDelay = defaults.MaxDecodeDelay
	}

	if o.MaxReadVersion == 0 {
		o.MaxReadVersion = defaults.MaxReadVersion
	}

	return o
}

// MatroskaFile is a validated Matroska document ready to be imported.
type MatroskaFile struct {
	Header EbmlHeader
	Info   SegmentInfo
	Path   string

	cursor    *ElementCursor
	headerEnd int64
	options   ImportOptions
	stream    common.Stream
	tracks    []*Track
}

// NewMatroskaFile opens path and validates its EBML header.
func NewMatroskaFile(path string, options ImportOptions) (*MatroskaFile, error) {
	stream, streamErr := common.NewFileStream(path)
	if streamErr != nil {
		return nil, errors.Wrapf(streamErr, "failed to open Matroska file %s", path)
	}

	matroskaFile, readerErr := NewMatroskaReader(stream, options)
	if readerErr != nil {
		defer stream.Close()

		return nil, errors.Wrapf(readerErr, "failed to read header of Matroska file %s", path)
	}

	matroskaFile.Path = path

	return matroskaFile, nil
}

// NewMatroskaReader validates the EBML header of stream. The stream must
// support random access for the whole import.
func NewMatroskaReader(stream common.Stream, options ImportOptions) (*MatroskaFile, error) {
	options = options.withDefaults()
	cursor := NewElementCursor(stream)

	header, headerErr := readEbmlHeader(cursor, options.AcceptedDocTypes, options.MaxReadVersion)
	if headerErr != nil {
		return nil, headerErr
	}

	return &MatroskaFile{
		Header:    header,
		cursor:    cursor,
		headerEnd: cursor.Position(),
		options:   options,
		stream:    stream,
	}, nil
}

// Import parses the whole file into sink. Only a missing segment or an ended
// ctx is reported; broken tracks, samples and elements are logged and skipped.
func (m *MatroskaFile) Import(ctx context.Context, sink MediaSink) error {
	logger := m.options.Logger.With(slog.String("import_id", uuid.NewString()))
	if m.Path != "" {
		logger = logger.With(slog.String("path", m.Path))
	}

	parser := newSegmentParser(m.cursor, sink, m.options, logger)

	logger.Debug("importing", slog.String("doc_type", m.Header.DocType), slog.Uint64("read_version", m.Header.DocTypeReadVersion))

	runErr := parser.run(ctx, m.headerEnd)

	m.Info = parser.info
	m.tracks = parser.registry.Tracks()

	logger.Info("import finished",
		slog.Int("tracks", len(m.tracks)),
		slog.Int("rejected_tracks", parser.registry.Rejected()),
		slog.Int("blocks", parser.demuxer.Blocks()),
		slog.Int("corrupt_blocks", parser.demuxer.CorruptBlocks()))

	if runErr != nil {
		return errors.Wrap(runErr, "failed to import Matroska file")
	}

	return nil
}

func (m *MatroskaFile) Close() error {
	if closer, ok := m.stream.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

func (m *MatroskaFile) String() string {
	return fmt.Sprintf("DocType: %v , Duration: %v s , Tracks: %v", m.Header.DocType, m.Info.DurationSeconds(), len(m.tracks))
}

// Tracks lists the tracks created by the last Import.
func (m *MatroskaFile) Tracks(subtitleOnly bool) []*Track {
	if !subtitleOnly {
		return m.tracks
	}

	return slices.Collect(func(yield func(*Track) bool) {
		for _, track := range m.tracks {
			if track.Kind() == TrackSubtitle {
				if !yield(track) {
					return
				}
			}
		}
	})
}
