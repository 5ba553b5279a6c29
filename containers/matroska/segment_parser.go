package matroska

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"
)

const resyncChunkSize = 64 * 1024

var clusterIdBytes = []byte{0x1F, 0x43, 0xB6, 0x75}

// segmentParser holds all state of one import. Nothing about a parse lives
// outside it, so separate files can be imported at the same time.
type segmentParser struct {
	cursor   *ElementCursor
	demuxer  *ClusterDemuxer
	index    *SeekIndex
	logger   *slog.Logger
	options  ImportOptions
	registry *TrackRegistry
	sink     MediaSink

	editions     []ChapterEdition
	firstCluster int64
	headerDone   bool
	info         SegmentInfo
	read         map[int64]struct{}
	readIds      map[ElementId]bool
	segment      Element
	segmentEnd   int64
}

func newSegmentParser(cursor *ElementCursor, sink MediaSink, options ImportOptions, logger *slog.Logger) *segmentParser {
	registry := NewTrackRegistry(sink, logger, options.MaxDecodeDelay)

	return &segmentParser{
		cursor:       cursor,
		demuxer:      NewClusterDemuxer(cursor, registry, logger),
		firstCluster: -1,
		index:        NewSeekIndex(),
		info:         SegmentInfo{TimecodeScale: DefaultTimecodeScale},
		logger:       logger,
		options:      options,
		read:         map[int64]struct{}{},
		readIds:      map[ElementId]bool{},
		registry:     registry,
		sink:         sink,
	}
}

// run parses the segment that starts at or after position and feeds the sink.
// Every track is flushed before run returns, even when ctx ends the import
// early.
func (p *segmentParser) run(ctx context.Context, position int64) error {
	segmentErr := p.findSegment(position)
	if segmentErr != nil {
		return segmentErr
	}

	p.scanHeader()
	p.readDeferred()
	p.finalizeHeader()

	clustersErr := p.demuxClusters(ctx)

	p.registry.FinishAll()

	return clustersErr
}

func (p *segmentParser) findSegment(position int64) error {
	seekErr := p.cursor.SeekTo(position)
	if seekErr != nil {
		return seekErr
	}

	for p.cursor.Position() < p.cursor.Size() {
		element, elementErr := p.cursor.ReadElement(p.cursor.Size())
		if elementErr != nil {
			break
		}

		if element.IsDummy() {
			break
		}

		if element.Id == ElementSegment {
			p.segment = element
			p.segmentEnd = min(element.EndPosition(), p.cursor.Size())

			return nil
		}

		skipErr := p.cursor.Skip(element)
		if skipErr != nil {
			return skipErr
		}
	}

	return errors.Wrap(ErrInvalidContainer, "no segment follows the EBML header")
}

func (p *segmentParser) relativePosition(position int64) int64 {
	return position - p.segment.DataPosition
}

// scanHeader reads level-1 elements until the first cluster. A corrupt
// element is stepped over by jumping to the next indexed element after it;
// with nothing indexed after it the header scan ends.
func (p *segmentParser) scanHeader() {
	seekErr := p.cursor.SeekTo(p.segment.DataPosition)
	if seekErr != nil {
		p.logger.Warn("failed to seek to segment data", slog.Any("error", seekErr))

		return
	}

	for p.cursor.Position() < p.segmentEnd {
		element, elementErr := p.cursor.ReadElement(p.segmentEnd)
		if elementErr != nil {
			p.logger.Warn("header scan stopped", slog.Int64("position", element.Position), slog.Any("error", elementErr))

			return
		}

		if element.Id == ElementCluster {
			p.headerDone = true
			p.firstCluster = element.Position

			return
		}

		var corruptErr error
		if element.IsDummy() {
			corruptErr = errors.Wrapf(ErrCorruptElement, "undecodable level-1 element at %d", element.Position)
		} else if element.EndPosition() > p.segmentEnd {
			corruptErr = errors.Wrapf(ErrCorruptElement, "%s overruns the segment", element.String())
		}

		if corruptErr != nil {
			if !p.skipCorrupt(element.Position, corruptErr) {
				return
			}

			continue
		}

		// The element framing is sound here, so a bad child only loses the
		// rest of this element.
		readErr := p.readLevelOne(element)
		if readErr != nil {
			p.logger.Warn("failed to read level-1 element", slog.String("element", element.String()), slog.Any("error", readErr))
		}

		skipErr := p.cursor.Skip(element)
		if skipErr != nil {
			p.logger.Warn("header scan stopped", slog.Any("error", skipErr))

			return
		}
	}
}

// skipCorrupt moves the cursor to the first indexed element after position.
func (p *segmentParser) skipCorrupt(position int64, cause error) bool {
	next, found := p.index.NextAfter(p.relativePosition(position))
	if !found {
		p.logger.Warn("corrupt element, no indexed element follows it", slog.Int64("position", position), slog.Any("error", cause))

		return false
	}

	target := next.AbsolutePosition(p.segment.DataPosition)

	p.logger.Warn("corrupt element, resuming at next indexed element",
		slog.Int64("position", position),
		slog.Int64("resume", target),
		slog.String("resume_id", next.ElementId.String()),
		slog.Any("error", cause))

	return p.cursor.SeekTo(target) == nil
}

func (p *segmentParser) readLevelOne(element Element) error {
	var readErr error

	switch element.Id {
	case ElementSeekHead:
		readErr = p.expandSeekHead(element)
	case ElementInfo:
		p.info, readErr = p.cursor.readInfoElement(element)
	case ElementTracks:
		var entries []TrackEntry
		entries, readErr = p.cursor.readTracksElement(element)
		p.registry.AddTrackEntries(entries)
	case ElementChapters:
		var editions []ChapterEdition
		editions, readErr = p.cursor.readChaptersElement(element)
		p.editions = append(p.editions, editions...)
	case ElementAttachments:
		readErr = p.readAttachments(element)
	default:
		return nil
	}

	p.read[element.Position] = struct{}{}
	p.readIds[element.Id] = true

	return readErr
}

// expandSeekHead indexes the entries of a Seek-Head, following entries that
// point at further Seek-Heads. Each Seek-Head position is expanded once.
func (p *segmentParser) expandSeekHead(seekHead Element) error {
	if !p.index.MarkExpanded(seekHead.Position) {
		p.logger.Debug("seek head already indexed", slog.Int64("position", seekHead.Position))

		return nil
	}

	p.logger.Debug("indexing seek head", slog.Int64("position", seekHead.Position))

	childrenErr := p.cursor.readChildren(seekHead, func(element Element) error {
		if element.Id != ElementSeek {
			return nil
		}

		entry, found, entryErr := p.readSeekElement(element)
		if entryErr != nil || !found {
			return entryErr
		}

		p.index.Add(entry)

		if entry.ElementId == ElementSeekHead {
			saved := p.cursor.Position()

			p.expandSeekHeadAt(entry.AbsolutePosition(p.segment.DataPosition))

			return p.cursor.SeekTo(saved)
		}

		return nil
	})

	p.index.Sort()

	if childrenErr != nil {
		return errors.Wrap(childrenErr, "failed to read seek head element")
	}

	return nil
}

func (p *segmentParser) expandSeekHeadAt(position int64) {
	seekErr := p.cursor.SeekTo(position)
	if seekErr != nil {
		p.logger.Warn("failed to seek to nested seek head", slog.Int64("position", position), slog.Any("error", seekErr))

		return
	}

	element, elementErr := p.cursor.ReadElement(p.segmentEnd)
	if elementErr != nil || element.Id != ElementSeekHead || element.EndPosition() > p.segmentEnd {
		p.logger.Warn("seek entry does not point at a seek head", slog.Int64("position", position), slog.Any("error", elementErr))

		return
	}

	expandErr := p.expandSeekHead(element)
	if expandErr != nil {
		p.logger.Warn("failed to index nested seek head", slog.Int64("position", position), slog.Any("error", expandErr))
	}
}

func (p *segmentParser) readSeekElement(seekElement Element) (SeekEntry, bool, error) {
	entry := SeekEntry{}
	var hasId, hasPosition bool

	childrenErr := p.cursor.readChildren(seekElement, func(element Element) error {
		var readErr error

		switch element.Id {
		case ElementSeekId:
			if element.DataSize < 1 || element.DataSize > 4 {
				return errors.Wrapf(ErrCorruptElement, "seek id of %d bytes", element.DataSize)
			}

			var id uint64
			id, readErr = p.cursor.ReadUInt(element.DataSize)
			entry.ElementId = ElementId(id)
			entry.IdLength = int(element.DataSize)
			hasId = readErr == nil
		case ElementSeekPosition:
			var position uint64
			position, readErr = p.cursor.ReadUInt(element.DataSize)
			entry.Position = int64(position)
			hasPosition = readErr == nil
		}

		return readErr
	})

	return entry, hasId && hasPosition, childrenErr
}

func (p *segmentParser) readAttachments(element Element) error {
	attachments, attachmentsErr := p.cursor.readAttachmentsElement(element)

	for _, attachment := range attachments {
		if !slices.Contains(p.options.FontMimeTypes, attachment.MimeType) {
			continue
		}

		data, dataErr := p.cursor.readAttachmentData(attachment)
		if dataErr != nil {
			p.logger.Warn("failed to read font attachment", slog.String("name", attachment.FileName), slog.Any("error", dataErr))

			continue
		}

		registerErr := p.sink.RegisterFontAttachment(data, attachment.MimeType)
		if registerErr != nil {
			p.logger.Warn("failed to register font attachment", slog.String("name", attachment.FileName), slog.Any("error", registerErr))
		}
	}

	return attachmentsErr
}

// readDeferred reads header elements that the scan never reached but a
// Seek-Head points at, such as Tracks or Chapters written after the clusters.
func (p *segmentParser) readDeferred() {
	for _, id := range []ElementId{ElementInfo, ElementTracks, ElementChapters, ElementAttachments} {
		if p.readIds[id] {
			continue
		}

		for _, entry := range p.index.Find(id) {
			position := entry.AbsolutePosition(p.segment.DataPosition)
			if _, done := p.read[position]; done {
				break
			}

			seekErr := p.cursor.SeekTo(position)
			if seekErr != nil {
				p.logger.Warn("failed to seek to indexed element", slog.String("id", id.String()), slog.Any("error", seekErr))

				break
			}

			element, elementErr := p.cursor.ReadElement(p.segmentEnd)
			if elementErr != nil || element.Id != id || element.EndPosition() > p.segmentEnd {
				p.logger.Warn("seek entry does not point at its element", slog.String("id", id.String()), slog.Int64("position", position))

				continue
			}

			readErr := p.readLevelOne(element)
			if readErr != nil {
				p.logger.Warn("failed to read indexed element", slog.String("id", id.String()), slog.Any("error", readErr))
			}

			break
		}
	}

	if p.firstCluster < 0 {
		if clusters := p.index.Find(ElementCluster); len(clusters) > 0 {
			p.firstCluster = clusters[0].AbsolutePosition(p.segment.DataPosition)
		}
	}
}

// finalizeHeader applies what is only known once every header element is read.
func (p *segmentParser) finalizeHeader() {
	p.registry.SetTimecodeScale(p.info.TimecodeScale)

	metadataErr := p.sink.SetMovieMetadata(p.info.MovieMetadata())
	if metadataErr != nil {
		p.logger.Warn("failed to set movie metadata", slog.Any("error", metadataErr))
	}

	edition, found := selectEdition(p.editions)
	if !found {
		return
	}

	cues := FlattenChapters(edition.Chapters, p.info.TimecodeScale)
	if len(cues) == 0 {
		return
	}

	chapterTrack, chapterErr := p.sink.CreateChapterTrack()
	if chapterErr != nil {
		p.logger.Warn("failed to create chapter track", slog.Any("error", chapterErr))

		return
	}

	for _, cue := range cues {
		cueErr := p.sink.AppendChapterCue(chapterTrack, cue.Start, cue.Title)
		if cueErr != nil {
			p.logger.Warn("dropping chapter", slog.String("title", cue.Title), slog.Any("error", errors.Mark(cueErr, ErrSampleCommitFailed)))
		}
	}

	enableErr := p.sink.SetTrackEnabled(chapterTrack, false)
	if enableErr != nil {
		p.logger.Warn("failed to disable chapter track", slog.Any("error", enableErr))
	}

	p.registry.AttachChapterTrack(chapterTrack)
}

// demuxClusters walks level-1 elements from the first cluster to the end of
// the segment, demuxing clusters and skipping everything else.
func (p *segmentParser) demuxClusters(ctx context.Context) error {
	if p.firstCluster < 0 {
		return nil
	}

	seekErr := p.cursor.SeekTo(p.firstCluster)
	if seekErr != nil {
		p.logger.Warn("failed to seek to first cluster", slog.Any("error", seekErr))

		return nil
	}

	clusters := 0

	for p.cursor.Position() < p.segmentEnd {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "import aborted")
		}

		element, elementErr := p.cursor.ReadElement(p.segmentEnd)
		if elementErr != nil {
			if !errors.Is(elementErr, io.EOF) && !errors.Is(elementErr, io.ErrUnexpectedEOF) {
				p.logger.Warn("cluster scan stopped", slog.Int64("position", element.Position), slog.Any("error", elementErr))
			}

			return nil
		}

		next := element.EndPosition()

		switch {
		case element.IsDummy():
			resumed, found := p.resync(element.Position, errors.Wrapf(ErrCorruptElement, "undecodable level-1 element at %d", element.Position))
			if !found {
				return nil
			}

			next = resumed
		case element.Id == ElementCluster:
			clusters++

			end, clusterErr := p.demuxer.readCluster(element)
			p.registry.CommitAll()

			next = end

			if clusterErr != nil {
				resumed, found := p.resync(end, clusterErr)
				if !found {
					return nil
				}

				next = resumed
			}

			p.logger.Debug("demuxed cluster", slog.Int64("position", element.Position), slog.Int("clusters", clusters))
		}

		seekErr := p.cursor.SeekTo(next)
		if seekErr != nil {
			p.logger.Warn("cluster scan stopped", slog.Any("error", seekErr))

			return nil
		}

		if p.options.Progress != nil {
			p.options.Progress(min(next, p.cursor.Size()), p.cursor.Size())
		}
	}

	return nil
}

// resync finds where demuxing can continue after corruption at position: the
// next Cluster id found by scanning forward, else the next indexed element.
func (p *segmentParser) resync(position int64, cause error) (int64, bool) {
	if next, found := p.scanForCluster(position + 1); found {
		p.logger.Warn("corrupt cluster data, resuming at next cluster",
			slog.Int64("position", position),
			slog.Int64("resume", next),
			slog.Any("error", cause))

		return next, true
	}

	entry, found := p.index.NextAfter(p.relativePosition(position))
	if !found {
		p.logger.Warn("corrupt cluster data, nothing to resume at", slog.Int64("position", position), slog.Any("error", cause))

		return 0, false
	}

	next := entry.AbsolutePosition(p.segment.DataPosition)

	p.logger.Warn("corrupt cluster data, resuming at next indexed element",
		slog.Int64("position", position),
		slog.Int64("resume", next),
		slog.Any("error", cause))

	return next, true
}

// scanForCluster searches byte by byte for a Cluster id at or after position,
// giving up after the configured number of bytes.
func (p *segmentParser) scanForCluster(position int64) (int64, bool) {
	limit := min(p.segmentEnd, position+p.options.ClusterResyncLimit)

	for position < limit {
		seekErr := p.cursor.SeekTo(position)
		if seekErr != nil {
			return 0, false
		}

		length := min(int64(resyncChunkSize), p.cursor.Size()-position)
		if length < int64(len(clusterIdBytes)) {
			return 0, false
		}

		chunk, chunkErr := p.cursor.ReadBytes(length)
		if chunkErr != nil {
			return 0, false
		}

		for searched := 0; ; {
			found := bytes.Index(chunk[searched:], clusterIdBytes)
			if found < 0 {
				break
			}

			candidate := position + int64(searched+found)
			if candidate >= limit {
				return 0, false
			}

			if p.isClusterAt(candidate) {
				return candidate, true
			}

			searched += found + 1
		}

		//Overlap chunks so an id split across a boundary is still found
		position += length - int64(len(clusterIdBytes)-1)
	}

	return 0, false
}

func (p *segmentParser) isClusterAt(position int64) bool {
	if p.cursor.SeekTo(position) != nil {
		return false
	}

	element, elementErr := p.cursor.ReadElement(p.segmentEnd)

	return elementErr == nil && element.Id == ElementCluster && (element.UnknownSize || element.EndPosition() <= p.segmentEnd)
}
