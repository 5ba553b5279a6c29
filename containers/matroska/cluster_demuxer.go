package matroska

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

// blockContext carries what a block needs from its cluster.
type blockContext struct {
	clusterPosition int64
	clusterTimecode int64
}

// ClusterDemuxer routes the blocks of a cluster to the tracks that own them.
type ClusterDemuxer struct {
	cursor   *ElementCursor
	logger   *slog.Logger
	registry *TrackRegistry

	blocks        int
	corruptBlocks int
}

func NewClusterDemuxer(cursor *ElementCursor, registry *TrackRegistry, logger *slog.Logger) *ClusterDemuxer {
	return &ClusterDemuxer{cursor: cursor, logger: logger, registry: registry}
}

func (d *ClusterDemuxer) Blocks() int {
	return d.blocks
}

func (d *ClusterDemuxer) CorruptBlocks() int {
	return d.corruptBlocks
}

// endsUnknownCluster reports whether id can only start the element following
// a cluster whose size was not written.
func endsUnknownCluster(id ElementId) bool {
	return id.IsLevelOne() && id != ElementVoid && id != ElementCrc32
}

// readCluster demuxes every block of cluster and returns where the next
// level-1 element starts. On a corrupt child the returned position is where
// the corruption begins.
func (d *ClusterDemuxer) readCluster(cluster Element) (int64, error) {
	context := blockContext{clusterPosition: cluster.Position}
	end := cluster.EndPosition()

	seekErr := d.cursor.SeekTo(cluster.DataPosition)
	if seekErr != nil {
		return cluster.DataPosition, seekErr
	}

	for d.cursor.Position() < end {
		element, elementErr := d.cursor.ReadElement(end)
		if elementErr != nil {
			return element.Position, errors.Wrap(elementErr, "failed to read cluster element")
		}

		if element.IsDummy() {
			return element.Position, errors.Wrapf(ErrCorruptElement, "undecodable element at %d in cluster at %d", element.Position, cluster.Position)
		}

		if cluster.UnknownSize && endsUnknownCluster(element.Id) {
			return element.Position, nil
		}

		if element.EndPosition() > end {
			return element.Position, errors.Wrapf(ErrCorruptElement, "%s overruns cluster at %d", element.String(), cluster.Position)
		}

		switch element.Id {
		case ElementTimecode:
			timecode, timecodeErr := d.cursor.ReadUInt(element.DataSize)
			if timecodeErr != nil {
				return element.Position, errors.Wrap(timecodeErr, "failed to read cluster time code")
			}

			context.clusterTimecode = int64(timecode)
		case ElementSimpleBlock:
			d.readSimpleBlock(element, context)
		case ElementBlockGroup:
			d.readBlockGroup(element, context)
		}

		skipErr := d.cursor.Skip(element)
		if skipErr != nil {
			return element.EndPosition(), skipErr
		}
	}

	return end, nil
}

func (d *ClusterDemuxer) readSimpleBlock(element Element, context blockContext) {
	block, blockErr := d.cursor.readBlock(element)
	if blockErr != nil {
		d.skipBlock(element, context, blockErr)

		return
	}

	var flags SampleFlags
	if !block.Keyframe {
		flags |= SampleNotSync
	}

	if block.Discardable {
		flags |= SampleDroppable
	}

	d.route(block, context, 0, flags)
}

func (d *ClusterDemuxer) readBlockGroup(group Element, context blockContext) {
	var block Block
	var blockErr error
	var blockFound bool
	var duration uint64
	var referenced bool

	childrenErr := d.cursor.readChildren(group, func(element Element) error {
		var readErr error

		switch element.Id {
		case ElementBlock:
			block, blockErr = d.cursor.readBlock(element)
			blockFound = true
		case ElementBlockDuration:
			duration, readErr = d.cursor.ReadUInt(element.DataSize)
		case ElementReferenceBlock:
			referenced = true
		}

		return readErr
	})
	if childrenErr == nil && blockErr != nil {
		childrenErr = blockErr
	}

	if childrenErr != nil {
		d.skipBlock(group, context, childrenErr)

		return
	}

	if !blockFound {
		return
	}

	var flags SampleFlags
	if referenced {
		flags |= SampleNotSync
	}

	d.route(block, context, int64(duration), flags)
}

func (d *ClusterDemuxer) route(block Block, context blockContext, duration int64, flags SampleFlags) {
	d.blocks++

	track := d.registry.Track(block.TrackNumber)
	if track == nil {
		return
	}

	track.addBlock(d.cursor, block, context, duration, flags)
}

func (d *ClusterDemuxer) skipBlock(element Element, context blockContext, cause error) {
	d.corruptBlocks++

	d.logger.Warn("skipping corrupt block",
		slog.Int64("position", element.Position),
		slog.Int64("cluster", context.clusterPosition),
		slog.Any("error", cause))
}
