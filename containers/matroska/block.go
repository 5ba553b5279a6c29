package matroska

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

type Lacing uint8

const (
	LacingNone Lacing = iota
	LacingXiph
	LacingFixed
	LacingEbml
)

const (
	blockFlagKeyframe    = 0x80
	blockFlagInvisible   = 0x08
	blockFlagLacingMask  = 0x06
	blockFlagDiscardable = 0x01
)

// FrameReference locates one laced frame inside the file.
type FrameReference struct {
	Offset int64
	Size   int64
}

// Block is the decoded header of a Block or SimpleBlock element. The
// keyframe and discardable flags only mean something on a SimpleBlock.
type Block struct {
	Discardable bool
	Frames      []FrameReference
	Invisible   bool
	Keyframe    bool
	Lacing      Lacing
	Timecode    int16
	TrackNumber uint64
}

// readBlock decodes the block header and lacing of element, leaving frame
// payloads unread.
func (c *ElementCursor) readBlock(element Element) (Block, error) {
	block := Block{}

	seekErr := c.SeekTo(element.DataPosition)
	if seekErr != nil {
		return block, seekErr
	}

	end := element.EndPosition()

	trackNumber, trackNumberLength, trackNumberErr := c.readVariableLengthUInt(true)
	if trackNumberErr != nil {
		return block, errors.Wrap(trackNumberErr, "failed to read block track number")
	}

	if trackNumberLength == 0 {
		return block, errors.Wrapf(ErrCorruptElement, "block at %d has no track number", element.Position)
	}

	block.TrackNumber = trackNumber

	header, headerErr := c.ReadBytes(3)
	if headerErr != nil {
		return block, errors.Wrap(headerErr, "failed to read block header")
	}

	block.Timecode = int16(binary.BigEndian.Uint16(header[:2]))

	flags := header[2]
	block.Keyframe = flags&blockFlagKeyframe != 0
	block.Invisible = flags&blockFlagInvisible != 0
	block.Discardable = flags&blockFlagDiscardable != 0
	block.Lacing = Lacing((flags & blockFlagLacingMask) >> 1)

	if block.Lacing == LacingNone {
		if c.Position() > end {
			return block, errors.Wrapf(ErrCorruptElement, "block at %d is shorter than its header", element.Position)
		}

		block.Frames = []FrameReference{{Offset: c.Position(), Size: end - c.Position()}}

		return block, nil
	}

	countByte, countErr := c.readByte()
	if countErr != nil {
		return block, errors.Wrap(countErr, "failed to read lace count")
	}

	sizes, sizesErr := c.readLaceSizes(block.Lacing, int(countByte)+1, end)
	if sizesErr != nil {
		return block, errors.Wrapf(sizesErr, "failed to read lacing of block at %d", element.Position)
	}

	offset := c.Position()
	block.Frames = make([]FrameReference, len(sizes))
	for i, size := range sizes {
		block.Frames[i] = FrameReference{Offset: offset, Size: size}
		offset += size
	}

	return block, nil
}

// readLaceSizes returns the size of every laced frame. The last size is
// whatever is left of the block once the lacing header is read.
func (c *ElementCursor) readLaceSizes(lacing Lacing, count int, end int64) ([]int64, error) {
	sizes := make([]int64, count)
	total := int64(0)

	//A single laced frame stores no sizes
	if count == 1 {
		if c.Position() > end {
			return nil, errors.Wrap(ErrCorruptElement, "lace count runs past the block")
		}

		sizes[0] = end - c.Position()

		return sizes, nil
	}

	switch lacing {
	case LacingXiph:
		for i := 0; i < count-1; i++ {
			for {
				if c.Position() >= end {
					return nil, errors.Wrap(ErrCorruptElement, "Xiph lace sizes run past the block")
				}

				value, readErr := c.readByte()
				if readErr != nil {
					return nil, readErr
				}

				sizes[i] += int64(value)
				if value != 0xFF {
					break
				}
			}

			total += sizes[i]
		}
	case LacingEbml:
		first, firstLength, firstErr := c.readVariableLengthUInt(true)
		if firstErr != nil {
			return nil, firstErr
		}

		if firstLength == 0 {
			return nil, errors.Wrap(ErrCorruptElement, "bad first EBML lace size")
		}

		sizes[0] = int64(first)
		total = sizes[0]

		for i := 1; i < count-1; i++ {
			raw, length, readErr := c.readVariableLengthUInt(true)
			if readErr != nil {
				return nil, readErr
			}

			if length == 0 {
				return nil, errors.Wrap(ErrCorruptElement, "bad EBML lace size difference")
			}

			//Differences are stored with a bias of half the range
			difference := int64(raw) - (int64(1)<<(7*length-1) - 1)
			sizes[i] = sizes[i-1] + difference
			if sizes[i] < 0 {
				return nil, errors.Wrapf(ErrCorruptElement, "negative lace size %d", sizes[i])
			}

			total += sizes[i]
		}
	case LacingFixed:
		remaining := end - c.Position()
		if remaining < 0 || remaining%int64(count) != 0 {
			return nil, errors.Wrapf(ErrCorruptElement, "%d bytes do not split into %d equal frames", remaining, count)
		}

		for i := range sizes {
			sizes[i] = remaining / int64(count)
		}

		return sizes, nil
	}

	last := end - c.Position() - total
	if last < 0 {
		return nil, errors.Wrapf(ErrCorruptElement, "laced frames overrun the block by %d bytes", -last)
	}

	sizes[count-1] = last

	return sizes, nil
}
