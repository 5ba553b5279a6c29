package matroska

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/ristryder/mkvimport/common"
)

// ElementCursor reads EBML element headers and payload values at the
// current position of a stream. It holds no parse state of its own.
type ElementCursor struct {
	stream common.Stream
}

func NewElementCursor(stream common.Stream) *ElementCursor {
	return &ElementCursor{stream: stream}
}

func (c *ElementCursor) Position() int64 {
	return c.stream.Position()
}

func (c *ElementCursor) Size() int64 {
	return c.stream.Size()
}

func (c *ElementCursor) SeekTo(position int64) error {
	_, seekErr := c.stream.Seek(position, io.SeekStart)
	if seekErr != nil {
		return errors.Wrapf(seekErr, "failed to seek to %d", position)
	}

	return nil
}

func (c *ElementCursor) Skip(element Element) error {
	return c.SeekTo(element.EndPosition())
}

// ReadElement decodes the element header at the cursor. A header that does not
// decode is returned as a dummy element positioned where it started; only I/O
// failures are reported as errors. Unknown-size elements extend to parentEnd.
func (c *ElementCursor) ReadElement(parentEnd int64) (Element, error) {
	position := c.Position()

	rawId, idLength, idErr := c.readVariableLengthUInt(false)
	if idErr != nil {
		return Element{Position: position}, errors.Wrap(idErr, "failed to read element id")
	}

	if idLength == 0 || idLength > 4 {
		return Element{Position: position}, nil
	}

	size, sizeLength, sizeErr := c.readVariableLengthUInt(true)
	if sizeErr != nil {
		return Element{Position: position}, errors.Wrap(sizeErr, "failed to read element size")
	}

	if sizeLength == 0 {
		return Element{Position: position}, nil
	}

	element := *NewElement(ElementId(rawId), position, c.Position(), 0)

	if size == uint64(1)<<(7*sizeLength)-1 {
		element.UnknownSize = true
		element.DataSize = parentEnd - element.DataPosition
	} else if size > math.MaxInt64/2 {
		return Element{Position: position}, nil
	} else {
		element.DataSize = int64(size)
	}

	return element, nil
}

func (c *ElementCursor) readByte() (byte, error) {
	buffer := make([]byte, 1)

	_, readErr := io.ReadFull(c.stream, buffer)
	if readErr != nil {
		return 0, readErr
	}

	return buffer[0], nil
}

// readVariableLengthUInt returns the value and its encoded length. A length of
// zero means the first byte carried no length marker.
func (c *ElementCursor) readVariableLengthUInt(unsetFirstBit bool) (uint64, int, error) {
	first, readErr := c.readByte()
	if readErr != nil {
		return 0, 0, readErr
	}

	//Begin by counting the bits unset before the highest set bit
	length := 0
	mask := byte(0x80)
	for i := 0; i < 8; i++ {
		if (first & mask) == mask {
			length = i + 1
			break
		}
		mask >>= 1
	}

	if length == 0 {
		return 0, 0, nil
	}

	var result uint64
	if unsetFirstBit {
		result = uint64(first & (0xFF >> length))
	} else {
		result = uint64(first)
	}

	for i := 1; i < length; i++ {
		next, readErr := c.readByte()
		if readErr != nil {
			return 0, 0, readErr
		}

		result = result<<8 | uint64(next)
	}

	return result, length, nil
}

func (c *ElementCursor) ReadBytes(length int64) ([]byte, error) {
	if length < 0 || c.Position()+length > c.Size() {
		return nil, errors.Wrapf(ErrCorruptElement, "payload of %d bytes at %d runs past end of stream", length, c.Position())
	}

	data := make([]byte, length)

	_, readErr := io.ReadFull(c.stream, data)
	if readErr != nil {
		return nil, errors.Wrap(readErr, "failed to read element payload")
	}

	return data, nil
}

func (c *ElementCursor) ReadUInt(length int64) (uint64, error) {
	if length > 8 {
		return 0, errors.Wrapf(ErrCorruptElement, "unsigned integer of %d bytes", length)
	}

	data, dataErr := c.ReadBytes(length)
	if dataErr != nil {
		return 0, dataErr
	}

	//Convert the big endian byte array to a 64-bit unsigned integer.
	result := uint64(0)
	for _, b := range data {
		result = result<<8 | uint64(b)
	}

	return result, nil
}

func (c *ElementCursor) ReadFloat(length int64) (float64, error) {
	switch length {
	case 0:
		return 0, nil
	case 4:
		data, dataErr := c.ReadBytes(4)
		if dataErr != nil {
			return 0, dataErr
		}

		return float64(math.Float32frombits(binary.BigEndian.Uint32(data))), nil
	case 8:
		data, dataErr := c.ReadBytes(8)
		if dataErr != nil {
			return 0, dataErr
		}

		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	}

	return 0, errors.Wrapf(ErrCorruptElement, "float of %d bytes", length)
}

// ReadString reads an EBML string, which ends at the first binary zero.
func (c *ElementCursor) ReadString(length int64) (string, error) {
	data, dataErr := c.ReadBytes(length)
	if dataErr != nil {
		return "", dataErr
	}

	for i, b := range data {
		if b == 0 {
			return string(data[:i]), nil
		}
	}

	return string(data), nil
}

// readChildren visits every child of parent in order, leaving the cursor at the
// end of each child afterwards regardless of how much of it visit consumed.
func (c *ElementCursor) readChildren(parent Element, visit func(Element) error) error {
	for c.Position() < parent.EndPosition() {
		element, elementErr := c.ReadElement(parent.EndPosition())
		if elementErr != nil {
			return errors.Wrapf(elementErr, "failed to read child of %s", parent.Id)
		}

		if element.IsDummy() || element.EndPosition() > parent.EndPosition() {
			return errors.Wrapf(ErrCorruptElement, "bad child element at %d inside %s", element.Position, parent.Id)
		}

		visitErr := visit(element)
		if visitErr != nil {
			return visitErr
		}

		seekErr := c.Skip(element)
		if seekErr != nil {
			return seekErr
		}
	}

	return nil
}
