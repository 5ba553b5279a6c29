package matroska

import (
	"bytes"
	"cmp"
	"compress/zlib"
	"io"
	"slices"

	"github.com/andybalholm/crlf"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/transform"
)

const (
	ContentEncodingScopePrivateData = 2
	ContentEncodingScopeTracks      = 1
	ContentEncodingTypeCompression  = 0

	ContentCompressionZlib        = 0
	ContentCompressionHeaderStrip = 3
)

type ContentEncoding struct {
	CompressionAlgorithm uint64
	CompressionSettings  []byte
	Order                uint64
	Scope                uint64
	Type                 uint64
}

func (c *ElementCursor) readContentEncodingElement(contentEncodingElement Element) (ContentEncoding, error) {
	encoding := ContentEncoding{Scope: ContentEncodingScopeTracks, Type: ContentEncodingTypeCompression}

	childrenErr := c.readChildren(contentEncodingElement, func(element Element) error {
		var readErr error

		switch element.Id {
		case ElementContentEncodingOrder:
			encoding.Order, readErr = c.ReadUInt(element.DataSize)
		case ElementContentEncodingScope:
			encoding.Scope, readErr = c.ReadUInt(element.DataSize)
		case ElementContentEncodingType:
			encoding.Type, readErr = c.ReadUInt(element.DataSize)
		case ElementContentCompression:
			readErr = c.readChildren(element, func(compressionElement Element) error {
				var compressionErr error

				switch compressionElement.Id {
				case ElementContentCompAlgo:
					encoding.CompressionAlgorithm, compressionErr = c.ReadUInt(compressionElement.DataSize)
				case ElementContentCompSettings:
					encoding.CompressionSettings, compressionErr = c.ReadBytes(compressionElement.DataSize)
				}

				return compressionErr
			})
		}

		return readErr
	})
	if childrenErr != nil {
		return encoding, errors.Wrap(childrenErr, "failed to read content encoding element")
	}

	return encoding, nil
}

func (c *ElementCursor) readContentEncodingsElement(contentEncodingsElement Element) ([]ContentEncoding, error) {
	var encodings []ContentEncoding

	childrenErr := c.readChildren(contentEncodingsElement, func(element Element) error {
		if element.Id != ElementContentEncoding {
			return nil
		}

		encoding, encodingErr := c.readContentEncodingElement(element)
		if encodingErr != nil {
			return encodingErr
		}

		encodings = append(encodings, encoding)

		return nil
	})

	return encodings, childrenErr
}

// decodeFramePayload undoes the track's content compression, innermost
// encoding (highest order) first.
func decodeFramePayload(encodings []ContentEncoding, data []byte) ([]byte, error) {
	ordered := slices.Clone(encodings)
	slices.SortFunc(ordered, func(a, b ContentEncoding) int {
		return cmp.Compare(b.Order, a.Order)
	})

	for _, encoding := range ordered {
		if encoding.Type != ContentEncodingTypeCompression || (encoding.Scope&ContentEncodingScopeTracks) == 0 {
			continue
		}

		switch encoding.CompressionAlgorithm {
		case ContentCompressionZlib:
			zlibReader, zlibReaderErr := zlib.NewReader(bytes.NewReader(data))
			if zlibReaderErr != nil {
				return nil, errors.Wrap(zlibReaderErr, "failed to create zlib reader")
			}

			uncompressedData, uncompressedDataErr := io.ReadAll(zlibReader)
			if uncompressedDataErr != nil {
				return nil, errors.Wrap(uncompressedDataErr, "failed to read all data from zlib reader")
			}

			data = uncompressedData
		case ContentCompressionHeaderStrip:
			data = append(slices.Clone(encoding.CompressionSettings), data...)
		default:
			return nil, errors.Newf("unsupported content compression algorithm %d", encoding.CompressionAlgorithm)
		}
	}

	return data, nil
}

// subtitleText terminates a text subtitle frame at its first binary zero and
// turns every line ending into "\n".
func subtitleText(data []byte) ([]byte, error) {
	return normalizeText(new(crlf.Normalize), data)
}

func normalizeText(normalizer transform.Transformer, data []byte) ([]byte, error) {
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		end = len(data)
	}

	normalized, _, transformErr := transform.Bytes(normalizer, data[:end])
	if transformErr != nil {
		return nil, errors.Wrap(transformErr, "failed to normalize subtitle text")
	}

	return normalized, nil
}
