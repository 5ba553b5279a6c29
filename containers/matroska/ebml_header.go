package matroska

import (
	"io"
	"slices"

	"github.com/cockroachdb/errors"
)

const (
	DefaultDocType        = "matroska"
	DefaultMaxReadVersion = 2
)

type EbmlHeader struct {
	DocType            string
	DocTypeReadVersion uint64
	DocTypeVersion     uint64
	ReadVersion        uint64
}

// readEbmlHeader reads the EBML header at the start of the stream and checks it
// declares one of docTypes with a read version no newer than maxReadVersion.
// The cursor is left at the end of the header.
func readEbmlHeader(cursor *ElementCursor, docTypes []string, maxReadVersion uint64) (EbmlHeader, error) {
	header := EbmlHeader{DocType: DefaultDocType, DocTypeReadVersion: 1, DocTypeVersion: 1, ReadVersion: 1}

	seekErr := cursor.SeekTo(0)
	if seekErr != nil {
		return header, seekErr
	}

	headerElement, headerErr := cursor.ReadElement(cursor.Size())
	if headerErr != nil {
		if errors.Is(headerErr, io.EOF) || errors.Is(headerErr, io.ErrUnexpectedEOF) {
			return header, errors.Wrap(ErrInvalidContainer, "file is too short to hold an EBML header")
		}

		return header, headerErr
	}

	if headerElement.IsDummy() || headerElement.Id != ElementEbml || headerElement.UnknownSize || headerElement.EndPosition() > cursor.Size() {
		return header, errors.Wrap(ErrInvalidContainer, "missing EBML header")
	}

	childrenErr := cursor.readChildren(headerElement, func(element Element) error {
		var readErr error

		switch element.Id {
		case ElementDocType:
			header.DocType, readErr = cursor.ReadString(element.DataSize)
		case ElementDocTypeReadVersion:
			header.DocTypeReadVersion, readErr = cursor.ReadUInt(element.DataSize)
		case ElementDocTypeVersion:
			header.DocTypeVersion, readErr = cursor.ReadUInt(element.DataSize)
		case ElementEbmlReadVersion:
			header.ReadVersion, readErr = cursor.ReadUInt(element.DataSize)
		}

		return readErr
	})
	if childrenErr != nil {
		return header, errors.Mark(errors.Wrap(childrenErr, "failed to read EBML header"), ErrInvalidContainer)
	}

	if !slices.Contains(docTypes, header.DocType) {
		return header, errors.Wrapf(ErrInvalidContainer, "doc type %q is not Matroska", header.DocType)
	}

	if header.DocTypeReadVersion > maxReadVersion {
		return header, errors.Wrapf(ErrUnsupportedVersion, "read version %d is newer than %d", header.DocTypeReadVersion, maxReadVersion)
	}

	return header, nil
}
