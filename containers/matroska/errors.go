package matroska

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidContainer means the EBML header is missing or declares a foreign doc type.
	ErrInvalidContainer = errors.New("invalid Matroska container")
	// ErrUnsupportedVersion means the document needs a newer reader.
	ErrUnsupportedVersion = errors.New("unsupported Matroska read version")
	// ErrTrackRejected means one track could not be set up and is left out.
	ErrTrackRejected = errors.New("track rejected")
	// ErrSampleCommitFailed means the sink refused a single sample.
	ErrSampleCommitFailed = errors.New("sample commit failed")
	// ErrCorruptElement means an element header or payload does not decode.
	ErrCorruptElement = errors.New("corrupt element")
)
