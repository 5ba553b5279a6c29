package common

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/edsrzf/mmap-go"
)

// Stream is a random-access byte source that tracks its own cursor.
type Stream interface {
	io.ReadSeeker
	Position() int64
	Size() int64
}

type FileStream struct {
	file           *os.File
	filePosition   int64
	fileSize       int64
	isBorrowed     bool
	isMemoryMapped bool
	isOpen         bool
	mmapFile       mmap.MMap
}

func (f *FileStream) offsetFilePosition(offset int) {
	f.filePosition += int64(offset)
}

func (f *FileStream) Close() error {
	if !f.isOpen {
		return nil
	}

	f.filePosition = -1
	f.fileSize = -1
	f.isOpen = false

	if f.isBorrowed {
		f.mmapFile = nil

		return nil
	}

	if f.isMemoryMapped {
		return f.mmapFile.Unmap()
	}

	return f.file.Close()
}

// NewByteStream wraps an in-memory buffer; Close releases nothing.
func NewByteStream(data []byte) *FileStream {
	return &FileStream{
		filePosition:   0,
		fileSize:       int64(len(data)),
		isBorrowed:     true,
		isMemoryMapped: true,
		isOpen:         true,
		mmapFile:       mmap.MMap(data),
	}
}

func NewFileStream(path string) (*FileStream, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, errors.Wrapf(openErr, "failed to open file %s", path)
	}

	stat, statErr := file.Stat()
	if statErr != nil {
		defer file.Close()

		return nil, errors.Wrapf(statErr, "failed to read information while opening file %s", path)
	}

	mapped, mmapErr := mmap.Map(file, mmap.RDONLY, 0)
	if mmapErr != nil {
		return &FileStream{
			file:           file,
			filePosition:   0,
			fileSize:       stat.Size(),
			isMemoryMapped: false,
			isOpen:         true,
			mmapFile:       nil,
		}, nil
	}

	defer file.Close()

	adviseSequential(mapped)

	return &FileStream{
		file:           nil,
		filePosition:   0,
		fileSize:       stat.Size(),
		isMemoryMapped: true,
		isOpen:         true,
		mmapFile:       mapped,
	}, nil
}

func (f *FileStream) Position() int64 {
	return f.filePosition
}

func (f *FileStream) Read(b []byte) (int, error) {
	if !f.isOpen {
		return 0, os.ErrClosed
	}

	if f.isMemoryMapped {
		if f.filePosition >= f.fileSize {
			return 0, io.EOF
		}

		bytesCopied := copy(b, f.mmapFile[f.filePosition:f.fileSize])

		f.offsetFilePosition(bytesCopied)

		if bytesCopied < len(b) {
			return bytesCopied, io.EOF
		}

		return bytesCopied, nil
	}

	bytesRead, readErr := f.file.Read(b)
	f.offsetFilePosition(bytesRead)

	return bytesRead, readErr
}

func (f *FileStream) Seek(offset int64, whence int) (int64, error) {
	if !f.isOpen {
		return 0, os.ErrClosed
	}

	if f.isMemoryMapped {
		newPosition := f.filePosition

		switch whence {
		case io.SeekCurrent:
			newPosition += offset
		case io.SeekEnd:
			newPosition = f.fileSize + offset
		case io.SeekStart:
			newPosition = offset
		default:
			return f.filePosition, errors.Newf("invalid seek whence %d", whence)
		}

		if newPosition < 0 {
			return f.filePosition, errors.Newf("negative seek position %d", newPosition)
		}

		f.filePosition = newPosition

		return f.filePosition, nil
	}

	newOffset, seekErr := f.file.Seek(offset, whence)
	if seekErr != nil {
		return newOffset, errors.Wrap(seekErr, "failed to seek file")
	}

	f.filePosition = newOffset

	return f.filePosition, nil
}

func (f *FileStream) Size() int64 {
	return f.fileSize
}
