package matroska

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ristryder/mkvimport/common"
)

func newTestCursor(data []byte) *ElementCursor {
	return NewElementCursor(common.NewByteStream(data))
}

func TestReadElementDecodesHeader(t *testing.T) {
	data := concat(element(ElementInfo, uintElement(ElementTimecodeScale, 1000000)), []byte{0xEC, 0x80})
	cursor := newTestCursor(data)

	info, err := cursor.ReadElement(cursor.Size())
	if err != nil {
		t.Fatalf("ReadElement returned error: %v", err)
	}
	if info.Id != ElementInfo || info.Position != 0 || info.DataPosition != 5 {
		t.Fatalf("unexpected element: %+v", info)
	}
	if info.EndPosition() != int64(len(data)-2) {
		t.Fatalf("unexpected end position: %d", info.EndPosition())
	}

	child, err := cursor.ReadElement(info.EndPosition())
	if err != nil {
		t.Fatalf("ReadElement returned error: %v", err)
	}
	scale, err := cursor.ReadUInt(child.DataSize)
	if err != nil || scale != 1000000 {
		t.Fatalf("unexpected timecode scale %d, %v", scale, err)
	}

	void, err := cursor.ReadElement(cursor.Size())
	if err != nil || void.Id != ElementVoid || void.DataSize != 0 {
		t.Fatalf("unexpected void element %+v, %v", void, err)
	}
}

func TestReadElementReturnsDummyForBadHeader(t *testing.T) {
	cursor := newTestCursor([]byte{0x00, 0x81, 0x00})

	dummy, err := cursor.ReadElement(cursor.Size())
	if err != nil {
		t.Fatalf("ReadElement returned error: %v", err)
	}
	if !dummy.IsDummy() || dummy.Position != 0 {
		t.Fatalf("expected dummy at 0, got %+v", dummy)
	}
}

func TestReadElementClampsUnknownSize(t *testing.T) {
	data := unknownSizeElement(ElementCluster, uintElement(ElementTimecode, 7))
	cursor := newTestCursor(data)

	clusterElement, err := cursor.ReadElement(cursor.Size())
	if err != nil {
		t.Fatalf("ReadElement returned error: %v", err)
	}
	if !clusterElement.UnknownSize {
		t.Fatal("expected unknown size")
	}
	if clusterElement.EndPosition() != int64(len(data)) {
		t.Fatalf("expected unknown size to reach parent end, got %d", clusterElement.EndPosition())
	}
}

func TestReadFloatAndString(t *testing.T) {
	data := concat(floatElement(ElementDuration, 1234.5), stringElement(ElementTitle, "Title\x00padding"))
	cursor := newTestCursor(data)

	duration, _ := cursor.ReadElement(cursor.Size())
	value, err := cursor.ReadFloat(duration.DataSize)
	if err != nil || value != 1234.5 {
		t.Fatalf("unexpected float %v, %v", value, err)
	}

	title, _ := cursor.ReadElement(cursor.Size())
	text, err := cursor.ReadString(title.DataSize)
	if err != nil || text != "Title" {
		t.Fatalf("unexpected string %q, %v", text, err)
	}
}

func TestReadBytesPastEndIsCorrupt(t *testing.T) {
	cursor := newTestCursor([]byte{0x01, 0x02})

	if _, err := cursor.ReadBytes(3); !errors.Is(err, ErrCorruptElement) {
		t.Fatalf("expected ErrCorruptElement, got %v", err)
	}

	if _, err := cursor.ReadUInt(9); !errors.Is(err, ErrCorruptElement) {
		t.Fatalf("expected ErrCorruptElement for wide integer, got %v", err)
	}
}

func TestReadChildrenRejectsOverrunningChild(t *testing.T) {
	// Parent claims 3 bytes but its child claims 4.
	data := []byte{0xE0, 0x83, 0xB0, 0x84, 0x01, 0x02, 0x03, 0x04}
	cursor := newTestCursor(data)

	parent, _ := cursor.ReadElement(cursor.Size())
	err := cursor.readChildren(parent, func(Element) error { return nil })
	if !errors.Is(err, ErrCorruptElement) {
		t.Fatalf("expected ErrCorruptElement, got %v", err)
	}
}
