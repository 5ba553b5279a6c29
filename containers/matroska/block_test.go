package matroska

import (
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
)

func readTestBlock(t *testing.T, data []byte) (Block, Element, error) {
	t.Helper()

	cursor := newTestCursor(data)
	blockElement, err := cursor.ReadElement(cursor.Size())
	if err != nil {
		t.Fatalf("ReadElement returned error: %v", err)
	}

	block, err := cursor.readBlock(blockElement)

	return block, blockElement, err
}

func frameSizes(block Block) []int64 {
	var sizes []int64
	for _, frame := range block.Frames {
		sizes = append(sizes, frame.Size)
	}

	return sizes
}

func TestReadBlockWithoutLacing(t *testing.T) {
	block, blockElement, err := readTestBlock(t, simpleBlock(3, -20, true, []byte("frame")))
	if err != nil {
		t.Fatalf("readBlock returned error: %v", err)
	}

	if block.TrackNumber != 3 || block.Timecode != -20 || !block.Keyframe || block.Lacing != LacingNone {
		t.Fatalf("unexpected block: %+v", block)
	}
	if len(block.Frames) != 1 || block.Frames[0].Size != 5 || block.Frames[0].Offset != blockElement.DataPosition+4 {
		t.Fatalf("unexpected frames: %+v", block.Frames)
	}
}

func TestReadBlockLacing(t *testing.T) {
	payload := []byte("aaabbbbbcc")

	tests := []struct {
		name   string
		flags  byte
		header []byte
		want   []int64
	}{
		{name: "xiph", flags: 0x02, header: []byte{2, 3, 5}, want: []int64{3, 5, 2}},
		{name: "xiph long", flags: 0x02, header: []byte{1, 0xFF, 0x00}, want: []int64{255, 0}},
		{name: "ebml", flags: 0x06, header: []byte{2, 0x83, 0xC1}, want: []int64{3, 5, 2}},
		{name: "fixed", flags: 0x04, header: []byte{1}, want: []int64{5, 5}},
		{name: "ebml single frame", flags: 0x06, header: []byte{0}, want: []int64{10}},
		{name: "xiph single frame", flags: 0x02, header: []byte{0}, want: []int64{10}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			body := payload
			if test.name == "xiph long" {
				body = make([]byte, 255)
			}

			data := element(ElementSimpleBlock, blockPayload(1, 0, 0x80|test.flags, test.header, body))

			block, blockElement, err := readTestBlock(t, data)
			if err != nil {
				t.Fatalf("readBlock returned error: %v", err)
			}

			if got := frameSizes(block); !slices.Equal(got, test.want) {
				t.Fatalf("unexpected frame sizes: %v", got)
			}

			last := block.Frames[len(block.Frames)-1]
			if last.Offset+last.Size != blockElement.EndPosition() {
				t.Fatalf("frames should end with the block, got %+v", block.Frames)
			}
		})
	}
}

func TestReadBlockRejectsBadLacing(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "fixed uneven", data: element(ElementSimpleBlock, blockPayload(1, 0, 0x04, []byte{2}, []byte("abcd")))},
		{name: "xiph overrun", data: element(ElementSimpleBlock, blockPayload(1, 0, 0x02, []byte{1, 40}, []byte("abcd")))},
		{name: "missing track number", data: element(ElementSimpleBlock, []byte{0x00, 0x00, 0x00, 0x00})},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := readTestBlock(t, test.data)
			if !errors.Is(err, ErrCorruptElement) {
				t.Fatalf("expected ErrCorruptElement, got %v", err)
			}
		})
	}
}
