package matroska

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/transform"
)

func TestDecodeFramePayload(t *testing.T) {
	var compressed bytes.Buffer
	writer := zlib.NewWriter(&compressed)
	if _, err := writer.Write([]byte("Dialogue: 0,0:00:01.00")); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	tests := []struct {
		name      string
		encodings []ContentEncoding
		data      []byte
		want      string
	}{
		{name: "none", data: []byte("plain"), want: "plain"},
		{
			name:      "zlib",
			encodings: []ContentEncoding{{Scope: ContentEncodingScopeTracks, Type: ContentEncodingTypeCompression, CompressionAlgorithm: ContentCompressionZlib}},
			data:      compressed.Bytes(),
			want:      "Dialogue: 0,0:00:01.00",
		},
		{
			name:      "header strip",
			encodings: []ContentEncoding{{Scope: ContentEncodingScopeTracks, Type: ContentEncodingTypeCompression, CompressionAlgorithm: ContentCompressionHeaderStrip, CompressionSettings: []byte("Dia")}},
			data:      []byte("logue"),
			want:      "Dialogue",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := decodeFramePayload(test.encodings, test.data)
			if err != nil {
				t.Fatalf("decodeFramePayload returned error: %v", err)
			}
			if string(got) != test.want {
				t.Fatalf("unexpected payload %q", got)
			}
		})
	}
}

func TestDecodeFramePayloadRejectsUnknownAlgorithm(t *testing.T) {
	encodings := []ContentEncoding{{Scope: ContentEncodingScopeTracks, Type: ContentEncodingTypeCompression, CompressionAlgorithm: 1}}

	if _, err := decodeFramePayload(encodings, []byte("x")); err == nil {
		t.Fatal("expected error for bzlib compression")
	}
}

func TestSubtitleText(t *testing.T) {
	got, err := subtitleText([]byte("Hello\r\nWorld\rAgain\x00garbage"))
	if err != nil {
		t.Fatalf("subtitleText returned error: %v", err)
	}
	if string(got) != "Hello\nWorld\nAgain" {
		t.Fatalf("unexpected text %q", got)
	}
}

type failingTransformer struct {
	transform.NopResetter
}

func (failingTransformer) Transform(dst, src []byte, atEOF bool) (int, int, error) {
	return 0, 0, errors.New("broken text")
}

func TestNormalizeTextReportsTransformErrors(t *testing.T) {
	if _, err := normalizeText(failingTransformer{}, []byte("Hello")); err == nil {
		t.Fatal("expected error from failing transformer")
	}
}
