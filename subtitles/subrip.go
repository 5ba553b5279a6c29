package subtitles

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const defaultSeparator string = " --> "

type Paragraph struct {
	End   time.Duration
	Start time.Duration
	Text  string
}

// SubRip collects paragraphs and renders them as an .srt document.
type SubRip struct {
	paragraphs []Paragraph
}

func (s *SubRip) Extension() string {
	return ".srt"
}

func (s *SubRip) Name() string {
	return "SubRip"
}

func (s *SubRip) Paragraphs() []Paragraph {
	return s.paragraphs
}

// AddParagraph appends a cue. Blank text is dropped and an end before the
// start is clamped to the start.
func (s *SubRip) AddParagraph(start time.Duration, end time.Duration, text string) {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n\t ")
	if strings.TrimSpace(text) == "" {
		return
	}

	if end < start {
		end = start
	}

	s.paragraphs = append(s.paragraphs, Paragraph{End: end, Start: start, Text: text})
}

func (s *SubRip) ToText() string {
	var builder strings.Builder

	//Numbering is 1-based
	for i, paragraph := range s.paragraphs {
		fmt.Fprintf(&builder, "%d\n%s%s%s\n%s\n\n", i+1, FormatTimeCode(paragraph.Start), defaultSeparator, FormatTimeCode(paragraph.End), paragraph.Text)
	}

	return builder.String()
}

func (s *SubRip) WriteTo(w io.Writer) (int64, error) {
	written, writeErr := io.WriteString(w, s.ToText())

	return int64(written), writeErr
}

// FormatTimeCode renders d as HH:MM:SS,mmm. Negative durations render as zero.
func FormatTimeCode(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	milliseconds := d.Milliseconds()

	return fmt.Sprintf("%02d:%02d:%02d,%03d", milliseconds/3600000, milliseconds/60000%60, milliseconds/1000%60, milliseconds%1000)
}
