package matroska

import (
	"testing"

	"golang.org/x/text/language"
)

func TestTrackLanguage(t *testing.T) {
	tests := map[string]language.Tag{
		"eng":     language.English,
		"ger":     language.German,
		"deu":     language.German,
		"fre":     language.French,
		"jpn":     language.Japanese,
		" SPA ":   language.Spanish,
		"":        language.Und,
		"und":     language.Und,
		"qqqqqqq": language.Und,
	}

	for code, want := range tests {
		if got := trackLanguage(code); got.String() != want.String() {
			t.Fatalf("trackLanguage(%q) = %v, want %v", code, got, want)
		}
	}
}
