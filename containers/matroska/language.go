package matroska

import (
	"strings"

	"golang.org/x/text/language"
)

// ISO 639-2 bibliographic codes that differ from their terminology code.
var bibliographicLanguages = map[string]string{
	"alb": "sqi",
	"arm": "hye",
	"baq": "eus",
	"bur": "mya",
	"chi": "zho",
	"cze": "ces",
	"dut": "nld",
	"fre": "fra",
	"geo": "kat",
	"ger": "deu",
	"gre": "ell",
	"ice": "isl",
	"mac": "mkd",
	"mao": "mri",
	"may": "msa",
	"per": "fas",
	"rum": "ron",
	"slo": "slk",
	"tib": "bod",
	"wel": "cym",
}

// trackLanguage maps a Matroska ISO 639-2 language code to a language tag.
// Codes that do not parse map to language.Und.
func trackLanguage(code string) language.Tag {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return language.Und
	}

	if terminology, found := bibliographicLanguages[code]; found {
		code = terminology
	}

	base, baseErr := language.ParseBase(code)
	if baseErr != nil {
		return language.Und
	}

	tag, tagErr := language.Compose(base)
	if tagErr != nil {
		return language.Und
	}

	return tag
}
