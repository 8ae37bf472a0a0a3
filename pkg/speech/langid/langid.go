// Package langid identifies the language of finished reply text so the
// synthesizer can pick a matching voice.
package langid

import (
	"github.com/abadojack/whatlanggo"
)

// whatlanggo reports ISO 639-3; the voice tables downstream are keyed
// by ISO 639-1.
var iso3to1 = map[string]string{
	"eng": "en",
	"fra": "fr",
	"deu": "de",
	"spa": "es",
	"ita": "it",
	"por": "pt",
	"rus": "ru",
	"cmn": "zh",
	"jpn": "ja",
	"kor": "ko",
	"tur": "tr",
	"nld": "nl",
	"pol": "pl",
	"ukr": "uk",
	"arb": "ar",
}

// Detect returns the ISO 639-1 code for the given text, defaulting to
// English when detection comes up empty or unmapped.
func Detect(text string) string {
	info := whatlanggo.Detect(text)
	if code, ok := iso3to1[whatlanggo.LangToString(info.Lang)]; ok {
		return code
	}
	return "en"
}
