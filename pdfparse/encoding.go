package pdfparse

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// winAnsiEncoding and macRomanEncoding map byte codes to Unicode for the two
// simple-font encodings this parser recognises. Built from x/text's charmap
// tables rather than hand-transcribed, since WinAnsiEncoding and
// MacRomanEncoding are byte-for-byte CP1252 and Macintosh respectively.
var winAnsiEncoding = charmapToRunes(charmap.Windows1252)
var macRomanEncoding = charmapToRunes(charmap.Macintosh)

// glyphNames resolves the handful of /Differences glyph names this parser
// actually needs to reproduce Markdown-visible punctuation; anything else
// falls back to the numeric-name handling in glyphNameToRune.
var glyphNames = map[string]rune{
	"space": ' ', "bullet": '•', "endash": '–', "emdash": '—',
	"quoteleft": '‘', "quoteright": '’', "quotedblleft": '“',
	"quotedblright": '”', "ellipsis": '…', "hyphen": '-',
}

func charmapToRunes(cm *charmap.Charmap) map[int]rune {
	out := make(map[int]rune, 256)
	for c := 0; c <= 0xFF; c++ {
		if r := cm.DecodeByte(byte(c)); r != utf8.RuneError {
			out[c] = r
		}
	}
	return out
}
