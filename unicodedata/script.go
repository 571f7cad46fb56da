package unicodedata

import "unicode"

// Script is an ISO 15924-ish tag resolved from the standard library's
// unicode.Scripts range tables. The shaping engine only needs script
// detection as a fallback when the caller hasn't already segmented the run
// by script (segmentation across a whole paragraph is explicitly out of
// scope, spec §1); this is used by tests and by callers populating
// SegmentProperties from raw text.
type Script string

// scriptTable mirrors the detection precedence a font-shaping pipeline
// cares about: explicitly-scripted letters first, then generic/common
// blocks fall through to "Zyyy" (Common).
var scriptTable = []struct {
	table *unicode.RangeTable
	tag   Script
}{
	{unicode.Arabic, "Arab"},
	{unicode.Syriac, "Syrc"},
	{unicode.Nko, "Nkoo"},
	{unicode.Hebrew, "Hebr"},
	{unicode.Devanagari, "Deva"},
	{unicode.Bengali, "Beng"},
	{unicode.Gurmukhi, "Guru"},
	{unicode.Gujarati, "Gujr"},
	{unicode.Oriya, "Orya"},
	{unicode.Tamil, "Taml"},
	{unicode.Telugu, "Telu"},
	{unicode.Kannada, "Knda"},
	{unicode.Malayalam, "Mlym"},
	{unicode.Myanmar, "Mymr"},
	{unicode.Khmer, "Khmr"},
	{unicode.Hangul, "Hang"},
	{unicode.Thai, "Thai"},
	{unicode.Lao, "Laoo"},
	{unicode.Han, "Hani"},
	{unicode.Hiragana, "Hira"},
	{unicode.Katakana, "Kana"},
	{unicode.Latin, "Latn"},
	{unicode.Greek, "Grek"},
	{unicode.Cyrillic, "Cyrl"},
}

// ScriptOf returns the script of r, or "Zyyy" (Common) if r isn't covered
// by one of the named scripts above.
func ScriptOf(r rune) Script {
	for _, s := range scriptTable {
		if unicode.Is(s.table, r) {
			return s.tag
		}
	}
	return "Zyyy"
}

// IsExtendPictographicOrMark reports whether r is a grapheme "extender" in
// the simplified grapheme-break model used by cluster_level
// monotone-graphemes (spec §4.1): combining marks, ZWJ and variation
// selectors extend the preceding grapheme rather than starting a new one.
func IsExtendPictographicOrMark(r rune) bool {
	if GenCategory(r).IsMark() {
		return true
	}
	switch r {
	case 0x200D, // ZWJ
		0xFE0E, 0xFE0F: // variation selectors 15/16
		return true
	}
	return r >= 0xFE00 && r <= 0xFE0F // variation selector block
}
