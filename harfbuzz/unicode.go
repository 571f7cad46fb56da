package harfbuzz

import "github.com/textshape/complexshape/unicodedata"

// generalCategory mirrors the general category enumeration order the rest
// of this package switches on (glyph.go, ot_shaper.go, ot_layout_gsubgpos.go):
// control/format come first so that flagRange masks spanning "format through
// non-spacing mark" line up with a contiguous bit range.
type generalCategory uint8

const (
	controlCategory generalCategory = iota
	format
	unassignedCategory
	privateUse
	surrogate
	lowercaseLetter
	modifierLetter
	otherLetter
	titlecaseLetter
	uppercaseLetter
	spacingMark
	enclosingMark
	nonSpacingMark
	decimalNumber
	letterNumber
	otherNumber
	connectPunctuation
	dashPunctuation
	closePunctuation
	finalPunctuation
	initialPunctuation
	otherPunctuation
	openPunctuation
	currencySymbol
	modifierSymbol
	mathSymbol
	otherSymbol
	lineSeparator
	paragraphSeparator
	spaceSeparator
)

func (c generalCategory) isMark() bool {
	switch c {
	case spacingMark, enclosingMark, nonSpacingMark:
		return true
	}
	return false
}

// genCategoryTable translates unicodedata's category order into this
// package's, since the two enumerations were derived independently (one
// from the standard library's unicode.* range tables, one mirroring the
// layout engine's historical bit layout).
var genCategoryTable = [...]generalCategory{
	unicodedata.Unassigned:          unassignedCategory,
	unicodedata.Control:             controlCategory,
	unicodedata.Format:              format,
	unicodedata.PrivateUse:          privateUse,
	unicodedata.Surrogate:           surrogate,
	unicodedata.LowercaseLetter:     lowercaseLetter,
	unicodedata.ModifierLetter:      modifierLetter,
	unicodedata.OtherLetter:         otherLetter,
	unicodedata.TitlecaseLetter:     titlecaseLetter,
	unicodedata.UppercaseLetter:     uppercaseLetter,
	unicodedata.SpacingMark:         spacingMark,
	unicodedata.EnclosingMark:       enclosingMark,
	unicodedata.NonSpacingMark:      nonSpacingMark,
	unicodedata.DecimalNumber:       decimalNumber,
	unicodedata.LetterNumber:        letterNumber,
	unicodedata.OtherNumber:         otherNumber,
	unicodedata.ConnectPunctuation:  connectPunctuation,
	unicodedata.DashPunctuation:     dashPunctuation,
	unicodedata.ClosePunctuation:    closePunctuation,
	unicodedata.FinalPunctuation:    finalPunctuation,
	unicodedata.InitialPunctuation:  initialPunctuation,
	unicodedata.OtherPunctuation:    otherPunctuation,
	unicodedata.OpenPunctuation:     openPunctuation,
	unicodedata.CurrencySymbol:      currencySymbol,
	unicodedata.ModifierSymbol:      modifierSymbol,
	unicodedata.MathSymbol:          mathSymbol,
	unicodedata.OtherSymbol:         otherSymbol,
	unicodedata.LineSeparator:       lineSeparator,
	unicodedata.ParagraphSeparator:  paragraphSeparator,
	unicodedata.SpaceSeparator:      spaceSeparator,
}

// unicodeFuncs adapts the unicodedata package to the small surface the
// shaping engine actually calls through; it exists (rather than calling
// unicodedata directly everywhere) so a shaper or a test can swap in a
// different Unicode data source by replacing the single package-level uni
// value.
type unicodeFuncs struct{}

func (unicodeFuncs) generalCategory(r rune) generalCategory {
	return genCategoryTable[unicodedata.GenCategory(r)]
}

func (unicodeFuncs) decompose(ab rune) (a, b rune, ok bool) {
	return unicodedata.Decompose(ab)
}

func (unicodeFuncs) compose(a, b rune) (ab rune, ok bool) {
	return unicodedata.Compose(a, b)
}

func (unicodeFuncs) mirroring(r rune) rune {
	return unicodedata.Mirroring(r)
}

var uni unicodeFuncs

// glyphProps bits beyond the GDEF class bits (tables.GPBaseGlyph etc.),
// tracking engine-internal substitution history on top of the font's own
// glyph classification.
const (
	substituted uint16 = 0x10
	ligated     uint16 = 0x20
	multiplied  uint16 = 0x40
)

// space fallback classification returned by GlyphInfo.getUnicodeSpaceFallbackType.
const (
	notSpace uint8 = iota
	space_EM
	space_EM_2
	space_EM_3
	space_EM_4
	space_EM_5
	space_EM_6
	space_EM_16
	space_4_EM_18
	spaceFigure
	spacePunctuation
	spaceNarrow
)

// computeUnicodeProps derives the packed unicodeProp word for a single
// input codepoint, plus any scratch flags the buffer should remember it saw
// (used by the normalizer and by default-ignorable handling at the end of
// shaping).
func computeUnicodeProps(u rune) (unicodeProp, bufferScratchFlags) {
	gc := uni.generalCategory(u)
	prop := unicodeProp(gc)
	var flags bufferScratchFlags

	if isDefaultIgnorable(u) {
		prop |= upropsMaskIgnorable
		if isHiddenDefaultIgnorable(u) {
			prop |= upropsMaskHidden
		}
	}

	if gc == format {
		switch u {
		case 0x200D: // ZWJ
			prop |= upropsMaskCfZwj
		case 0x200C: // ZWNJ
			prop |= upropsMaskCfZwnj
		}
	}

	if gc.isMark() {
		prop |= unicodeProp(unicodedata.CombiningClass(u)) << 8
		flags |= bsfHasNonASCII
	}

	if gc == spaceSeparator {
		if t := unicodeSpaceFallbackType(u); t != notSpace {
			prop |= unicodeProp(t) << 8
			flags |= bsfHasSpaceFallback
		}
	}

	return prop, flags
}

// unicodeSpaceFallbackType classifies a Unicode space_separator codepoint by
// the fraction-of-em (or reference-glyph) width fallbackSpaces should use
// when the font has no GPOS/kern entry of its own for it.
func unicodeSpaceFallbackType(u rune) uint8 {
	switch u {
	case 0x0020, 0x00A0, 0x2001, 0x2003, 0x3000:
		return space_EM
	case 0x2000, 0x2002:
		return space_EM_2
	case 0x2004:
		return space_EM_3
	case 0x2005:
		return space_EM_4
	case 0x2006:
		return space_EM_6
	case 0x2007:
		return spaceFigure
	case 0x2008:
		return spacePunctuation
	case 0x2009:
		return space_EM_5
	case 0x200A:
		return space_EM_16
	case 0x202F:
		return spaceNarrow
	case 0x205F:
		return space_4_EM_18
	default:
		return notSpace
	}
}

// isDefaultIgnorable approximates Unicode's Default_Ignorable_Code_Point
// property with the code points that actually show up in text a shaper
// processes: joiners, variation selectors, the Mongolian free variation
// selectors, and the deprecated BOM-as-ZWNBSP use.
func isDefaultIgnorable(u rune) bool {
	switch {
	case u == 0x00AD, // SOFT HYPHEN
		u == 0x034F, // COMBINING GRAPHEME JOINER
		u == 0x115F, u == 0x1160, // HANGUL CHOSEONG/JUNGSEONG FILLER
		u == 0x17B4, u == 0x17B5, // KHMER VOWEL INHERENT AQ/AA
		u == 0x200B, u == 0x200C, u == 0x200D, // ZWSP, ZWNJ, ZWJ
		u == 0x2060, u == 0x2061, u == 0x2062, u == 0x2063, u == 0x2064, // word joiner, invisible operators
		u == 0xFEFF, // BOM / ZWNBSP
		u == 0xFFFC: // OBJECT REPLACEMENT CHARACTER
		return true
	case u >= 0x180B && u <= 0x180F: // Mongolian FVS and the free variation selector block
		return true
	case u >= 0xFE00 && u <= 0xFE0F: // variation selectors 1-16
		return true
	case u >= 0xE0100 && u <= 0xE01EF: // variation selectors 17-256
		return true
	case u >= 0xE0000 && u <= 0xE007F: // tag characters
		return true
	}
	return false
}

// isHiddenDefaultIgnorable marks the handful of default-ignorables that
// should still be visible to users who ask the buffer not to remove them,
// notably CGJ and the Mongolian FVS, mirroring the distinction the upstream
// behavior draws between "ignorable" and "ignorable but displayed".
func isHiddenDefaultIgnorable(u rune) bool {
	switch {
	case u == 0x034F:
		return true
	case u >= 0x180B && u <= 0x180F:
		return true
	case u >= 0xFE00 && u <= 0xFE0F:
		return true
	}
	return false
}
