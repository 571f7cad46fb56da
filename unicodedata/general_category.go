// Package unicodedata implements the pure Unicode property lookups that the
// shaping engine treats as external collaborators: general category,
// canonical combining class, Arabic/Syriac joining type, script detection,
// and grapheme-cluster boundaries, plus canonical decomposition/composition.
//
// It builds on golang.org/x/text/unicode/norm for the decomposition tables
// and on the standard library's unicode.Scripts range tables for script
// detection, rather than re-deriving Unicode Character Database data by
// hand.
package unicodedata

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// GeneralCategory enumerates the Unicode general categories in this
// package's own order, starting with Unassigned; harfbuzz/unicode.go maps
// it onto the engine's separate generalCategory enumeration.
type GeneralCategory uint8

const (
	Unassigned GeneralCategory = iota
	Control
	Format
	PrivateUse
	Surrogate
	LowercaseLetter
	ModifierLetter
	OtherLetter
	TitlecaseLetter
	UppercaseLetter
	SpacingMark
	EnclosingMark
	NonSpacingMark
	DecimalNumber
	LetterNumber
	OtherNumber
	ConnectPunctuation
	DashPunctuation
	ClosePunctuation
	FinalPunctuation
	InitialPunctuation
	OtherPunctuation
	OpenPunctuation
	CurrencySymbol
	ModifierSymbol
	MathSymbol
	OtherSymbol
	LineSeparator
	ParagraphSeparator
	SpaceSeparator
)

// IsMark reports whether the category is one of Mn, Mc, Me.
func (gc GeneralCategory) IsMark() bool {
	switch gc {
	case NonSpacingMark, SpacingMark, EnclosingMark:
		return true
	}
	return false
}

var rangeTableByCategory = map[*unicode.RangeTable]GeneralCategory{
	unicode.Cc: Control,
	unicode.Cf: Format,
	unicode.Co: PrivateUse,
	unicode.Cs: Surrogate,
	unicode.Ll: LowercaseLetter,
	unicode.Lm: ModifierLetter,
	unicode.Lo: OtherLetter,
	unicode.Lt: TitlecaseLetter,
	unicode.Lu: UppercaseLetter,
	unicode.Mc: SpacingMark,
	unicode.Me: EnclosingMark,
	unicode.Mn: NonSpacingMark,
	unicode.Nd: DecimalNumber,
	unicode.Nl: LetterNumber,
	unicode.No: OtherNumber,
	unicode.Pc: ConnectPunctuation,
	unicode.Pd: DashPunctuation,
	unicode.Pe: ClosePunctuation,
	unicode.Pf: FinalPunctuation,
	unicode.Pi: InitialPunctuation,
	unicode.Po: OtherPunctuation,
	unicode.Ps: OpenPunctuation,
	unicode.Sc: CurrencySymbol,
	unicode.Sk: ModifierSymbol,
	unicode.Sm: MathSymbol,
	unicode.So: OtherSymbol,
	unicode.Zl: LineSeparator,
	unicode.Zp: ParagraphSeparator,
	unicode.Zs: SpaceSeparator,
}

// ordered so the first matching table wins; mirrors the precedence a real
// UCD-derived table would need since some ranges legitimately overlap
// (e.g. a few Mn code points also appear in supplementary private-use
// blocks in degenerate fonts, which we don't need to special-case here).
var categoryOrder = []*unicode.RangeTable{
	unicode.Cc, unicode.Cf, unicode.Co, unicode.Cs,
	unicode.Mn, unicode.Mc, unicode.Me,
	unicode.Nd, unicode.Nl, unicode.No,
	unicode.Pc, unicode.Pd, unicode.Pe, unicode.Pf, unicode.Pi, unicode.Po, unicode.Ps,
	unicode.Sc, unicode.Sk, unicode.Sm, unicode.So,
	unicode.Zl, unicode.Zp, unicode.Zs,
	unicode.Ll, unicode.Lm, unicode.Lo, unicode.Lt, unicode.Lu,
}

// GenCategory returns the general category of r.
func GenCategory(r rune) GeneralCategory {
	for _, table := range categoryOrder {
		if unicode.Is(table, r) {
			return rangeTableByCategory[table]
		}
	}
	return Unassigned
}

// CombiningClass returns the canonical combining class of r, as used by the
// normalizer's stable CCC sort. golang.org/x/text/unicode/norm does not
// expose the raw CCC table directly, so it is derived from its decomposition
// properties table via the documented Properties API, which reports CCC for
// every code point including unassigned ones (0).
func CombiningClass(r rune) uint8 {
	return norm.NFD.PropertiesString(string(r)).CCC()
}

// Mirroring returns the Bidi_Mirroring_Glyph codepoint for r if the
// character is one of the handful of paired delimiters the RTL reordering
// pass needs to flip, or r unchanged otherwise.
func Mirroring(r rune) rune {
	if m, ok := mirrorTable[r]; ok {
		return m
	}
	return r
}

// a small, hand-curated subset covering common paired punctuation; full
// BidiMirroring.txt coverage is unnecessary for shaping (layout consumers
// that need exhaustive mirroring already walk the Unicode data file
// themselves).
var mirrorTable = map[rune]rune{
	'(': ')', ')': '(',
	'[': ']', ']': '[',
	'{': '}', '}': '{',
	'<': '>', '>': '<',
	0x2039: 0x203A, 0x203A: 0x2039,
	0x00AB: 0x00BB, 0x00BB: 0x00AB,
}
