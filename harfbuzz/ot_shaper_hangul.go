package harfbuzz

import (
	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// ported in spirit from harfbuzz/src/hb-ot-shaper-hangul.cc: almost every
// Hangul font today carries precomposed syllables and needs nothing beyond
// default shaping, so the only work this shaper does is the algorithmic
// syllable decomposition/composition Unicode defines for Hangul instead of
// listing it in the canonical decomposition tables, plus the three jamo
// features a handful of old Johab-style fonts still expect.

const (
	hangulSBase = 0xAC00
	hangulLBase = 0x1100
	hangulVBase = 0x1161
	hangulTBase = 0x11A7
	hangulLCount = 19
	hangulVCount = 21
	hangulTCount = 28
	hangulNCount = hangulVCount * hangulTCount
	hangulSCount = hangulLCount * hangulNCount
)

var _ otComplexShaper = complexShaperHangul{}

type complexShaperHangul struct {
	complexShaperNil
}

func (complexShaperHangul) collectFeatures(plan *otShapePlanner) {
	map_ := &plan.map_
	map_.addFeatureExt(ot.NewTag('l', 'j', 'm', 'o'), ffManualZWJ, 1)
	map_.addFeatureExt(ot.NewTag('v', 'j', 'm', 'o'), ffManualZWJ, 1)
	map_.addFeatureExt(ot.NewTag('t', 'j', 'm', 'o'), ffManualZWJ, 1)
}

func (complexShaperHangul) marksBehavior() (zeroWidthMarks, bool) {
	return zeroWidthMarksByGdefLate, false
}

func (complexShaperHangul) normalizationPreference() normalizationMode {
	return nmComposedDiacritics
}

func (complexShaperHangul) gposTag() tables.Tag {
	return ot.NewTag('h', 'a', 'n', 'g')
}

// decompose splits a precomposed Hangul syllable into (LV, T) if it carries
// a trailing consonant, or (L, V) otherwise, recursing base-first the same
// way the generic Unicode decomposer does; any other codepoint falls
// through to complexShaperNil's plain Unicode decomposition.
func (complexShaperHangul) decompose(c *otNormalizeContext, ab rune) (rune, rune, bool) {
	if ab < hangulSBase || ab >= hangulSBase+hangulSCount {
		return complexShaperNil{}.decompose(c, ab)
	}
	sIndex := ab - hangulSBase
	if t := sIndex % hangulTCount; t != 0 {
		return ab - t, hangulTBase + t, true
	}
	lIndex := sIndex / hangulNCount
	vIndex := (sIndex % hangulNCount) / hangulTCount
	return hangulLBase + lIndex, hangulVBase + vIndex, true
}

// compose recomposes an (L, V) pair into an LV syllable, or an (LV, T) pair
// into an LVT syllable, mirroring the Unicode Hangul Syllable algorithm;
// anything else falls through to plain Unicode composition.
func (complexShaperHangul) compose(c *otNormalizeContext, a, b rune) (rune, bool) {
	if a >= hangulLBase && a < hangulLBase+hangulLCount &&
		b >= hangulVBase && b < hangulVBase+hangulVCount {
		lIndex := a - hangulLBase
		vIndex := b - hangulVBase
		return hangulSBase + (lIndex*hangulVCount+vIndex)*hangulTCount, true
	}
	if a >= hangulSBase && a < hangulSBase+hangulSCount && (a-hangulSBase)%hangulTCount == 0 &&
		b > hangulTBase && b < hangulTBase+hangulTCount {
		return a + (b - hangulTBase), true
	}
	return complexShaperNil{}.compose(c, a, b)
}

// setupMasks gives each conjoining jamo left after normalization its
// ljmo/vjmo/tjmo mask, so the font's jamo lookups apply to it.
func (complexShaperHangul) setupMasks(plan *otShapePlan, buffer *Buffer, _ *Font) {
	ljmo := plan.map_.getMask1(ot.NewTag('l', 'j', 'm', 'o'))
	vjmo := plan.map_.getMask1(ot.NewTag('v', 'j', 'm', 'o'))
	tjmo := plan.map_.getMask1(ot.NewTag('t', 'j', 'm', 'o'))
	for i := range buffer.Info {
		switch u := buffer.Info[i].codepoint; {
		case u >= hangulLBase && u < hangulLBase+hangulLCount:
			buffer.Info[i].Mask |= ljmo
		case u >= hangulVBase && u < hangulVBase+hangulVCount:
			buffer.Info[i].Mask |= vjmo
		case u > hangulTBase && u < hangulTBase+hangulTCount:
			buffer.Info[i].Mask |= tjmo
		}
	}
}
