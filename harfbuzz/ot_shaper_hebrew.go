package harfbuzz

import (
	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// ported in spirit from harfbuzz/src/hb-ot-shaper-hebrew.cc: Hebrew needs no
// script-specific masks, only a GPOS tag restriction, a small mark-reorder
// fixup for vowel/meteg stacks, and (for fonts with no GPOS mark
// positioning) fallback composition onto Hebrew's precomposed presentation
// forms.

var _ otComplexShaper = complexShaperHebrew{}

type complexShaperHebrew struct {
	complexShaperNil
}

func (complexShaperHebrew) marksBehavior() (zeroWidthMarks, bool) {
	return zeroWidthMarksByGdefLate, true
}

func (complexShaperHebrew) normalizationPreference() normalizationMode {
	return nmComposedDiacritics
}

func (complexShaperHebrew) gposTag() tables.Tag {
	return ot.NewTag('h', 'e', 'b', 'r')
}

// Modified combining classes for the Hebrew points, assigned by Unicode's
// canonical_combining_class but not in visual stacking order among
// themselves; hb-unicode.hh reassigns them to these values so a generic
// combining-class sort places them correctly.
const (
	hebrewCCC10 = 22 // sheva
	hebrewCCC14 = 23 // hiriq
	hebrewCCC17 = 20 // patah
	hebrewCCC18 = 21 // qamats
	hebrewCCC22 = 25 // meteg
)

// reorderMarks looks for a (patah/qamats, sheva/hiriq, meteg/below) triple
// within a mark run and swaps the last two, the one Hebrew-specific
// reordering real harfbuzz applies on top of plain canonical-combining-class
// order: meteg must render closest to the base even though its assigned CCC
// sorts it after sheva/hiriq.
func (complexShaperHebrew) reorderMarks(_ *otShapePlan, buffer *Buffer, start, end int) {
	info := buffer.Info
	for i := start + 2; i < end; i++ {
		c0 := info[i-2].getModifiedCombiningClass()
		c1 := info[i-1].getModifiedCombiningClass()
		c2 := info[i].getModifiedCombiningClass()

		if (c0 == hebrewCCC17 || c0 == hebrewCCC18) &&
			(c1 == hebrewCCC10 || c1 == hebrewCCC14) &&
			(c2 == hebrewCCC22 || c2 == 220) {
			minCluster := info[i-1].Cluster
			if info[i].Cluster < minCluster {
				minCluster = info[i].Cluster
			}
			info[i-1].Cluster = minCluster
			info[i].Cluster = minCluster
			info[i-1], info[i] = info[i], info[i-1]
			break
		}
	}
}

// hebrewDageshForms maps a Hebrew base letter (U+05D0..U+05EA) to its
// precomposed dagesh presentation form; 0 marks letters with no such form.
var hebrewDageshForms = [27]rune{
	0xFB30, 0xFB31, 0xFB32, 0xFB33, 0xFB34, 0xFB35, 0xFB36, 0x0000, 0xFB38,
	0xFB39, 0xFB3A, 0xFB3B, 0xFB3C, 0x0000, 0xFB3E, 0x0000, 0xFB40, 0xFB41,
	0x0000, 0xFB43, 0xFB44, 0x0000, 0xFB46, 0xFB47, 0xFB48, 0xFB49, 0xFB4A,
}

// compose first tries plain Unicode composition, then, only for fonts
// lacking a GPOS mark-attachment lookup, falls back to composing a Hebrew
// base-plus-point pair into its precomposed presentation form, mirroring
// the handful of special cases real harfbuzz's compose_hebrew hardcodes.
func (complexShaperHebrew) compose(c *otNormalizeContext, a, b rune) (rune, bool) {
	if ab, ok := complexShaperNil{}.compose(c, a, b); ok {
		return ab, true
	}

	if c.plan != nil && c.plan.hasGposMark {
		return 0, false
	}

	switch b {
	case 0x05B4: // HIRIQ
		if a == 0x05D9 {
			return 0xFB1D, true
		}
	case 0x05B7: // PATAH
		switch a {
		case 0x05F2:
			return 0xFB1F, true
		case 0x05D0:
			return 0xFB2E, true
		}
	case 0x05B8: // QAMATS
		if a == 0x05D0 {
			return 0xFB2F, true
		}
	case 0x05B9: // HOLAM
		if a == 0x05D5 {
			return 0xFB4B, true
		}
	case 0x05BC: // DAGESH
		switch {
		case a >= 0x05D0 && a <= 0x05EA:
			if form := hebrewDageshForms[a-0x05D0]; form != 0 {
				return form, true
			}
		case a == 0xFB2A:
			return 0xFB2C, true
		case a == 0xFB2B:
			return 0xFB2D, true
		}
	case 0x05BF: // RAFE
		switch a {
		case 0x05D1:
			return 0xFB4C, true
		case 0x05DB:
			return 0xFB4D, true
		case 0x05E4:
			return 0xFB4E, true
		}
	case 0x05C1: // SHIN DOT
		switch a {
		case 0x05E9:
			return 0xFB2A, true
		case 0xFB49:
			return 0xFB2C, true
		}
	case 0x05C2: // SIN DOT
		switch a {
		case 0x05E9:
			return 0xFB2B, true
		case 0xFB49:
			return 0xFB2D, true
		}
	}

	return 0, false
}
