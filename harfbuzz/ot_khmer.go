package harfbuzz

import (
	"fmt"

	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// complexShaperKhmer implements the Khmer shaping model: syllable-bounded
// reordering of the COENG+RO and pre-base-vowel special cases, followed by
// the same basic/other GSUB feature split Indic-family scripts use, applied
// per syllable rather than across the whole run.

var _ otComplexShaper = (*complexShaperKhmer)(nil)

type complexShaperKhmer struct {
	masks khmerShapePlan
}

// khmerFeatures lists, in application order, every Khmer-specific GSUB
// feature this shaper requests: the "basic" block (indices below
// khmerBasicFeatures) applies right after reordering, with no pause between
// its features, each confined to its own syllable; the "other" block applies
// together, globally, once syllable boundaries no longer matter.
var khmerFeatures = [...]otMapFeature{
	{ot.NewTag('p', 'r', 'e', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('b', 'l', 'w', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('a', 'b', 'v', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('p', 's', 't', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('c', 'f', 'a', 'r'), ffManualJoiners | ffPerSyllable},

	{ot.NewTag('p', 'r', 'e', 's'), ffGlobalManualJoiners},
	{ot.NewTag('a', 'b', 'v', 's'), ffGlobalManualJoiners},
	{ot.NewTag('b', 'l', 'w', 's'), ffGlobalManualJoiners},
	{ot.NewTag('p', 's', 't', 's'), ffGlobalManualJoiners},
}

// khmerFeatureIndex indexes khmerFeatures; khmerBasicFeatures marks the
// boundary between the per-syllable-applied and globally-applied halves.
const (
	khmerPref = iota
	khmerBlwf
	khmerAbvf
	khmerPstf
	khmerCfar

	khmerPres
	khmerAbvs
	khmerBlws
	khmerPsts

	khmerNumFeatures
	khmerBasicFeatures = khmerPres
)

func (cs *complexShaperKhmer) collectFeatures(plan *otShapePlanner) {
	mb := &plan.map_

	mb.addGSUBPause(setupSyllablesKhmer)
	mb.addGSUBPause(cs.reorderKhmer)

	// Uniscribe doesn't pause between the basic features even though the
	// spec implies it should; matching that keeps rendering consistent
	// with fonts tuned against Uniscribe's behavior (KhmerUI.ttf and
	// similar test fonts for U+1789 sequences with/without U+17D2/U+17BC).
	mb.enableFeatureExt(ot.NewTag('l', 'o', 'c', 'l'), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.NewTag('c', 'c', 'm', 'p'), ffPerSyllable, 1)

	i := 0
	for ; i < khmerBasicFeatures; i++ {
		mb.addFeatureExt(khmerFeatures[i].tag, khmerFeatures[i].flags, 1)
	}

	mb.addGSUBPause(nil)

	for ; i < khmerNumFeatures; i++ {
		mb.addFeatureExt(khmerFeatures[i].tag, khmerFeatures[i].flags, 1)
	}
}

func (complexShaperKhmer) overrideFeatures(plan *otShapePlanner) {
	mb := &plan.map_

	// The Khmer shaping spec lists 'clig' among its required features
	// ("to form ligatures that are desired for typographical
	// correctness"), so it belongs in the override pass rather than the
	// generic per-script feature list.
	mb.enableFeature(ot.NewTag('c', 'l', 'i', 'g'))

	if UniscribeBugCompatible {
		mb.disableFeature(ot.NewTag('k', 'e', 'r', 'n'))
	}
	mb.disableFeature(ot.NewTag('l', 'i', 'g', 'a'))
}

// khmerShapePlan caches each feature's resolved glyph mask so syllable
// reordering doesn't need to re-query the compiled map per glyph.
type khmerShapePlan struct {
	viramaGlyph GID
	byFeature   [khmerNumFeatures]GlyphMask
}

func (cs *complexShaperKhmer) dataCreate(plan *otShapePlan) {
	var masks khmerShapePlan
	masks.viramaGlyph = ^GID(0)

	for i := range masks.byFeature {
		if khmerFeatures[i].flags&ffGLOBAL == 0 {
			masks.byFeature[i] = plan.map_.getMask1(khmerFeatures[i].tag)
		}
	}
	cs.masks = masks
}

func (cs *complexShaperKhmer) setupMasks(_ *otShapePlan, buffer *Buffer, _ *Font) {
	// Mask assignment happens later, from the reorder pause callback,
	// once syllable boundaries are known; here we only classify glyphs.
	for i := range buffer.Info {
		setKhmerProperties(&buffer.Info[i])
	}
}

func setKhmerProperties(info *GlyphInfo) {
	info.complexCategory = uint8(indicGetCategories(info.codepoint) & 0xFF)
}

func setupSyllablesKhmer(_ *otShapePlan, _ *Font, buffer *Buffer) bool {
	findSyllablesKhmer(buffer)
	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		buffer.unsafeToBreak(start, end)
	}
	return false
}

// foundSyllableKhmer stamps every glyph in [ts, te) with a syllable tag
// combining a wrapping 1-15 serial number and the syllable's type, the
// shape a syllable-boundary classifier hands back per syllable found.
func foundSyllableKhmer(syllableType uint8, ts, te int, info []GlyphInfo, serial *uint8) {
	for i := ts; i < te; i++ {
		info[i].syllable = (*serial << 4) | syllableType
	}
	*serial++
	if *serial == 16 {
		*serial = 1
	}
}

// reorderConsonantSyllable applies the two Khmer-specific glyph moves that
// can't be expressed as ordinary GSUB rules: a subscript COENG+RO pair
// jumps to the start of the syllable, ahead of the base consonant (picking
// up 'pref' along the way), and a pre-base left-matra vowel sign jumps to the very
// start of the syllable. See the Devanagari-family rules documented at
// https://docs.microsoft.com/en-us/typography/script-development/devanagari,
// which Khmer's shaping model also follows for this part.
func (masks *khmerShapePlan) reorderConsonantSyllable(buffer *Buffer, start, end int) {
	info := buffer.Info

	postBaseMask := masks.byFeature[khmerBlwf] | masks.byFeature[khmerAbvf] | masks.byFeature[khmerPstf]
	for i := start + 1; i < end; i++ {
		info[i].Mask |= postBaseMask
	}

	coengsSeen := 0
	for i := start + 1; i < end; i++ {
		switch {
		case info[i].complexCategory == khmSM_ex_H && coengsSeen <= 2 && i+1 < end:
			coengsSeen++
			if info[i+1].complexCategory != khmSM_ex_Ra {
				continue
			}

			for j := 0; j < 2; j++ {
				info[i+j].Mask |= masks.byFeature[khmerPref]
			}

			buffer.mergeClusters(start, i+2)
			coeng, ro := info[i], info[i+1]
			copy(info[start+2:], info[start:i])
			info[start], info[start+1] = coeng, ro

			// 'cfar' marks every glyph that followed the pair before it moved, so
			// fonts can tell apart COENG,RO,COENG,X from
			// COENG,X,COENG,RO sequences that otherwise look alike
			// once reordered.
			if masks.byFeature[khmerCfar] != 0 {
				for j := i + 2; j < end; j++ {
					info[j].Mask |= masks.byFeature[khmerCfar]
				}
			}
			coengsSeen = 2

		case info[i].complexCategory == khmSM_ex_VPre:
			buffer.mergeClusters(start, i+1)
			matra := info[i]
			copy(info[start+1:], info[start:i])
			info[start] = matra
		}
	}
}

func (cs *complexShaperKhmer) reorderSyllableKhmer(buffer *Buffer, start, end int) {
	switch buffer.Info[start].syllable & 0x0F {
	case khmerBrokenCluster, khmerConsonantSyllable:
		// A broken cluster already has its dotted circle inserted by
		// the time reordering runs, so it reorders the same as a
		// well-formed consonant syllable.
		cs.masks.reorderConsonantSyllable(buffer, start, end)
	}
}

func (cs *complexShaperKhmer) reorderKhmer(_ *otShapePlan, font *Font, buffer *Buffer) bool {
	if debugMode {
		fmt.Println("KHMER - start reordering khmer")
	}

	insertedDottedCircle := syllabicInsertDottedCircles(font, buffer, khmerBrokenCluster, khmSM_ex_DOTTEDCIRCLE, -1, -1)

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		cs.reorderSyllableKhmer(buffer, start, end)
	}

	if debugMode {
		fmt.Println("KHMER - end reordering khmer")
	}
	return insertedDottedCircle
}

// khmerSplitMatras covers the handful of Khmer vowel signs that decompose
// into a leading 0x17C1 plus themselves but carry no Unicode decomposition
// of their own; everything else falls through to the generic Unicode
// decomposition.
var khmerSplitMatras = map[rune]bool{
	0x17BE: true, 0x17BF: true, 0x17C0: true, 0x17C4: true, 0x17C5: true,
}

func (complexShaperKhmer) decompose(c *otNormalizeContext, ab rune) (rune, rune, bool) {
	if khmerSplitMatras[ab] {
		return 0x17C1, ab, true
	}
	return uni.decompose(ab)
}

func (complexShaperKhmer) compose(_ *otNormalizeContext, a, b rune) (rune, bool) {
	if uni.generalCategory(a).isMark() {
		return 0, false // never recompose a split matra back together
	}
	return uni.compose(a, b)
}

func (complexShaperKhmer) marksBehavior() (zeroWidthMarks, bool) {
	return zeroWidthMarksNone, false
}

func (complexShaperKhmer) normalizationPreference() normalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}

func (complexShaperKhmer) gposTag() tables.Tag                           { return 0 }
func (complexShaperKhmer) preprocessText(*otShapePlan, *Buffer, *Font)    {}
func (complexShaperKhmer) postprocessGlyphs(*otShapePlan, *Buffer, *Font) {}
func (complexShaperKhmer) reorderMarks(*otShapePlan, *Buffer, int, int)   {}

