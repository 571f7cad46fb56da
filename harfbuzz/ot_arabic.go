package harfbuzz

import (
	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
	"github.com/textshape/complexshape/language"
	"github.com/textshape/complexshape/unicodedata"
)

// ported in spirit from harfbuzz/src/hb-ot-shaper-arabic.cc: joining-type
// driven mask assignment for the Arabic-family (Arabic, Syriac, N'Ko)
// cursive scripts.

// arabicJoiningForm is the contextual form a joining letter presents,
// matching the isol/init/medi/fina OpenType feature tags.
type arabicJoiningForm uint8

const (
	arabicFormIsol arabicJoiningForm = iota
	arabicFormInit
	arabicFormMedi
	arabicFormFina
)

// arabicFeatureTags lists the per-form GSUB features in the order a run's
// masks are built, and doubles as the fallback feature list the test
// bounds against arabicFallbackMaxLookups.
var arabicFeatureTags = [...]tables.Tag{
	ot.NewTag('i', 's', 'o', 'l'),
	ot.NewTag('i', 'n', 'i', 't'),
	ot.NewTag('m', 'e', 'd', 'i'),
	ot.NewTag('f', 'i', 'n', 'a'),
}

// arabicFallbackFeatures is the subset of arabicFeatureTags fallbackShapeArabic
// can synthesize from Arabic Presentation Forms-B when the font carries no
// joining GSUB lookups of its own.
var arabicFallbackFeatures = arabicFeatureTags[:]

// arabicFallbackMaxLookups is the upper bound TestNumArabicLookup checks
// arabicFallbackFeatures against. fallbackShapeArabic builds no lookups: it
// maps each joining form straight to a Presentation Forms-B glyph.
const arabicFallbackMaxLookups = 5

// hasArabicJoining reports whether script uses Unicode cursive-joining
// rules and therefore needs arabicShapePlan's per-glyph form masks.
func hasArabicJoining(script language.Script) bool {
	switch script {
	case language.Arabic, language.Syriac, language.Nko:
		return true
	default:
		return false
	}
}

func arabicJoinsForward(t unicodedata.JoiningType) bool {
	return t == unicodedata.JoiningTypeD || t == unicodedata.JoiningTypeL || t == unicodedata.JoiningTypeC
}

func arabicJoinsBackward(t unicodedata.JoiningType) bool {
	return t == unicodedata.JoiningTypeD || t == unicodedata.JoiningTypeR || t == unicodedata.JoiningTypeC
}

// computeArabicForms walks the buffer once, classifying every non-
// transparent codepoint's joining form from its neighbors' Joining_Type.
// Combining marks (Transparent) are skipped without breaking the chain: the
// glyph before and after a run of marks still join through it.
func computeArabicForms(buffer *Buffer) []arabicJoiningForm {
	info := buffer.Info
	forms := make([]arabicJoiningForm, len(info))
	prev := -1
	for i := range info {
		t := unicodedata.JoiningTypeOf(info[i].codepoint)
		if t == unicodedata.JoiningTypeT {
			continue
		}

		joinsBack := prev >= 0 &&
			arabicJoinsForward(unicodedata.JoiningTypeOf(info[prev].codepoint)) &&
			arabicJoinsBackward(t)

		if joinsBack {
			switch forms[prev] {
			case arabicFormIsol:
				forms[prev] = arabicFormInit
			case arabicFormFina:
				forms[prev] = arabicFormMedi
			}
			forms[i] = arabicFormFina
		} else {
			forms[i] = arabicFormIsol
		}
		prev = i
	}
	return forms
}

// arabicShapePlan holds the per-form feature masks the map builder assigned,
// built once per shape plan and reused by every run that shares it.
// complexShaperArabic builds it for Arabic, Syriac and N'Ko; the USE shaper
// also builds one when hasArabicJoining accepts the plan's script.
type arabicShapePlan struct {
	mask    [4]GlyphMask
	hasStch bool
}

func newArabicPlan(plan *otShapePlan) arabicShapePlan {
	var p arabicShapePlan
	p.mask[arabicFormIsol] = plan.map_.getMask1(arabicFeatureTags[arabicFormIsol])
	p.mask[arabicFormInit] = plan.map_.getMask1(arabicFeatureTags[arabicFormInit])
	p.mask[arabicFormMedi] = plan.map_.getMask1(arabicFeatureTags[arabicFormMedi])
	p.mask[arabicFormFina] = plan.map_.getMask1(arabicFeatureTags[arabicFormFina])
	p.hasStch = plan.map_.getMask1(ot.NewTag('s', 't', 'c', 'h')) != 0
	return p
}

// setupMasks assigns each glyph the feature mask for its joining form,
// letting the font's isol/init/medi/fina GSUB lookups (gated on those
// masks through the lookup's feature association) pick the right shape.
func (p *arabicShapePlan) setupMasks(buffer *Buffer, _ language.Script) {
	forms := computeArabicForms(buffer)
	for i := range buffer.Info {
		buffer.Info[i].Mask |= p.mask[forms[i]]
	}
}

// complexShaperArabic is the full shaping strategy for Arabic, Syriac, and
// N'Ko: arabicShapePlan supplies the per-glyph joining masks, and
// fallbackShapeArabic covers fonts with no native joining GSUB lookups.
type complexShaperArabic struct {
	complexShaperNil
	plan arabicShapePlan
}

func newArabicShaper(*otShapePlanner) otComplexShaper {
	return &complexShaperArabic{}
}

func (complexShaperArabic) collectFeatures(plan *otShapePlanner) {
	map_ := &plan.map_
	for _, tag := range arabicFeatureTags {
		map_.addFeatureExt(tag, ffManualZWJ, 1)
	}
	map_.addFeature(ot.NewTag('r', 'l', 'i', 'g'))
	map_.addFeature(ot.NewTag('c', 'a', 'l', 't'))
	map_.addFeature(ot.NewTag('c', 'c', 'm', 'p'))
	map_.addFeature(ot.NewTag('s', 't', 'c', 'h'))
}

func (cs *complexShaperArabic) dataCreate(plan *otShapePlan) {
	cs.plan = newArabicPlan(plan)
}

func (cs *complexShaperArabic) setupMasks(plan *otShapePlan, buffer *Buffer, _ *Font) {
	cs.plan.setupMasks(buffer, plan.props.Script)
}

func (cs *complexShaperArabic) postprocessGlyphs(_ *otShapePlan, buffer *Buffer, font *Font) {
	for _, m := range cs.plan.mask {
		if m != 0 {
			return
		}
	}
	fallbackShapeArabic(buffer, font)
}

func (complexShaperArabic) marksBehavior() (zeroWidthMarks, bool) {
	return zeroWidthMarksByGdefLate, false
}

func (complexShaperArabic) normalizationPreference() normalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}

// arabicPresentationFormsB maps (base letter, joining form) onto the legacy
// Arabic Presentation Forms-B codepoints, used only as a last resort by
// fallbackShapeArabic when the font has no isol/init/medi/fina lookups of
// its own to pick a joined glyph.
var arabicPresentationFormsB = map[rune][4]rune{
	0x0628: {0xFE8F, 0xFE91, 0xFE92, 0xFE90}, // BEH
	0x062A: {0xFE95, 0xFE97, 0xFE98, 0xFE96}, // TEH
	0x062B: {0xFE99, 0xFE9B, 0xFE9C, 0xFE9A}, // THEH
	0x062C: {0xFE9D, 0xFE9F, 0xFEA0, 0xFE9E}, // JEEM
	0x062D: {0xFEA1, 0xFEA3, 0xFEA4, 0xFEA2}, // HAH
	0x062E: {0xFEA5, 0xFEA7, 0xFEA8, 0xFEA6}, // KHAH
	0x062F: {0xFEA9, 0xFEA9, 0xFEA9, 0xFEAA}, // DAL (R: no init/medi)
	0x0630: {0xFEAB, 0xFEAB, 0xFEAB, 0xFEAC}, // THAL
	0x0631: {0xFEAD, 0xFEAD, 0xFEAD, 0xFEAE}, // REH
	0x0632: {0xFEAF, 0xFEAF, 0xFEAF, 0xFEB0}, // ZAIN
	0x0633: {0xFEB1, 0xFEB3, 0xFEB4, 0xFEB2}, // SEEN
	0x0634: {0xFEB5, 0xFEB7, 0xFEB8, 0xFEB6}, // SHEEN
	0x0635: {0xFEB9, 0xFEBB, 0xFEBC, 0xFEBA}, // SAD
	0x0636: {0xFEBD, 0xFEBF, 0xFEC0, 0xFEBE}, // DAD
	0x0637: {0xFEC1, 0xFEC3, 0xFEC4, 0xFEC2}, // TAH
	0x0638: {0xFEC5, 0xFEC7, 0xFEC8, 0xFEC6}, // ZAH
	0x0639: {0xFEC9, 0xFECB, 0xFECC, 0xFECA}, // AIN
	0x063A: {0xFECD, 0xFECF, 0xFED0, 0xFECE}, // GHAIN
	0x0641: {0xFED1, 0xFED3, 0xFED4, 0xFED2}, // FEH
	0x0642: {0xFED5, 0xFED7, 0xFED8, 0xFED6}, // QAF
	0x0643: {0xFED9, 0xFEDB, 0xFEDC, 0xFEDA}, // KAF
	0x0644: {0xFEDD, 0xFEDF, 0xFEE0, 0xFEDE}, // LAM
	0x0645: {0xFEE1, 0xFEE3, 0xFEE4, 0xFEE2}, // MEEM
	0x0646: {0xFEE5, 0xFEE7, 0xFEE8, 0xFEE6}, // NOON
	0x0647: {0xFEE9, 0xFEEB, 0xFEEC, 0xFEEA}, // HEH
	0x0648: {0xFEED, 0xFEED, 0xFEED, 0xFEEE}, // WAW
	0x064A: {0xFEF1, 0xFEF3, 0xFEF4, 0xFEF2}, // YEH
}

// fallbackShapeArabic substitutes a legacy presentation-form glyph for
// letters whose font has no joining GSUB lookups at all, so isolated runs
// of Arabic text still render with plausible initial/medial/final shapes
// instead of the base (isolated) form for every letter.
func fallbackShapeArabic(buffer *Buffer, font *Font) {
	if font.face.Font == nil || font.face.Face == nil {
		return
	}
	forms := computeArabicForms(buffer)
	info := buffer.Info
	for i := range info {
		if info[i].substituted() {
			// A real GSUB lookup already picked a joined glyph; leave it.
			continue
		}
		variants, ok := arabicPresentationFormsB[info[i].codepoint]
		if !ok {
			continue
		}
		if g, ok := font.face.NominalGlyph(variants[forms[i]]); ok {
			info[i].Glyph = g
		}
	}
}
