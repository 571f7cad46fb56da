package harfbuzz

import (
	"github.com/textshape/complexshape/font/opentype/tables"
	"github.com/textshape/complexshape/language"
)

// ported in spirit from harfbuzz/src/hb-ot-shaper.hh and hb-ot-shaper-list.hh:
// the per-script shaping strategy a shape plan delegates every phase to.

// otComplexShaper is the strategy a script-specific (or the catch-all
// default) shaper plugs into otShapePlan: every phase of shape() calls
// through to one of these instead of special-casing scripts inline.
type otComplexShaper interface {
	// collectFeatures registers the GSUB/GPOS features this script always
	// wants enabled, in the order their masks should be assigned.
	collectFeatures(plan *otShapePlanner)
	// overrideFeatures runs after collectFeatures and the generic common/
	// horizontal feature set, letting the shaper force features on or off.
	overrideFeatures(plan *otShapePlanner)
	// dataCreate builds any script-specific plan data once the feature map
	// has been compiled (mask values are only known at this point).
	dataCreate(plan *otShapePlan)
	// setupMasks assigns the per-glyph feature mask bits the shaper's
	// GSUB features key off of (e.g. Indic's position-dependent masks).
	setupMasks(plan *otShapePlan, buffer *Buffer, font *Font)
	// reorderMarks moves combining marks within [start, end) into the
	// logical order the shaper's GPOS mark-attachment lookups expect.
	reorderMarks(plan *otShapePlan, buffer *Buffer, start, end int)
	// decompose overrides Unicode canonical decomposition for a single
	// codepoint, letting a shaper veto a decomposition or supply one
	// Unicode doesn't define (split matras and the like).
	decompose(c *otNormalizeContext, ab rune) (a, b rune, ok bool)
	// compose overrides Unicode canonical composition for a mark pair.
	compose(c *otNormalizeContext, a, b rune) (ab rune, ok bool)
	// preprocessText runs before any normalization or substitution, while
	// the buffer still holds input codepoints.
	preprocessText(plan *otShapePlan, buffer *Buffer, font *Font)
	// postprocessGlyphs runs after substitution, while glyphs are still in
	// the font's native (pre-reordering) logical order.
	postprocessGlyphs(plan *otShapePlan, buffer *Buffer, font *Font)
	// marksBehavior reports how unattached combining marks should be
	// zero-widthed, and whether the shaper wants fallback mark positioning
	// when GPOS mark attachment isn't available.
	marksBehavior() (zeroWidthMarks, bool)
	// normalizationPreference reports which normalization strategy best
	// serves this script's GSUB tables.
	normalizationPreference() normalizationMode
	// gposTag, when non-zero, is the GPOS script tag this shaper requires;
	// GPOS is disabled when the chosen script tag doesn't match it.
	gposTag() tables.Tag
}

// zeroWidthMarks selects how shape() zero-widths combining marks that never
// got attached by a GPOS mark-attachment lookup.
type zeroWidthMarks uint8

const (
	zeroWidthMarksNone zeroWidthMarks = iota
	// zeroWidthMarksByGdefEarly zero-widths marks (by GDEF glyph class)
	// before GPOS runs, so fallback mark positioning sees zero advances.
	zeroWidthMarksByGdefEarly
	// zeroWidthMarksByGdefLate zero-widths marks after GPOS runs, for
	// shapers whose GSUB may still depend on the marks' original widths.
	zeroWidthMarksByGdefLate
)

// normalizationMode selects the Unicode normalization strategy otShapeNormalize
// runs before substitution.
type normalizationMode uint8

const (
	// nmNone skips normalization entirely.
	nmNone normalizationMode = iota
	// nmDecomposed fully decomposes, never recomposes.
	nmDecomposed
	// nmComposedDiacritics decomposes then recomposes, short-circuiting
	// decomposition for characters already renderable as a single glyph.
	nmComposedDiacritics
	// nmComposedDiacriticsNoShortCircuit is like nmComposedDiacritics but
	// always decomposes first, even glyphs the font can render directly;
	// scripts with GSUB rules that expect decomposed input need this.
	nmComposedDiacriticsNoShortCircuit
	// nmAuto picks composed-diacritics for simple scripts; it is the
	// default preference.
	nmAuto

	nmDefault = nmAuto
)

// complexShaperNil implements every otComplexShaper method as a no-op (or,
// for decompose/compose, a pass-through to plain Unicode normalization), so
// a concrete shaper can embed it and only override the phases it actually
// customizes. marksBehavior and normalizationPreference are deliberately
// absent: every concrete shaper in this package defines its own, so the
// only type that needs them is complexShaperDefault.
type complexShaperNil struct{}

func (complexShaperNil) collectFeatures(*otShapePlanner)  {}
func (complexShaperNil) overrideFeatures(*otShapePlanner) {}
func (complexShaperNil) dataCreate(*otShapePlan)          {}
func (complexShaperNil) setupMasks(*otShapePlan, *Buffer, *Font) {}
func (complexShaperNil) reorderMarks(*otShapePlan, *Buffer, int, int) {}

func (complexShaperNil) decompose(_ *otNormalizeContext, ab rune) (rune, rune, bool) {
	return uni.decompose(ab)
}

func (complexShaperNil) compose(_ *otNormalizeContext, a, b rune) (rune, bool) {
	return uni.compose(a, b)
}

func (complexShaperNil) preprocessText(*otShapePlan, *Buffer, *Font)    {}
func (complexShaperNil) postprocessGlyphs(*otShapePlan, *Buffer, *Font) {}
func (complexShaperNil) gposTag() tables.Tag                           { return 0 }

// complexShaperDefault is the catch-all shaper for scripts with no special
// reordering or mask logic (Latin, Greek, Cyrillic, CJK, and any script
// this package has no dedicated plan for). dumb disables even the generic
// mark-zeroing/fallback-positioning behavior, used when morx is driving
// substitution instead of GSUB (see newOtShapePlanner).
type complexShaperDefault struct {
	complexShaperNil
	dumb bool
}

func (cs complexShaperDefault) marksBehavior() (zeroWidthMarks, bool) {
	if cs.dumb {
		return zeroWidthMarksNone, false
	}
	return zeroWidthMarksByGdefLate, true
}

func (complexShaperDefault) normalizationPreference() normalizationMode {
	return nmDefault
}

// clearSubstitutionFlags resets the "substituted this stage" GDEF-class bit
// on every glyph between GSUB reordering stages, so the next stage's
// lookups see a clean substituted/not-substituted signal instead of one
// left over from the previous stage.
func clearSubstitutionFlags(_ *otShapePlan, _ *Font, buffer *Buffer) bool {
	info := buffer.Info
	for i := range info {
		info[i].glyphProps &^= substituted
	}
	return false
}

// categorizeComplex picks the complex shaper implementation for the
// planner's script, mirroring hb-ot-shaper-list.hh's script-to-shaper table.
func (planner *otShapePlanner) categorizeComplex() otComplexShaper {
	switch planner.props.Script {
	case language.Arabic, language.Syriac, language.Nko:
		return newArabicShaper(planner)

	case language.Devanagari, language.Bengali, language.Gurmukhi, language.Gujarati,
		language.Oriya, language.Tamil, language.Telugu, language.Kannada, language.Malayalam:
		return &complexShaperIndic{}

	case language.Khmer:
		return &complexShaperKhmer{}

	case language.Myanmar, language.Sinhala:
		return &complexShaperUSE{}

	case language.Hangul:
		return complexShaperHangul{}

	case language.Thai, language.Lao:
		return complexShaperThai{}

	case language.Hebrew:
		return complexShaperHebrew{}

	default:
		return complexShaperDefault{}
	}
}
