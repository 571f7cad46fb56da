package harfbuzz

import (
	"fmt"

	"github.com/textshape/complexshape/font"
	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// otShapePlanner and otShapePlan implement the two-phase compile/run split
// every shaper here uses: a planner walks the font once per (script,
// language, direction) combination to decide which features apply and how
// positioning should be backed, then bakes those decisions into a plan that
// is replayed, unchanged, across every buffer sharing that combination.

const (
	// NoScriptIndex marks a script absent from a font's Script table.
	NoScriptIndex = 0xFFFF
	// NoFeatureIndex marks a feature absent from a font's Feature list.
	NoFeatureIndex = 0xFFFF
	// DefaultLanguageIndex selects a Script's default LangSys entry.
	DefaultLanguageIndex = 0xFFFF
	noVariationsIndex    = -1
)

// otShapePlanner inspects a font's tables and a run's segment properties to
// decide what the eventual plan should do, before any glyph mask or lookup
// list has been compiled.
type otShapePlanner struct {
	shaper otComplexShaper
	props  SegmentProperties
	parsed *font.Font
	map_   otMapBuilder

	preferMorx          bool
	zeroesMarkWidths    bool
	fallsBackMarkAttach bool
}

func newOtShapePlanner(parsed *font.Font, props SegmentProperties) *otShapePlanner {
	p := &otShapePlanner{
		props:  props,
		parsed: parsed,
		map_:   newOtMapBuilder(parsed, props),
	}

	// A morx table only wins over GSUB for horizontal runs, or when the
	// font carries no GSUB lookups at all to compete with it.
	p.preferMorx = len(parsed.Morx) != 0 &&
		(props.Direction.isHorizontal() || len(parsed.GSUB.Lookups) == 0)

	p.shaper = p.categorizeComplex()

	markBehavior, fallback := p.shaper.marksBehavior()
	p.zeroesMarkWidths = markBehavior != zeroWidthMarksNone
	p.fallsBackMarkAttach = fallback

	// A morx-driven shaper can't run the generic complex shaper's own
	// substitution logic, so it's downgraded to the plain default shaper
	// unless it already is one.
	if _, isDefault := p.shaper.(complexShaperDefault); p.preferMorx && !isDefault {
		p.shaper = complexShaperDefault{dumb: true}
	}
	return p
}

var (
	baseShapingFeatures = [...]otMapFeature{
		{ot.NewTag('a', 'b', 'v', 'm'), ffGLOBAL},
		{ot.NewTag('b', 'l', 'w', 'm'), ffGLOBAL},
		{ot.NewTag('c', 'c', 'm', 'p'), ffGLOBAL},
		{ot.NewTag('l', 'o', 'c', 'l'), ffGLOBAL},
		{ot.NewTag('m', 'a', 'r', 'k'), ffGlobalManualJoiners},
		{ot.NewTag('m', 'k', 'm', 'k'), ffGlobalManualJoiners},
		{ot.NewTag('r', 'l', 'i', 'g'), ffGLOBAL},
	}

	horizontalOnlyFeatures = [...]otMapFeature{
		{ot.NewTag('c', 'a', 'l', 't'), ffGLOBAL},
		{ot.NewTag('c', 'l', 'i', 'g'), ffGLOBAL},
		{ot.NewTag('c', 'u', 'r', 's'), ffGLOBAL},
		{ot.NewTag('d', 'i', 's', 't'), ffGLOBAL},
		{ot.NewTag('k', 'e', 'r', 'n'), ffGlobalHasFallback},
		{ot.NewTag('l', 'i', 'g', 'a'), ffGLOBAL},
		{ot.NewTag('r', 'c', 'l', 't'), ffGLOBAL},
	}
)

// collectFeatures queues every feature this run could need onto the map
// builder, in priority order: direction-dependent defaults first, then
// whatever the chosen complex shaper wants, then the common GSUB/GPOS
// feature set every script shares, and then the caller's own explicit
// feature list; the shaper's overrideFeatures pass runs after this one and
// can still force features on or off.
func (planner *otShapePlanner) collectFeatures(userFeatures []Feature) {
	mb := &planner.map_

	mb.enableFeature(ot.NewTag('r', 'v', 'r', 'n'))
	mb.addGSUBPause(nil)

	switch planner.props.Direction {
	case LeftToRight:
		mb.enableFeature(ot.NewTag('l', 't', 'r', 'a'))
		mb.enableFeature(ot.NewTag('l', 't', 'r', 'm'))
	case RightToLeft:
		mb.enableFeature(ot.NewTag('r', 't', 'l', 'a'))
		mb.addFeature(ot.NewTag('r', 't', 'l', 'm'))
	}

	// Automatic fraction formation (numerator/slash/denominator).
	mb.addFeature(ot.NewTag('f', 'r', 'a', 'c'))
	mb.addFeature(ot.NewTag('n', 'u', 'm', 'r'))
	mb.addFeature(ot.NewTag('d', 'n', 'o', 'm'))

	mb.enableFeatureExt(ot.NewTag('r', 'a', 'n', 'd'), ffRandom, otMapMaxValue)

	// A dummy 'trak' request so callers can still disable AAT tracking
	// through the feature list even though trak isn't a real GSUB/GPOS tag.
	mb.enableFeatureExt(ot.NewTag('t', 'r', 'a', 'k'), ffHasFallback, 1)

	mb.enableFeature(ot.NewTag('H', 'a', 'r', 'f')) // required
	mb.enableFeature(ot.NewTag('H', 'A', 'R', 'F')) // discretionary

	planner.shaper.collectFeatures(planner)

	mb.enableFeature(ot.NewTag('B', 'u', 'z', 'z')) // required
	mb.enableFeature(ot.NewTag('B', 'U', 'Z', 'Z')) // discretionary

	for _, feat := range baseShapingFeatures {
		mb.addFeatureExt(feat.tag, feat.flags, 1)
	}

	if planner.props.Direction.isHorizontal() {
		for _, feat := range horizontalOnlyFeatures {
			mb.addFeatureExt(feat.tag, feat.flags, 1)
		}
	} else {
		// Vertical runs hunt for 'vert' wherever the font lists it,
		// regardless of which script/language claims it.
		mb.enableFeatureExt(ot.NewTag('v', 'e', 'r', 't'), ffGlobalSearch, 1)
	}

	for _, f := range userFeatures {
		flags := ffNone
		if f.Start == FeatureGlobalStart && f.End == FeatureGlobalEnd {
			flags = ffGLOBAL
		}
		mb.addFeatureExt(f.Tag, flags, f.Value)
	}

	planner.shaper.overrideFeatures(planner)
}

// compile resolves every decision the planner made into a concrete
// otShapePlan: the feature map/lookup lists (via the map builder) plus the
// glyph masks and substitution/positioning backend choices the rest of the
// shaping pipeline reads at run time.
func (planner *otShapePlanner) compile(plan *otShapePlan, key otShapePlanKey) {
	plan.props = planner.props
	plan.shaper = planner.shaper
	planner.map_.compile(&plan.map_, key)

	plan.resolveFractionMasks()
	plan.rtlmMask = plan.map_.getMask1(ot.NewTag('r', 't', 'l', 'm'))
	plan.hasVert = plan.map_.getMask1(ot.NewTag('v', 'e', 'r', 't')) != 0

	plan.resolveKerningMasks(planner.props.Direction)
	plan.fallbackGlyphClasses = planner.parsed.GDEF.GlyphClassDef == nil
	plan.applyMorx = planner.preferMorx

	plan.resolvePositioningBackend(planner.parsed)
	plan.resolveMarkPositioning(planner)

	plan.applyTrak = plan.requestedTracking && !planner.parsed.Trak.IsEmpty()
}

// otShapePlan is the compiled, reusable output of one otShapePlanner run:
// everything the substitute/position pipeline needs and nothing it has to
// recompute per buffer.
type otShapePlan struct {
	shaper otComplexShaper
	props  SegmentProperties

	map_ otMap

	fracMask GlyphMask
	numrMask GlyphMask
	dnomMask GlyphMask
	rtlmMask GlyphMask
	kernMask GlyphMask
	trakMask GlyphMask

	hasFrac                          bool
	requestedTracking                bool
	requestedKerning                 bool
	hasVert                          bool
	hasGposMark                      bool
	zeroMarks                        bool
	fallbackGlyphClasses             bool
	fallbackMarkPositioning          bool
	adjustMarkPositioningWhenZeroing bool

	applyGpos         bool
	applyFallbackKern bool
	applyKern         bool
	applyKerx         bool
	applyMorx         bool
	applyTrak         bool
}

// resolveFractionMasks looks up the fraction/numerator/denominator masks a
// font's own 'frac'/'numr'/'dnom' features claimed, if any.
func (plan *otShapePlan) resolveFractionMasks() {
	plan.fracMask = plan.map_.getMask1(ot.NewTag('f', 'r', 'a', 'c'))
	plan.numrMask = plan.map_.getMask1(ot.NewTag('n', 'u', 'm', 'r'))
	plan.dnomMask = plan.map_.getMask1(ot.NewTag('d', 'n', 'o', 'm'))
	plan.hasFrac = plan.fracMask != 0 || (plan.numrMask != 0 && plan.dnomMask != 0)
}

// resolveKerningMasks picks between 'kern' and 'vkrn' depending on run
// direction and records whether either was actually requested.
func (plan *otShapePlan) resolveKerningMasks(direction Direction) {
	kernTag := ot.NewTag('v', 'k', 'r', 'n')
	if direction.isHorizontal() {
		kernTag = ot.NewTag('k', 'e', 'r', 'n')
	}
	plan.kernMask, _ = plan.map_.getMask(kernTag)
	plan.requestedKerning = plan.kernMask != 0
	plan.trakMask, _ = plan.map_.getMask(ot.NewTag('t', 'r', 'a', 'k'))
	plan.requestedTracking = plan.trakMask != 0
}

// resolvePositioningBackend chooses which engine actually positions glyphs:
// GPOS, AAT kerx, legacy kern, or (last resort) the built-in fallback
// kerner, each only available when the font carries the matching table and
// nothing earlier in the preference order already claimed the job.
func (plan *otShapePlan) resolvePositioningBackend(parsed *font.Font) {
	kernTag := ot.NewTag('k', 'e', 'r', 'n')
	if !plan.props.Direction.isHorizontal() {
		kernTag = ot.NewTag('v', 'k', 'r', 'n')
	}
	hasGposKern := plan.map_.getFeatureIndex(1, kernTag) != NoFeatureIndex
	disableGpos := plan.shaper.gposTag() != 0 && plan.shaper.gposTag() != plan.map_.chosenScript[1]

	hasKerx := parsed.Kerx != nil
	hasGSUB := !plan.applyMorx && parsed.GSUB.Lookups != nil
	hasGPOS := !disableGpos && parsed.GPOS.Lookups != nil

	switch {
	case hasKerx && !(hasGSUB && hasGPOS):
		plan.applyKerx = true
	case hasGPOS:
		plan.applyGpos = true
	}

	if !plan.applyKerx && (!hasGposKern || !plan.applyGpos) {
		// Apple's stack falls back to kerx whenever GPOS kerning didn't
		// actually apply, even if GPOS itself ran for other features.
		switch {
		case hasKerx:
			plan.applyKerx = true
		case parsed.Kern != nil:
			plan.applyKern = true
		}
	}

	plan.applyFallbackKern = !(plan.applyGpos || plan.applyKerx || plan.applyKern)
}

// resolveMarkPositioning decides whether combining mark advances/offsets
// need to be zeroed after positioning (because nothing else will place them
// correctly) and whether the built-in heuristic fallback positioner should
// run at all.
func (plan *otShapePlan) resolveMarkPositioning(planner *otShapePlanner) {
	plan.zeroMarks = planner.zeroesMarkWidths && !plan.applyKerx &&
		(!plan.applyKern || !hasMachineKerning(planner.parsed.Kern))
	plan.hasGposMark = plan.map_.getMask1(ot.NewTag('m', 'a', 'r', 'k')) != 0

	plan.adjustMarkPositioningWhenZeroing = !plan.applyGpos && !plan.applyKerx &&
		(!plan.applyKern || !hasCrossKerning(planner.parsed.Kern))
	plan.fallbackMarkPositioning = plan.adjustMarkPositioningWhenZeroing && planner.fallsBackMarkAttach

	// Apple Color Emoji assumes mark adjustment never runs alongside morx
	// shaping when forming emoji sequences.
	if plan.applyMorx {
		plan.adjustMarkPositioningWhenZeroing = false
	}
}

func (plan *otShapePlan) build(parsed *font.Font, props SegmentProperties, userFeatures []Feature, key otShapePlanKey) {
	planner := newOtShapePlanner(parsed, props)
	planner.collectFeatures(userFeatures)
	planner.compile(plan, key)
	plan.shaper.dataCreate(plan)
}

func (plan *otShapePlan) runGSUB(fnt *Font, buffer *Buffer) {
	plan.map_.substitute(plan, fnt, buffer)
}

func (plan *otShapePlan) runGPOS(fnt *Font, buffer *Buffer) {
	if plan.applyGpos {
		plan.map_.position(plan, fnt, buffer)
	} else if plan.applyKerx {
		plan.aatLayoutPosition(fnt, buffer)
	}

	if plan.applyKern {
		plan.otLayoutKern(fnt, buffer)
	} else if plan.applyFallbackKern {
		plan.otApplyFallbackKern(fnt, buffer)
	}

	if plan.applyTrak {
		plan.aatLayoutTrack(fnt, buffer)
	}
}

// verticalPunctuationVariants maps a handful of horizontal punctuation and
// symbol codepoints to their rotated vertical-writing presentation forms;
// a run being typeset top-to-bottom substitutes through this table before
// any font-level lookup runs, same as real vertical text layout engines do
// for glyphs a font's own 'vert'/'vrt2' tables don't already cover.
var verticalPunctuationVariants = map[rune]rune{
	0x2013: 0xfe32, // EN DASH
	0x2014: 0xfe31, // EM DASH
	0x2025: 0xfe30, // TWO DOT LEADER
	0x2026: 0xfe19, // HORIZONTAL ELLIPSIS

	0x3001: 0xfe11, // IDEOGRAPHIC COMMA
	0x3002: 0xfe12, // IDEOGRAPHIC FULL STOP
	0x3008: 0xfe3f, // LEFT ANGLE BRACKET
	0x3009: 0xfe40, // RIGHT ANGLE BRACKET
	0x300a: 0xfe3d, // LEFT DOUBLE ANGLE BRACKET
	0x300b: 0xfe3e, // RIGHT DOUBLE ANGLE BRACKET
	0x300c: 0xfe41, // LEFT CORNER BRACKET
	0x300d: 0xfe42, // RIGHT CORNER BRACKET
	0x300e: 0xfe43, // LEFT WHITE CORNER BRACKET
	0x300f: 0xfe44, // RIGHT WHITE CORNER BRACKET
	0x3010: 0xfe3b, // LEFT BLACK LENTICULAR BRACKET
	0x3011: 0xfe3c, // RIGHT BLACK LENTICULAR BRACKET
	0x3014: 0xfe39, // LEFT TORTOISE SHELL BRACKET
	0x3015: 0xfe3a, // RIGHT TORTOISE SHELL BRACKET
	0x3016: 0xfe17, // LEFT WHITE LENTICULAR BRACKET
	0x3017: 0xfe18, // RIGHT WHITE LENTICULAR BRACKET

	0xfe4f: 0xfe34, // WAVY LOW LINE

	0xff01: 0xfe15, // FULLWIDTH EXCLAMATION MARK
	0xff08: 0xfe35, // FULLWIDTH LEFT PARENTHESIS
	0xff09: 0xfe36, // FULLWIDTH RIGHT PARENTHESIS
	0xff0c: 0xfe10, // FULLWIDTH COMMA
	0xff1a: 0xfe13, // FULLWIDTH COLON
	0xff1b: 0xfe14, // FULLWIDTH SEMICOLON
	0xff1f: 0xfe16, // FULLWIDTH QUESTION MARK
	0xff3b: 0xfe47, // FULLWIDTH LEFT SQUARE BRACKET
	0xff3d: 0xfe48, // FULLWIDTH RIGHT SQUARE BRACKET
	0xff3f: 0xfe33, // FULLWIDTH LOW LINE
	0xff5b: 0xfe37, // FULLWIDTH LEFT CURLY BRACKET
	0xff5d: 0xfe38, // FULLWIDTH RIGHT CURLY BRACKET
}

func verticalVariantFor(u rune) rune {
	if v, ok := verticalPunctuationVariants[u]; ok {
		return v
	}
	return u
}

// shapeRun threads one Shape() call's mutable state through the
// preprocess/substitute/position/postprocess pipeline; it's thrown away
// once shaping completes, unlike otShapePlan which is cached and reused.
type shapeRun struct {
	plan         *otShapePlan
	font         *Font
	buffer       *Buffer
	userFeatures []Feature

	origDirection Direction
}

// mirrorAndRotate substitutes bidi-mirrored codepoints for RTL runs and
// vertical punctuation variants for vertical ones, for any codepoint whose
// rotated/mirrored glyph actually exists in the font; when it doesn't, RTL
// glyphs are flagged for the rtlm fallback feature instead.
func (r *shapeRun) mirrorAndRotate() {
	info := r.buffer.Info

	if r.origDirection.isBackward() {
		rtlmMask := r.plan.rtlmMask
		for i := range info {
			mirrored := uni.mirroring(info[i].codepoint)
			if mirrored != info[i].codepoint && r.font.hasGlyph(mirrored) {
				info[i].codepoint = mirrored
			} else {
				info[i].Mask |= rtlmMask
			}
		}
	}

	if r.origDirection.isVertical() && !r.plan.hasVert {
		for i := range info {
			if v := verticalVariantFor(info[i].codepoint); v != info[i].codepoint && r.font.hasGlyph(v) {
				info[i].codepoint = v
			}
		}
	}
}

// applyFractionMasks tags the numerator/slash/denominator glyphs around
// every FRACTION SLASH in the buffer with the masks resolveFractionMasks
// found, so the font's own 'numr'/'frac'/'dnom' lookups (or their
// fallback) know which glyphs belong to which role.
func (r *shapeRun) applyFractionMasks() {
	if r.buffer.scratchFlags&bsfHasNonASCII == 0 || !r.plan.hasFrac {
		return
	}

	buffer := r.buffer
	var preMask, postMask GlyphMask
	if buffer.Props.Direction.isForward() {
		preMask = r.plan.numrMask | r.plan.fracMask
		postMask = r.plan.fracMask | r.plan.dnomMask
	} else {
		preMask = r.plan.fracMask | r.plan.dnomMask
		postMask = r.plan.numrMask | r.plan.fracMask
	}

	info := buffer.Info
	count := len(info)
	for i := 0; i < count; i++ {
		if info[i].codepoint != 0x2044 { // FRACTION SLASH
			continue
		}

		start, end := i, i+1
		for start != 0 && info[start-1].unicode.generalCategory() == decimalNumber {
			start--
		}
		for end < count && info[end].unicode.generalCategory() == decimalNumber {
			end++
		}

		buffer.unsafeToBreak(start, end)

		for j := start; j < i; j++ {
			info[j].Mask |= preMask
		}
		info[i].Mask |= r.plan.fracMask
		for j := i + 1; j < end; j++ {
			info[j].Mask |= postMask
		}

		i = end - 1
	}
}

func (r *shapeRun) setupMasks() {
	r.applyFractionMasks()
	r.plan.shaper.setupMasks(r.plan, r.buffer, r.font)

	for _, feature := range r.userFeatures {
		if feature.Start == FeatureGlobalStart && feature.End == FeatureGlobalEnd {
			continue // already folded into the global mask at compile time
		}
		mask, shift := r.plan.map_.getMask(feature.Tag)
		r.buffer.setMasks(feature.Value<<shift, mask, feature.Start, feature.End)
	}
}

// zeroAdvanceDefaultIgnorables collapses the advance/offset of every
// default-ignorable glyph to zero, so invisible control characters don't
// consume horizontal space even when hideDefaultIgnorables leaves their
// glyph in place.
func zeroAdvanceDefaultIgnorables(buffer *Buffer) {
	if buffer.scratchFlags&bsfHasDefaultIgnorables == 0 ||
		buffer.Flags&PreserveDefaultIgnorables != 0 ||
		buffer.Flags&RemoveDefaultIgnorables != 0 {
		return
	}
	for i, info := range buffer.Info {
		if info.isDefaultIgnorable() {
			pos := &buffer.Pos[i]
			pos.XAdvance, pos.YAdvance, pos.XOffset, pos.YOffset = 0, 0, 0, 0
		}
	}
}

// replaceOrDeleteDefaultIgnorables swaps default-ignorable glyphs for an
// invisible space glyph (so later code can still address their buffer
// slot), or drops them outright when the caller asked for removal or the
// font has no usable space glyph to substitute.
func replaceOrDeleteDefaultIgnorables(buffer *Buffer, fnt *Font) {
	if buffer.scratchFlags&bsfHasDefaultIgnorables == 0 ||
		buffer.Flags&PreserveDefaultIgnorables != 0 {
		return
	}

	invisible := buffer.Invisible
	ok := true
	if invisible == 0 {
		invisible, ok = fnt.face.NominalGlyph(' ')
	}

	if buffer.Flags&RemoveDefaultIgnorables == 0 && ok {
		for i, info := range buffer.Info {
			if info.isDefaultIgnorable() {
				buffer.Info[i].Glyph = invisible
			}
		}
		return
	}
	otLayoutDeleteGlyphsInplace(buffer, (*GlyphInfo).isDefaultIgnorable)
}

// assignFallbackGlyphClasses derives a GDEF-shaped base/mark classification
// straight from Unicode's general category, for fonts that ship no GDEF
// glyph class table of their own. Default-ignorables are never classed as
// marks: lookups that skip marks would otherwise also skip over them, which
// several real-world Mongolian fonts rely on NOT happening.
func assignFallbackGlyphClasses(buffer *Buffer) {
	for i := range buffer.Info {
		class := tables.GPBaseGlyph
		if buffer.Info[i].unicode.generalCategory() == nonSpacingMark && !buffer.Info[i].isDefaultIgnorable() {
			class = tables.GPMark
		}
		buffer.Info[i].glyphProps = class
	}
}

func (r *shapeRun) runGSUBStage() {
	r.mirrorAndRotate()
	otShapeNormalize(r.plan, r.buffer, r.font)
	r.setupMasks()

	if r.plan.fallbackMarkPositioning {
		fallbackMarkPositionRecategorizeMarks(r.buffer)
	}

	if debugMode {
		fmt.Println("BEFORE SUBSTITUTE:", r.buffer.Info)
	}

	layoutSubstituteStart(r.font, r.buffer)

	if r.plan.fallbackGlyphClasses {
		assignFallbackGlyphClasses(r.buffer)
	}

	if r.plan.applyMorx {
		r.plan.aatLayoutSubstitute(r.font, r.buffer, r.userFeatures)
	}

	r.plan.runGSUB(r.font, r.buffer)

	if r.plan.applyMorx && r.plan.applyGpos {
		aatLayoutRemoveDeletedGlyphs(r.buffer)
	}
}

func (r *shapeRun) finishGlyphs() {
	if r.plan.applyMorx && !r.plan.applyGpos {
		aatLayoutRemoveDeletedGlyphs(r.buffer)
	}

	replaceOrDeleteDefaultIgnorables(r.buffer, r.font)

	if debugMode {
		fmt.Println("POSTPROCESS glyphs start")
	}
	r.plan.shaper.postprocessGlyphs(r.plan, r.buffer, r.font)
	if debugMode {
		fmt.Println("POSTPROCESS glyphs end ")
	}
}

// clearMarkAdvances zeroes the advance of every mark glyph, optionally
// folding that advance back into the mark's offset first so it stays
// visually anchored where GPOS positioned it rather than snapping to the
// base glyph's origin.
func clearMarkAdvances(buffer *Buffer, keepOffset bool) {
	for i, inf := range buffer.Info {
		if !inf.isMark() {
			continue
		}
		pos := &buffer.Pos[i]
		if keepOffset {
			pos.XOffset -= pos.XAdvance
			pos.YOffset -= pos.YAdvance
		}
		pos.XAdvance = 0
		pos.YAdvance = 0
	}
}

func (r *shapeRun) positionDefault() {
	info := r.buffer.Info
	pos := r.buffer.Pos

	if r.buffer.Props.Direction.isHorizontal() {
		for i, inf := range info {
			pos[i].XAdvance, pos[i].YAdvance = r.font.GlyphHAdvance(inf.Glyph), 0
			pos[i].XOffset, pos[i].YOffset = r.font.subtractGlyphHOrigin(inf.Glyph, 0, 0)
		}
	} else {
		for i, inf := range info {
			pos[i].XAdvance, pos[i].YAdvance = 0, r.font.getGlyphVAdvance(inf.Glyph)
			pos[i].XOffset, pos[i].YOffset = r.font.subtractGlyphVOrigin(inf.Glyph, 0, 0)
		}
	}
	if r.buffer.scratchFlags&bsfHasSpaceFallback != 0 {
		fallbackSpaces(r.font, r.buffer)
	}
}

func (r *shapeRun) positionWithLayout() {
	info := r.buffer.Info
	pos := r.buffer.Pos

	// A font with no GPOS, shaping forward, shifts a zeroed mark's
	// position along with its advance so it hangs over the previous
	// glyph; going backward it's left alone until final reordering hangs
	// it over the next glyph instead. None of this matters once fallback
	// positioning overrides it below.
	keepMarkOffset := r.plan.adjustMarkPositioningWhenZeroing && r.buffer.Props.Direction.isForward()

	for i, inf := range info {
		pos[i].XOffset, pos[i].YOffset = r.font.addGlyphHOrigin(inf.Glyph, pos[i].XOffset, pos[i].YOffset)
	}

	otLayoutPositionStart(r.font, r.buffer)
	markBehavior, _ := r.plan.shaper.marksBehavior()

	if r.plan.zeroMarks && markBehavior == zeroWidthMarksByGdefEarly {
		clearMarkAdvances(r.buffer, keepMarkOffset)
	}

	r.plan.runGPOS(r.font, r.buffer)

	if r.plan.zeroMarks && markBehavior == zeroWidthMarksByGdefLate {
		clearMarkAdvances(r.buffer, keepMarkOffset)
	}

	zeroAdvanceDefaultIgnorables(r.buffer)
	if r.plan.applyMorx {
		aatLayoutZeroWidthDeletedGlyphs(r.buffer)
	}
	otLayoutPositionFinishOffsets(r.font, r.buffer)

	for i, inf := range info {
		pos[i].XOffset, pos[i].YOffset = r.font.subtractGlyphHOrigin(inf.Glyph, pos[i].XOffset, pos[i].YOffset)
	}

	if r.plan.fallbackMarkPositioning {
		fallbackMarkPosition(r.plan, r.font, r.buffer, keepMarkOffset)
	}
}

func (r *shapeRun) runPositionStage() {
	r.buffer.clearPositions()

	r.positionDefault()
	if debugMode {
		fmt.Println("AFTER DEFAULT POSITION", r.buffer.Pos)
	}

	r.positionWithLayout()

	if r.buffer.Props.Direction.isBackward() {
		r.buffer.Reverse()
	}
}

// unifyClusterFlags copies the union of every glyph-level flag within a
// cluster onto all of that cluster's glyphs, so later code can read any one
// glyph's flags and see the cluster's combined state. It also resolves a
// tension between two Arabic-specific flags that can't be reconciled
// earlier: a glyph safe to pad with a tatweel but unsafe to break at can't
// stay marked safe-to-insert, and once any glyph in a cluster is flagged
// safe-to-insert, the whole cluster becomes unsafe to break or concatenate.
func unifyClusterFlags(buffer *Buffer) {
	if buffer.scratchFlags&bsfHasGlyphFlags == 0 {
		return
	}

	resolveTatweel := buffer.Flags&ProduceSafeToInsertTatweel != 0
	keepConcatSafety := buffer.Flags&ProduceUnsafeToConcat == 0

	info := buffer.Info
	iter, count := buffer.clusterIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		var mask uint32
		for i := start; i < end; i++ {
			mask |= info[i].Mask & glyphFlagDefined
		}

		if resolveTatweel {
			if mask&GlyphUnsafeToBreak != 0 {
				mask &^= GlyphSafeToInsertTatweel
			}
			if mask&GlyphSafeToInsertTatweel != 0 {
				mask |= GlyphUnsafeToBreak | GlyphUnsafeToConcat
			}
		}
		if keepConcatSafety {
			mask &^= GlyphUnsafeToConcat
		}

		for i := start; i < end; i++ {
			info[i].Mask = mask
		}
	}
}

// shaperOpentype drives a plan through the full OpenType/AAT pipeline: text
// preprocessing, substitution, positioning, and the few fixups (cluster
// flag propagation, restoring the caller's original run direction) that
// have to happen exactly once per Shape call.
type shaperOpentype struct {
	tables *font.Font
	plan   otShapePlan
	key    otShapePlanKey
}

// otShapePlanKey is the per-table (GSUB, GPOS) variation index a plan was
// compiled for; -1 in a slot means that table carries no variations.
type otShapePlanKey = [2]int

func (sp *shaperOpentype) init(parsed *font.Font, coords []tables.Coord) {
	sp.plan = otShapePlan{}
	sp.key = otShapePlanKey{
		0: parsed.GSUB.FindVariationIndex(coords),
		1: parsed.GPOS.FindVariationIndex(coords),
	}
	sp.tables = parsed
}

func (sp *shaperOpentype) compile(props SegmentProperties, userFeatures []Feature) {
	sp.plan.build(sp.tables, props, userFeatures, sp.key)
}

func (sp *shaperOpentype) shape(fnt *Font, buffer *Buffer, features []Feature) {
	r := shapeRun{plan: &sp.plan, font: fnt, buffer: buffer, userFeatures: features}
	r.buffer.scratchFlags = bsfDefault

	const maxLenFactor = 64
	const maxLenMin = 16384
	const maxOpsFactor = 1024
	const maxOpsMin = 16384
	r.buffer.maxOps = max(len(r.buffer.Info)*maxOpsFactor, maxOpsMin)
	r.buffer.maxLen = max(len(r.buffer.Info)*maxLenFactor, maxLenMin)

	r.origDirection = r.buffer.Props.Direction

	r.buffer.resetMasks(r.plan.map_.globalMask)
	r.buffer.setUnicodeProps()
	r.buffer.insertDottedCircle(r.font)
	r.buffer.formClusters()

	if debugMode {
		fmt.Println("FORMING CLUSTER :", r.buffer.Info)
	}

	r.buffer.ensureNativeDirection()

	if debugMode {
		fmt.Printf("PREPROCESS text start\n")
	}
	r.plan.shaper.preprocessText(r.plan, r.buffer, r.font)
	if debugMode {
		fmt.Println("PREPROCESS text end:", r.buffer.Info)
	}

	r.runGSUBStage()
	if debugMode {
		fmt.Println("AFTER SUBSTITUTE", r.buffer.Info)
	}

	r.runPositionStage()
	if debugMode {
		fmt.Println("AFTER POSITION", r.buffer.Pos)
	}

	r.finishGlyphs()
	unifyClusterFlags(r.buffer)

	r.buffer.Props.Direction = r.origDirection
	r.buffer.maxOps = maxOpsDefault
}
