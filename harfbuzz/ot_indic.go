package harfbuzz

import (
	"fmt"
	"sort"

	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
	"github.com/textshape/complexshape/language"
)

// complexShaperIndic implements the shaping model shared by the Devanagari
// family of scripts: a syllable is split into pre-base/base/post-base
// zones around its base consonant, matras and Reph are moved into the
// zone the orthography expects, and a run of per-syllable GSUB features
// (half forms, below/post forms, etc.) is applied before a second,
// "final" reordering pass untangles whatever the substitutions produced.

// UniscribeBugCompatible selects, for Indic and Khmer scripts, whether
// shaping follows the documented behavior (false) or reproduces known
// Uniscribe quirks that some deployed fonts were tuned against (true).
var UniscribeBugCompatible = false

// Indic glyph-reordering positions, ordered the way a syllable's zones
// read left to right; comparisons against these elsewhere in this file
// (>=, <=, ranges) depend on that ordering, not just the names.
const (
	posStart = iota

	posRaToBecomeReph
	posPreM
	posPreC

	posBaseC
	posAfterMain

	posAboveC

	posBeforeSub
	posBelowC
	posAfterSub

	posBeforePost
	posPostC
	posAfterPost

	posSmvd

	posEnd
)

var _ otComplexShaper = (*complexShaperIndic)(nil)

type complexShaperIndic struct {
	complexShaperNil

	plan indicShapePlan
}

// consonantFlags and joinerFlags classify a glyph's complexCategory (as
// assigned by indicGetCategories) into the two groups this shaper cares
// about most. Vowels and placeholders are folded into "consonant" since
// a vowel never appears inside a consonant syllable, which lets syllable
// logic written for consonants handle vowel syllables unchanged.
const (
	consonantFlags = 1<<indSM_ex_C | 1<<indSM_ex_CS |
		1<<indSM_ex_Ra | 1<<indSM_ex_CM | 1<<indSM_ex_V |
		1<<indSM_ex_PLACEHOLDER | 1<<indSM_ex_DOTTEDCIRCLE
	joinerFlags = 1<<indSM_ex_ZWJ | 1<<indSM_ex_ZWNJ
)

func hasCategoryFlag(info *GlyphInfo, flags uint32) bool {
	if info.ligated() {
		return false // once ligated, its original category no longer applies
	}
	return 1<<info.complexCategory&flags != 0
}

func isJoinerGlyph(info *GlyphInfo) bool    { return hasCategoryFlag(info, joinerFlags) }
func isConsonantGlyph(info *GlyphInfo) bool { return hasCategoryFlag(info, consonantFlags) }
func isHalantGlyph(info *GlyphInfo) bool    { return hasCategoryFlag(info, 1<<indSM_ex_H) }

func (info *GlyphInfo) setIndicProperties() {
	category := indicGetCategories(info.codepoint)
	info.complexCategory, info.complexAux = uint8(category&0xFF), uint8(category>>8)
}

// indicWouldSubstituteFeature answers, for a small glyph sequence, whether
// a named GSUB feature's lookups would have matched it — used to probe a
// font's actual half/below/post-form lookups rather than guessing from
// Unicode alone (see indicScriptConfig.consonantPositionFromFace).
type indicWouldSubstituteFeature struct {
	lookups     []lookupMap
	zeroContext bool
}

func newIndicWouldSubstituteFeature(mb *otMap, featureTag tables.Tag, zeroContext bool) indicWouldSubstituteFeature {
	return indicWouldSubstituteFeature{
		zeroContext: zeroContext,
		lookups:     mb.getStageLookups(0 /*GSUB*/, mb.getFeatureStage(0 /*GSUB*/, featureTag)),
	}
}

func (ws indicWouldSubstituteFeature) wouldSubstitute(glyphs []GID, font *Font) bool {
	for _, lk := range ws.lookups {
		if otLayoutLookupWouldSubstitute(font, lk.index, glyphs, ws.zeroContext) {
			return true
		}
	}
	return false
}

// Reph placement classes: where a syllable-initial Reph ends up once the
// basic-forms features have run. Values alias the position enum above
// because reph targeting is ultimately a search for one of those zones.
const (
	rephPosAfterMain  = posAfterMain
	rephPosBeforeSub  = posBeforeSub
	rephPosAfterSub   = posAfterSub
	rephPosBeforePost = posBeforePost
	rephPosAfterPost  = posAfterPost
)

const (
	rephModeImplicit = iota // Reph is formed from an initial Ra,H sequence
	rephModeExplicit        // Reph is formed from an initial Ra,H,ZWJ sequence
	rephModeLogRepha        // Reph is its own encoded character, needs reordering
)

const (
	blwfModePreAndPost = iota // 'blwf' applies to both pre-base and post-base consonants
	blwfModePostOnly          // 'blwf' applies to post-base consonants only
)

// indicScriptConfig holds the handful of per-script constants that are
// cheaper to tabulate here than to branch on throughout the algorithm.
type indicScriptConfig struct {
	hasOldSpec bool
	virama     rune
	rephPos    uint8
	rephMode   uint8
	blwfMode   uint8
}

var defaultIndicScriptConfig = indicScriptConfig{
	rephPos: rephPosBeforePost, rephMode: rephModeImplicit, blwfMode: blwfModePreAndPost,
}

var indicScriptConfigs = map[language.Script]indicScriptConfig{
	language.Devanagari: {true, 0x094D, rephPosBeforePost, rephModeImplicit, blwfModePreAndPost},
	language.Bengali:    {true, 0x09CD, rephPosAfterSub, rephModeImplicit, blwfModePreAndPost},
	language.Gurmukhi:   {true, 0x0A4D, rephPosBeforeSub, rephModeImplicit, blwfModePreAndPost},
	language.Gujarati:   {true, 0x0ACD, rephPosBeforePost, rephModeImplicit, blwfModePreAndPost},
	language.Oriya:      {true, 0x0B4D, rephPosAfterMain, rephModeImplicit, blwfModePreAndPost},
	language.Tamil:      {true, 0x0BCD, rephPosAfterPost, rephModeImplicit, blwfModePreAndPost},
	language.Telugu:     {true, 0x0C4D, rephPosAfterPost, rephModeExplicit, blwfModePostOnly},
	language.Kannada:    {true, 0x0CCD, rephPosAfterPost, rephModeImplicit, blwfModePostOnly},
	language.Malayalam:  {true, 0x0D4D, rephPosAfterMain, rephModeLogRepha, blwfModePreAndPost},
}

func indicConfigFor(script language.Script) indicScriptConfig {
	if cfg, ok := indicScriptConfigs[script]; ok {
		return cfg
	}
	return defaultIndicScriptConfig
}

// indicFeatures lists, in application order, every GSUB feature this
// shaper drives. The basic block (up to indicBasicFeatures) is applied
// one feature at a time, paused between each, right after the initial
// reorder; the rest applies together after the final reorder.
var indicFeatures = [...]otMapFeature{
	{ot.NewTag('n', 'u', 'k', 't'), ffGlobalManualJoiners | ffPerSyllable},
	{ot.NewTag('a', 'k', 'h', 'n'), ffGlobalManualJoiners | ffPerSyllable},
	{ot.NewTag('r', 'p', 'h', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('r', 'k', 'r', 'f'), ffGlobalManualJoiners | ffPerSyllable},
	{ot.NewTag('p', 'r', 'e', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('b', 'l', 'w', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('a', 'b', 'v', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('h', 'a', 'l', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('p', 's', 't', 'f'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('v', 'a', 't', 'u'), ffGlobalManualJoiners | ffPerSyllable},
	{ot.NewTag('c', 'j', 'c', 't'), ffGlobalManualJoiners | ffPerSyllable},

	{ot.NewTag('i', 'n', 'i', 't'), ffManualJoiners | ffPerSyllable},
	{ot.NewTag('p', 'r', 'e', 's'), ffGlobalManualJoiners | ffPerSyllable},
	{ot.NewTag('a', 'b', 'v', 's'), ffGlobalManualJoiners | ffPerSyllable},
	{ot.NewTag('b', 'l', 'w', 's'), ffGlobalManualJoiners | ffPerSyllable},
	{ot.NewTag('p', 's', 't', 's'), ffGlobalManualJoiners | ffPerSyllable},
	{ot.NewTag('h', 'a', 'l', 'n'), ffGlobalManualJoiners | ffPerSyllable},
}

// indicFeatures indices, in the same order as the table above.
const (
	indicNukt = iota
	indicAkhn
	indicRphf
	indicRkrf
	indicPref
	indicBlwf
	indicAbvf
	indicHalf
	indicPstf
	indicVatu
	indicCjct

	indicInit
	indicPres
	indicAbvs
	indicBlws
	indicPsts
	indicHaln

	indicNumFeatures
	indicBasicFeatures = indicInit
)

func (cs *complexShaperIndic) collectFeatures(plan *otShapePlanner) {
	mb := &plan.map_

	mb.addGSUBPause(setupSyllablesIndic) // runs before any lookups apply

	mb.enableFeatureExt(ot.NewTag('l', 'o', 'c', 'l'), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.NewTag('c', 'c', 'm', 'p'), ffPerSyllable, 1)

	mb.addGSUBPause(cs.initialReorderingIndic)

	i := 0
	for ; i < indicBasicFeatures; i++ {
		mb.addFeatureExt(indicFeatures[i].tag, indicFeatures[i].flags, 1)
		mb.addGSUBPause(nil)
	}

	mb.addGSUBPause(cs.plan.finalReorderingIndic)

	for ; i < indicNumFeatures; i++ {
		mb.addFeatureExt(indicFeatures[i].tag, indicFeatures[i].flags, 1)
	}
}

func (complexShaperIndic) overrideFeatures(plan *otShapePlanner) {
	plan.map_.disableFeature(ot.NewTag('l', 'i', 'g', 'a'))
	plan.map_.addGSUBPause(nil)
}

// indicShapePlan caches everything dataCreate resolves once per compiled
// plan so the hot reordering path never has to re-query the feature map
// or probe the font per glyph.
type indicShapePlan struct {
	blwf indicWouldSubstituteFeature
	pstf indicWouldSubstituteFeature
	vatu indicWouldSubstituteFeature
	rphf indicWouldSubstituteFeature
	pref indicWouldSubstituteFeature

	featureMasks [indicNumFeatures]GlyphMask
	cfg          indicScriptConfig
	viramaGlyph  GID

	isOldSpec              bool
	uniscribeBugCompatible bool
}

func (indicPlan *indicShapePlan) loadViramaGlyph(font *Font) GID {
	if indicPlan.viramaGlyph == ^GID(0) {
		glyph, ok := font.face.NominalGlyph(indicPlan.cfg.virama)
		if indicPlan.cfg.virama == 0 || !ok {
			glyph = 0
		}
		indicPlan.viramaGlyph = glyph
	}
	return indicPlan.viramaGlyph
}

func (cs *complexShaperIndic) dataCreate(plan *otShapePlan) {
	var indicPlan indicShapePlan

	indicPlan.cfg = indicConfigFor(plan.props.Script)
	// A script tag ending in "2" (the "new spec" revision) never carries
	// the old-spec glyph ordering, regardless of what the script table says.
	indicPlan.isOldSpec = indicPlan.cfg.hasOldSpec && (plan.map_.chosenScript[0]&0x000000FF) != '2'
	indicPlan.uniscribeBugCompatible = UniscribeBugCompatible
	indicPlan.viramaGlyph = ^GID(0)

	// New-spec fonts for most dual-spec scripts expect zero-context
	// wouldSubstitute matching; Malayalam is the one script where testing
	// showed both specs tolerate context, so it's excluded here. Change
	// this heuristic only from observed Windows behavior, not theory.
	zeroContext := !indicPlan.isOldSpec && plan.props.Script != language.Malayalam
	indicPlan.rphf = newIndicWouldSubstituteFeature(&plan.map_, ot.NewTag('r', 'p', 'h', 'f'), zeroContext)
	indicPlan.pref = newIndicWouldSubstituteFeature(&plan.map_, ot.NewTag('p', 'r', 'e', 'f'), zeroContext)
	indicPlan.blwf = newIndicWouldSubstituteFeature(&plan.map_, ot.NewTag('b', 'l', 'w', 'f'), zeroContext)
	indicPlan.pstf = newIndicWouldSubstituteFeature(&plan.map_, ot.NewTag('p', 's', 't', 'f'), zeroContext)
	indicPlan.vatu = newIndicWouldSubstituteFeature(&plan.map_, ot.NewTag('v', 'a', 't', 'u'), zeroContext)

	for i := range indicPlan.featureMasks {
		if indicFeatures[i].flags&ffGLOBAL == 0 {
			indicPlan.featureMasks[i] = plan.map_.getMask1(indicFeatures[i].tag)
		}
	}

	cs.plan = indicPlan
}

// consonantPositionFromFace decides whether a base candidate's below/
// post-form should move it to posBelowC/posPostC by asking the font's
// actual lookups, since some fonts reuse old-spec lookups unmodified
// under new-spec script tags (Uniscribe humors them, so this does too).
func (indicPlan *indicShapePlan) consonantPositionFromFace(consonant, virama GID, font *Font) uint8 {
	glyphs := [3]GID{virama, consonant, virama}
	if indicPlan.blwf.wouldSubstitute(glyphs[0:2], font) ||
		indicPlan.blwf.wouldSubstitute(glyphs[1:3], font) ||
		indicPlan.vatu.wouldSubstitute(glyphs[0:2], font) ||
		indicPlan.vatu.wouldSubstitute(glyphs[1:3], font) {
		return posBelowC
	}
	if indicPlan.pstf.wouldSubstitute(glyphs[0:2], font) ||
		indicPlan.pstf.wouldSubstitute(glyphs[1:3], font) {
		return posPostC
	}
	if indicPlan.pref.wouldSubstitute(glyphs[0:2], font) ||
		indicPlan.pref.wouldSubstitute(glyphs[1:3], font) {
		return posPostC
	}
	return posBaseC
}

func (cs *complexShaperIndic) setupMasks(_ *otShapePlan, buffer *Buffer, _ *Font) {
	// Masks can't be assigned yet: syllable boundaries aren't known until
	// the GSUB-pause reorder callback runs. Classify glyphs now instead.
	for i := range buffer.Info {
		buffer.Info[i].setIndicProperties()
	}
}

func setupSyllablesIndic(_ *otShapePlan, _ *Font, buffer *Buffer) bool {
	findSyllablesIndic(buffer)
	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		buffer.unsafeToBreak(start, end)
	}
	return false
}

// foundSyllableIndic stamps [ts, te) with a syllable tag combining a
// wrapping 1-15 serial number and the syllable's classified type.
func foundSyllableIndic(syllableType uint8, ts, te int, info []GlyphInfo, serial *uint8) {
	for i := ts; i < te; i++ {
		info[i].syllable = (*serial << 4) | syllableType
	}
	*serial++
	if *serial == 16 {
		*serial = 1
	}
}

func (indicPlan *indicShapePlan) updateConsonantPositionsIndic(font *Font, buffer *Buffer) {
	virama := indicPlan.loadViramaGlyph(font)
	if virama == 0 {
		return
	}
	info := buffer.Info
	for i := range info {
		if info[i].complexAux == posBaseC {
			info[i].complexAux = indicPlan.consonantPositionFromFace(info[i].Glyph, virama, font)
		}
	}
}

// findBaseConsonant locates a syllable's base consonant: scanning
// backward from its end, the base is the first consonant found that
// carries neither a below-base nor a post-base form (post-base forms
// must follow a below-base one), stopping at the first consonant either
// way if nothing else qualifies. Returns the base index and whether a
// leading Ra+Halant was excluded from candidacy as a would-be Reph.
func (indicPlan *indicShapePlan) findBaseConsonant(font *Font, buffer *Buffer, start, end int) (base int, hasReph bool) {
	info := buffer.Info
	base = end
	limit := start
	cfg := indicPlan.cfg

	// A syllable-leading Ra+Halant is excluded from base candidacy when
	// the font's 'rphf' lookup is in play and there's more than one
	// consonant, since it's a Reph candidate instead.
	switch {
	case indicPlan.featureMasks[indicRphf] != 0 && start+3 <= end &&
		((cfg.rephMode == rephModeImplicit && !isJoinerGlyph(&info[start+2])) ||
			(cfg.rephMode == rephModeExplicit && info[start+2].complexCategory == indSM_ex_ZWJ)):
		glyphs := [3]GID{info[start].Glyph, info[start+1].Glyph, 0}
		if cfg.rephMode == rephModeExplicit {
			glyphs[2] = info[start+2].Glyph
		}
		if indicPlan.rphf.wouldSubstitute(glyphs[:2], font) ||
			(cfg.rephMode == rephModeExplicit && indicPlan.rphf.wouldSubstitute(glyphs[:3], font)) {
			limit += 2
			for limit < end && isJoinerGlyph(&info[limit]) {
				limit++
			}
			base, hasReph = start, true
		}

	case cfg.rephMode == rephModeLogRepha && info[start].complexCategory == indSM_ex_Repha:
		limit++
		for limit < end && isJoinerGlyph(&info[limit]) {
			limit++
		}
		base, hasReph = start, true
	}

	seenBelow := false
	for i := end; i > limit; {
		i--
		if !isConsonantGlyph(&info[i]) {
			// A ZWJ right after a Halant stops the search and forces an
			// explicit half form; a ZWJ before a Halant asks for a
			// subjoined form instead, so the search keeps going (needed
			// for the Bengali Ra,H,Ya -> Ya-Phalaa sequence).
			if start < i && info[i].complexCategory == indSM_ex_ZWJ && info[i-1].complexCategory == indSM_ex_H {
				break
			}
			continue
		}
		if info[i].complexAux != posBelowC && (info[i].complexAux != posPostC || seenBelow) {
			base = i
			break
		}
		if info[i].complexAux == posBelowC {
			seenBelow = true
		}
		base = i // no qualifying consonant yet; the first one found still wins by default
	}

	// An unforced Reph (not an explicit Ra,H,ZWJ) needs a second consonant
	// to attach to, or it doesn't form and Ra becomes the base itself.
	if hasReph && base == start && limit-base <= 2 {
		hasReph = false
	}
	return base, hasReph
}

// initialReorderingConsonantSyllable runs the pre-basic-features half of
// Indic glyph reordering: https://docs.microsoft.com/en-us/typography/script-development/devanagari
func (indicPlan *indicShapePlan) initialReorderingConsonantSyllable(font *Font, buffer *Buffer, start, end int) {
	info := buffer.Info

	// Kannada compatibility: legacy fonts expect Ra+H+ZWJ to behave like
	// Ra+ZWJ+H. https://github.com/harfbuzz/harfbuzz/issues/435#issuecomment-335560167
	if buffer.Props.Script == language.Kannada &&
		start+3 <= end &&
		hasCategoryFlag(&info[start], 1<<indSM_ex_Ra) &&
		hasCategoryFlag(&info[start+1], 1<<indSM_ex_H) &&
		hasCategoryFlag(&info[start+2], 1<<indSM_ex_ZWJ) {
		buffer.mergeClusters(start+1, start+3)
		info[start+1], info[start+2] = info[start+2], info[start+1]
	}

	base, hasReph := indicPlan.findBaseConsonant(font, buffer, start, end)

	// Matra decomposition and nukta/halant mark reordering are both
	// already handled by the normalize() pass that ran before this, so
	// only the consonant/matra repositioning below is left to do.

	for i := start; i < base; i++ {
		info[i].complexAux = min8(posPreC, info[i].complexAux)
	}
	if base < end {
		info[base].complexAux = posBaseC
	}
	if hasReph {
		info[start].complexAux = posRaToBecomeReph
	}

	indicPlan.moveOldSpecTrailingHalant(buffer, start, base, end)
	indicPlan.attachMarksToPreviousGlyph(buffer, start, end)
	attachPostBaseTrailers(info, base, end)
	indicPlan.sortAndMergeSyllable(buffer, start, base, end)
	indicPlan.setInitialReorderingMasks(info, start, base, end, font)
	indicPlan.fixOldSpecEyelashRa(buffer, start, base)
	indicPlan.markPrefCandidate(font, info, base, end)
	indicPlan.applyJoinerEffects(info, start, end)
}

// moveOldSpecTrailingHalant, for old-spec Devanagari/Bengali/Malayalam
// fonts, moves the first post-base Halant to just after the last
// consonant (Uniscribe does this unconditionally except in Kannada,
// where it only does it when no trailing Halant already exists there).
// https://bugs.freedesktop.org/show_bug.cgi?id=59118
// https://github.com/harfbuzz/harfbuzz/issues/1071
// https://github.com/harfbuzz/harfbuzz/issues/1073
func (indicPlan *indicShapePlan) moveOldSpecTrailingHalant(buffer *Buffer, start, base, end int) {
	if !indicPlan.isOldSpec {
		return
	}
	info := buffer.Info
	disallowDoubleHalants := buffer.Props.Script == language.Kannada
	for i := base + 1; i < end; i++ {
		if info[i].complexCategory != indSM_ex_H {
			continue
		}
		j := end - 1
		for ; j > i; j-- {
			if isConsonantGlyph(&info[j]) || (disallowDoubleHalants && info[j].complexCategory == indSM_ex_H) {
				break
			}
		}
		if info[j].complexCategory != indSM_ex_H && j > i {
			if debugMode {
				fmt.Printf("INDIC - halant: switching glyph %d to %d (and shifting between)", i, j)
			}
			t := info[i]
			copy(info[i:j], info[i+1:])
			info[j] = t
		}
		break
	}
}

// attachMarksToPreviousGlyph gives joiners, Nukta/syllable-modifier/
// combining marks and Halant the same reorder position as the glyph
// before them, so they travel together when the base-relative sort runs.
func (indicPlan *indicShapePlan) attachMarksToPreviousGlyph(buffer *Buffer, start, end int) {
	info := buffer.Info
	lastPos := uint8(posStart)
	for i := start; i < end; i++ {
		if 1<<info[i].complexCategory&(joinerFlags|1<<indSM_ex_N|1<<indSM_ex_RS|1<<indSM_ex_CM|1<<indSM_ex_H) != 0 {
			info[i].complexAux = lastPos
			if info[i].complexCategory == indSM_ex_H && info[i].complexAux == posPreM {
				// Uniscribe never moves a Halant together with a Left
				// Matra (tested with U+092B,U+093F,U+094D); match it.
				for j := i; j > start; j-- {
					if info[j-1].complexAux != posPreM {
						info[i].complexAux = info[j-1].complexAux
						break
					}
				}
			}
			continue
		}
		if info[i].complexAux == posSmvd {
			continue
		}
		if info[i].complexCategory == indSM_ex_MPst && i > start && info[i-1].complexCategory == indSM_ex_SM {
			info[i-1].complexAux = info[i].complexAux
		}
		lastPos = info[i].complexAux
	}
}

// attachPostBaseTrailers lets a post-base consonant claim every glyph
// between it and the previous consonant/matra, so trailing marks move
// together with the consonant they actually attach to.
func attachPostBaseTrailers(info []GlyphInfo, base, end int) {
	last := base
	for i := base + 1; i < end; i++ {
		switch {
		case isConsonantGlyph(&info[i]):
			for j := last + 1; j < i; j++ {
				if info[j].complexAux < posSmvd {
					info[j].complexAux = info[i].complexAux
				}
			}
			last = i
		case info[i].complexCategory == indSM_ex_M || info[i].complexCategory == indSM_ex_MPst:
			last = i
		}
	}
}

// sortAndMergeSyllable performs the actual position-order sort (stable,
// keyed on complexAux) and works out which clusters the sort requires
// merging. Pre-base cluster merging is deferred to final reordering,
// since pre-base glyphs move again there; see the discussion at
// https://github.com/harfbuzz/harfbuzz/issues/2272 for why the two
// passes' merges have to interlock rather than one just merging everything.
func (indicPlan *indicShapePlan) sortAndMergeSyllable(buffer *Buffer, start, base, end int) {
	info := buffer.Info

	syllable := info[start].syllable
	for i := start; i < end; i++ {
		info[i].syllable = uint8(i - start) // borrow the field to carry original index
	}

	if debugMode {
		fmt.Printf("INDIC - post-base: sorting between glyph %d and %d\n", start, end)
	}
	subSlice := info[start:end]
	sort.SliceStable(subSlice, func(i, j int) bool { return subSlice[i].complexAux < subSlice[j].complexAux })

	firstLeftMatra, lastLeftMatra := end, end
	base = end
	for i := start; i < end; i++ {
		switch info[i].complexAux {
		case posBaseC:
			base = i
			goto foundBase
		case posPreM:
			if firstLeftMatra == end {
				firstLeftMatra = i
			}
			lastLeftMatra = i
		}
	}
foundBase:

	// https://github.com/harfbuzz/harfbuzz/issues/3863
	if firstLeftMatra < lastLeftMatra {
		buffer.reverseRange(firstLeftMatra, lastLeftMatra+1)
		i := firstLeftMatra
		for j := i; j <= lastLeftMatra; j++ {
			if info[j].complexCategory == indSM_ex_M || info[j].complexCategory == indSM_ex_MPst {
				buffer.reverseRange(i, j+1)
				i = j + 1
			}
		}
	}

	if indicPlan.isOldSpec || end-start > 127 {
		buffer.mergeClusters(base, end)
	} else {
		for i := base; i < end; i++ {
			if info[i].syllable == 255 {
				continue
			}
			lo, hi := i, i
			j := start + int(info[i].syllable)
			for j != i {
				lo, hi = min(lo, j), max(hi, j)
				next := start + int(info[j].syllable)
				info[j].syllable = 255 // mark processed so it isn't revisited
				j = next
			}
			buffer.mergeClusters(max(base, lo), hi+1)
		}
	}

	for i := start; i < end; i++ {
		info[i].syllable = syllable
	}
}

// setInitialReorderingMasks assigns the Reph/pre-base/post-base feature
// masks now that the base consonant and Reph candidacy are both known.
func (indicPlan *indicShapePlan) setInitialReorderingMasks(info []GlyphInfo, start, base, end int, _ *Font) {
	for i := start; i < end && info[i].complexAux == posRaToBecomeReph; i++ {
		info[i].Mask |= indicPlan.featureMasks[indicRphf]
	}

	preMask := indicPlan.featureMasks[indicHalf]
	if !indicPlan.isOldSpec && indicPlan.cfg.blwfMode == blwfModePreAndPost {
		preMask |= indicPlan.featureMasks[indicBlwf]
	}
	for i := start; i < base; i++ {
		info[i].Mask |= preMask
	}

	postMask := indicPlan.featureMasks[indicBlwf] | indicPlan.featureMasks[indicAbvf] | indicPlan.featureMasks[indicPstf]
	for i := base + 1; i < end; i++ {
		info[i].Mask |= postMask
	}
}

// fixOldSpecEyelashRa handles an old-spec Devanagari quirk: 'blwf' should
// also reach a Ra,Halant pair before the base even though it's not a
// below-base form itself, unless that Ra is actually forming an eyelash
// Ra via Ra,Halant,ZWJ (tested with Sanskrit 2003, U+0924,U+094D,U+0930,U+094d,U+0915).
func (indicPlan *indicShapePlan) fixOldSpecEyelashRa(buffer *Buffer, start, base int) {
	if !indicPlan.isOldSpec || buffer.Props.Script != language.Devanagari {
		return
	}
	info := buffer.Info
	for i := start; i+1 < base; i++ {
		if info[i].complexCategory == indSM_ex_Ra && info[i+1].complexCategory == indSM_ex_H &&
			(i+2 == base || info[i+2].complexCategory != indSM_ex_ZWJ) {
			info[i].Mask |= indicPlan.featureMasks[indicBlwf]
			info[i+1].Mask |= indicPlan.featureMasks[indicBlwf]
		}
	}
}

// markPrefCandidate tags a post-base Halant,Ra sequence with the 'pref'
// mask when the font's own 'pref' lookup would actually match it, so the
// final reorder pass knows which glyph (if any) to treat as pre-base-reordering.
func (indicPlan *indicShapePlan) markPrefCandidate(font *Font, info []GlyphInfo, base, end int) {
	const prefLen = 2
	if indicPlan.featureMasks[indicPref] == 0 || base+prefLen >= end {
		return
	}
	for i := base + 1; i+prefLen-1 < end; i++ {
		var glyphs [prefLen]GID
		for j := range glyphs {
			glyphs[j] = info[i+j].Glyph
		}
		if indicPlan.pref.wouldSubstitute(glyphs[:], font) {
			for j := 0; j < prefLen; j++ {
				info[i].Mask |= indicPlan.featureMasks[indicPref]
				i++
			}
			return
		}
	}
}

// applyJoinerEffects clears the 'half' mask on the glyphs before a ZWNJ,
// walking back up to and including the nearest consonant; a ZWJ has no masking
// effect of its own, it just isn't skipped for 'cjct' the way ZWNJ is.
func (indicPlan *indicShapePlan) applyJoinerEffects(info []GlyphInfo, start, end int) {
	for i := start + 1; i < end; i++ {
		if !isJoinerGlyph(&info[i]) {
			continue
		}
		nonJoiner := info[i].complexCategory == indSM_ex_ZWNJ
		j := i
		for j > start && !isConsonantGlyph(&info[j]) {
			j--
			if nonJoiner {
				info[j].Mask &^= indicPlan.featureMasks[indicHalf]
			}
		}
	}
}

func (indicPlan *indicShapePlan) initialReorderingStandaloneCluster(font *Font, buffer *Buffer, start, end int) {
	// Placeholders and dotted-circles are treated like consonants so the
	// chain above "just works" — except in compatibility mode, where
	// Uniscribe leaves a syllable-final dotted-circle alone entirely
	// (it never forms a Reph from one).
	if indicPlan.uniscribeBugCompatible && buffer.Info[end-1].complexCategory == indSM_ex_DOTTEDCIRCLE {
		return
	}
	indicPlan.initialReorderingConsonantSyllable(font, buffer, start, end)
}

func (indicPlan *indicShapePlan) initialReorderingSyllableIndic(font *Font, buffer *Buffer, start, end int) {
	switch buffer.Info[start].syllable & 0x0F {
	case indicVowelSyllable, indicConsonantSyllable:
		// Vowels are folded into the consonant category, so the same
		// logic handles both syllable kinds.
		indicPlan.initialReorderingConsonantSyllable(font, buffer, start, end)
	case indicBrokenCluster, indicStandaloneCluster:
		// Dotted circles were already inserted for a broken cluster by
		// the time this runs, so it reorders like a standalone cluster.
		indicPlan.initialReorderingStandaloneCluster(font, buffer, start, end)
	}
}

func (cs *complexShaperIndic) initialReorderingIndic(_ *otShapePlan, font *Font, buffer *Buffer) bool {
	if debugMode {
		fmt.Println("INDIC - start reordering indic initial")
	}

	cs.plan.updateConsonantPositionsIndic(font, buffer)
	insertedDottedCircle := syllabicInsertDottedCircles(font, buffer, indicBrokenCluster,
		indSM_ex_DOTTEDCIRCLE, indSM_ex_Repha, posEnd)

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		cs.plan.initialReorderingSyllableIndic(font, buffer, start, end)
	}

	if debugMode {
		fmt.Println("INDIC - end reordering indic initial")
	}
	return insertedDottedCircle
}

// rephAfterHalant searches [start, base) for the first explicit Halant
// and returns the position right after it (or after a following ZWJ/ZWNJ
// joiner); this same search is used both as the primary target for
// scripts that don't reorder Reph to after-main/after-sub, and as the
// fallback once those targeted searches come up empty.
func rephAfterHalant(info []GlyphInfo, start, base int) (int, bool) {
	pos := start + 1
	for pos < base && !isHalantGlyph(&info[pos]) {
		pos++
	}
	if pos >= base || !isHalantGlyph(&info[pos]) {
		return 0, false
	}
	if pos+1 < base && isJoinerGlyph(&info[pos+1]) {
		pos++
	}
	return pos, true
}

func rephAfterMain(info []GlyphInfo, base, end int) (int, bool) {
	pos := base
	for pos+1 < end && info[pos+1].complexAux <= posAfterMain {
		pos++
	}
	if pos < end {
		return pos, true
	}
	return 0, false
}

func rephAfterSub(info []GlyphInfo, base, end int) (int, bool) {
	pos := base
	for pos+1 < end && (1<<info[pos+1].complexAux)&(1<<posPostC|1<<posAfterPost|1<<posSmvd) == 0 {
		pos++
	}
	if pos < end {
		return pos, true
	}
	return 0, false
}

// rephAtEnd is the last-resort Reph target when none of the targeted
// searches above found anywhere better: the syllable's end, skipping
// back over trailing signs; if that lands on a Halant, it moves one glyph
// earlier for each Matra between the base and that Halant (Uniscribe doesn't do this
// nudge, so it's skipped in compatibility mode). https://github.com/harfbuzz/harfbuzz/issues/2298#issuecomment-615318654
func rephAtEnd(info []GlyphInfo, uniscribeBugCompatible bool, base, start, end int) int {
	pos := end - 1
	for pos > start && info[pos].complexAux == posSmvd {
		pos--
	}
	if !uniscribeBugCompatible && isHalantGlyph(&info[pos]) {
		for i := base + 1; i < pos; i++ {
			if info[i].complexCategory == indSM_ex_M || info[i].complexCategory == indSM_ex_MPst {
				pos--
			}
		}
	}
	return pos
}

// findRephTarget works out where a syllable-initial Reph should end up
// once the basic-forms features have had their say, per the per-script
// rephPos class: https://docs.microsoft.com/en-us/typography/script-development/devanagari
func (indicPlan *indicShapePlan) findRephTarget(info []GlyphInfo, start, base, end int) int {
	if indicPlan.cfg.rephPos != rephPosAfterPost {
		if pos, ok := rephAfterHalant(info, start, base); ok {
			return pos
		}
		if indicPlan.cfg.rephPos == rephPosAfterMain {
			if pos, ok := rephAfterMain(info, base, end); ok {
				return pos
			}
		}
		if indicPlan.cfg.rephPos == rephPosAfterSub {
			if pos, ok := rephAfterSub(info, base, end); ok {
				return pos
			}
		}
	}
	if pos, ok := rephAfterHalant(info, start, base); ok {
		return pos
	}
	return rephAtEnd(info, indicPlan.uniscribeBugCompatible, base, start, end)
}

// reorderReph moves a syllable-initial Reph into its script-specific
// target position, but only when it's either a ligated Ra,H(,ZWJ)
// sequence that actually formed the reph glyph, or an encoded Repha
// character that did *not* ligate away (the font is presumably handling
// it manually if it did).
func (indicPlan *indicShapePlan) reorderReph(buffer *Buffer, start, base, end int) int {
	info := buffer.Info
	if !(start+1 < end && info[start].complexAux == posRaToBecomeReph &&
		(info[start].complexCategory == indSM_ex_Repha) != info[start].ligatedAndDidntMultiply()) {
		return base
	}

	target := indicPlan.findRephTarget(info, start, base, end)

	if debugMode {
		fmt.Printf("INDIC - reph: switching glyph %d to %d (and shifting between)", start, target)
	}
	buffer.mergeClusters(start, target+1)
	reph := info[start]
	copy(info[start:target], info[start+1:])
	info[target] = reph

	if start < base && base <= target {
		base--
	}
	return base
}

// reorderPreBaseReordering moves a post-base Ra that the font's 'pref'
// lookup actually ligated into the pre-base position the orthography
// expects, targeting the same slot a pre-base matra would use.
func (indicPlan *indicShapePlan) reorderPreBaseReordering(buffer *Buffer, start, base, end int) int {
	info := buffer.Info
	if !(indicPlan.featureMasks[indicPref] != 0 && base+1 < end) {
		return base
	}

	for i := base + 1; i < end; i++ {
		if info[i].Mask&indicPlan.featureMasks[indicPref] == 0 {
			continue
		}
		// Only reorder a glyph 'pref' actually produced; a font may carry
		// the feature generally but decline to apply it in this context.
		if info[i].ligatedAndDidntMultiply() {
			newPos := base
			if buffer.Props.Script != language.Malayalam && buffer.Props.Script != language.Tamil {
				for newPos > start && !hasCategoryFlag(&info[newPos-1], 1<<indSM_ex_M|1<<indSM_ex_MPst|1<<indSM_ex_H) {
					newPos--
				}
			}
			if newPos > start && isHalantGlyph(&info[newPos-1]) && newPos < end && isJoinerGlyph(&info[newPos]) {
				newPos++
			}

			oldPos := i
			buffer.mergeClusters(newPos, oldPos+1)
			if debugMode {
				fmt.Printf("INDIC - pre-base: switching glyph %d to %d (and shifting between)", oldPos, newPos)
			}
			tmp := info[oldPos]
			copy(info[newPos+1:], info[newPos:oldPos])
			info[newPos] = tmp

			if newPos <= base && base < oldPos {
				base++
			}
		}
		break
	}
	return base
}

// reorderPreBaseMatra moves a decomposed pre-base matra that was placed
// before basic-forms features ran to "after the last standalone Halant,
// after the initial matra position, before the main consonant" — with a
// ZWJ after that Halant blocking the move and a ZWNJ letting it proceed
// (the ZWNJ case is already handled by syllable segmentation itself, so
// only the ZWJ veto needs code here). https://github.com/harfbuzz/harfbuzz/issues/1070
func (indicPlan *indicShapePlan) reorderPreBaseMatra(buffer *Buffer, start, base, end int) int {
	info := buffer.Info
	if !(start+1 < end && start < base) {
		return base
	}

	newPos := base - 1
	if base == end {
		newPos = base - 2
	}

	if buffer.Props.Script != language.Malayalam && buffer.Props.Script != language.Tamil {
		for newPos > start && !hasCategoryFlag(&info[newPos], 1<<indSM_ex_M|1<<indSM_ex_MPst|1<<indSM_ex_H) {
			newPos--
		}
		if isHalantGlyph(&info[newPos]) && info[newPos].complexAux != posPreM {
			for newPos > start && newPos+1 < end && info[newPos+1].complexCategory == indSM_ex_ZWJ {
				newPos--
			}
		} else {
			newPos = start
		}
	}

	if start < newPos && info[newPos].complexAux != posPreM {
		for i := newPos; i > start; i-- {
			if info[i-1].complexAux != posPreM {
				continue
			}
			oldPos := i - 1
			if oldPos < base && base <= newPos {
				base--
			}
			if debugMode {
				fmt.Printf("INDIC - matras: switching glyph %d to %d (and shifting between)", oldPos, newPos)
			}
			tmp := info[oldPos]
			copy(info[oldPos:newPos], info[oldPos+1:])
			info[newPos] = tmp
			buffer.mergeClusters(newPos, min(end, base+1))
			newPos--
		}
	} else {
		for i := start; i < base; i++ {
			if info[i].complexAux == posPreM {
				buffer.mergeClusters(i, min(end, base+1))
				break
			}
		}
	}
	return base
}

func (indicPlan *indicShapePlan) finalReorderingSyllableIndic(plan *otShapePlan, buffer *Buffer, start, end int) {
	info := buffer.Info

	// Ligation/multiplication upstream can have corrupted a virama's
	// classification; recover the one case we can detect with confidence.
	if viramaGlyph := indicPlan.viramaGlyph; viramaGlyph != 0 {
		for i := start; i < end; i++ {
			if info[i].Glyph == viramaGlyph && info[i].ligated() && info[i].multiplied() {
				info[i].complexCategory = indSM_ex_H
				info[i].clearLigatedAndMultiplied()
			}
		}
	}

	tryPref := indicPlan.featureMasks[indicPref] != 0

	base := end
	for base = start; base < end; base++ {
		if info[base].complexAux < posBaseC {
			continue
		}
		if tryPref && base+1 < end {
			for i := base + 1; i < end; i++ {
				if info[i].Mask&indicPlan.featureMasks[indicPref] != 0 {
					if !(info[i].substituted() && info[i].ligatedAndDidntMultiply()) {
						// A 'pref' candidate that didn't actually form one; the real base is around here.
						base = i
						for base < end && isHalantGlyph(&info[base]) {
							base++
						}
						if base < end {
							info[base].complexAux = posBaseC
						}
						tryPref = false
					}
					break
				}
				if base == end {
					break
				}
			}
		}
		if buffer.Props.Script == language.Malayalam {
			// Skip over unformed below- (but not post-) forms.
			for i := base + 1; i < end; i++ {
				for i < end && isJoinerGlyph(&info[i]) {
					i++
				}
				if i == end || !isHalantGlyph(&info[i]) {
					break
				}
				i++
				for i < end && isJoinerGlyph(&info[i]) {
					i++
				}
				if i < end && isConsonantGlyph(&info[i]) && info[i].complexAux == posBelowC {
					base = i
					info[base].complexAux = posBaseC
				}
			}
		}
		if start < base && info[base].complexAux > posBaseC {
			base--
		}
		break
	}
	if base == end && start < base && hasCategoryFlag(&info[base-1], 1<<indSM_ex_ZWJ) {
		base--
	}
	if base < end {
		for start < base && hasCategoryFlag(&info[base], 1<<indSM_ex_N|1<<indSM_ex_H) {
			base--
		}
	}

	base = indicPlan.reorderPreBaseMatra(buffer, start, base, end)
	base = indicPlan.reorderReph(buffer, start, base, end)
	base = indicPlan.reorderPreBaseReordering(buffer, start, base, end)

	// 'init' applies to a word-initial Left Matra.
	if info[start].complexAux == posPreM {
		const flagRange = 1<<(nonSpacingMark+1) - 1<<format
		if start == 0 || 1<<info[start-1].unicode.generalCategory()&flagRange == 0 {
			info[start].Mask |= indicPlan.featureMasks[indicInit]
		} else {
			buffer.unsafeToBreak(start-1, start+1)
		}
	}

	if indicPlan.uniscribeBugCompatible {
		// Uniscribe merges the whole syllable into one cluster, submerging
		// half forms into the main consonant's — except for Tamil.
		if plan.props.Script != language.Tamil {
			buffer.mergeClusters(start, end)
		}
	}
}

func (indicPlan *indicShapePlan) finalReorderingIndic(plan *otShapePlan, _ *Font, buffer *Buffer) bool {
	if len(buffer.Info) == 0 {
		return false
	}

	if debugMode {
		fmt.Println("INDIC - start reordering indic final")
	}

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		indicPlan.finalReorderingSyllableIndic(plan, buffer, start, end)
	}

	if debugMode {
		fmt.Println("INDIC - end reordering indic final")
	}
	return false
}

func (ci complexShaperIndic) preprocessText(_ *otShapePlan, buffer *Buffer, _ *Font) {
	if !ci.plan.uniscribeBugCompatible {
		preprocessTextVowelConstraints(buffer)
	}
}

// indicNoDecompose lists codepoints that must keep their composed form;
// RRA/RHA look like decomposable letter+nukta pairs but aren't meant to
// split. https://github.com/harfbuzz/harfbuzz/issues/779
var indicNoDecompose = map[rune]bool{
	0x0931: true, // DEVANAGARI LETTER RRA
	0x09DC: true, // BENGALI LETTER RRA
	0x09DD: true, // BENGALI LETTER RHA
	0x0B94: true, // TAMIL LETTER AU
}

func (cs *complexShaperIndic) decompose(c *otNormalizeContext, ab rune) (rune, rune, bool) {
	if indicNoDecompose[ab] {
		return 0, 0, false
	}
	return uni.decompose(ab)
}

func (cs *complexShaperIndic) compose(c *otNormalizeContext, a, b rune) (rune, bool) {
	if uni.generalCategory(a).isMark() {
		return 0, false // never recompose a split matra
	}
	if a == 0x09AF && b == 0x09BC {
		return 0x09DF, true // composition-exclusion exception we do want to recompose
	}
	return uni.compose(a, b)
}

func (complexShaperIndic) marksBehavior() (zeroWidthMarks, bool) {
	return zeroWidthMarksNone, false
}

func (complexShaperIndic) normalizationPreference() normalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}
