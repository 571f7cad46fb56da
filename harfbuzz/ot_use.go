package harfbuzz

import (
	"fmt"

	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// complexShaperUSE implements the Universal Shaping Engine model shared by
// most Brahmic-derived scripts that don't get their own dedicated shaper:
// https://docs.microsoft.com/en-us/typography/script-development/use
//
// Shaping runs in four GSUB stages, each bounded by a pause: default glyph
// preprocessing (locl/ccmp/nukt/akhn), syllable-bounded reordering (rphf/
// pref plus the reph/pref category rewrites and the actual glyph reorder),
// per-syllable orthographic feature application, and finally a topographic
// joining-form pass plus the standard presentation features applied across
// the whole run.

var _ otComplexShaper = (*complexShaperUSE)(nil)

// useBasicFeatures apply once per syllable, right before reordering.
var useBasicFeatures = [...]tables.Tag{
	ot.NewTag('r', 'k', 'r', 'f'),
	ot.NewTag('a', 'b', 'v', 'f'),
	ot.NewTag('b', 'l', 'w', 'f'),
	ot.NewTag('h', 'a', 'l', 'f'),
	ot.NewTag('p', 's', 't', 'f'),
	ot.NewTag('v', 'a', 't', 'u'),
	ot.NewTag('c', 'j', 'c', 't'),
}

// useTopographicalFeatures pick a syllable's isolated/initial/medial/final
// joining form; joiningForm* below indexes this array in the same order.
var useTopographicalFeatures = [...]tables.Tag{
	ot.NewTag('i', 's', 'o', 'l'),
	ot.NewTag('i', 'n', 'i', 't'),
	ot.NewTag('m', 'e', 'd', 'i'),
	ot.NewTag('f', 'i', 'n', 'a'),
}

const (
	joiningFormIsol = iota
	joiningFormInit
	joiningFormMedi
	joiningFormFina
	joiningFormNone
)

// useOtherFeatures apply once across the whole run, after reordering and
// syllable boundaries have both served their purpose.
var useOtherFeatures = [...]tables.Tag{
	ot.NewTag('a', 'b', 'v', 's'),
	ot.NewTag('b', 'l', 'w', 's'),
	ot.NewTag('h', 'a', 'l', 'n'),
	ot.NewTag('p', 'r', 'e', 's'),
	ot.NewTag('p', 's', 't', 's'),
}

type useShapePlan struct {
	arabicPlan *arabicShapePlan // non-nil only for USE-assigned scripts with Arabic joining
	rphfMask   GlyphMask
}

type complexShaperUSE struct {
	complexShaperNil
	masks useShapePlan
}

func (cs *complexShaperUSE) collectFeatures(plan *otShapePlanner) {
	mb := &plan.map_

	mb.addGSUBPause(cs.setupSyllablesUse)

	// Default glyph preprocessing group.
	mb.enableFeatureExt(ot.NewTag('l', 'o', 'c', 'l'), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.NewTag('c', 'c', 'm', 'p'), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.NewTag('n', 'u', 'k', 't'), ffPerSyllable, 1)
	mb.enableFeatureExt(ot.NewTag('a', 'k', 'h', 'n'), ffManualZWJ|ffPerSyllable, 1)

	// Reordering group: rphf and pref each get their own pause so their
	// substitution results can be read back (recordRphfUse/recordPrefUse)
	// before the glyph-level reorder pass runs.
	mb.addGSUBPause(clearSubstitutionFlags)
	mb.addFeatureExt(ot.NewTag('r', 'p', 'h', 'f'), ffManualZWJ|ffPerSyllable, 1)
	mb.addGSUBPause(cs.recordRphfUse)
	mb.addGSUBPause(clearSubstitutionFlags)
	mb.enableFeatureExt(ot.NewTag('p', 'r', 'e', 'f'), ffManualZWJ|ffPerSyllable, 1)
	mb.addGSUBPause(recordPrefUse)

	// Orthographic unit shaping group.
	for _, tag := range useBasicFeatures {
		mb.enableFeatureExt(tag, ffManualZWJ|ffPerSyllable, 1)
	}

	mb.addGSUBPause(reorderUse)
	mb.addGSUBPause(nil)

	// Topographical features.
	for _, tag := range useTopographicalFeatures {
		mb.addFeature(tag)
	}
	mb.addGSUBPause(nil)

	// Standard typographic presentation.
	for _, tag := range useOtherFeatures {
		mb.enableFeatureExt(tag, ffManualZWJ, 1)
	}
}

func (cs *complexShaperUSE) dataCreate(plan *otShapePlan) {
	var masks useShapePlan
	masks.rphfMask = plan.map_.getMask1(ot.NewTag('r', 'p', 'h', 'f'))

	if hasArabicJoining(plan.props.Script) {
		arabic := newArabicPlan(plan)
		masks.arabicPlan = &arabic
	}

	cs.masks = masks
}

func (cs *complexShaperUSE) setupMasks(plan *otShapePlan, buffer *Buffer, _ *Font) {
	// Arabic joining masks have to be assigned before category
	// classification overwrites complexCategory below.
	if cs.masks.arabicPlan != nil {
		cs.masks.arabicPlan.setupMasks(buffer, plan.props.Script)
	}

	// Everything else waits for the syllable-boundary pause callback.
	for i := range buffer.Info {
		buffer.Info[i].complexCategory = getUSECategory(buffer.Info[i].codepoint)
	}
}

// setupRphfMask tags the reph-candidate glyphs at the start of every
// syllable with the rphf mask: just the first glyph normally, or up to
// three when the syllable doesn't already start with a classified repha,
// matching how a font's 'rphf' lookup is written to match either shape.
func (cs *complexShaperUSE) setupRphfMask(buffer *Buffer) {
	mask := cs.masks.rphfMask
	if mask == 0 {
		return
	}

	info := buffer.Info
	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		limit := 1
		if info[start].complexCategory != useSM_ex_R {
			limit = min(3, end-start)
		}
		for i := start; i < start+limit; i++ {
			info[i].Mask |= mask
		}
	}
}

// setupTopographicalMasks assigns each syllable its isolated/initial/
// medial/final joining-form mask by looking at whether the previous
// syllable's form left it open to join (ended isol/fina) and the current
// syllable's cluster type allows joining at all; non-joining cluster types
// (hieroglyphs, non-clusters) reset the chain.
func (cs *complexShaperUSE) setupTopographicalMasks(plan *otShapePlan, buffer *Buffer) {
	if cs.masks.arabicPlan != nil {
		return // Arabic joining masks already cover this script
	}

	var formMasks [4]GlyphMask
	var anyMask uint32
	for i := range formMasks {
		formMasks[i] = plan.map_.getMask1(useTopographicalFeatures[i])
		if formMasks[i] == plan.map_.globalMask {
			formMasks[i] = 0
		}
		anyMask |= formMasks[i]
	}
	if anyMask == 0 {
		return
	}
	keepOtherBits := ^anyMask

	info := buffer.Info
	lastStart := 0
	lastForm := joiningFormNone
	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		switch info[start].syllable & 0x0F {
		case useHieroglyphCluster, useNonCluster:
			lastForm = joiningFormNone

		case useViramaTerminatedCluster, useSakotTerminatedCluster, useStandardCluster,
			useNumberJoinerTerminatedCluster, useNumeralCluster, useSymbolCluster, useBrokenCluster:
			joins := lastForm == joiningFormFina || lastForm == joiningFormIsol
			if joins {
				if lastForm == joiningFormFina {
					lastForm = joiningFormMedi
				} else {
					lastForm = joiningFormInit
				}
				for i := lastStart; i < start; i++ {
					info[i].Mask = (info[i].Mask & keepOtherBits) | formMasks[lastForm]
				}
			}

			lastForm = joiningFormIsol
			if joins {
				lastForm = joiningFormFina
			}
			for i := start; i < end; i++ {
				info[i].Mask = (info[i].Mask & keepOtherBits) | formMasks[lastForm]
			}
		}

		lastStart = start
	}
}

func (cs *complexShaperUSE) setupSyllablesUse(plan *otShapePlan, _ *Font, buffer *Buffer) bool {
	findSyllablesUse(buffer)

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		buffer.unsafeToBreak(start, end)
	}

	cs.setupRphfMask(buffer)
	cs.setupTopographicalMasks(plan, buffer)
	return false
}

// recordRphfUse re-tags the first glyph a 'rphf' lookup actually touched in
// each syllable as USE(R), so later reordering treats a font-substituted
// repha form the same as a character-classified one.
func (cs *complexShaperUSE) recordRphfUse(plan *otShapePlan, _ *Font, buffer *Buffer) bool {
	mask := cs.masks.rphfMask
	if mask == 0 {
		return false
	}

	info := buffer.Info
	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		for i := start; i < end && info[i].Mask&mask != 0; i++ {
			if glyphInfoSubstituted(&info[i]) {
				info[i].complexCategory = useSM_ex_R
				break
			}
		}
	}
	return false
}

// recordPrefUse re-tags the first glyph a 'pref' lookup substituted in each
// syllable as USE(VPre), since a substituted pref behaves like one for
// reordering purposes.
func recordPrefUse(_ *otShapePlan, _ *Font, buffer *Buffer) bool {
	info := buffer.Info
	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		for i := start; i < end; i++ {
			if glyphInfoSubstituted(&info[i]) {
				info[i].complexCategory = useSM_ex_VPre
				break
			}
		}
	}
	return false
}

func isHalantUse(info *GlyphInfo) bool {
	switch info.complexCategory {
	case useSM_ex_H, useSM_ex_HVM, useSM_ex_IS:
		return !info.ligated()
	default:
		return false
	}
}

// usePostBaseCategories is the set of category classes that can follow a
// syllable's reph on the right, used to find where a moved-forward reph
// should stop.
const usePostBaseCategories = 1<<useSM_ex_FAbv | 1<<useSM_ex_FBlw | 1<<useSM_ex_FPst |
	1<<useSM_ex_MAbv | 1<<useSM_ex_MBlw | 1<<useSM_ex_MPst | 1<<useSM_ex_MPre |
	1<<useSM_ex_VAbv | 1<<useSM_ex_VBlw | 1<<useSM_ex_VPst | 1<<useSM_ex_VPre |
	1<<useSM_ex_VMAbv | 1<<useSM_ex_VMBlw | 1<<useSM_ex_VMPst | 1<<useSM_ex_VMPre

// useReorderableSyllables is the bitmask of syllable types reorderSyllableUse
// actually moves glyphs within; anything else passes through untouched.
const useReorderableSyllables = 1<<useViramaTerminatedCluster | 1<<useSakotTerminatedCluster |
	1<<useStandardCluster | 1<<useSymbolCluster | 1<<useBrokenCluster

// reorderSyllableUse performs the two glyph moves GSUB rules alone can't
// express: a reph (USE(R)) glyph hops forward past the base to just before
// the first post-base-category glyph (or to the syllable's end if none
// exists), and any pre-base-matra glyph standing after a halant hops back
// to right after that halant.
func reorderSyllableUse(buffer *Buffer, start, end int) {
	if 1<<(buffer.Info[start].syllable&0x0F)&useReorderableSyllables == 0 {
		return
	}

	info := buffer.Info

	if info[start].complexCategory == useSM_ex_R && end-start > 1 {
		for i := start + 1; i < end; i++ {
			atPostBase := int64(1<<info[i].complexCategory)&usePostBaseCategories != 0 || isHalantUse(&info[i])
			if !atPostBase && i != end-1 {
				continue
			}
			if atPostBase {
				i--
			}
			buffer.mergeClusters(start, i+1)
			reph := info[start]
			copy(info[start:i], info[start+1:])
			info[i] = reph
			break
		}
	}

	lastHalant := start
	for i := start; i < end; i++ {
		switch {
		case isHalantUse(&info[i]):
			lastHalant = i + 1
		case 1<<info[i].complexCategory&(1<<useSM_ex_VPre|1<<useSM_ex_VMPre) != 0 &&
			info[i].getLigComp() == 0 && lastHalant < i:
			buffer.mergeClusters(lastHalant, i+1)
			matra := info[i]
			copy(info[lastHalant+1:], info[lastHalant:i])
			info[lastHalant] = matra
		}
	}
}

func reorderUse(_ *otShapePlan, font *Font, buffer *Buffer) bool {
	if debugMode {
		fmt.Println("USE - start reordering USE")
	}

	insertedDottedCircle := syllabicInsertDottedCircles(font, buffer, useBrokenCluster, useSM_ex_B, useSM_ex_R, -1)

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		reorderSyllableUse(buffer, start, end)
	}

	if debugMode {
		fmt.Println("USE - end reordering USE")
	}
	return insertedDottedCircle
}

func (cs *complexShaperUSE) preprocessText(_ *otShapePlan, buffer *Buffer, _ *Font) {
	preprocessTextVowelConstraints(buffer)
}

func (cs *complexShaperUSE) compose(_ *otNormalizeContext, a, b rune) (rune, bool) {
	if uni.generalCategory(a).isMark() {
		return 0, false // never recompose a split matra back together
	}
	return uni.compose(a, b)
}

func (complexShaperUSE) marksBehavior() (zeroWidthMarks, bool) {
	return zeroWidthMarksByGdefEarly, false
}

func (complexShaperUSE) normalizationPreference() normalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}
