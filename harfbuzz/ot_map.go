package harfbuzz

import (
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/textshape/complexshape/font"
	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// otMap turns the list of features a shaper wants (collected through
// otMapBuilder) into a compiled plan: a glyph mask bit range per feature,
// and an ordered, deduplicated list of GSUB/GPOS lookups per shaping stage.
// Applying the plan at runtime (substitute/position) then only has to walk
// that lookup list and test each glyph's mask against the bit range the
// compile step assigned.

// otMapFeatureFlags control how a feature is resolved against the font and
// how liberally its lookups skip over joiner/ignorable glyphs.
type otMapFeatureFlags uint8

const (
	// ffGLOBAL features apply uniformly to the whole run: compile folds
	// them into the shared global mask bit instead of allocating a
	// dedicated bit range.
	ffGLOBAL otMapFeatureFlags = 1 << iota
	// ffHasFallback keeps a feature's mask bit allocated even when the
	// font's LangSys doesn't list it, for shapers with non-GSUB fallback
	// behavior keyed on the same bit (fallback kerning/mark positioning).
	ffHasFallback
	// ffManualZWNJ tells lookup matching not to skip ZWNJ when walking a
	// rule's backtrack/lookahead context.
	ffManualZWNJ
	// ffManualZWJ tells lookup matching not to skip ZWJ in the input
	// sequence itself.
	ffManualZWJ
	// ffGlobalSearch falls back to the font's first LangSys-independent
	// occurrence of the feature tag if the chosen script/language doesn't
	// list it directly.
	ffGlobalSearch
	// ffRandom picks a random alternate from an AlternateSubst subtable
	// instead of always the first.
	ffRandom
	// ffPerSyllable confines a lookup's rule matching to within one
	// syllable cluster rather than letting it cross cluster boundaries.
	ffPerSyllable

	ffNone                otMapFeatureFlags = 0
	ffManualJoiners                         = ffManualZWNJ | ffManualZWJ
	ffGlobalManualJoiners                   = ffGLOBAL | ffManualJoiners
	ffGlobalHasFallback                     = ffGLOBAL | ffHasFallback
)

const (
	// otMapMaxBits caps how wide a single feature's glyph mask field can
	// grow; features needing more distinct values than this don't fit the
	// fixed-width mask scheme and are simply not given room to track every
	// value (stuck at whatever the cap allows).
	otMapMaxBits  = 8
	otMapMaxValue = (1 << otMapMaxBits) - 1
)

// otMapFeature is how a complex shaper asks for a feature before the map
// is compiled: just the tag and the resolution flags, with no mask bits
// assigned yet.
type otMapFeature struct {
	tag   tables.Tag
	flags otMapFeatureFlags
}

// featureInfo is one request queued on the builder: a feature tag plus
// everything compile needs to resolve, allocate mask bits for, and place
// in the right GSUB/GPOS stage.
type featureInfo struct {
	Tag          tables.Tag
	maxValue     uint32
	flags        otMapFeatureFlags
	defaultValue uint32 // value unset glyphs should carry, for non-global features
	stage        [2]int // [GSUB stage, GPOS stage]
}

// stageInfo records where a pause callback sits within one table's stage
// sequence, before the lookup list itself has been compiled.
type stageInfo struct {
	pauseFunc pauseFunc
	index     int
}

// otMapBuilder accumulates feature requests and pause points for one
// (script, language, direction) run before compile() resolves them against
// the font's actual GSUB/GPOS tables.
type otMapBuilder struct {
	tables        *font.Font
	props         SegmentProperties
	stages        [2][]stageInfo
	featureInfos  []featureInfo
	scriptIndex   [2]int
	languageIndex [2]int
	currentStage  [2]int
	chosenScript  [2]tables.Tag
	foundScript   [2]bool
}

// newOtMapBuilder resolves which script/language entry of GSUB and of GPOS
// this run should read features from, up front, since every later lookup
// resolution needs that index.
func newOtMapBuilder(parsed *font.Font, props SegmentProperties) otMapBuilder {
	var out otMapBuilder
	out.tables = parsed
	out.props = props

	scriptTags, languageTags := newOTTagsFromScriptAndLanguage(props.Script, props.Language)

	out.scriptIndex[0], out.chosenScript[0], out.foundScript[0] = selectScript(&parsed.GSUB.Layout, scriptTags)
	out.languageIndex[0], _ = selectLanguage(&parsed.GSUB.Layout, out.scriptIndex[0], languageTags)

	out.scriptIndex[1], out.chosenScript[1], out.foundScript[1] = selectScript(&parsed.GPOS.Layout, scriptTags)
	out.languageIndex[1], _ = selectLanguage(&parsed.GPOS.Layout, out.scriptIndex[1], languageTags)

	return out
}

func (mb *otMapBuilder) addFeatureExt(tag tables.Tag, flags otMapFeatureFlags, value uint32) {
	info := featureInfo{
		Tag:   tag,
		flags: flags,
		stage: mb.currentStage,
	}
	info.maxValue = value
	if flags&ffGLOBAL != 0 {
		info.defaultValue = value
	}
	mb.featureInfos = append(mb.featureInfos, info)
}

// pauseFunc runs between two shaping stages; it reports whether it may
// have introduced new glyphs, which forces the caller to rebuild its
// buffer digest before resuming lookup application.
type pauseFunc func(plan *otShapePlan, font *Font, buffer *Buffer) bool

func (mb *otMapBuilder) addPause(tableIndex int, fn pauseFunc) {
	mb.stages[tableIndex] = append(mb.stages[tableIndex], stageInfo{
		index:     mb.currentStage[tableIndex],
		pauseFunc: fn,
	})
	mb.currentStage[tableIndex]++
}

func (mb *otMapBuilder) addGSUBPause(fn pauseFunc) { mb.addPause(0, fn) }
func (mb *otMapBuilder) addGPOSPause(fn pauseFunc) { mb.addPause(1, fn) }

func (mb *otMapBuilder) enableFeatureExt(tag tables.Tag, flags otMapFeatureFlags, value uint32) {
	mb.addFeatureExt(tag, ffGLOBAL|flags, value)
}

func (mb *otMapBuilder) enableFeature(tag tables.Tag)  { mb.enableFeatureExt(tag, ffNone, 1) }
func (mb *otMapBuilder) addFeature(tag tables.Tag)     { mb.addFeatureExt(tag, ffNone, 1) }
func (mb *otMapBuilder) disableFeature(tag tables.Tag) { mb.addFeatureExt(tag, ffGLOBAL, 0) }

// dedupeFeatureInfos sorts the queued feature requests by tag and merges
// requests for the same tag into one, widening mask-value requirements and
// pulling each duplicate's stage forward to the earliest one requested.
func dedupeFeatureInfos(infos []featureInfo) []featureInfo {
	if len(infos) == 0 {
		return infos
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Tag < infos[j].Tag })

	out := 0
	for i, feat := range infos {
		if i == 0 {
			continue
		}
		if feat.Tag != infos[out].Tag {
			out++
			infos[out] = feat
			continue
		}
		if feat.flags&ffGLOBAL != 0 {
			infos[out].flags |= ffGLOBAL
			infos[out].maxValue = feat.maxValue
			infos[out].defaultValue = feat.defaultValue
		} else {
			if infos[out].flags&ffGLOBAL != 0 {
				infos[out].flags ^= ffGLOBAL
			}
			infos[out].maxValue = max32(infos[out].maxValue, feat.maxValue)
		}
		infos[out].flags |= feat.flags & ffHasFallback
		infos[out].stage[0] = min(infos[out].stage[0], feat.stage[0])
		infos[out].stage[1] = min(infos[out].stage[1], feat.stage[1])
	}
	return infos[:out+1]
}

// globalBitShift/globalBitMask identify the top bit of the glyph mask,
// reserved for features that apply uniformly across the whole buffer.
const (
	globalBitShift = 8*4 - 1
	globalBitMask  = 1 << globalBitShift
)

func (mb *otMapBuilder) compile(m *otMap, key otShapePlanKey) {
	m.globalMask = globalBitMask

	var (
		requiredFeatureIndex [2]uint16 // NoFeatureIndex for "none required"
		requiredFeatureTag   [2]tables.Tag
		// Required features apply in stage 0 unless their tag matches one
		// of the shaper's own requested stages, in which case they ride
		// along with that stage instead.
		requiredFeatureStage [2]int
	)

	gsub, gpos := mb.tables.GSUB, mb.tables.GPOS
	layouts := [2]*font.Layout{&gsub.Layout, &gpos.Layout}

	m.chosenScript = mb.chosenScript
	m.foundScript = mb.foundScript
	requiredFeatureIndex[0], requiredFeatureTag[0] = getRequiredFeature(layouts[0], mb.scriptIndex[0], mb.languageIndex[0])
	requiredFeatureIndex[1], requiredFeatureTag[1] = getRequiredFeature(layouts[1], mb.scriptIndex[1], mb.languageIndex[1])

	mb.featureInfos = dedupeFeatureInfos(mb.featureInfos)

	nextBit := bits.OnesCount32(glyphFlagDefined) + 1

	for _, info := range mb.featureInfos {
		bitsNeeded := 0
		usesGlobalBit := info.flags&ffGLOBAL != 0 && info.maxValue == 1
		if !usesGlobalBit {
			bitsNeeded = min(otMapMaxBits, bitStorage(info.maxValue))
		}

		if info.maxValue == 0 || nextBit+bitsNeeded >= globalBitShift {
			continue // feature disabled, or the mask ran out of room
		}

		var found bool
		var featureIndex [2]uint16
		for tableIndex, layout := range layouts {
			if requiredFeatureTag[tableIndex] == info.Tag {
				requiredFeatureStage[tableIndex] = info.stage[tableIndex]
			}
			featureIndex[tableIndex] = findFeatureForLang(layout, mb.scriptIndex[tableIndex], mb.languageIndex[tableIndex], info.Tag)
			found = found || featureIndex[tableIndex] != NoFeatureIndex
		}
		if !found && info.flags&ffGlobalSearch != 0 {
			for tableIndex, layout := range layouts {
				featureIndex[tableIndex] = findFeature(layout, info.Tag)
				found = found || featureIndex[tableIndex] != NoFeatureIndex
			}
		}
		if !found && info.flags&ffHasFallback == 0 {
			continue
		}

		fm := featureMap{
			tag:         info.Tag,
			index:       featureIndex,
			stage:       info.stage,
			autoZWNJ:    info.flags&ffManualZWNJ == 0,
			autoZWJ:     info.flags&ffManualZWJ == 0,
			random:      info.flags&ffRandom != 0,
			perSyllable: info.flags&ffPerSyllable != 0,
		}
		if usesGlobalBit {
			fm.shift = globalBitShift
			fm.mask = globalBitMask
		} else {
			fm.shift = nextBit
			fm.mask = (1 << (nextBit + bitsNeeded)) - (1 << nextBit)
			nextBit += bitsNeeded
			m.globalMask |= (info.defaultValue << fm.shift) & fm.mask
		}
		fm.mask1 = (1 << fm.shift) & fm.mask
		fm.needsFallback = !found

		if debugMode {
			fmt.Printf("\tMAP - adding feature %s (%d) for stage %v\n", info.Tag, info.Tag, info.stage)
		}

		m.features = append(m.features, fm)
	}
	mb.featureInfos = mb.featureInfos[:0]

	mb.addGSUBPause(nil)
	mb.addGPOSPause(nil)

	for tableIndex, layout := range layouts {
		m.compileStageLookups(layout, tableIndex, mb.stages[tableIndex],
			requiredFeatureIndex[tableIndex], requiredFeatureStage[tableIndex], key[tableIndex])
	}
}

// compileStageLookups walks one table's (GSUB or GPOS) stages in order,
// gathering the lookups each stage's features touch, sorting and merging
// duplicates per stage, and recording where each pause callback falls in
// the resulting flat lookup list. Every addPause call appended one entry
// to stages, so len(stages) is exactly the number of stage indices (0..n)
// in play for this table.
func (m *otMap) compileStageLookups(layout *font.Layout, tableIndex int, stages []stageInfo, requiredIndex uint16, requiredStage int, variationsIndex int) {
	const emptyTag = 0x20202020 // ("    ")

	stagePos := 0
	lastCount := 0
	for stage := 0; stage < len(stages); stage++ {
		if requiredIndex != NoFeatureIndex && requiredStage == stage {
			m.addLookups(layout, tableIndex, requiredIndex, variationsIndex, globalBitMask, true, true, false, false, emptyTag)
		}

		for _, feat := range m.features {
			if feat.stage[tableIndex] == stage {
				m.addLookups(layout, tableIndex, feat.index[tableIndex], variationsIndex,
					feat.mask, feat.autoZWNJ, feat.autoZWJ, feat.random, feat.perSyllable, feat.tag)
			}
		}

		if ls := m.lookups[tableIndex]; lastCount < len(ls) {
			m.lookups[tableIndex] = sortAndMergeLookupRange(ls, lastCount)
		}
		lastCount = len(m.lookups[tableIndex])

		if stagePos < len(stages) && stages[stagePos].index == stage {
			m.stages[tableIndex] = append(m.stages[tableIndex], stageMap{
				lastLookup: lastCount,
				pauseFunc:  stages[stagePos].pauseFunc,
			})
			stagePos++
		}
	}
}

// sortAndMergeLookupRange sorts the newly appended lookups (those from
// index from onward) by lookup index and merges adjacent duplicates in
// place, unioning their masks and narrowing their joiner-skipping flags to
// the intersection across all the features that referenced them. Returns
// the slice truncated to its new length after merging.
func sortAndMergeLookupRange(ls []lookupMap, from int) []lookupMap {
	view := ls[from:]
	sort.Slice(view, func(i, j int) bool { return view[i].index < view[j].index })

	out := from
	for i := from; i < len(ls); i++ {
		if i == from {
			continue
		}
		if ls[i].index != ls[out].index {
			out++
			ls[out] = ls[i]
		} else {
			ls[out].mask |= ls[i].mask
			ls[out].autoZWNJ = ls[out].autoZWNJ && ls[i].autoZWNJ
			ls[out].autoZWJ = ls[out].autoZWJ && ls[i].autoZWJ
		}
	}
	return ls[:out+1]
}

func (mb *otMapBuilder) hasFeature(tag ot.Tag) bool {
	layouts := [2]*font.Layout{&mb.tables.GSUB.Layout, &mb.tables.GPOS.Layout}
	for tableIndex, layout := range layouts {
		if findFeatureForLang(layout, mb.scriptIndex[tableIndex], mb.languageIndex[tableIndex], tag) != NoFeatureIndex {
			return true
		}
	}
	return false
}

// featureMap is a compiled feature: its resolved GSUB/GPOS feature
// indices and the mask bit range assigned to it.
type featureMap struct {
	tag           tables.Tag // first field so bsearchFeature can binary-search by it
	index         [2]uint16  // GSUB, GPOS feature index
	stage         [2]int     // GSUB, GPOS stage this feature's lookups join
	shift         int
	mask          GlyphMask
	mask1         GlyphMask // precomputed mask for the common "value == 1" case
	needsFallback bool
	autoZWNJ      bool
	autoZWJ       bool
	random        bool
	perSyllable   bool
}

func bsearchFeature(features []featureMap, tag tables.Tag) *featureMap {
	low, high := 0, len(features)
	for low < high {
		mid := low + (high-low)/2
		switch p := features[mid].tag; {
		case tag < p:
			high = mid
		case tag > p:
			low = mid + 1
		default:
			return &features[mid]
		}
	}
	return nil
}

// lookupMap is one compiled GSUB/GPOS lookup: which mask bits gate it and
// how it should be applied (joiner-skipping, alternate randomization,
// syllable confinement).
type lookupMap struct {
	index       uint16
	autoZWNJ    bool
	autoZWJ     bool
	random      bool
	perSyllable bool
	featureTag  ot.Tag
	mask        GlyphMask
}

type stageMap struct {
	pauseFunc  pauseFunc
	lastLookup int
}

// otMap is the compiled plan substitute/position replay against every
// buffer sharing this (script, language, direction): per-table lookup
// lists, their stage boundaries, and the mask each feature claimed.
type otMap struct {
	lookups      [2][]lookupMap
	stages       [2][]stageMap
	features     []featureMap // kept sorted by tag for bsearchFeature
	chosenScript [2]tables.Tag
	globalMask   GlyphMask
	foundScript  [2]bool

	applyContext otApplyContext
}

func (m *otMap) needsFallback(featureTag tables.Tag) bool {
	if fm := bsearchFeature(m.features, featureTag); fm != nil {
		return fm.needsFallback
	}
	return false
}

func (m *otMap) getMask(featureTag tables.Tag) (GlyphMask, int) {
	if fm := bsearchFeature(m.features, featureTag); fm != nil {
		return fm.mask, fm.shift
	}
	return 0, 0
}

func (m *otMap) getMask1(featureTag tables.Tag) GlyphMask {
	if fm := bsearchFeature(m.features, featureTag); fm != nil {
		return fm.mask1
	}
	return 0
}

func (m *otMap) getFeatureIndex(tableIndex int, featureTag tables.Tag) uint16 {
	if fm := bsearchFeature(m.features, featureTag); fm != nil {
		return fm.index[tableIndex]
	}
	return NoFeatureIndex
}

func (m *otMap) getFeatureStage(tableIndex int, featureTag tables.Tag) int {
	if fm := bsearchFeature(m.features, featureTag); fm != nil {
		return fm.stage[tableIndex]
	}
	return math.MaxInt32
}

func (m *otMap) getStageLookups(tableIndex, stage int) []lookupMap {
	if stage > len(m.stages[tableIndex]) {
		return nil
	}
	start, end := 0, len(m.lookups[tableIndex])
	if stage != 0 {
		start = m.stages[tableIndex][stage-1].lastLookup
	}
	if stage < len(m.stages[tableIndex]) {
		end = m.stages[tableIndex][stage].lastLookup
	}
	return m.lookups[tableIndex][start:end]
}

func (m *otMap) addLookups(layout *font.Layout, tableIndex int, featureIndex uint16, variationsIndex int,
	mask GlyphMask, autoZwnj, autoZwj, random, perSyllable bool, featureTag ot.Tag,
) {
	for _, lookupInd := range getFeatureLookupsWithVar(layout, featureIndex, variationsIndex) {
		m.lookups[tableIndex] = append(m.lookups[tableIndex], lookupMap{
			mask:        mask,
			index:       lookupInd,
			autoZWNJ:    autoZwnj,
			autoZWJ:     autoZwj,
			random:      random,
			perSyllable: perSyllable,
			featureTag:  featureTag,
		})
	}
}

// substitute runs the compiled GSUB half of the plan over buffer.
func (m *otMap) substitute(plan *otShapePlan, font *Font, buffer *Buffer) {
	if debugMode {
		fmt.Println("SUBSTITUTE - start table GSUB")
	}
	m.apply(otProxy{otProxyMeta: proxyGSUB, accels: font.gsubAccels}, plan, font, buffer)
	if debugMode {
		fmt.Println("SUBSTITUTE - end table GSUB")
	}
}

// position runs the compiled GPOS half of the plan over buffer.
func (m *otMap) position(plan *otShapePlan, font *Font, buffer *Buffer) {
	if debugMode {
		fmt.Println("POSITION - start table GPOS")
	}
	m.apply(otProxy{otProxyMeta: proxyGPOS, accels: font.gposAccels}, plan, font, buffer)
	if debugMode {
		fmt.Println("POSITION - end table GPOS")
	}
}

func (m *otMap) apply(proxy otProxy, plan *otShapePlan, font *Font, buffer *Buffer) {
	tableIndex := proxy.tableIndex
	lookupPos := 0
	c := &m.applyContext

	c.reset(tableIndex, font, buffer)
	c.recurseFunc = proxy.recurseFunc

	for stageI, stage := range m.stages[tableIndex] {
		if debugMode {
			fmt.Printf("\tAPPLY - stage %d\n", stageI)
		}

		for ; lookupPos < stage.lastLookup; lookupPos++ {
			lookup := m.lookups[tableIndex][lookupPos]

			if debugMode {
				fmt.Printf("\t\tLookup %d start\n", lookup.index)
			}

			// Skip the lookup entirely when its coverage digest can't
			// possibly overlap what's currently in the buffer.
			accel := &proxy.accels[lookup.index]
			if accel.digest.mayHaveDigest(c.digest) {
				c.lookupIndex = lookup.index
				c.lookupMask = lookup.mask
				c.autoZWJ = lookup.autoZWJ
				c.autoZWNJ = lookup.autoZWNJ
				c.random = lookup.random
				c.perSyllable = lookup.perSyllable

				if len(c.buffer.Info) > c.buffer.maxLen {
					return // pathological growth guard
				}
				c.applyString(proxy.otProxyMeta, accel)
			}

			if debugMode {
				fmt.Print("\t\tLookup end : ")
				if proxy.tableIndex == 0 {
					fmt.Println(c.buffer.Info)
				} else {
					fmt.Println(c.buffer.Pos)
				}
			}
		}

		if stage.pauseFunc != nil {
			if debugMode {
				fmt.Println("\t\tExecuting pause function")
			}
			if stage.pauseFunc(plan, font, buffer) {
				c.digest = buffer.digest() // buffer changed, refresh the digest
			}
		}
	}
}
