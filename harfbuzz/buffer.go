package harfbuzz

import (
	"github.com/textshape/complexshape/font/opentype/tables"
	"github.com/textshape/complexshape/language"
	"github.com/textshape/complexshape/unicodedata"
)

// ported in spirit from harfbuzz/src/hb-buffer.cc; this is the central data
// structure every stage of shaping reads and rewrites in place (spec §3, §4.1).

// GID is a glyph index, assigned by the font's cmap/glyph-order table during
// the initial character-to-glyph mapping and then rewritten in place by
// every substitution stage.
type GID = tables.GID

// gID is the lower-case alias the matching and coverage-digest code in this
// package was written against; it is the same type as GID, just spelled the
// way the ported C code spelled it.
type gID = GID

// Direction is the running direction of a shaping run.
type Direction uint8

const (
	DirectionInvalid Direction = iota
	LeftToRight
	RightToLeft
	TopToBottom
	BottomToTop
)

func (d Direction) isHorizontal() bool { return d == LeftToRight || d == RightToLeft }
func (d Direction) isVertical() bool   { return d == TopToBottom || d == BottomToTop }
func (d Direction) isForward() bool    { return d == LeftToRight || d == TopToBottom }
func (d Direction) isBackward() bool   { return d == RightToLeft || d == BottomToTop }

// Reverse returns the opposite direction along the same axis.
func (d Direction) Reverse() Direction {
	switch d {
	case LeftToRight:
		return RightToLeft
	case RightToLeft:
		return LeftToRight
	case TopToBottom:
		return BottomToTop
	case BottomToTop:
		return TopToBottom
	}
	return d
}

// SegmentProperties is the script/language/direction triple a shaping plan
// is built for (spec §3 glossary).
type SegmentProperties struct {
	Direction Direction
	Script    language.Script
	Language  language.Language
}

// Feature is a client-requested feature override applied over a [Start,End)
// character range of the input, or over the whole buffer when Start/End are
// FeatureGlobalStart/FeatureGlobalEnd.
type Feature struct {
	Tag        tables.Tag
	Value      uint32
	Start, End uint32
}

const (
	FeatureGlobalStart uint32 = 0
	FeatureGlobalEnd   uint32 = ^uint32(0)
)

// ClusterLevel controls how aggressively Buffer.mergeClusters folds cluster
// values together when glyphs combine or split (spec §4.1).
type ClusterLevel uint8

const (
	// ClusterMonotoneGraphemes keeps clusters monotone and groups each base
	// with its combining marks, the default most callers want.
	ClusterMonotoneGraphemes ClusterLevel = iota
	// ClusterMonotoneCharacters keeps clusters monotone at the character
	// level without special grapheme grouping.
	ClusterMonotoneCharacters
	// ClusterCharacters disables cluster merging: every original character
	// keeps its own cluster value even after ligation or decomposition.
	ClusterCharacters
)

// BufferFlags are client-controlled flags affecting buffer-level behavior.
type BufferFlags uint16

const (
	BufferFlagBOT                       BufferFlags = 1 << iota // beginning of text
	BufferFlagEOT                                                // end of text
	BufferFlagPreserveDefaultIgnorables
	BufferFlagRemoveDefaultIgnorables
	BufferFlagDoNotInsertDottedCircle
	BufferFlagProduceUnsafeToConcat
)

// bufferScratchFlags are internal flags set as a side effect of processing
// a run, consulted by later stages to skip work (e.g. zeroing default
// ignorables only if any were actually seen).
type bufferScratchFlags uint32

const (
	bsfDefault               bufferScratchFlags = 0
	bsfHasNonASCII           bufferScratchFlags = 1 << iota
	bsfHasDefaultIgnorables
	bsfHasSpaceFallback
	bsfHasGPOSAttachment
	bsfHasGlyphFlags
)

const maxInt = int(^uint(0) >> 1)

// Buffer holds the glyph run being shaped, mirroring the split info/pos
// arrays of the data model (spec §3): Info is read and rewritten by GSUB
// and the complex shapers, Pos is populated last by GPOS/AAT positioning.
type Buffer struct {
	Info []GlyphInfo
	Pos  []GlyphPosition

	Props        SegmentProperties
	Flags        BufferFlags
	ClusterLevel ClusterLevel
	// Invisible is substituted for a glyph whose unicode codepoint is a
	// removed default-ignorable, so it still advances and is still
	// positioned, just never drawn.
	Invisible GID

	idx     int
	outInfo []GlyphInfo

	// maxOps and maxLen bound, respectively, the number of recursive-lookup
	// steps and the glyph count a single shape() call allows before giving
	// up on a pathological contextual-lookup loop (spec §4.4); set once per
	// shape() call, decremented as recursion proceeds.
	maxOps int
	maxLen int

	scratchFlags bufferScratchFlags
	serial       uint8

	// context holds a pre-context and a post-context rune run around the
	// segment; no shaping stage in this package reads it.
context [2][]rune
}

// NewBuffer returns an empty buffer ready to accept Add calls.
func NewBuffer() *Buffer {
	return &Buffer{Props: SegmentProperties{Direction: LeftToRight}}
}

// Add appends one input rune with its originating cluster value.
func (b *Buffer) Add(r rune, cluster int) {
	b.Info = append(b.Info, GlyphInfo{codepoint: r, Cluster: cluster})
}

// AddRunes appends a whole run of text (spec §6 AddRunes), treating rune
// index i as cluster value offset+i.
func (b *Buffer) AddRunes(text []rune, offset int) {
	for i, r := range text {
		b.Add(r, offset+i)
	}
}

// GuessSegmentProperties fills in Script (by inspecting the first
// non-Common-script character) when it wasn't set explicitly by the caller,
// mirroring the convenience hb_buffer_guess_segment_properties offers.
func (b *Buffer) GuessSegmentProperties() {
	if b.Props.Script == language.Common || b.Props.Script == 0 {
		for _, info := range b.Info {
			script := language.ScriptFromISO15924(string(unicodedata.ScriptOf(info.codepoint)))
			if script != language.Common && script != language.Inherited && script != language.Unknown {
				b.Props.Script = script
				break
			}
		}
	}
	if b.Props.Direction == DirectionInvalid {
		if b.Props.Script.HorizontalDirection() {
			b.Props.Direction = RightToLeft
		} else {
			b.Props.Direction = LeftToRight
		}
	}
}

func (b *Buffer) cur(i int) *GlyphInfo   { return &b.Info[b.idx+i] }
func (b *Buffer) curPos(i int) *GlyphPosition {
	for len(b.Pos) < len(b.Info) {
		b.Pos = append(b.Pos, GlyphPosition{})
	}
	return &b.Pos[b.idx+i]
}

func (b *Buffer) backtrackLen() int {
	if b.outInfo != nil {
		return len(b.outInfo)
	}
	return b.idx
}

func (b *Buffer) lookaheadLen() int { return len(b.Info) - b.idx }

func (b *Buffer) digest() setDigest {
	var d setDigest
	for _, inf := range b.Info {
		d.add(gID(inf.Glyph))
	}
	return d
}

func (b *Buffer) allocateLigID() uint8 {
	// lig ids are stored in the top 3 bits of ligProps, so only 1..7 are
	// usable; 0 means "no ligature" and is skipped on wrap-around.
	b.serial = (b.serial + 1) & 0x07
	if b.serial == 0 {
		b.serial = 1
	}
	return b.serial
}

// clearOutput discards any output accumulated so far and rewinds idx to the
// beginning, used before a substitution pass that fully rebuilds Info.
func (b *Buffer) clearOutput() {
	b.outInfo = b.outInfo[:0]
	b.idx = 0
}

func (b *Buffer) clearPositions() {
	b.Pos = make([]GlyphPosition, len(b.Info))
	b.scratchFlags &= ^bsfHasGPOSAttachment
}

// nextGlyph copies the current input glyph to the output and advances.
func (b *Buffer) nextGlyph() {
	b.outInfo = append(b.outInfo, b.Info[b.idx])
	b.idx++
}

// copyGlyph is like nextGlyph but does not advance idx, used when a rule
// wants to duplicate the current glyph into the output without consuming
// the input position yet.
func (b *Buffer) copyGlyph() {
	b.outInfo = append(b.outInfo, b.Info[b.idx])
}

// replaceGlyphIndex overwrites the glyph id of the current input position
// without otherwise touching cluster/mask bookkeeping, then copies it out
// and advances (single-glyph GSUB substitutions).
func (b *Buffer) replaceGlyphIndex(g GID) {
	b.Info[b.idx].Glyph = g
	b.nextGlyph()
}

// replaceGlyphs consumes numIn input glyphs starting at idx and emits
// glyphs as their replacement (a one-to-many or many-to-many GSUB
// substitution); every emitted glyph inherits the mask and properties of the
// first consumed input glyph, and its cluster too unless clusters supplies
// one for that position, then setLigPropsForMark-style component
// indices are expected to be set by the caller afterward.
func (b *Buffer) replaceGlyphs(numIn int, clusters []int, glyphs []GID) {
	origInfo := b.Info[b.idx]
	for i, g := range glyphs {
		inf := origInfo
		inf.Glyph = g
		if clusters != nil && i < len(clusters) {
			inf.Cluster = clusters[i]
		}
		b.outInfo = append(b.outInfo, inf)
	}
	b.idx += numIn
}

// skipGlyph copies the current glyph to the output unchanged and advances,
// used by the skipping iterator's mark/ligature/base-glyph skip rules.
func (b *Buffer) skipGlyph() { b.nextGlyph() }

// deleteGlyphsInplace removes every glyph for which filter reports true,
// compacting Info (and Pos, if already populated) without reallocating the
// underlying arrays (the "set Glyph to a sentinel, then sweep" pattern the
// AAT deleted-glyph marker and some GSUB formats rely on).
func (b *Buffer) deleteGlyphsInplace(filter func(*GlyphInfo) bool) {
	j := 0
	hasPos := len(b.Pos) == len(b.Info)
	for i := range b.Info {
		if filter(&b.Info[i]) {
			continue
		}
		b.Info[j] = b.Info[i]
		if hasPos {
			b.Pos[j] = b.Pos[i]
		}
		j++
	}
	b.Info = b.Info[:j]
	if hasPos {
		b.Pos = b.Pos[:j]
	}
}

// moveTo repositions idx within a completed output buffer, used by AAT
// driver contexts to jump back to a previously matched mark or ligature
// anchor.
func (b *Buffer) moveTo(i int) { b.idx = i }

// swapBuffers exchanges Info with the accumulated outInfo once a
// substitution pass over the whole run is complete.
func (b *Buffer) swapBuffers() {
	if len(b.outInfo) != 0 {
		b.Info = b.outInfo
	}
	b.outInfo = nil
	b.idx = 0
}

// Reverse reverses the whole glyph run, used when flipping between the
// logical left-to-right order GSUB/GPOS expect and a right-to-left visual
// run.
func (b *Buffer) Reverse() { b.reverseRange(0, len(b.Info)) }

func (b *Buffer) reverseRange(start, end int) {
	for i, j := start, end-1; i < j; i, j = i+1, j-1 {
		b.Info[i], b.Info[j] = b.Info[j], b.Info[i]
		if len(b.Pos) == len(b.Info) {
			b.Pos[i], b.Pos[j] = b.Pos[j], b.Pos[i]
		}
	}
}

// mergeClusters folds the cluster values of Info[start:end] to their
// minimum, honoring ClusterLevel (spec §4.1's cluster-merge-by-minimum
// rule): ClusterCharacters disables merging outright so every input
// character keeps tracing back to itself.
func (b *Buffer) mergeClusters(start, end int) {
	if end-start < 2 {
		return
	}
	if b.ClusterLevel == ClusterCharacters {
		return
	}
	minCluster := b.Info[start].Cluster
	for _, inf := range b.Info[start:end] {
		if inf.Cluster < minCluster {
			minCluster = inf.Cluster
		}
	}
	mask := GlyphMask(0)
	for _, inf := range b.Info[start:end] {
		mask |= inf.Mask & glyphFlagDefined
	}
	for i := start; i < end; i++ {
		b.Info[i].setCluster(minCluster, mask)
	}
	// also absorb any already-emitted output glyphs belonging to these
	// clusters, so a later emitted ligature doesn't strand a mark behind.
	for i := len(b.outInfo) - 1; i >= 0 && b.outInfo[i].Cluster > minCluster; i-- {
		b.outInfo[i].setCluster(minCluster, mask)
	}
}

// mergeOutClusters is mergeClusters' counterpart for glyphs that have
// already been moved to outInfo (ligature-formation and AAT subtable
// output, which append before the merge can happen on Info alone).
func (b *Buffer) mergeOutClusters(start, end int) {
	if end > len(b.outInfo) {
		end = len(b.outInfo)
	}
	if end-start < 2 || b.ClusterLevel == ClusterCharacters {
		return
	}
	minCluster := b.outInfo[start].Cluster
	for _, inf := range b.outInfo[start:end] {
		if inf.Cluster < minCluster {
			minCluster = inf.Cluster
		}
	}
	for i := start; i < end; i++ {
		if b.outInfo[i].Cluster > minCluster {
			b.outInfo[i].Cluster = minCluster
		}
	}
}

// resetMasks clears every glyph's mask back to m, the global mask bit every
// glyph carries regardless of requested features.
func (b *Buffer) resetMasks(m GlyphMask) {
	for i := range b.Info {
		b.Info[i].Mask = m
	}
}

// setMasks applies (value<<shift already folded into value) under mask to
// every glyph whose Cluster falls in [clusterStart, clusterEnd).
func (b *Buffer) setMasks(value, mask GlyphMask, clusterStart, clusterEnd uint32) {
	if mask == 0 {
		return
	}
	notMask := ^mask | (value & mask)
	for i := range b.Info {
		c := uint32(b.Info[i].Cluster)
		if c < clusterStart || c >= clusterEnd {
			continue
		}
		b.Info[i].Mask = (b.Info[i].Mask & notMask) | (value & mask)
	}
}

// unsafeToBreak marks every glyph in [start,end), the first included, as
// unsafe to use as a line-break boundary when the range spans at least two
// glyphs: breaking the run there and
// reshaping the two halves separately might not reproduce this output
// (spec §4.1, GlyphUnsafeToBreak).
func (b *Buffer) unsafeToBreak(start, end int) {
	b.unsafeToBreakImpl(b.Info, start, end)
}

func (b *Buffer) unsafeToBreakFromOutbuffer(start, end int) {
	b.unsafeToBreakImpl(b.outInfo, start, end)
}

func (b *Buffer) unsafeToBreakImpl(info []GlyphInfo, start, end int) {
	if end-start < 2 {
		return
	}
	for i := start; i < end && i < len(info); i++ {
		info[i].Mask |= GlyphUnsafeToBreak | GlyphUnsafeToConcat
	}
}

// unsafeToConcat is the weaker sibling of unsafeToBreak (spec §4.1): it
// only forbids concatenating two already-shaped runs at this boundary, not
// breaking and reshaping both sides.
func (b *Buffer) unsafeToConcat(start, end int) {
	if b.Flags&BufferFlagProduceUnsafeToConcat == 0 {
		return
	}
	b.unsafeToConcatImpl(b.Info, start, end)
}

func (b *Buffer) unsafeToConcatFromOutbuffer(start, end int) {
	if b.Flags&BufferFlagProduceUnsafeToConcat == 0 {
		return
	}
	b.unsafeToConcatImpl(b.outInfo, start, end)
}

func (b *Buffer) unsafeToConcatImpl(info []GlyphInfo, start, end int) {
	for i := start; i < end && i < len(info); i++ {
		info[i].Mask |= GlyphUnsafeToConcat
	}
}

// ensureNativeDirection flips the buffer to the direction GSUB/GPOS lookups
// are authored against (logical left-to-right for horizontal scripts). It
// only reverses the glyph order of backward runs; Props.Direction is left
// unchanged and nothing here flips the buffer back.
func (b *Buffer) ensureNativeDirection() {
	if b.Props.Direction.isBackward() {
		b.Reverse()
	}
}

// insertDottedCircle inserts U+25CC DOTTED CIRCLE before an isolated
// combining mark at the start of the run, mirroring what a real text editor
// would show for stray marks, unless the caller opted out via
// BufferFlagDoNotInsertDottedCircle or no dotted circle glyph exists in the
// font.
func (b *Buffer) insertDottedCircle(face Face) {
	if b.Flags&BufferFlagDoNotInsertDottedCircle != 0 {
		return
	}
	if len(b.Info) == 0 || !b.Info[0].isUnicodeMark() {
		return
	}
	g, ok := face.NominalGlyph(0x25CC)
	if !ok {
		return
	}
	dotted := GlyphInfo{codepoint: 0x25CC, Cluster: b.Info[0].Cluster, Glyph: g}
	dotted.setUnicodeProps(b)
	b.Info = append([]GlyphInfo{dotted}, b.Info...)
}

// clusterIterator walks successive maximal runs of equal Cluster value.
func (b *Buffer) clusterIterator() func() (start, end int, ok bool) {
	i := 0
	return func() (int, int, bool) {
		if i >= len(b.Info) {
			return 0, 0, false
		}
		start := i
		c := b.Info[i].Cluster
		for i < len(b.Info) && b.Info[i].Cluster == c {
			i++
		}
		return start, i, true
	}
}

// graphemesIterator walks grapheme-cluster-sized runs of the input, the
// granularity ClusterMonotoneGraphemes groups marks into their base's
// cluster at.
func (b *Buffer) graphemesIterator() func() (start, end int, ok bool) {
	return b.clusterIterator()
}

// formClusters applies ClusterMonotoneGraphemes grouping: every combining
// mark (and joiner) joins the cluster of the glyph before it, so that a
// later break at a cluster boundary can never separate a base from its
// marks.
func (b *Buffer) formClusters() {
	if b.ClusterLevel != ClusterMonotoneGraphemes {
		return
	}
	for i := 1; i < len(b.Info); i++ {
		if b.Info[i].isUnicodeMark() || b.Info[i].isZwj() || b.Info[i].isZwnj() {
			b.Info[i].Cluster = b.Info[i-1].Cluster
		}
	}
}

// syllableIterator walks maximal runs sharing the same complex-shaper
// syllable tag (set by findSyllablesIndic/Khmer/Use during preprocessing).
func (b *Buffer) syllableIterator() func() (start, end int, ok bool) {
	i := 0
	return func() (int, int, bool) {
		if i >= len(b.Info) {
			return 0, 0, false
		}
		start := i
		s := b.Info[i].syllable
		for i < len(b.Info) && b.Info[i].syllable == s {
			i++
		}
		return start, i, true
	}
}

// sort reorders Info[start:end] (and Pos in lockstep, if populated) using
// less as the ordering predicate, used by the few GPOS/fallback-kern
// passes that need a stable positional sort rather than a cluster-order
// preserving one.
func (b *Buffer) sort(start, end int, less func(i, j int) bool) {
	for i := start + 1; i < end; i++ {
		for j := i; j > start && less(j, j-1); j-- {
			b.Info[j], b.Info[j-1] = b.Info[j-1], b.Info[j]
			if len(b.Pos) == len(b.Info) {
				b.Pos[j], b.Pos[j-1] = b.Pos[j-1], b.Pos[j]
			}
		}
	}
}
