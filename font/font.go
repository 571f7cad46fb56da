// Package font is the shaping engine's view of one already-parsed font: the
// resolved GSUB/GPOS layout tables, GDEF, and the AAT fallback tables
// (morx/kerx/ankr/trak), plus the handful of metric queries shaping needs
// (spec §1, §6). Binary font parsing lives outside this module; callers
// construct a Font from a real sfnt reader, a test fixture, or a synthetic
// font.
package font

import (
	"github.com/textshape/complexshape/font/opentype/tables"
)

// Tag re-exports tables.Tag at the font-package boundary, since this is the
// type the public Face interface and feature APIs are expressed in.
type Tag = tables.Tag

// UseMarkFilteringSet mirrors tables.UseMarkFilteringSet; engine code that
// already imports font for Font/Layout doesn't need a second import of
// tables just for this one flag-test constant.
const UseMarkFilteringSet = tables.UseMarkFilteringSet

// NoFeatureIndex marks an absent feature/script/language index throughout
// Layout lookups.
const NoFeatureIndex uint16 = 0xFFFF

// NoScriptIndex and NoLangSysIndex share the same sentinel; kept as
// separate names where the call site reads better that way.
const (
	NoScriptIndex  uint16 = 0xFFFF
	NoLangSysIndex uint16 = 0xFFFF
)

// LangSys is one script's default or named-language feature list.
type LangSys struct {
	RequiredFeatureIndex uint16 // NoFeatureIndex if the script/language names no required feature
	FeatureIndices       []uint16
}

// LangSysRecord pairs a LangSys with the four-letter tag that selects it.
type LangSysRecord struct {
	Tag     Tag
	LangSys LangSys
}

// ScriptRecord is one Script table: its own default LangSys plus every
// explicitly named language system.
type ScriptRecord struct {
	Tag            Tag
	DefaultLangSys LangSys
	HasDefault     bool
	Langs          []LangSysRecord
}

// FeatureRecord is one Feature table: its tag and the lookups it turns on.
// FeatureVariations overrides are kept in Layout.Variations, not here.
type FeatureRecord struct {
	Tag     Tag
	Lookups []uint16
}

// FeatureVariationRecord substitutes a different feature list when the
// active variation coordinates satisfy its condition set; resolved once per
// Font instantiation down to a single chosen FeatureRecord set per
// (featureIndex, variationsIndex), so the engine itself never evaluates
// conditions.
type FeatureVariationRecord struct {
	SubstitutedFeatures map[uint16]FeatureRecord // featureIndex -> override
}

// Layout is one of GSUB or GPOS: its scripts, its features, and the
// FeatureVariations substitutions keyed by the variations index the caller
// resolved from the font's fvar coordinates.
type Layout struct {
	Scripts    []ScriptRecord
	Features   []FeatureRecord
	Variations []FeatureVariationRecord
}

// FindScript returns the index of the ScriptRecord tagged tag, or
// (NoScriptIndex, false).
func (l *Layout) FindScript(tag Tag) (uint16, bool) {
	for i, s := range l.Scripts {
		if s.Tag == tag {
			return uint16(i), true
		}
	}
	return NoScriptIndex, false
}

// FindLangSys returns the language-system index within script scriptIndex
// tagged tag, or (NoLangSysIndex, false).
func (l *Layout) FindLangSys(scriptIndex uint16, tag Tag) (uint16, bool) {
	if int(scriptIndex) >= len(l.Scripts) {
		return NoLangSysIndex, false
	}
	for i, ls := range l.Scripts[scriptIndex].Langs {
		if ls.Tag == tag {
			return uint16(i), true
		}
	}
	return NoLangSysIndex, false
}

// GetLangSys returns the LangSys at langSysIndex within scriptIndex, or the
// script's default LangSys when langSysIndex is NoLangSysIndex.
func (l *Layout) GetLangSys(scriptIndex, langSysIndex uint16) LangSys {
	if int(scriptIndex) >= len(l.Scripts) {
		return LangSys{RequiredFeatureIndex: NoFeatureIndex}
	}
	script := l.Scripts[scriptIndex]
	if langSysIndex == NoLangSysIndex {
		if script.HasDefault {
			return script.DefaultLangSys
		}
		return LangSys{RequiredFeatureIndex: NoFeatureIndex}
	}
	if int(langSysIndex) >= len(script.Langs) {
		return LangSys{RequiredFeatureIndex: NoFeatureIndex}
	}
	return script.Langs[langSysIndex].LangSys
}

// FindFeatureIndex returns the index of the FeatureRecord tagged tag, or
// (NoFeatureIndex, false).
func (l *Layout) FindFeatureIndex(tag Tag) (uint16, bool) {
	for i, f := range l.Features {
		if f.Tag == tag {
			return uint16(i), true
		}
	}
	return NoFeatureIndex, false
}

// FeatureTag returns the tag of the feature at index, or 0 when index is out
// of range. The tag is always read from Features; variationsIndex is not
// consulted.
func (l *Layout) FeatureTag(index uint16, variationsIndex int) Tag {
	if int(index) >= len(l.Features) {
		return 0
	}
	return l.Features[index].Tag
}

// FeatureLookups returns the lookup indices a feature turns on, resolved
// through the FeatureVariations substitution for variationsIndex when one
// applies (spec §4.8's variable-font scope: static coordinates resolved
// once at Font build time, not reevaluated per call).
func (l *Layout) FeatureLookups(index uint16, variationsIndex int) []uint16 {
	if variationsIndex >= 0 && variationsIndex < len(l.Variations) {
		if f, ok := l.Variations[variationsIndex].SubstitutedFeatures[index]; ok {
			return f.Lookups
		}
	}
	if int(index) >= len(l.Features) {
		return nil
	}
	return l.Features[index].Lookups
}

// LookupOptions is the flag/mark-filtering-set pair every GSUB/GPOS Lookup
// table carries ahead of its subtable list.
type LookupOptions struct {
	LookupFlag       tables.LookupFlag
	MarkFilteringSet uint16
}

// Props packs LookupFlag and MarkFilteringSet into the single uint32 the
// engine threads through lookup-flag matching: low 16 bits the flag word,
// high 16 bits the mark-filtering-set index.
func (o LookupOptions) Props() uint32 {
	return uint32(o.LookupFlag) | uint32(o.MarkFilteringSet)<<16
}

// GPOSLookup is one whole GPOS Lookup table: its flag/mark-filtering-set
// properties and its ordered subtables.
type GPOSLookup struct {
	LookupOptions
	Subtables []tables.GPOSLookup
}

// GSUBLookup is one whole GSUB Lookup table, mirroring GPOSLookup.
type GSUBLookup struct {
	LookupOptions
	Subtables []tables.GSUBLookup
}

// GSUB and GPOS bundle a Layout with its resolved whole-Lookup list, in the
// order the LookupList named them.
type GSUB struct {
	Layout  Layout
	Lookups []GSUBLookup
}

type GPOS struct {
	Layout  Layout
	Lookups []GPOSLookup
}

// FindVariationIndex always returns -1, meaning "no FeatureVariations
// substitution": condition sets are not evaluated against coords, so
// feature lookups resolve to the default Features list.
func (g GSUB) FindVariationIndex(coords []tables.Coord) int { return findVariationIndex(g.Layout, coords) }
func (g GPOS) FindVariationIndex(coords []tables.Coord) int { return findVariationIndex(g.Layout, coords) }

func findVariationIndex(l Layout, coords []tables.Coord) int {
	if len(l.Variations) == 0 {
		return -1
	}
	// Condition sets are not evaluated here and coords is unused, so even a
	// Layout that carries Variations gets no substitution.
	return -1
}

// FaceData is the glyph/metric query surface the shaping engine needs from
// a font, implemented by whatever font-loading library the caller uses;
// binary font parsing itself stays outside this module (spec §1, §6).
type FaceData interface {
	Upem() int32
	NominalGlyph(ch rune) (tables.GID, bool)
	VariationGlyph(ch, varSelector rune) (tables.GID, bool)
	HorizontalAdvance(gid tables.GID) float32
	VerticalAdvance(gid tables.GID) float32
	GlyphHOrigin(gid tables.GID) (x, y float32, ok bool)
	GlyphVOrigin(gid tables.GID) (x, y float32, ok bool)
	GlyphContourPoint(gid tables.GID, pointIndex uint16) (x, y float32, ok bool)
	GlyphName(gid tables.GID) (string, bool)
}

// KernSubtable and the KernN payload types it carries in its Data field are
// re-exported from tables under the package shaping code already imports
// under the "font" name, so a type switch on st.Data reads font.KernN
// instead of mixing in a second package alias just for this one table.
type KernSubtable = tables.KernSubtable
type Kern0 = tables.Kern0
type Kern1 = tables.Kern1
type Kern2 = tables.Kern2
type Kern3 = tables.Kern3
type Kern4 = tables.Kern4
type Kern6 = tables.Kern6

// Kernx is the resolved list of subtables of a legacy kern or AAT kerx
// table: flat, in table order, so callers range over it directly instead of
// reaching through a Subtables field.
type Kernx []KernSubtable

// Font is the per-font-instance view the shaper operates over: layout
// tables, GDEF, every AAT fallback table, and the glyph/metrics FaceData
// powering them.
type Font struct {
	Face FaceData

	GSUB GSUB
	GPOS GPOS
	GDEF tables.GDEF

	Kern Kernx
	Kerx Kernx
	Morx []MorxChain
	Ankr tables.Ankr
	Trak tables.Trak
}

// MorxChain is one chain of the morx table: a feature-selected set of
// subtables sharing a default flag mask.
type MorxChain struct {
	DefaultFlags uint32
	Subtables    []MorxSubtable
}

// MorxSubtable is one subtable of a morx chain: its coverage/flags word and
// its concrete state-machine payload.
type MorxSubtable struct {
	Coverage uint32
	Flags    uint32
	Data     interface{} // MorxRearrangementSubtable | MorxContextualSubtable | MorxLigatureSubtable | MorxInsertionSubtable | MorxNonContextualSubtable
}

// AATStateTable is the generic AAT state machine shape, convertible
// directly to/from MorxRearrangementSubtable since rearrangement carries no
// extra payload beyond the machine itself.
type AATStateTable tables.AATStateTable

func (t AATStateTable) GetClass(g tables.GID) uint16           { return tables.AATStateTable(t).GetClass(g) }
func (t AATStateTable) GetEntry(state, class uint16) tables.AATStateEntry {
	return tables.AATStateTable(t).GetEntry(state, class)
}

// MorxRearrangementSubtable is morx subtable type 0: reorders short runs of
// glyphs (used for orthographic reordering, e.g. Thai/Lao-style
// pre-base-vowel swaps in legacy AAT fonts), identical in shape to a plain
// AATStateTable.
type MorxRearrangementSubtable tables.AATStateTable

// MorxContextualSubtable is morx subtable type 1: state-driven substitution
// where the replacement for the current and/or marked glyph is looked up
// per state-table entry.
type MorxContextualSubtable struct {
	Machine      AATStateTable
	Substitutions [][2]tables.GID // per entry index: [markSubstitute, currentSubstitute], NotCovered-sentinel glyph 0xFFFF meaning "no substitution"
}

// MorxLigatureSubtable is morx subtable type 2: an AAT ligature state
// machine, the AAT analogue of GSUB's LigatureSubst.
type MorxLigatureSubtable struct {
	Machine     AATStateTable
	Components  []uint16
	Ligatures   []tables.GID
}

// MorxInsertionSubtable is morx subtable type 5: inserts glyphs before
// and/or after the current glyph, driven by the same state machine shape.
type MorxInsertionSubtable struct {
	Machine    AATStateTable
	Insertions []tables.GID
}

// MorxNonContextualSubtable is morx subtable type 4: a flat glyph-to-glyph
// substitution lookup applied once per glyph with no state tracking.
type MorxNonContextualSubtable struct {
	Substitution map[tables.GID]tables.GID
}

// AATFeatureMapping names one AAT feature/selector pair's equivalent
// OpenType feature tag, letting the shaper request AAT features through
// the same feature-tag vocabulary it uses for GSUB/GPOS (spec §2's "AAT as
// a GSUB/GPOS fallback" framing).
type AATFeatureMapping struct {
	AATFeatureType, SelectorToEnable, SelectorToDisable uint16
	OTFeatureTag                                        Tag
}
