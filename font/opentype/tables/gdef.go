package tables

// MarkGlyphSets is GDEF's list of mark-filtering sets, each a Coverage
// naming the marks a lookup with UseMarkFilteringSet should pay attention
// to (spec §3 glossary, LookupUseMarkFilteringSet).
type MarkGlyphSets struct {
	Coverages []Coverage
}

// GDEF is the Glyph Definition table: glyph classification and mark
// attachment classification shared by every GSUB/GPOS lookup, plus the
// shared ItemVariationStore HVAR/MVAR/GDEF device records resolve against.
type GDEF struct {
	GlyphClassDef      ClassDef // nil if the font carries no GDEF glyph classification
	MarkAttachClassDef ClassDef
	MarkGlyphSetsDef   MarkGlyphSets
	ItemVarStore       ItemVarStore
}

// GlyphProps packs g's GDEF glyph class (GPBaseGlyph/GPLigature/GPMark/
// GPComponent) together with its mark-attachment class in the high byte,
// the single uint16 the engine threads through lookup-flag matching.
func (gd GDEF) GlyphProps(g GID) uint16 {
	var class uint16
	if gd.GlyphClassDef != nil {
		class, _ = gd.GlyphClassDef.Class(g)
	}
	var props uint16
	switch class {
	case 1:
		props = GPBaseGlyph
	case 2:
		props = GPLigature
	case 3:
		props = GPMark
	case 4:
		props = GPComponent
	}
	if props == GPMark && gd.MarkAttachClassDef != nil {
		attachClass, _ := gd.MarkAttachClassDef.Class(g)
		props |= attachClass << 8
	}
	return props
}
