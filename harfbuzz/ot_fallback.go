package harfbuzz

import "github.com/textshape/complexshape/font"

// ported in spirit from harfbuzz/src/hb-ot-shape-fallback.cc and the legacy
// kern-table half of hb-ot-layout.cc: the paths a shape plan falls back to
// when the font carries no GPOS (spacing, mark attachment, kerning).

// hasMachineKerning reports whether kern carries a state-table (format 1)
// subtable, the one format a buffer reordering (RTL reversal) would corrupt
// if zeroMarks ran its own independent pass over the same glyphs.
func hasMachineKerning(kern font.Kernx) bool {
	for _, st := range kern {
		if _, ok := st.Data.(font.Kern1); ok {
			return true
		}
	}
	return false
}

// hasCrossKerning reports whether kern carries any cross-stream subtable
// (one that adjusts the perpendicular axis, not the advance), which the
// generic mark-offset-adjustment heuristic in positionComplex must defer to.
func hasCrossKerning(kern font.Kernx) bool {
	for _, st := range kern {
		if st.IsCrossStream() {
			return true
		}
	}
	return false
}

// otLayoutKern applies every subtable of the font's legacy kern table
// through the same state-table/pair/class drivers the AAT kerx path uses:
// kern and kerx share subtable formats, so positionComplex reaches this
// instead of otApplyFallbackKern whenever kern is deemed expressive enough
// (a state table, or cross-stream data the plain kerning loop can't do).
func (sp *otShapePlan) otLayoutKern(fnt *Font, buffer *Buffer) {
	c := newAatApplyContext(sp, fnt, buffer)
	c.applyKernx(fnt.face.Kern)
}

// otApplyFallbackKern is the last-resort kerning path: no GPOS, no kerx, and
// a kern table too plain (or altogether absent) to route through the AAT
// driver for some other reason. It only ever consults kern subtable formats
// 0 and 2, and only their horizontal (non cross-stream, non-vertical,
// non-backwards) variants, adjusting the first glyph of each adjacent pair's
// x-advance and skipping any pair that touches a mark.
func (sp *otShapePlan) otApplyFallbackKern(fnt *Font, buffer *Buffer) {
	if !buffer.Props.Direction.isHorizontal() {
		return
	}
	for _, st := range fnt.face.Kern {
		if !st.IsHorizontal() || st.IsCrossStream() || st.IsBackwards() {
			continue
		}
		switch data := st.Data.(type) {
		case font.Kern0:
			kern(data, false, fnt, buffer, sp.kernMask, true)
		case font.Kern2:
			kern(data, false, fnt, buffer, sp.kernMask, true)
		}
	}
}

// fallbackSpaces assigns an advance width to every Unicode space character
// the font's GPOS/kern left untouched, from the fraction-of-em (or
// reference-glyph) category unicodeSpaceFallbackType classified it as, and
// retargets its glyph to U+0020 or U+00A0 so its outline (usually blank)
// matches whichever the font actually provides.
func fallbackSpaces(fnt *Font, buffer *Buffer) {
	info := buffer.Info
	pos := buffer.Pos
	horizontal := buffer.Props.Direction.isHorizontal()

	for i := range info {
		if !info[i].isUnicodeSpace() || info[i].ligated() {
			continue
		}

		em := fnt.xScale
		var width int32
		switch info[i].getUnicodeSpaceFallbackType() {
		case space_EM:
			width = em
		case space_EM_2:
			width = em / 2
		case space_EM_3:
			width = em / 3
		case space_EM_4:
			width = em / 4
		case space_EM_5:
			width = em / 5
		case space_EM_6:
			width = em / 6
		case space_EM_16:
			width = em / 16
		case space_4_EM_18:
			width = em * 4 / 18
		case spaceFigure:
			width = referenceGlyphWidth(fnt, '0', '9')
		case spacePunctuation:
			width = referenceGlyphWidth(fnt, '.', '.')
		case spaceNarrow:
			// Half a regular space, per Unicode's NARROW NO-BREAK SPACE
			// annotation; no regular-space glyph metric is available here,
			// so approximate from em the same way the EM fractions do.
			width = em / 6
		default:
			continue
		}

		if horizontal {
			pos[i].XAdvance = width
		} else {
			pos[i].YAdvance = -width
		}

		if g, ok := fnt.face.NominalGlyph(0x0020); ok {
			info[i].Glyph = g
		} else if g, ok := fnt.face.NominalGlyph(0x00A0); ok {
			info[i].Glyph = g
		}
	}
}

// referenceGlyphWidth returns the horizontal advance of the first codepoint
// in [lo, hi] the font actually has a glyph for, used to size figure and
// punctuation spaces off the digits/period a font already carries.
func referenceGlyphWidth(fnt *Font, lo, hi rune) int32 {
	for u := lo; u <= hi; u++ {
		if g, ok := fnt.face.NominalGlyph(u); ok {
			return fnt.GlyphHAdvance(g)
		}
	}
	return 0
}

// fallbackMarkPositionRecategorizeMarks runs before substitution, while the
// buffer still holds input codepoints: it stable-sorts every maximal run of
// non-starter (mark) glyphs by Unicode canonical combining class, the same
// reordering reorderMarksRange performs during normalization, so a font with
// no GPOS mark-attachment lookups still stacks multi-mark clusters in
// canonical order before fallbackMarkPosition places them.
func fallbackMarkPositionRecategorizeMarks(buffer *Buffer) {
	reorderMarksRange(buffer, 0, len(buffer.Info))
}

// fallbackMarkPosition places every combining mark glyph that GPOS left at
// its default (advance-width) position, stacking marks over their preceding
// base purely from the raw Unicode combining class, since no GPOS anchor
// data is available to do better. Above marks get a positive y-offset,
// below marks a negative one, and the handful of classes that sit closer to
// the baseline (overlay, nukta, Hebrew points) get a smaller nudge; any
// class outside these ranges is left at its default position.
func fallbackMarkPosition(plan *otShapePlan, fnt *Font, buffer *Buffer, adjustOffsets bool) {
	if !plan.fallbackMarkPositioning {
		return
	}

	info := buffer.Info
	pos := buffer.Pos
	horizontal := buffer.Props.Direction.isHorizontal()
	if !horizontal {
		return
	}

	clusterAdvance := int32(0)
	baseIndex := -1
	for i := range info {
		if !info[i].isMark() {
			baseIndex = i
			clusterAdvance = 0
			continue
		}
		if baseIndex < 0 {
			continue
		}

		ccc := info[i].getModifiedCombiningClass()
		offset := markVerticalOffset(fnt, ccc)
		if offset == 0 {
			clusterAdvance += pos[i].XAdvance
			continue
		}

		pos[i].YOffset += offset
		if adjustOffsets {
			pos[i].XOffset -= clusterAdvance
		}
		pos[i].XAdvance = 0
		clusterAdvance = 0
	}
}

// markVerticalOffset maps a raw Unicode combining class to the y-offset
// fallbackMarkPosition applies, scaled to a quarter and an eighth of em for
// the "far" and "close" mark tiers respectively. Returns 0 for classes this
// fallback leaves alone (the mark keeps its default, unattached position).
func markVerticalOffset(fnt *Font, ccc uint8) int32 {
	far := fnt.xScale / 4
	near := fnt.xScale / 8

	switch {
	case ccc == 230, ccc >= 27 && ccc <= 33: // above, incl. Arabic above marks
		return far
	case ccc == 220, ccc == 202, ccc >= 28 && ccc <= 32: // below, incl. Arabic below marks
		return -far
	case ccc == 1, ccc == 7: // overlay, nukta
		return near
	case ccc >= 10 && ccc <= 22: // Hebrew points
		return near
	default:
		return 0
	}
}
