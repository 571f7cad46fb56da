package harfbuzz

// ported in spirit from harfbuzz/src/hb-ot-shape-normalize.cc: the
// decompose/reorder/recompose pass that runs between preprocessText and
// substitution so GSUB sees whatever normalization form its rules expect.

// maxCombiningMarks bounds how long a run of stacked marks reorderMarksRange
// will sort, so a pathological input (hundreds of combining marks on one
// base) costs linear instead of quadratic time; such runs are already
// undefined rendering territory, so leaving them in input order is fine.
const maxCombiningMarks = 32

// otNormalizeContext is threaded through to otComplexShaper.decompose/compose
// so a shaper's override can consult the plan or font; the Hebrew shaper's
// compose reads plan.hasGposMark, and the other shapers ignore it.
type otNormalizeContext struct {
	plan   *otShapePlan
	buffer *Buffer
	font   *Font
}

// otShapeNormalize runs the three-phase Unicode normalization shape() calls
// before layoutSubstituteStart: decompose to the form the shaper prefers,
// reorder combining marks into Unicode canonical order within each cluster,
// then (for composed-diacritics modes) recompose whatever the font can
// render as a single glyph.
func otShapeNormalize(plan *otShapePlan, buffer *Buffer, font *Font) {
	if len(buffer.Info) == 0 {
		return
	}

	mode := plan.shaper.normalizationPreference()
	if mode == nmDefault {
		mode = nmAuto
	}

	c := otNormalizeContext{plan: plan, buffer: buffer, font: font}

	if mode != nmNone {
		alwaysDecompose := mode == nmDecomposed || mode == nmComposedDiacriticsNoShortCircuit
		decomposeBuffer(&c, alwaysDecompose)
	}

	reorderMarksRange(buffer, 0, len(buffer.Info))

	if mode == nmComposedDiacritics || mode == nmComposedDiacriticsNoShortCircuit || mode == nmAuto {
		recomposeBuffer(&c)
	}
}

// decomposeBuffer rebuilds buffer.Info, replacing each input codepoint with
// its canonical decomposition (recursively, base-first) unless the font
// already has a glyph for the composed form and alwaysDecompose is false.
func decomposeBuffer(c *otNormalizeContext, alwaysDecompose bool) {
	info := c.buffer.Info
	out := make([]GlyphInfo, 0, len(info))
	for i := range info {
		decomposeCurrentCharacter(c, info[i], alwaysDecompose, &out)
	}
	c.buffer.Info = out
}

func decomposeCurrentCharacter(c *otNormalizeContext, gi GlyphInfo, alwaysDecompose bool, out *[]GlyphInfo) {
	if !alwaysDecompose && c.font.hasGlyph(gi.codepoint) {
		*out = append(*out, gi)
		return
	}

	a, b, ok := c.plan.shaper.decompose(c, gi.codepoint)
	if !ok {
		*out = append(*out, gi)
		return
	}

	base := gi
	base.codepoint = a
	base.setUnicodeProps(c.buffer)
	decomposeCurrentCharacter(c, base, alwaysDecompose, out)

	if b != 0 {
		mark := gi
		mark.codepoint = b
		mark.setUnicodeProps(c.buffer)
		*out = append(*out, mark)
	}
}

// reorderMarksRange stable-sorts every maximal run of combining marks that
// share a cluster, by their (modified) canonical combining class, within
// [start, end).
func reorderMarksRange(buffer *Buffer, start, end int) {
	info := buffer.Info
	for i := start; i < end; {
		if !info[i].isUnicodeMark() {
			i++
			continue
		}
		j := i + 1
		for j < end && info[j].isUnicodeMark() && info[j].Cluster == info[i].Cluster {
			j++
		}
		if j-i > 1 && j-i <= maxCombiningMarks {
			sortMarksByCombiningClass(info[i:j])
		}
		i = j
	}
}

// sortMarksByCombiningClass runs a stable insertion sort: the runs this
// engine ever sorts are short (bounded by maxCombiningMarks), so the O(n^2)
// worst case costs nothing in practice and the sort is trivially stable,
// which a canonical-order reorder depends on.
func sortMarksByCombiningClass(marks []GlyphInfo) {
	for i := 1; i < len(marks); i++ {
		for j := i; j > 0 && marks[j-1].getModifiedCombiningClass() > marks[j].getModifiedCombiningClass(); j-- {
			marks[j-1], marks[j] = marks[j], marks[j-1]
		}
	}
}

// recomposeBuffer walks the decomposed, reordered buffer left to right,
// folding each mark back onto its preceding starter through the shaper's
// compose override whenever Unicode doesn't block it (an intervening mark
// with combining class >= the candidate's) and the font can render the
// composed codepoint as a single glyph.
func recomposeBuffer(c *otNormalizeContext) {
	info := c.buffer.Info
	if len(info) == 0 {
		return
	}

	out := []GlyphInfo{info[0]}
	starter := 0
	maxClass := -1
	if info[0].isUnicodeMark() {
		maxClass = int(info[0].getModifiedCombiningClass())
	}

	for i := 1; i < len(info); i++ {
		cur := info[i]
		curClass := int(cur.getModifiedCombiningClass())
		blocked := cur.isUnicodeMark() && maxClass != -1 && maxClass >= curClass
		sameCluster := out[starter].Cluster == cur.Cluster

		if !blocked && sameCluster {
			if ab, ok := c.plan.shaper.compose(c, out[starter].codepoint, cur.codepoint); ok && c.font.hasGlyph(ab) {
				out[starter].codepoint = ab
				out[starter].setUnicodeProps(c.buffer)
				maxClass = -1
				continue
			}
		}

		out = append(out, cur)
		if !cur.isUnicodeMark() {
			starter = len(out) - 1
			maxClass = -1
		} else if curClass > maxClass {
			maxClass = curClass
		}
	}

	c.buffer.Info = out
}
