// Package shaping is the public, ergonomic entry point over the harfbuzz
// engine: it hides Buffer/ShapePlan bookkeeping behind an Input/Output pair
// a layout client can call without reaching into the engine package at all.
package shaping

import (
	"github.com/textshape/complexshape/font"
	"github.com/textshape/complexshape/font/opentype/tables"
	"github.com/textshape/complexshape/harfbuzz"
	"github.com/textshape/complexshape/language"
)

// Input is the text run a caller asks Shape to lay out: its runes plus the
// script/language/direction it should be shaped as. Automatic script or
// direction detection is out of scope for this package (callers needing it
// can call harfbuzz.Buffer.GuessSegmentProperties themselves and build an
// Input from the result).
type Input struct {
	Text      []rune
	Direction harfbuzz.Direction
	Script    language.Script
	Language  language.Language
	Features  []harfbuzz.Feature
}

// Glyph is one shaped output glyph: its id, the index into Input.Text it
// came from, and its advance/offset, all in font units.
type Glyph struct {
	GlyphID            tables.GID
	Cluster            int
	XAdvance, YAdvance int32
	XOffset, YOffset   int32
}

// Output is the full shaped result of one Input run, in final (already
// direction-corrected) glyph order.
type Output struct {
	Glyphs []Glyph
}

// Shaper wraps a parsed font and a shape-plan cache, so repeated Shape
// calls against the same face reuse their compiled feature map instead of
// recompiling it on every call.
type Shaper struct {
	parsed *font.Font
	font   *harfbuzz.Font
	cache  *harfbuzz.ShapePlanCache
}

// defaultPlanCacheSize bounds how many distinct (script, language,
// direction) plans a Shaper keeps compiled at once; a single document
// rarely mixes more scripts than this within one face.
const defaultPlanCacheSize = 16

// NewShaper builds a Shaper over an already-parsed font, with no variation
// instance selected (a static font, or a variable font's default instance).
func NewShaper(parsed *font.Font) *Shaper {
	return &Shaper{
		parsed: parsed,
		font:   harfbuzz.NewFont(parsed, 0, nil),
		cache:  harfbuzz.NewShapePlanCache(defaultPlanCacheSize),
	}
}

// Shape lays out input against s's font and returns its glyphs.
func (s *Shaper) Shape(input Input) Output {
	buffer := harfbuzz.NewBuffer()
	buffer.Props = harfbuzz.SegmentProperties{
		Direction: input.Direction,
		Script:    input.Script,
		Language:  input.Language,
	}
	buffer.AddRunes(input.Text, 0)

	s.cache.Shape(s.parsed, s.font, buffer, input.Features, nil)

	glyphs := make([]Glyph, len(buffer.Info))
	for i, inf := range buffer.Info {
		pos := buffer.Pos[i]
		glyphs[i] = Glyph{
			GlyphID:  inf.Glyph,
			Cluster:  inf.Cluster,
			XAdvance: pos.XAdvance,
			YAdvance: pos.YAdvance,
			XOffset:  pos.XOffset,
			YOffset:  pos.YOffset,
		}
	}
	return Output{Glyphs: glyphs}
}
