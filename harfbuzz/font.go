package harfbuzz

import (
	"github.com/textshape/complexshape/font"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// ported in spirit from harfbuzz/src/hb-font.cc: the per-shaping-call view
// of a font for one point size and variation instance (spec §4.8).
// Positions stay in font units: the emScale helpers return their input
// unchanged.

// Face embeds the already-parsed layout/AAT data and adds the upem/scale
// bookkeeping the shaping engine threads through every position
// computation. Embedding *font.Font anonymously promotes GSUB/GPOS/GDEF/
// Kern/Kerx/Morx/Ankr/Trak so callers write face.GSUB instead of
// face.Font.GSUB, while face.Font still reaches the embedded pointer
// itself where a whole *font.Font value is needed (e.g. building a map
// builder).
type Face struct {
	*font.Font
}

func (f Face) Ppem() (x, y uint16) { return 0, 0 }

func (f Face) NominalGlyph(ch rune) (GID, bool) {
	if f.Font == nil || f.Face == nil {
		return 0, false
	}
	return f.Face.NominalGlyph(ch)
}

// Font is the per-call shaping context built from a Face: the upem scale
// factor, requested point size, and variation coordinates are all fixed
// for the duration of one Shape call.
type Font struct {
	face Face

	xScale, yScale int32 // upem -> requested-size scale, Q16.16-free: plain integer font units per em here
	ptem           float32
	coords         []tables.Coord

	// gsubAccels and gposAccels hold one digest-accelerated wrapper per
	// Lookup of the face's GSUB/GPOS tables, built once per Font so every
	// otMap.apply call reuses the same coverage digests instead of
	// rebuilding them per lookup application.
	gsubAccels []otLayoutLookupAccelerator
	gposAccels []otLayoutLookupAccelerator
}

// NewFont builds a shaping-time Font from already-parsed tables plus the
// instance's point size and normalized variation coordinates.
func NewFont(f *font.Font, ptem float32, coords []tables.Coord) *Font {
	upem := int32(1000)
	if f != nil && f.Face != nil {
		if u := f.Face.Upem(); u != 0 {
			upem = u
		}
	}
	fnt := &Font{face: Face{Font: f}, xScale: upem, yScale: upem, ptem: ptem, coords: coords}
	if f != nil {
		fnt.gsubAccels = make([]otLayoutLookupAccelerator, len(f.GSUB.Lookups))
		for i, lookup := range f.GSUB.Lookups {
			fnt.gsubAccels[i].init(lookupGSUB(lookup))
		}
		fnt.gposAccels = make([]otLayoutLookupAccelerator, len(f.GPOS.Lookups))
		for i, lookup := range f.GPOS.Lookups {
			fnt.gposAccels[i].init(lookupGPOS(lookup))
		}
	}
	return fnt
}

// Ptem is the font's requested point size, used by AAT tracking (trak) to
// pick a track-size bracket; 0 means "not set", disabling tracking.
func (fnt *Font) Ptem() float32 { return fnt.ptem }

func (fnt *Font) varCoords() []tables.Coord { return fnt.coords }

func (fnt *Font) emScaleX(v int16) int32 { return int32(v) }
func (fnt *Font) emScaleY(v int16) int32 { return int32(v) }

func (fnt *Font) emFscaleX(v float32) int32 { return int32(v) }
func (fnt *Font) emFscaleY(v float32) int32 { return int32(v) }

func (fnt *Font) emScalefX(v float32) int32 { return int32(v) }
func (fnt *Font) emScalefY(v float32) int32 { return int32(v) }

func (fnt *Font) hasGlyph(ch rune) bool {
	_, ok := fnt.face.NominalGlyph(ch)
	return ok
}

func (fnt *Font) GlyphHAdvance(g GID) int32 {
	if fnt.face.Font == nil || fnt.face.Face == nil {
		return 0
	}
	return int32(fnt.face.Face.HorizontalAdvance(g))
}

func (fnt *Font) getGlyphVAdvance(g GID) int32 {
	if fnt.face.Font == nil || fnt.face.Face == nil {
		return 0
	}
	return int32(fnt.face.Face.VerticalAdvance(g))
}

func (fnt *Font) subtractGlyphHOrigin(g GID, x, y int32) (int32, int32) {
	if fnt.face.Font != nil && fnt.face.Face != nil {
		if ox, oy, ok := fnt.face.Face.GlyphHOrigin(g); ok {
			return x - int32(ox), y - int32(oy)
		}
	}
	return x, y
}

func (fnt *Font) addGlyphHOrigin(g GID, x, y int32) (int32, int32) {
	if fnt.face.Font != nil && fnt.face.Face != nil {
		if ox, oy, ok := fnt.face.Face.GlyphHOrigin(g); ok {
			return x + int32(ox), y + int32(oy)
		}
	}
	return x, y
}

func (fnt *Font) subtractGlyphVOrigin(g GID, x, y int32) (int32, int32) {
	if fnt.face.Font != nil && fnt.face.Face != nil {
		if ox, oy, ok := fnt.face.Face.GlyphVOrigin(g); ok {
			return x - int32(ox), y - int32(oy)
		}
	}
	return x, y
}

func (fnt *Font) getXDelta(varStore *tables.ItemVarStore, d *tables.DeviceOrVariation) int32 {
	if d == nil {
		return 0
	}
	if d.IsVariation {
		if varStore == nil {
			return 0
		}
		return int32(varStore.GetDelta(d.OuterIndex, d.InnerIndex, fnt.coords))
	}
	if d.Device == nil {
		return 0
	}
	ppemX, _ := fnt.face.Ppem()
	return d.Device.GetDelta(ppemX)
}

func (fnt *Font) getYDelta(varStore *tables.ItemVarStore, d *tables.DeviceOrVariation) int32 {
	if d == nil {
		return 0
	}
	if d.IsVariation {
		if varStore == nil {
			return 0
		}
		return int32(varStore.GetDelta(d.OuterIndex, d.InnerIndex, fnt.coords))
	}
	if d.Device == nil {
		return 0
	}
	_, ppemY := fnt.face.Ppem()
	return d.Device.GetDelta(ppemY)
}

func (fnt *Font) getGlyphContourPointForOrigin(g GID, pointIndex uint16, dir Direction) (int32, int32, bool) {
	if fnt.face.Font == nil || fnt.face.Face == nil {
		return 0, 0, false
	}
	x, y, ok := fnt.face.Face.GlyphContourPoint(g, pointIndex)
	if !ok {
		return 0, 0, false
	}
	return int32(x), int32(y), true
}
