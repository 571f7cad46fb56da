package harfbuzz

import (
	"github.com/textshape/complexshape/font/opentype/tables"
)

// setDigest is an approximate membership filter over a set of glyph IDs,
// used to skip a lookup's whole subtable quickly when none of its covered
// glyphs can possibly be present in the buffer. It trades false positives
// (mayHave returning true for a glyph that isn't actually covered) for a
// constant, tiny footprint: three word-sized bitmasks, each built from a
// different bit-slice of the glyph ID, rather than a full coverage bitmap
// or hash set.
//
// A glyph run that's tightly clustered (the common case: a lookup applies
// to a handful of nearby glyph IDs) produces masks with few bits set, so
// mayHave rejects almost everything outside that cluster. A run that's
// spread across the whole glyph ID space degrades toward "every query
// returns true", at which point the digest buys nothing — but it also
// never costs correctness, only a wasted lookup attempt.
type setDigest [3]planeMask

// planeMask accumulates one bit-sliced view of a set of glyph IDs: bit n is
// set if any glyph in the set has ((glyphID >> bitShift) & 31) == n.
type planeMask uint32

const planeMaskBits = 8 * 4 // bits in a planeMask

// glyphDigestShifts picks which 5-bit slice of the glyph ID each of the
// three planes hashes on. The specific values were tuned empirically for
// real-world glyph ID distributions rather than derived analytically; any
// three distinct shifts still produce a correct (if less selective)
// filter.
var glyphDigestShifts = [3]uint{4, 0, 9}

func bitFor(g gID, shift uint) planeMask {
	return 1 << ((uint32(g) >> shift) & (planeMaskBits - 1))
}

func (m *planeMask) set(g gID, shift uint) { *m |= bitFor(g, shift) }

// setRange ORs in every bit touched by glyphs a..b inclusive. When the
// range spans more distinct buckets than the mask has bits, every bucket
// is touched and the mask saturates to all-ones.
func (m *planeMask) setRange(a, b gID, shift uint) {
	lo := bitFor(a, shift)
	hi := bitFor(b, shift)
	if (uint32(b)>>shift)-(uint32(a)>>shift) >= planeMaskBits-1 {
		*m = ^planeMask(0)
		return
	}
	borrow := planeMask(0)
	if hi < lo {
		borrow = 1
	}
	*m |= hi + (hi - lo) - borrow
}

func (m *planeMask) setMany(glyphs []gID, shift uint) {
	for _, g := range glyphs {
		m.set(g, shift)
	}
}

func (m planeMask) mayContain(g gID, shift uint) bool {
	return m&bitFor(g, shift) != 0
}

func (m planeMask) overlaps(other planeMask) bool {
	return m&other != 0
}

// add records that glyph g belongs to the filtered set.
func (sd *setDigest) add(g gID) {
	for i, shift := range glyphDigestShifts {
		sd[i].set(g, shift)
	}
}

// addRange records every glyph in [a, b] as belonging to the set.
func (sd *setDigest) addRange(a, b gID) {
	for i, shift := range glyphDigestShifts {
		sd[i].setRange(a, b, shift)
	}
}

// addArray records every glyph in glyphs as belonging to the set.
func (sd *setDigest) addArray(glyphs []gID) {
	for i, shift := range glyphDigestShifts {
		sd[i].setMany(glyphs, shift)
	}
}

// mayHave answers an approximate membership query: false means g is
// definitely not in the digest; true means it might be (and always is, for
// any glyph actually added).
func (sd setDigest) mayHave(g gID) bool {
	for i, shift := range glyphDigestShifts {
		if !sd[i].mayContain(g, shift) {
			return false
		}
	}
	return true
}

// mayHaveDigest answers whether the sets the two digests approximate could
// possibly intersect, used to skip a whole lookup against a buffer digest
// before walking its subtables.
func (sd setDigest) mayHaveDigest(other setDigest) bool {
	for i := range sd {
		if !sd[i].overlaps(other[i]) {
			return false
		}
	}
	return true
}

// collectCoverage folds every glyph named by an OpenType Coverage table
// into the digest, without materializing the coverage as a glyph slice
// first.
func (sd *setDigest) collectCoverage(cov tables.Coverage) {
	switch cov := cov.(type) {
	case tables.Coverage1:
		sd.addArray(cov.Glyphs)
	case tables.Coverage2:
		for _, r := range cov.Ranges {
			sd.addRange(r.StartGlyphID, r.EndGlyphID)
		}
	}
}
