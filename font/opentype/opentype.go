// Package opentype holds the handful of OpenType-specific helpers that sit
// above the plain-data tables package: tag construction and the small
// constants callers building a font.Layout by hand want close at hand.
package opentype

import "github.com/textshape/complexshape/font/opentype/tables"

// Tag re-exports tables.Tag; code that otherwise has no reason to import
// tables (most complex-shaper files only need feature/script tags) imports
// this package under the conventional "ot" alias instead.
type Tag = tables.Tag

// NewTag packs four ASCII bytes into a Tag the way OpenType stores them:
// big-endian, so Tag values sort and print the same way font tools show
// them.
func NewTag(a, b, c, d byte) Tag {
	return Tag(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// MustNewTag is NewTag from a 4-byte ASCII string literal, for the many
// feature/script/language tag tables that read better as string constants
// than four-byte-literal calls; panics if s isn't exactly 4 bytes, so it is
// only ever used at package-init time on literals, never on user input.
func MustNewTag(s string) Tag {
	if len(s) != 4 {
		panic("opentype: tag must be 4 bytes: " + s)
	}
	return NewTag(s[0], s[1], s[2], s[3])
}
