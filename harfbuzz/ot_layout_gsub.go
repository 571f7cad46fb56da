package harfbuzz

import (
	"fmt"
	"math/bits"

	"github.com/textshape/complexshape/font"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// ported from harfbuzz/src/hb-ot-layout-gsub-table.hh Copyright © 2007,2008,2009,2010  Red Hat, Inc.; 2010,2012,2013  Google, Inc.  Behdad Esfahbod

var _ layoutLookup = lookupGSUB{}

// implements layoutLookup
type lookupGSUB font.GSUBLookup

func (l lookupGSUB) Props() uint32 { return l.LookupOptions.Props() }

func (l lookupGSUB) collectCoverage(dst *setDigest) {
	for _, table := range l.Subtables {
		dst.collectCoverage(table.Cov())
	}
}

func (l lookupGSUB) dispatchSubtables(ctx *getSubtablesContext) {
	for _, table := range l.Subtables {
		*ctx = append(*ctx, newGSUBApplicable(table))
	}
}

func (l lookupGSUB) dispatchApply(ctx *otApplyContext) bool {
	for _, table := range l.Subtables {
		if ctx.applyGSUB(table) {
			return true
		}
	}
	return false
}

func (l lookupGSUB) isReverse() bool {
	for _, table := range l.Subtables {
		if _, ok := table.(tables.ReverseChainSingleSubst); ok {
			return true
		}
	}
	return false
}

func applyRecurseGSUB(c *otApplyContext, lookupIndex uint16) bool {
	gsub := c.font.face.GSUB
	l := lookupGSUB(gsub.Lookups[lookupIndex])
	return c.applyRecurseLookup(lookupIndex, l)
}

// applyGSUB returns true if the substitution found a match and was applied.
// Reverse-chaining single substitution is handled separately by the caller
// since it walks the buffer back to front instead of forward.
func (c *otApplyContext) applyGSUB(table tables.GSUBLookup) bool {
	buffer := c.buffer
	glyphID := buffer.cur(0).Glyph
	index, ok := table.Cov().Index(gID(glyphID))
	if !ok {
		return false
	}

	if debugMode {
		fmt.Printf("\tAPPLY - type %T at index %d\n", table, c.buffer.idx)
	}

	switch data := table.(type) {
	case tables.SingleSubst:
		switch inner := data.Data.(type) {
		case tables.SingleSubstData1:
			c.replaceGlyph(glyphID + GID(inner.DeltaGlyphID))
		case tables.SingleSubstData2:
			if int(index) >= len(inner.SubstituteGlyphIDs) {
				return false
			}
			c.replaceGlyph(inner.SubstituteGlyphIDs[index])
		}
		return true

	case tables.MultipleSubst:
		if int(index) >= len(data.Sequences) {
			return false
		}
		return c.applyGSUBMultiple(data.Sequences[index])

	case tables.AlternateSubst:
		if int(index) >= len(data.AlternateSets) {
			return false
		}
		return c.applyGSUBAlternate(data.AlternateSets[index])

	case tables.LigatureSubst:
		if int(index) >= len(data.LigatureSets) {
			return false
		}
		return c.applyGSUBLigatureSet(data.LigatureSets[index])

	case tables.ContextualSubst:
		switch inner := data.Data.(type) {
		case tables.ContextualSubst1:
			return c.applyLookupContext1(tables.SequenceContextFormat1(inner), index)
		case tables.ContextualSubst2:
			return c.applyLookupContext2(tables.SequenceContextFormat2(inner), index, glyphID)
		case tables.ContextualSubst3:
			return c.applyLookupContext3(tables.SequenceContextFormat3(inner), index)
		}

	case tables.ChainedContextualSubst:
		switch inner := data.Data.(type) {
		case tables.ChainedContextualSubst1:
			return c.applyLookupChainedContext1(tables.ChainedSequenceContextFormat1(inner), index)
		case tables.ChainedContextualSubst2:
			return c.applyLookupChainedContext2(tables.ChainedSequenceContextFormat2(inner), index, glyphID)
		case tables.ChainedContextualSubst3:
			return c.applyLookupChainedContext3(tables.ChainedSequenceContextFormat3(inner), index)
		}

	case tables.ReverseChainSingleSubst:
		return c.applyGSUBReverseChainSingle(data)
	}
	return false
}

// applyGSUBMultiple implements one-to-many substitution (GSUB lookup type 2).
func (c *otApplyContext) applyGSUBMultiple(seq tables.Sequence) bool {
	buffer := c.buffer
	switch len(seq.SubstituteGlyphIDs) {
	case 0:
		// Spec disallows empty sequences; treat as a deletion of the input glyph.
		c.setGlyphClassExt(0, 0, false, false)
		buffer.idx++
		return true
	case 1:
		c.replaceGlyph(seq.SubstituteGlyphIDs[0])
		return true
	}

	buffer.mergeClusters(buffer.idx, buffer.idx+1)
	c.setGlyphClassExt(seq.SubstituteGlyphIDs[0], 0, false, false)
	for i, g := range seq.SubstituteGlyphIDs {
		if i != 0 {
			c.setGlyphClassExt(g, 0, false, true)
		}
	}
	buffer.replaceGlyphs(1, nil, seq.SubstituteGlyphIDs)
	return true
}

// applyGSUBAlternate implements one-from-many substitution (GSUB lookup
// type 3): the active alternate is selected from the lookup mask bits the
// map builder assigned the feature, falling back to the first alternate
// when no mask bit (or random pick) selects a valid index.
func (c *otApplyContext) applyGSUBAlternate(set tables.AlternateSet) bool {
	count := uint32(len(set.AlternateGlyphIDs))
	if count == 0 {
		return false
	}

	var altIndex uint32
	if c.random {
		altIndex = c.randomNumber()%count + 1
	} else if c.lookupMask != 0 {
		shift := bits.TrailingZeros32(uint32(c.lookupMask))
		altIndex = (uint32(c.buffer.cur(0).Mask) & uint32(c.lookupMask)) >> uint(shift)
	}

	if altIndex == 0 || altIndex > count {
		altIndex = 1
	}
	c.replaceGlyph(set.AlternateGlyphIDs[altIndex-1])
	return true
}

// applyGSUBLigatureSet implements ligature substitution (GSUB lookup type
// 4): the first ligature in the set whose remaining components match the
// following glyphs wins.
func (c *otApplyContext) applyGSUBLigatureSet(set tables.LigatureSet) bool {
	for _, lig := range set.Ligatures {
		if c.applyGSUBLigature(lig) {
			return true
		}
	}
	return false
}

func (c *otApplyContext) applyGSUBLigature(lig tables.Ligature) bool {
	buffer := c.buffer
	componentCount := len(lig.ComponentGlyphIDs)

	if componentCount == 0 {
		c.replaceGlyph(lig.LigatureGlyph)
		return true
	}

	var matchPositions [maxContextLength]int
	ok, matchEnd, totalComponentCount := c.matchInput(lig.ComponentGlyphIDs, matchGlyph, &matchPositions)
	if !ok {
		if matchEnd != 0 {
			buffer.unsafeToConcat(buffer.idx, matchEnd)
		}
		return false
	}
	c.ligateInput(componentCount+1, matchPositions, matchEnd, gID(lig.LigatureGlyph), totalComponentCount)
	return true
}

// applyGSUBReverseChainSingle implements reverse-chaining contextual single
// substitution (GSUB lookup type 8), which the caller drives back-to-front
// over the whole buffer instead of through the forward substituteLookup
// loop every other lookup type uses.
func (c *otApplyContext) applyGSUBReverseChainSingle(data tables.ReverseChainSingleSubst) bool {
	buffer := c.buffer
	if buffer.idx >= len(buffer.Info) {
		return false
	}
	glyphID := buffer.cur(0).Glyph
	index, ok := data.Coverage.Index(gID(glyphID))
	if !ok || index >= len(data.SubstituteGlyphIDs) {
		return false
	}

	ok, _ = c.matchBacktrackCoverages(data.BacktrackCoverages)
	if !ok {
		return false
	}
	ok, _ = c.matchLookaheadCoverages(data.LookaheadCoverages, buffer.idx+1)
	if !ok {
		return false
	}

	c.replaceGlyph(data.SubstituteGlyphIDs[index])
	return true
}

func (c *otApplyContext) matchBacktrackCoverages(covs []tables.Coverage) (bool, int) {
	glyphs := make([]uint16, len(covs))
	for i := range glyphs {
		glyphs[i] = uint16(i)
	}
	return c.matchBacktrack(glyphs, matchCoverage(covs))
}

func (c *otApplyContext) matchLookaheadCoverages(covs []tables.Coverage, startIndex int) (bool, int) {
	glyphs := make([]uint16, len(covs))
	for i := range glyphs {
		glyphs[i] = uint16(i)
	}
	return c.matchLookahead(glyphs, matchCoverage(covs), startIndex)
}
