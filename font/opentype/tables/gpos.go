package tables

// GPOSLookup is the per-subtable interface every GPOS lookup type
// implements: only a coverage accessor is needed generically, the engine
// dispatches the rest by a Go type switch (spec §4.5, design note on
// monomorphic dispatch vs. interface methods per operation).
type GPOSLookup interface {
	Cov() Coverage
}

// SinglePosData1 applies the same ValueRecord to every covered glyph.
type SinglePosData1 struct {
	ValueFormat ValueFormat
	ValueRecord ValueRecord
}

// SinglePosData2 applies a distinct ValueRecord per covered glyph.
type SinglePosData2 struct {
	ValueFormat  ValueFormat
	ValueRecords []ValueRecord
}

// SinglePos is GPOS lookup type 1.
type SinglePos struct {
	Coverage Coverage
	Data     interface{} // SinglePosData1 | SinglePosData2
}

func (s SinglePos) Cov() Coverage { return s.Coverage }

// PairValueRecord is one entry of a PairSet: the second glyph of the pair
// plus the adjustment applied to each side.
type PairValueRecord struct {
	SecondGlyph                     GID
	ValueRecord1, ValueRecord2       ValueRecord
}

// PairSet is every pairing recorded for one first glyph, sorted by second
// glyph for binary search.
type PairSet struct {
	PairValueRecords []PairValueRecord
}

// FindGlyph looks up the pairing for second glyph g.
func (p PairSet) FindGlyph(g GID) (PairValueRecord, bool) {
	lo, hi := 0, len(p.PairValueRecords)
	for lo < hi {
		mid := (lo + hi) / 2
		r := p.PairValueRecords[mid]
		if r.SecondGlyph < g {
			lo = mid + 1
		} else if r.SecondGlyph > g {
			hi = mid
		} else {
			return r, true
		}
	}
	return PairValueRecord{}, false
}

// PairPosData1 is GPOS pair-adjustment format 1: explicit glyph pairs, one
// PairSet per covered first glyph.
type PairPosData1 struct {
	PairSets                   []PairSet
	ValueFormat1, ValueFormat2 ValueFormat
}

// ClassPairValueRecord is one (class1, class2) cell of a PairPosData2
// matrix.
type ClassPairValueRecord struct {
	ValueRecord1, ValueRecord2 ValueRecord
}

// PairPosData2 is GPOS pair-adjustment format 2: a class1 x class2 matrix
// of adjustments.
type PairPosData2 struct {
	ClassDef1, ClassDef2       ClassDef
	Class1Count, Class2Count   int
	Records                    []ClassPairValueRecord // row-major, len == Class1Count*Class2Count
	ValueFormat1, ValueFormat2 ValueFormat
}

// Record returns the adjustment cell for (class1, class2).
func (p PairPosData2) Record(class1, class2 uint16) ClassPairValueRecord {
	i := int(class1)*p.Class2Count + int(class2)
	if i < 0 || i >= len(p.Records) {
		return ClassPairValueRecord{}
	}
	return p.Records[i]
}

// PairPos is GPOS lookup type 2.
type PairPos struct {
	Coverage Coverage
	Data     interface{} // PairPosData1 | PairPosData2
}

func (p PairPos) Cov() Coverage { return p.Coverage }

// CursiveEntryExit is one covered glyph's entry/exit anchors; either may be
// nil.
type CursiveEntryExit struct {
	EntryAnchor, ExitAnchor Anchor
}

// CursivePos is GPOS lookup type 3.
type CursivePos struct {
	Coverage   Coverage
	EntryExits []CursiveEntryExit
}

func (c CursivePos) Cov() Coverage { return c.Coverage }

// BaseArray is MarkBasePos' per-base anchor table.
type BaseArray struct {
	anchors AnchorMatrix
}

// NewBaseArray wraps a prebuilt anchor matrix.
func NewBaseArray(m AnchorMatrix) BaseArray { return BaseArray{anchors: m} }

func (b BaseArray) Anchors() AnchorMatrix { return b.anchors }

// MarkBasePos is GPOS lookup type 4.
type MarkBasePos struct {
	MarkCoverage, BaseCoverage Coverage
	MarkArray                  MarkArray
	BaseArray                  BaseArray
}

func (m MarkBasePos) Cov() Coverage { return m.MarkCoverage }

// LigatureAttach is one ligature glyph's per-component anchor table.
type LigatureAttach struct {
	anchors AnchorMatrix
}

// NewLigatureAttach wraps a prebuilt anchor matrix.
func NewLigatureAttach(m AnchorMatrix) LigatureAttach { return LigatureAttach{anchors: m} }

func (l LigatureAttach) Anchors() AnchorMatrix { return l.anchors }

// LigatureArrayTable is MarkLigPos' per-ligature attach table.
type LigatureArrayTable struct {
	LigatureAttachs []LigatureAttach
}

// MarkLigPos is GPOS lookup type 5.
type MarkLigPos struct {
	MarkCoverage, LigatureCoverage Coverage
	MarkArray                      MarkArray
	LigatureArray                  LigatureArrayTable
}

func (m MarkLigPos) Cov() Coverage { return m.MarkCoverage }

// Mark2Array is MarkMarkPos' per-base-mark anchor table.
type Mark2Array struct {
	anchors AnchorMatrix
}

// NewMark2Array wraps a prebuilt anchor matrix.
func NewMark2Array(m AnchorMatrix) Mark2Array { return Mark2Array{anchors: m} }

func (m Mark2Array) Anchors() AnchorMatrix { return m.anchors }

// MarkMarkPos is GPOS lookup type 6.
type MarkMarkPos struct {
	Mark1Coverage, Mark2Coverage Coverage
	Mark1Array                   MarkArray
	Mark2Array                   Mark2Array
}

func (m MarkMarkPos) Cov() Coverage { return m.Mark1Coverage }

// ContextualPos1/2/3 mirror SequenceContextFormat1/2/3 exactly so the
// engine can convert between them with a plain type conversion instead of
// duplicating the matching code for GPOS lookup type 7.
type ContextualPos1 SequenceContextFormat1
type ContextualPos2 SequenceContextFormat2
type ContextualPos3 SequenceContextFormat3

// ContextualPos is GPOS lookup type 7.
type ContextualPos struct {
	Data interface{} // ContextualPos1 | ContextualPos2 | ContextualPos3
}

func (c ContextualPos) Cov() Coverage {
	switch d := c.Data.(type) {
	case ContextualPos1:
		return d.Coverage
	case ContextualPos2:
		return d.Coverage
	case ContextualPos3:
		if len(d.Coverages) != 0 {
			return d.Coverages[0]
		}
	}
	return EmptyCoverage{}
}

// ChainedContextualPos1/2/3 mirror ChainedSequenceContextFormat1/2/3, for
// GPOS lookup type 8.
type ChainedContextualPos1 ChainedSequenceContextFormat1
type ChainedContextualPos2 ChainedSequenceContextFormat2
type ChainedContextualPos3 ChainedSequenceContextFormat3

// ChainedContextualPos is GPOS lookup type 8.
type ChainedContextualPos struct {
	Data interface{} // ChainedContextualPos1 | ChainedContextualPos2 | ChainedContextualPos3
}

func (c ChainedContextualPos) Cov() Coverage {
	switch d := c.Data.(type) {
	case ChainedContextualPos1:
		return d.Coverage
	case ChainedContextualPos2:
		return d.Coverage
	case ChainedContextualPos3:
		if len(d.InputCoverages) != 0 {
			return d.InputCoverages[0]
		}
	}
	return EmptyCoverage{}
}
