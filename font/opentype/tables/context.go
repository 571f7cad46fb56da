package tables

// SequenceLookupRecord names a nested lookup to apply at a fixed offset
// into a matched sequence (shared by GSUB's ContextualSubst/
// ChainedContextualSubst and GPOS's ContextualPos/ChainedContextualPos,
// spec §4.4/§4.5).
type SequenceLookupRecord struct {
	SequenceIndex   uint16
	LookupListIndex uint16
}

// SequenceRule is one input-sequence alternative of a SequenceRuleSet; the
// first glyph is implied by the rule set's coverage index, so InputSequence
// holds only the second glyph onward.
type SequenceRule struct {
	InputSequence    []uint16
	SeqLookupRecords []SequenceLookupRecord
}

// SequenceRuleSet groups every rule that starts at the same coverage index
// (glyph, for format 1; class, for format 2).
type SequenceRuleSet struct {
	SeqRule []SequenceRule
}

// SequenceContextFormat1 matches the input sequence glyph-by-glyph via
// explicit SequenceRuleSets keyed by a Coverage index.
type SequenceContextFormat1 struct {
	Coverage   Coverage
	SeqRuleSet []SequenceRuleSet
}

// SequenceContextFormat2 matches the input sequence by glyph class.
type SequenceContextFormat2 struct {
	Coverage        Coverage
	ClassDef        ClassDef
	ClassSeqRuleSet []SequenceRuleSet
}

// SequenceContextFormat3 matches one fixed, fully-enumerated glyph sequence
// against a list of per-position Coverages.
type SequenceContextFormat3 struct {
	Coverages        []Coverage
	SeqLookupRecords []SequenceLookupRecord
}

// ChainedSequenceRule is SequenceRule plus backtrack/lookahead context.
type ChainedSequenceRule struct {
	BacktrackSequence []uint16
	InputSequence     []uint16
	LookaheadSequence []uint16
	SeqLookupRecords  []SequenceLookupRecord
}

// ChainedSequenceRuleSet groups ChainedSequenceRules sharing a glyph-keyed
// coverage index (format 1).
type ChainedSequenceRuleSet struct {
	ChainedSeqRules []ChainedSequenceRule
}

// ChainedClassSequenceRuleSet is ChainedSequenceRuleSet for the class-keyed
// format 2, named separately because the two formats are never mixed at a
// single call site even though the underlying rule shape is identical.
type ChainedClassSequenceRuleSet struct {
	ChainedSeqRules []ChainedSequenceRule
}

// ChainedSequenceContextFormat1 is the glyph-sequence chaining-context
// format.
type ChainedSequenceContextFormat1 struct {
	Coverage          Coverage
	ChainedSeqRuleSet []ChainedSequenceRuleSet
}

// ChainedSequenceContextFormat2 is the glyph-class chaining-context format.
type ChainedSequenceContextFormat2 struct {
	Coverage                                             Coverage
	BacktrackClassDef, InputClassDef, LookaheadClassDef  ClassDef
	ChainedClassSeqRuleSet                                []ChainedClassSequenceRuleSet
}

// ChainedSequenceContextFormat3 is the fully-enumerated chaining-context
// format.
type ChainedSequenceContextFormat3 struct {
	BacktrackCoverages, InputCoverages, LookaheadCoverages []Coverage
	SeqLookupRecords                                        []SequenceLookupRecord
}
