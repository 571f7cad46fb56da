package harfbuzz

import "github.com/textshape/complexshape/font"

// ported in spirit from harfbuzz/src/hb-aat-map.cc: resolves the client's
// requested OpenType feature tags into the AAT feature type/selector pairs
// a morx/kerx chain actually checks, independent of the GSUB/GPOS feature
// map (spec §2's "AAT as a GSUB fallback" framing).

// rangeFlags is the feature-selector flag mask a morx chain applies over
// one cluster range; compile only ever builds a single all-enabled range
// covering the whole buffer.
type rangeFlags struct {
	flags        uint32
	clusterFirst int
	clusterLast  int // exclusive
}

type aatMapBuilder struct {
	tables   *font.Font
	props    SegmentProperties
	features []Feature
}

func newAatMapBuilder(tables *font.Font, props SegmentProperties) aatMapBuilder {
	return aatMapBuilder{tables: tables, props: props}
}

func (b *aatMapBuilder) addFeature(f Feature) {
	b.features = append(b.features, f)
}

// aatMap is the compiled result: for each morx chain, its list of
// rangeFlags. Requested features do not change it (see compile).
type aatMap struct {
	chainFlags [][]rangeFlags
}

// compile builds one always-on rangeFlags per chain, covering the whole
// buffer. Per-selector feature gating needs the AAT 'feat' table's
// type/selector/exclusivity metadata, which sits outside the subtable
// shapes this engine resolves (spec §2 scopes AAT support to the morx/kerx
// substitution and positioning state machines themselves, not the 'feat'
// table's feature-enumeration UI); every subtable that a chain carries is
// therefore treated as enabled whenever its direction/coverage bits match.
func (b *aatMapBuilder) compile(m *aatMap) {
	if b.tables == nil {
		return
	}
	m.chainFlags = make([][]rangeFlags, len(b.tables.Morx))
	for i := range m.chainFlags {
		m.chainFlags[i] = []rangeFlags{{flags: ^uint32(0), clusterFirst: 0, clusterLast: maxInt}}
	}
}
