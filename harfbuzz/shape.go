package harfbuzz

import (
	"sync"

	"github.com/textshape/complexshape/font"
	"github.com/textshape/complexshape/font/opentype/tables"
)

// ported in spirit from harfbuzz/src/hb-shape-plan.cc: the compiled,
// reusable plan a caller builds once per (face, script, language,
// direction) combination and replays across every buffer that shares it,
// plus the top-level Shape entry point that compiles one on demand.

// ShapePlan is shaperOpentype's feature/lookup compilation, exported so a
// caller can build it once and reuse it across many Shape calls instead of
// recompiling the feature map for every buffer.
type ShapePlan struct {
	shaper shaperOpentype
}

// NewShapePlan compiles a plan for parsedFont under props, applying
// userFeatures; coords is the normalized variation instance (nil for a
// static font).
func NewShapePlan(parsedFont *font.Font, props SegmentProperties, userFeatures []Feature, coords []tables.Coord) *ShapePlan {
	var sp ShapePlan
	sp.shaper.init(parsedFont, coords)
	sp.shaper.compile(props, userFeatures)
	return &sp
}

// Shape runs sp's compiled plan over buffer, substituting and positioning
// every glyph in place. buffer.Props must match the SegmentProperties the
// plan was compiled for; a mismatched script or direction produces
// nonsensical output since the feature map was built for a different run.
func (sp *ShapePlan) Shape(fnt *Font, buffer *Buffer, features []Feature) {
	sp.shaper.shape(fnt, buffer, features)
}

// Shape is the one-shot convenience entry point: compile a plan for
// buffer.Props and shape immediately, with no caching. Callers that reshape
// the same face against the same script/language/direction repeatedly
// should build a ShapePlanCache instead, so the feature map is compiled
// once rather than on every call.
func Shape(parsedFont *font.Font, fnt *Font, buffer *Buffer, features []Feature, coords []tables.Coord) {
	NewShapePlan(parsedFont, buffer.Props, features, coords).Shape(fnt, buffer, features)
}

// shapePlanCacheKey identifies a compiled plan by the parsed font it was
// built from and the segment properties it was compiled for. It does not
// include the user feature list: two calls against the same face and
// script that pass different feature overrides will share a cached plan
// compiled for whichever one ran first. Callers whose feature set varies
// per call on an otherwise-stable (face, script) pair should bypass the
// cache and call NewShapePlan directly.
type shapePlanCacheKey struct {
	parsedFont *font.Font
	props      SegmentProperties
}

// ShapePlanCache bounds how many compiled plans a long-running caller
// keeps around, evicting the least recently used entry once it grows past
// capacity. A capacity of 0 disables eviction.
type ShapePlanCache struct {
	capacity int

	mu    sync.Mutex
	order []shapePlanCacheKey
	plans map[shapePlanCacheKey]*ShapePlan
}

// NewShapePlanCache builds an empty cache holding at most capacity plans.
func NewShapePlanCache(capacity int) *ShapePlanCache {
	return &ShapePlanCache{capacity: capacity, plans: map[shapePlanCacheKey]*ShapePlan{}}
}

func (c *ShapePlanCache) getOrCompile(parsedFont *font.Font, props SegmentProperties, userFeatures []Feature, coords []tables.Coord) *ShapePlan {
	key := shapePlanCacheKey{parsedFont: parsedFont, props: props}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.plans[key]; ok {
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i:i], c.order[i+1:]...)
				break
			}
		}
		c.order = append(c.order, key)
		return p
	}

	p := NewShapePlan(parsedFont, props, userFeatures, coords)
	if c.capacity > 0 && len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.plans, oldest)
	}
	c.plans[key] = p
	c.order = append(c.order, key)
	return p
}

// Shape compiles (or reuses) a plan for buffer.Props and shapes buffer in
// place.
func (c *ShapePlanCache) Shape(parsedFont *font.Font, fnt *Font, buffer *Buffer, features []Feature, coords []tables.Coord) {
	c.getOrCompile(parsedFont, buffer.Props, features, coords).Shape(fnt, buffer, features)
}
