package harfbuzz

import "testing"

func TestHangulDecomposeCompose(t *testing.T) {
	shaper := complexShaperHangul{}

	// 가 (GA), an LV syllable with no trailing consonant.
	l, v, ok := shaper.decompose(nil, 0xAC00)
	if !ok || l != hangulLBase || v != hangulVBase {
		t.Fatalf("decompose(GA) = (%#x, %#x, %v), want (%#x, %#x, true)", l, v, ok, hangulLBase, hangulVBase)
	}

	s, ok := shaper.compose(nil, l, v)
	if !ok || s != 0xAC00 {
		t.Fatalf("compose(L, V) = (%#x, %v), want (0xac00, true)", s, ok)
	}

	// 각 (GAG), an LVT syllable.
	lv, tPart, ok := shaper.decompose(nil, 0xAC01)
	if !ok {
		t.Fatal("decompose(GAG) reported ok=false")
	}
	s2, ok := shaper.compose(nil, lv, tPart)
	if !ok || s2 != 0xAC01 {
		t.Fatalf("compose(LV, T) = (%#x, %v), want (0xac01, true)", s2, ok)
	}
}

func TestHangulDecomposeOutOfRange(t *testing.T) {
	shaper := complexShaperHangul{}
	// 'A' is well outside the Hangul syllable block.
	if _, _, ok := shaper.decompose(nil, 'A'); ok {
		t.Fatal("decompose of a non-Hangul codepoint should defer to the generic decomposer, not report ok=true")
	}
}
