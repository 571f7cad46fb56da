package harfbuzz

import "testing"

func setCCC(info *GlyphInfo, ccc uint8) {
	info.unicode = unicodeProp(nonSpacingMark) | unicodeProp(ccc)<<8
}

func TestHebrewReorderMarksSwapsMetegPattern(t *testing.T) {
	buffer := NewBuffer()
	buffer.AddRunes([]rune{'A', 'B', 'C'}, 0)
	setCCC(&buffer.Info[0], hebrewCCC18) // qamats
	setCCC(&buffer.Info[1], hebrewCCC10) // sheva
	setCCC(&buffer.Info[2], hebrewCCC22) // meteg

	shaper := complexShaperHebrew{}
	shaper.reorderMarks(nil, buffer, 0, 3)

	if buffer.Info[1].codepoint != 'C' || buffer.Info[2].codepoint != 'B' {
		t.Fatalf("expected sheva/meteg pair to swap, got %c %c", buffer.Info[1].codepoint, buffer.Info[2].codepoint)
	}
}

func TestHebrewComposeDagesh(t *testing.T) {
	shaper := complexShaperHebrew{}
	got, ok := shaper.compose(&otNormalizeContext{}, 0x05D1, 0x05BC) // BET + DAGESH
	if !ok || got != 0xFB31 {
		t.Fatalf("compose(BET, DAGESH) = (%#x, %v), want (0xfb31, true)", got, ok)
	}

	if _, ok := shaper.compose(&otNormalizeContext{}, 0x05D7, 0x05BC); ok { // HET has no dagesh form
		t.Fatal("HET has no precomposed dagesh form, compose should report ok=false")
	}
}
