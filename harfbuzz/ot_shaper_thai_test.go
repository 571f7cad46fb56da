package harfbuzz

import "testing"

func TestSplitThaiSaraAm(t *testing.T) {
	buffer := NewBuffer()
	buffer.AddRunes([]rune{0x0E01, thaiSaraAm}, 0) // KO KAI + SARA AM

	splitThaiSaraAm(buffer)

	if len(buffer.Info) != 3 {
		t.Fatalf("expected SARA AM to split into 2 glyphs (3 total), got %d", len(buffer.Info))
	}
	if buffer.Info[1].codepoint != thaiNikhahit {
		t.Fatalf("first half of the split should be NIKHAHIT (%#x), got %#x", thaiNikhahit, buffer.Info[1].codepoint)
	}
	if buffer.Info[2].codepoint != thaiSaraAa {
		t.Fatalf("second half of the split should be SARA AA (%#x), got %#x", thaiSaraAa, buffer.Info[2].codepoint)
	}
}

func TestReorderThaiLeadingVowel(t *testing.T) {
	buffer := NewBuffer()
	// SARA E (leading vowel) followed by KO KAI: should become consonant-first.
	buffer.AddRunes([]rune{0x0E40, 0x0E01}, 0)

	reorderThaiLaoLeadingVowels(buffer)

	if buffer.Info[0].codepoint != 0x0E01 || buffer.Info[1].codepoint != 0x0E40 {
		t.Fatalf("leading vowel should be swapped after its consonant, got %#x %#x",
			buffer.Info[0].codepoint, buffer.Info[1].codepoint)
	}
}

func TestIsThaiLaoLeadingVowel(t *testing.T) {
	cases := map[rune]bool{
		0x0E40: true, 0x0E44: true, 0x0EC0: true, 0x0EC4: true,
		0x0E01: false, 0x0E33: false,
	}
	for r, want := range cases {
		if got := isThaiLaoLeadingVowel(r); got != want {
			t.Errorf("isThaiLaoLeadingVowel(%#x) = %v, want %v", r, got, want)
		}
	}
}
