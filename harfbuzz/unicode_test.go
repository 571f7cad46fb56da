package harfbuzz

import "testing"

func TestSpaceFallbackClassification(t *testing.T) {
	cases := []struct {
		r    rune
		want uint8
	}{
		{0x0020, space_EM},
		{0x2000, space_EM_2},
		{0x2007, spaceFigure},
		{0x2008, spacePunctuation},
		{0x202F, spaceNarrow},
		{'A', notSpace},
	}
	for _, c := range cases {
		if got := unicodeSpaceFallbackType(c.r); got != c.want {
			t.Errorf("unicodeSpaceFallbackType(%#x) = %d, want %d", c.r, got, c.want)
		}
	}
}

func TestComputeUnicodePropsSetsSpaceFallbackFlag(t *testing.T) {
	prop, flags := computeUnicodeProps(0x2002) // EN SPACE
	if flags&bsfHasSpaceFallback == 0 {
		t.Fatal("a classified space character should raise bsfHasSpaceFallback")
	}
	if uint8(prop>>8) != space_EM_2 {
		t.Fatalf("packed space fallback type = %d, want %d", uint8(prop>>8), space_EM_2)
	}

	_, flags = computeUnicodeProps('A')
	if flags&bsfHasSpaceFallback != 0 {
		t.Fatal("a non-space character should not raise bsfHasSpaceFallback")
	}
}
