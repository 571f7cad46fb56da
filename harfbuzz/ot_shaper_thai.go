package harfbuzz

// ported in spirit from harfbuzz/src/hb-ot-shaper-thai.cc: Thai and Lao
// store certain vowel signs before their consonant, in visual order, even
// though they are pronounced after it. Before any substitution runs,
// preprocessText swaps each such leading vowel with the consonant that
// follows it, so the vowel comes after its consonant, and splits Thai's
// SARA AM into its two visual components.

var _ otComplexShaper = complexShaperThai{}

type complexShaperThai struct {
	complexShaperNil
}

func (complexShaperThai) marksBehavior() (zeroWidthMarks, bool) {
	return zeroWidthMarksNone, false
}

func (complexShaperThai) normalizationPreference() normalizationMode {
	return nmComposedDiacritics
}

// isThaiLaoLeadingVowel reports whether r is one of the five Thai or five
// Lao vowel signs that are stored and drawn before their consonant (the
// SARA E/EE/O/AI-MAIMUAN/AI-MAIMALAI group and its Lao analogues).
func isThaiLaoLeadingVowel(r rune) bool {
	return (r >= 0x0E40 && r <= 0x0E44) || (r >= 0x0EC0 && r <= 0x0EC4)
}

const (
	thaiSaraAm      = 0x0E33
	thaiNikhahit    = 0x0E4D
	thaiSaraAa      = 0x0E32
)

func (complexShaperThai) preprocessText(_ *otShapePlan, buffer *Buffer, _ *Font) {
	splitThaiSaraAm(buffer)
	reorderThaiLaoLeadingVowels(buffer)
}

// splitThaiSaraAm rewrites every SARA AM into NIKHAHIT followed by SARA AA,
// the decomposition old Thai fonts (and the reordering pass below) expect;
// modern fonts with a SARA AM glyph of their own still render this
// correctly since GSUB ccmp/liga rules can recompose the pair.
func splitThaiSaraAm(buffer *Buffer) {
	info := buffer.Info
	for i := 0; i < len(info); i++ {
		if info[i].codepoint != thaiSaraAm {
			continue
		}
		nikhahit := info[i]
		nikhahit.codepoint = thaiNikhahit
		nikhahit.setUnicodeProps(buffer)

		info[i].codepoint = thaiSaraAa
		info[i].setUnicodeProps(buffer)

		info = append(info[:i], append([]GlyphInfo{nikhahit}, info[i:]...)...)
		i++
	}
	buffer.Info = info
}

// reorderThaiLaoLeadingVowels swaps each leading vowel with the consonant
// immediately following it, a single forward pass since a leading vowel is
// never itself preceded by another leading vowel in well-formed text.
func reorderThaiLaoLeadingVowels(buffer *Buffer) {
	info := buffer.Info
	for i := 0; i+1 < len(info); i++ {
		if isThaiLaoLeadingVowel(info[i].codepoint) && !isThaiLaoLeadingVowel(info[i+1].codepoint) {
			info[i], info[i+1] = info[i+1], info[i]
			i++
		}
	}
}
